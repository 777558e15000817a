package domain

// DepositStatus represents the backend's view of a deposit.
type DepositStatus string

const (
	DepositStatusPending DepositStatus = "pending"
	DepositStatusPaid    DepositStatus = "paid"
	DepositStatusFailed  DepositStatus = "failed"
)

// IsTerminal reports whether no further status transition is expected.
// The backend keeps terminal statuses stable across reads.
func (s DepositStatus) IsTerminal() bool {
	return s == DepositStatusPaid || s == DepositStatusFailed
}

// Deposit mirrors a server-owned deposit record. The client never mutates it
// directly except through the forced-timeout mark on the status endpoint.
type Deposit struct {
	ID      string
	Status  DepositStatus
	Amount  int64
	Balance int64
}

// DepositOutcomeState is the terminal state a confirmation workflow ended in.
type DepositOutcomeState string

const (
	DepositOutcomeSucceeded DepositOutcomeState = "succeeded"
	DepositOutcomeFailed    DepositOutcomeState = "failed"
	DepositOutcomeTimedOut  DepositOutcomeState = "timed_out"
	DepositOutcomeAbandoned DepositOutcomeState = "abandoned"
	DepositOutcomeCancelled DepositOutcomeState = "cancelled"
)

// DepositOutcome is the result of a completed confirmation workflow.
type DepositOutcome struct {
	State   DepositOutcomeState
	Deposit Deposit
	Err     error
}
