package domain

import "context"

// DepositConfirmer drives a deposit through the confirmation workflow until a
// terminal outcome and routes the user accordingly.
type DepositConfirmer interface {
	Confirm(ctx context.Context, depositID string) (DepositOutcome, error)
}

// DepositManager creates deposits against the backend.
type DepositManager interface {
	// Create registers a deposit for the given amount and returns the
	// payment processor authorization URL the user must visit.
	Create(ctx context.Context, amount int64) (string, error)
}

// ActivationManager owns one activation workflow: purchase a number, then
// retrieve its SMS manually or with an auto poller.
type ActivationManager interface {
	SearchOfferings(ctx context.Context, service, country string) ([]NumberOffering, error)
	Purchase(ctx context.Context, params PurchaseParams) (Activation, error)
	// Attach binds the workflow to an activation purchased earlier, e.g. in a
	// previous process. Valid only from the idle phase.
	Attach(activation Activation) error
	// CheckNow performs exactly one SMS check. Invalid while auto polling.
	CheckNow(ctx context.Context) (string, error)
	// StartAuto begins fixed-delay polling. The returned channel ends with a
	// terminal event; cancellation is cooperative via StopAuto or ctx.
	StartAuto(ctx context.Context) (<-chan ActivationEvent, error)
	// StopAuto cancels the auto poller and returns the workflow to manual
	// checking. No-op error if auto polling is not active.
	StopAuto() error
	// Reset abandons the current activation and returns to idle.
	Reset()
	Phase() ActivationPhase
	Activation() (Activation, bool)
	SMS() (string, bool)
}

// WalletStore mirrors the server-side wallet balance for display. It is a
// cache of server state, never the source of truth.
type WalletStore interface {
	SetBalance(balance int64)
	Balance() int64
	Credit(dep Deposit)
	Deposits() []Deposit
	Reset()
}
