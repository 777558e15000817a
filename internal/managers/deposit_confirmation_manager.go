package managers

import (
	"context"
	"strconv"
	"time"

	"github.com/boostpanel/boostpanel/internal/domain"
	"github.com/boostpanel/boostpanel/internal/poller"
	"github.com/boostpanel/boostpanel/pkg/boostpanel"

	"github.com/rs/zerolog/log"
)

const (
	// DefaultDepositPollInterval is the fixed delay between status checks.
	DefaultDepositPollInterval = 2 * time.Second
	// DefaultDepositConfirmTimeout bounds the whole confirmation workflow;
	// afterwards the deposit is force-marked failed on the backend.
	DefaultDepositConfirmTimeout = 120 * time.Second
)

type depositConfirmationManager struct {
	client      boostpanel.ClientInterface
	navigator   domain.Navigator
	wallet      domain.WalletStore
	interval    time.Duration
	timeout     time.Duration
	onCountdown func(remaining time.Duration)
}

type DepositConfirmationManagerDependencies struct {
	Client    boostpanel.ClientInterface
	Navigator domain.Navigator
	Wallet    domain.WalletStore

	// PollInterval and ConfirmTimeout default to the production constants;
	// tests shorten them.
	PollInterval   time.Duration
	ConfirmTimeout time.Duration

	// OnCountdown, if set, is invoked roughly once per second with the time
	// remaining until the deadline. Cosmetic only; the deadline transition
	// never depends on it.
	OnCountdown func(remaining time.Duration)
}

func NewDepositConfirmationManager(deps DepositConfirmationManagerDependencies) domain.DepositConfirmer {
	if deps.PollInterval <= 0 {
		deps.PollInterval = DefaultDepositPollInterval
	}
	if deps.ConfirmTimeout <= 0 {
		deps.ConfirmTimeout = DefaultDepositConfirmTimeout
	}

	return &depositConfirmationManager{
		client:      deps.Client,
		navigator:   deps.Navigator,
		wallet:      deps.Wallet,
		interval:    deps.PollInterval,
		timeout:     deps.ConfirmTimeout,
		onCountdown: deps.OnCountdown,
	}
}

// Confirm polls the deposit until the backend reports a terminal status or
// the deadline passes, then routes to the matching outcome view.
func (m *depositConfirmationManager) Confirm(ctx context.Context, depositID string) (domain.DepositOutcome, error) {
	if depositID == "" {
		// No valid session to confirm; same as landing on the pending page
		// without a deposit_id.
		if err := m.navigator.Navigate(ctx, domain.Route{Name: domain.RouteDashboard}); err != nil {
			return domain.DepositOutcome{}, err
		}
		return domain.DepositOutcome{State: domain.DepositOutcomeAbandoned}, nil
	}

	session := poller.Start(ctx, depositID, m.checkDeposit, poller.Options{
		Interval: m.interval,
		Timeout:  m.timeout,
		Classify: classifyDepositStatus,
	})
	defer session.Cancel()

	if m.onCountdown != nil {
		go m.runCountdown(ctx, session)
	}

	for event := range session.Events() {
		switch event.Type {
		case poller.EventPending:
			continue

		case poller.EventResolved:
			status := event.Payload.(*boostpanel.DepositStatusResponse)
			deposit := domain.Deposit{
				ID:      depositID,
				Status:  domain.DepositStatusPaid,
				Amount:  status.Amount,
				Balance: status.Balance,
			}
			m.wallet.Credit(deposit)

			if err := m.navigator.Navigate(ctx, successRoute(deposit)); err != nil {
				return domain.DepositOutcome{}, err
			}
			return domain.DepositOutcome{State: domain.DepositOutcomeSucceeded, Deposit: deposit}, nil

		case poller.EventFailed:
			deposit := domain.Deposit{ID: depositID, Status: domain.DepositStatusFailed}

			if err := m.navigator.Navigate(ctx, failedRoute(depositID)); err != nil {
				return domain.DepositOutcome{}, err
			}
			return domain.DepositOutcome{State: domain.DepositOutcomeFailed, Deposit: deposit}, nil

		case poller.EventTimedOut:
			m.markFailed(ctx, depositID)

			if err := m.navigator.Navigate(ctx, failedRoute(depositID)); err != nil {
				return domain.DepositOutcome{}, err
			}
			deposit := domain.Deposit{ID: depositID, Status: domain.DepositStatusFailed}
			return domain.DepositOutcome{State: domain.DepositOutcomeTimedOut, Deposit: deposit}, nil

		case poller.EventFatal:
			// The status check itself is rejected (unauthorized, unknown
			// deposit). Marking the deposit failed would fail the same way,
			// so go straight to the failed view.
			log.Error().Err(event.Err).Str("deposit_id", depositID).Msg("could not verify deposit")

			if err := m.navigator.Navigate(ctx, failedRoute(depositID)); err != nil {
				return domain.DepositOutcome{}, err
			}
			return domain.DepositOutcome{State: domain.DepositOutcomeFailed, Err: event.Err}, nil

		case poller.EventStopped:
		}
	}

	// The session ended without a terminal event: the caller cancelled.
	return domain.DepositOutcome{State: domain.DepositOutcomeCancelled, Err: ctx.Err()}, ctx.Err()
}

func (m *depositConfirmationManager) checkDeposit(ctx context.Context, depositID string) (poller.CheckResult, error) {
	status, err := m.client.GetDepositStatus(ctx, depositID)
	if err != nil {
		if boostpanel.IsFatalError(err) {
			return poller.CheckResult{}, &poller.FatalError{Err: err}
		}
		return poller.CheckResult{}, err
	}

	return poller.CheckResult{Status: status.Status, Payload: status}, nil
}

// markFailed performs the one best-effort mark-failed call after a timeout.
// Its failure is logged and swallowed; the record is reconciled out of band.
func (m *depositConfirmationManager) markFailed(ctx context.Context, depositID string) {
	if err := m.client.MarkDepositFailed(ctx, depositID); err != nil {
		log.Error().Err(err).Str("deposit_id", depositID).Msg("failed to mark deposit failed after timeout")
	}
}

// runCountdown reports the remaining time once per second, derived from the
// session's single authoritative deadline.
func (m *depositConfirmationManager) runCountdown(ctx context.Context, session *poller.Session) {
	deadline, ok := session.Deadline()
	if !ok {
		return
	}

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	m.onCountdown(time.Until(deadline).Round(time.Second))

	for {
		select {
		case <-ctx.Done():
			return
		case <-session.Done():
			return
		case <-ticker.C:
			remaining := time.Until(deadline).Round(time.Second)
			if remaining < 0 {
				remaining = 0
			}
			m.onCountdown(remaining)
		}
	}
}

func classifyDepositStatus(status string) poller.Class {
	switch domain.DepositStatus(status) {
	case domain.DepositStatusPaid:
		return poller.ClassResolved
	case domain.DepositStatusFailed:
		return poller.ClassFailed
	default:
		return poller.ClassPending
	}
}

func successRoute(deposit domain.Deposit) domain.Route {
	return domain.Route{
		Name: domain.RouteDepositSuccess,
		Params: map[string]string{
			"deposit_id": deposit.ID,
			"amount":     strconv.FormatInt(deposit.Amount, 10),
			"balance":    strconv.FormatInt(deposit.Balance, 10),
		},
	}
}

func failedRoute(depositID string) domain.Route {
	return domain.Route{
		Name:   domain.RouteDepositFailed,
		Params: map[string]string{"deposit_id": depositID},
	}
}
