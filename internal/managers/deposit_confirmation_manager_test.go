package managers

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/boostpanel/boostpanel/internal/backendtest"
	"github.com/boostpanel/boostpanel/internal/domain"
	"github.com/boostpanel/boostpanel/internal/wallet"
	"github.com/boostpanel/boostpanel/pkg/boostpanel"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type routeRecorder struct {
	mu     sync.Mutex
	routes []domain.Route
}

func (r *routeRecorder) Navigate(ctx context.Context, route domain.Route) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes = append(r.routes, route)
	return nil
}

func (r *routeRecorder) recorded() []domain.Route {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Route, len(r.routes))
	copy(out, r.routes)
	return out
}

func newTestBackend(t *testing.T) *backendtest.Server {
	t.Helper()

	server, err := backendtest.New()
	require.NoError(t, err)
	t.Cleanup(server.Close)
	return server
}

func newTestClient(server *backendtest.Server) *boostpanel.Client {
	return boostpanel.NewClient(
		boostpanel.WithBaseURL(server.URL()),
		boostpanel.WithAccessToken("test-token"),
		boostpanel.WithRetry(0, 0),
	)
}

func TestConfirmDepositPaidAfterPending(t *testing.T) {
	server := newTestBackend(t)
	server.ScriptDeposit("dep_1", backendtest.DepositScript{
		PendingChecks: 3,
		FinalStatus:   "paid",
		Amount:        5000,
		Balance:       12000,
	})

	navigator := &routeRecorder{}
	store := wallet.NewStore()

	manager := NewDepositConfirmationManager(DepositConfirmationManagerDependencies{
		Client:         newTestClient(server),
		Navigator:      navigator,
		Wallet:         store,
		PollInterval:   20 * time.Millisecond,
		ConfirmTimeout: 10 * time.Second,
	})

	outcome, err := manager.Confirm(context.Background(), "dep_1")
	require.NoError(t, err)

	assert.Equal(t, domain.DepositOutcomeSucceeded, outcome.State)
	assert.Equal(t, int64(5000), outcome.Deposit.Amount)
	assert.Equal(t, int64(12000), outcome.Deposit.Balance)

	// Three pending checks plus the terminal one, and never a forced mark.
	assert.Equal(t, 4, server.DepositGetCalls("dep_1"))
	assert.Equal(t, 0, server.DepositMarkFailedCalls("dep_1"))

	routes := navigator.recorded()
	require.Len(t, routes, 1)
	assert.Equal(t, domain.RouteDepositSuccess, routes[0].Name)
	assert.Equal(t, "5000", routes[0].Params["amount"])
	assert.Equal(t, "12000", routes[0].Params["balance"])

	assert.Equal(t, int64(12000), store.Balance())
}

func TestConfirmDepositTimesOutAndMarksFailed(t *testing.T) {
	server := newTestBackend(t)
	server.ScriptDeposit("dep_2", backendtest.DepositScript{}) // pending forever

	navigator := &routeRecorder{}

	manager := NewDepositConfirmationManager(DepositConfirmationManagerDependencies{
		Client:         newTestClient(server),
		Navigator:      navigator,
		Wallet:         wallet.NewStore(),
		PollInterval:   10 * time.Millisecond,
		ConfirmTimeout: 150 * time.Millisecond,
	})

	outcome, err := manager.Confirm(context.Background(), "dep_2")
	require.NoError(t, err)

	assert.Equal(t, domain.DepositOutcomeTimedOut, outcome.State)
	assert.Equal(t, 1, server.DepositMarkFailedCalls("dep_2"))

	routes := navigator.recorded()
	require.Len(t, routes, 1)
	assert.Equal(t, domain.RouteDepositFailed, routes[0].Name)

	// No status checks may follow the forced mark.
	checksAfterMark := server.DepositGetCalls("dep_2")
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, checksAfterMark, server.DepositGetCalls("dep_2"))
}

func TestConfirmDepositFailedStatus(t *testing.T) {
	server := newTestBackend(t)
	server.ScriptDeposit("dep_9", backendtest.DepositScript{
		PendingChecks: 1,
		FinalStatus:   "failed",
	})

	navigator := &routeRecorder{}

	manager := NewDepositConfirmationManager(DepositConfirmationManagerDependencies{
		Client:         newTestClient(server),
		Navigator:      navigator,
		Wallet:         wallet.NewStore(),
		PollInterval:   10 * time.Millisecond,
		ConfirmTimeout: 10 * time.Second,
	})

	outcome, err := manager.Confirm(context.Background(), "dep_9")
	require.NoError(t, err)

	assert.Equal(t, domain.DepositOutcomeFailed, outcome.State)
	assert.Equal(t, 0, server.DepositMarkFailedCalls("dep_9"))

	routes := navigator.recorded()
	require.Len(t, routes, 1)
	assert.Equal(t, domain.RouteDepositFailed, routes[0].Name)
}

func TestConfirmDepositFatalErrorRoutesToFailedView(t *testing.T) {
	server := newTestBackend(t)
	server.ScriptDeposit("dep_3", backendtest.DepositScript{
		StatusCode: 401,
	})

	navigator := &routeRecorder{}

	manager := NewDepositConfirmationManager(DepositConfirmationManagerDependencies{
		Client:         newTestClient(server),
		Navigator:      navigator,
		Wallet:         wallet.NewStore(),
		PollInterval:   10 * time.Millisecond,
		ConfirmTimeout: 10 * time.Second,
	})

	outcome, err := manager.Confirm(context.Background(), "dep_3")
	require.NoError(t, err)

	assert.Equal(t, domain.DepositOutcomeFailed, outcome.State)
	assert.Error(t, outcome.Err)
	assert.True(t, boostpanel.IsAuthError(outcome.Err))

	// A single rejected check, no forced mark, no retries.
	assert.Equal(t, 1, server.DepositGetCalls("dep_3"))
	assert.Equal(t, 0, server.DepositMarkFailedCalls("dep_3"))

	routes := navigator.recorded()
	require.Len(t, routes, 1)
	assert.Equal(t, domain.RouteDepositFailed, routes[0].Name)
}

func TestConfirmDepositTransientErrorIsRetried(t *testing.T) {
	server := newTestBackend(t)
	server.ScriptDeposit("dep_5", backendtest.DepositScript{
		TransientFailures: 1,
		FinalStatus:       "paid",
		Amount:            1000,
		Balance:           1000,
	})

	navigator := &routeRecorder{}

	manager := NewDepositConfirmationManager(DepositConfirmationManagerDependencies{
		Client:         newTestClient(server),
		Navigator:      navigator,
		Wallet:         wallet.NewStore(),
		PollInterval:   10 * time.Millisecond,
		ConfirmTimeout: 10 * time.Second,
	})

	outcome, err := manager.Confirm(context.Background(), "dep_5")
	require.NoError(t, err)

	assert.Equal(t, domain.DepositOutcomeSucceeded, outcome.State)
	assert.Equal(t, 2, server.DepositGetCalls("dep_5"))
}

func TestConfirmWithoutDepositIDRedirectsToDashboard(t *testing.T) {
	navigator := &routeRecorder{}

	manager := NewDepositConfirmationManager(DepositConfirmationManagerDependencies{
		Client:    nil, // never touched without a deposit id
		Navigator: navigator,
		Wallet:    wallet.NewStore(),
	})

	outcome, err := manager.Confirm(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, domain.DepositOutcomeAbandoned, outcome.State)

	routes := navigator.recorded()
	require.Len(t, routes, 1)
	assert.Equal(t, domain.RouteDashboard, routes[0].Name)
}

func TestConfirmCountdownDerivesFromDeadline(t *testing.T) {
	server := newTestBackend(t)
	server.ScriptDeposit("dep_6", backendtest.DepositScript{}) // pending forever

	var mu sync.Mutex
	var readings []time.Duration

	manager := NewDepositConfirmationManager(DepositConfirmationManagerDependencies{
		Client:         newTestClient(server),
		Navigator:      &routeRecorder{},
		Wallet:         wallet.NewStore(),
		PollInterval:   20 * time.Millisecond,
		ConfirmTimeout: 2500 * time.Millisecond,
		OnCountdown: func(remaining time.Duration) {
			mu.Lock()
			readings = append(readings, remaining)
			mu.Unlock()
		},
	})

	outcome, err := manager.Confirm(context.Background(), "dep_6")
	require.NoError(t, err)
	require.Equal(t, domain.DepositOutcomeTimedOut, outcome.State)

	mu.Lock()
	defer mu.Unlock()

	require.NotEmpty(t, readings)
	// Readings decrease towards zero and never exceed the configured timeout
	// (first reading is rounded to the nearest second).
	assert.LessOrEqual(t, readings[0], 3*time.Second)
	for i := 1; i < len(readings); i++ {
		assert.LessOrEqual(t, readings[i], readings[i-1])
	}
}
