package managers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/boostpanel/boostpanel/internal/domain"
	"github.com/boostpanel/boostpanel/internal/poller"
	"github.com/boostpanel/boostpanel/pkg/boostpanel"

	"github.com/rs/zerolog/log"
)

// DefaultSMSPollInterval is the fixed delay between auto SMS checks.
const DefaultSMSPollInterval = 2 * time.Second

var (
	// ErrNoActivation is returned when a check is requested before a number
	// has been purchased or attached.
	ErrNoActivation = errors.New("no active purchase found")
	// ErrAutoCheckActive is returned for a manual check while the auto
	// poller runs.
	ErrAutoCheckActive = errors.New("auto check is active; stop it first")
	// ErrAutoCheckNotActive is returned by StopAuto outside auto polling.
	ErrAutoCheckNotActive = errors.New("auto check is not active")
	// ErrActivationEnded is returned once the workflow reached a terminal
	// phase; a new purchase is required to retry.
	ErrActivationEnded = errors.New("activation session has ended")
	// ErrActivationInvalid is returned when the backend rejects the
	// activation id (expired or never existed).
	ErrActivationInvalid = errors.New("activation is invalid or expired")
)

const smsStatusReceived = "received"

type activationManager struct {
	client   boostpanel.ClientInterface
	interval time.Duration
	maxWait  time.Duration

	mu         sync.Mutex
	phase      domain.ActivationPhase
	activation domain.Activation
	sms        string
	session    *poller.Session
	stopAuto   context.CancelFunc
}

type ActivationManagerDependencies struct {
	Client boostpanel.ClientInterface

	// PollInterval defaults to DefaultSMSPollInterval.
	PollInterval time.Duration

	// MaxWait bounds an auto watch. Zero keeps the observed behavior of
	// polling until the user stops; a positive value adds a defensive
	// terminal path for provider-side expiry.
	MaxWait time.Duration
}

func NewActivationManager(deps ActivationManagerDependencies) domain.ActivationManager {
	if deps.PollInterval <= 0 {
		deps.PollInterval = DefaultSMSPollInterval
	}

	return &activationManager{
		client:   deps.Client,
		interval: deps.PollInterval,
		maxWait:  deps.MaxWait,
		phase:    domain.ActivationPhaseIdle,
	}
}

func (m *activationManager) SearchOfferings(ctx context.Context, service, country string) ([]domain.NumberOffering, error) {
	if service == "" || country == "" {
		return nil, fmt.Errorf("please select both country and service")
	}

	offerings, err := m.client.ListNumberOfferings(ctx, service, country)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch packages: %w", err)
	}

	result := make([]domain.NumberOffering, 0, len(offerings))
	for _, o := range offerings {
		result = append(result, domain.NumberOffering{
			Name:            o.Name,
			Duration:        o.Duration,
			Available:       o.Available,
			BasePrice:       o.BasePrice,
			PriceWithProfit: o.PriceWithProfit,
			Currency:        o.Currency,
			SuccessRate:     o.SuccessRate,
		})
	}

	return result, nil
}

func (m *activationManager) Purchase(ctx context.Context, params domain.PurchaseParams) (domain.Activation, error) {
	if params.Service == "" || params.Country == "" {
		return domain.Activation{}, fmt.Errorf("please select both country and service")
	}
	if params.Duration == "" {
		return domain.Activation{}, fmt.Errorf("invalid package selected")
	}

	m.mu.Lock()
	if m.phase != domain.ActivationPhaseIdle {
		m.mu.Unlock()
		return domain.Activation{}, fmt.Errorf("cannot purchase in phase %q", m.phase)
	}
	m.mu.Unlock()

	resp, err := m.client.PurchaseNumber(ctx, &boostpanel.PurchaseNumberRequest{
		Service:  params.Service,
		Country:  params.Country,
		Duration: params.Duration,
	})
	if err != nil {
		return domain.Activation{}, fmt.Errorf("purchase failed: %w", err)
	}

	activation := domain.Activation{
		ActivationID: resp.ActivationID,
		PhoneNumber:  resp.PhoneNumber,
		Service:      params.Service,
		Country:      params.Country,
		Duration:     params.Duration,
	}

	m.mu.Lock()
	m.activation = activation
	m.sms = ""
	m.phase = domain.ActivationPhaseAwaitingPurchase
	m.mu.Unlock()

	log.Info().
		Str("activation_id", activation.ActivationID).
		Str("phone_number", activation.PhoneNumber).
		Msg("virtual number purchased")

	return activation, nil
}

func (m *activationManager) Attach(activation domain.Activation) error {
	if activation.ActivationID == "" {
		return ErrNoActivation
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.phase != domain.ActivationPhaseIdle {
		return fmt.Errorf("cannot attach in phase %q", m.phase)
	}

	m.activation = activation
	m.sms = ""
	m.phase = domain.ActivationPhaseAwaitingPurchase
	return nil
}

// CheckNow performs exactly one SMS check.
func (m *activationManager) CheckNow(ctx context.Context) (string, error) {
	m.mu.Lock()
	switch m.phase {
	case domain.ActivationPhaseIdle:
		m.mu.Unlock()
		return "", ErrNoActivation
	case domain.ActivationPhasePollingAuto:
		m.mu.Unlock()
		return "", ErrAutoCheckActive
	case domain.ActivationPhaseReceived, domain.ActivationPhaseFailed:
		m.mu.Unlock()
		return "", ErrActivationEnded
	}
	m.phase = domain.ActivationPhasePollingManual
	activationID := m.activation.ActivationID
	m.mu.Unlock()

	resp, err := m.client.GetActivationSMS(ctx, activationID)
	if err != nil {
		if boostpanel.IsFatalError(err) {
			m.setPhase(domain.ActivationPhaseFailed)
			return "", fmt.Errorf("%w: %w", ErrActivationInvalid, err)
		}
		// Transient; the activation stays checkable.
		return "", fmt.Errorf("failed to check sms: %w", err)
	}

	if resp.SMS == nil || *resp.SMS == "" {
		return "", nil
	}

	m.mu.Lock()
	m.sms = *resp.SMS
	m.phase = domain.ActivationPhaseReceived
	m.mu.Unlock()

	return *resp.SMS, nil
}

// StartAuto begins fixed-delay polling for the SMS. The returned channel
// delivers a terminal event and then closes.
func (m *activationManager) StartAuto(ctx context.Context) (<-chan domain.ActivationEvent, error) {
	m.mu.Lock()
	switch m.phase {
	case domain.ActivationPhaseIdle:
		m.mu.Unlock()
		return nil, ErrNoActivation
	case domain.ActivationPhasePollingAuto:
		m.mu.Unlock()
		return nil, ErrAutoCheckActive
	case domain.ActivationPhaseReceived, domain.ActivationPhaseFailed:
		m.mu.Unlock()
		return nil, ErrActivationEnded
	}

	watchCtx, cancel := context.WithCancel(ctx)

	session := poller.Start(watchCtx, m.activation.ActivationID, m.checkSMS, poller.Options{
		Interval: m.interval,
		Timeout:  m.maxWait,
		Classify: classifyActivationStatus,
	})

	m.phase = domain.ActivationPhasePollingAuto
	m.session = session
	m.stopAuto = cancel
	m.mu.Unlock()

	events := make(chan domain.ActivationEvent, 1)
	go m.consumeWatch(session, events)

	return events, nil
}

func (m *activationManager) StopAuto() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.phase != domain.ActivationPhasePollingAuto {
		return ErrAutoCheckNotActive
	}

	m.stopAuto()
	m.session = nil
	m.stopAuto = nil
	// Back to manual checking; the purchase is still live.
	m.phase = domain.ActivationPhasePollingManual
	return nil
}

func (m *activationManager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopAuto != nil {
		m.stopAuto()
		m.stopAuto = nil
		m.session = nil
	}
	m.activation = domain.Activation{}
	m.sms = ""
	m.phase = domain.ActivationPhaseIdle
}

func (m *activationManager) Phase() domain.ActivationPhase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

func (m *activationManager) Activation() (domain.Activation, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activation, m.activation.ActivationID != ""
}

func (m *activationManager) SMS() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sms, m.sms != ""
}

func (m *activationManager) checkSMS(ctx context.Context, activationID string) (poller.CheckResult, error) {
	resp, err := m.client.GetActivationSMS(ctx, activationID)
	if err != nil {
		if boostpanel.IsFatalError(err) {
			return poller.CheckResult{}, &poller.FatalError{Err: err}
		}
		return poller.CheckResult{}, err
	}

	if resp.SMS == nil || *resp.SMS == "" {
		return poller.CheckResult{Status: "pending"}, nil
	}

	return poller.CheckResult{Status: smsStatusReceived, Payload: *resp.SMS}, nil
}

// consumeWatch translates poller events into activation events and settles
// the workflow phase. StopAuto already moved the phase back to manual, so a
// stop observed here without a terminal event is not a phase change.
func (m *activationManager) consumeWatch(session *poller.Session, events chan<- domain.ActivationEvent) {
	defer close(events)

	for event := range session.Events() {
		switch event.Type {
		case poller.EventResolved:
			sms := event.Payload.(string)

			// An SMS landing just after StopAuto or Reset belongs to a watch
			// the user already abandoned; it is delivered on the channel but
			// must not mutate the workflow.
			m.mu.Lock()
			if m.session == session {
				m.sms = sms
				m.phase = domain.ActivationPhaseReceived
				m.session = nil
				m.stopAuto = nil
			}
			m.mu.Unlock()

			events <- domain.ActivationEvent{Type: domain.ActivationEventSMSReceived, SMS: sms}
			return

		case poller.EventTimedOut:
			m.settleWatch(domain.ActivationPhaseFailed, session)
			events <- domain.ActivationEvent{Type: domain.ActivationEventExpired, Err: ErrActivationInvalid}
			return

		case poller.EventFatal:
			m.settleWatch(domain.ActivationPhaseFailed, session)
			events <- domain.ActivationEvent{Type: domain.ActivationEventFailed, Err: event.Err}
			return

		case poller.EventPending, poller.EventFailed:
			continue

		case poller.EventStopped:
		}
	}

	events <- domain.ActivationEvent{Type: domain.ActivationEventStopped}
}

// settleWatch records a terminal phase for the session's watch unless the
// user already stopped it.
func (m *activationManager) settleWatch(phase domain.ActivationPhase, session *poller.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == session {
		m.phase = phase
		m.session = nil
		m.stopAuto = nil
	}
}

func (m *activationManager) setPhase(phase domain.ActivationPhase) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.phase = phase
}

func classifyActivationStatus(status string) poller.Class {
	if status == smsStatusReceived {
		return poller.ClassResolved
	}
	return poller.ClassPending
}
