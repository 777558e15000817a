package domain

// Activation represents a purchased virtual number awaiting an SMS.
type Activation struct {
	ActivationID string
	PhoneNumber  string
	Service      string
	Country      string
	Duration     string
}

// ActivationPhase is the explicit state of an activation workflow. Manual
// checks and auto polling are distinct phases so that a manual check while the
// auto poller runs is unrepresentable.
type ActivationPhase string

const (
	ActivationPhaseIdle             ActivationPhase = "idle"
	ActivationPhaseAwaitingPurchase ActivationPhase = "awaiting_purchase"
	ActivationPhasePollingManual    ActivationPhase = "polling_manual"
	ActivationPhasePollingAuto      ActivationPhase = "polling_auto"
	ActivationPhaseReceived         ActivationPhase = "received"
	ActivationPhaseFailed           ActivationPhase = "failed"
)

// ActivationEventType identifies an event emitted by an auto watch.
type ActivationEventType string

const (
	ActivationEventSMSReceived ActivationEventType = "sms_received"
	ActivationEventExpired     ActivationEventType = "expired"
	ActivationEventFailed      ActivationEventType = "failed"
	ActivationEventStopped     ActivationEventType = "stopped"
)

// ActivationEvent is delivered on an auto watch channel.
type ActivationEvent struct {
	Type ActivationEventType
	SMS  string
	Err  error
}

// NumberOffering is a purchasable virtual-number package for a service and
// country pair.
type NumberOffering struct {
	Name            string
	Duration        string
	Available       int
	BasePrice       float64
	PriceWithProfit float64
	Currency        string
	SuccessRate     int
}

// PurchaseParams selects the offering to buy.
type PurchaseParams struct {
	Service  string
	Country  string
	Duration string
}
