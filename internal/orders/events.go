package orders

import (
	"encoding/json"
	"time"
)

// Processor event types.
const (
	EventCheckoutSessionCompleted = "checkout.session.completed"
)

// Internal envelope event types.
const (
	EventOrderFinalized     = "OrderFinalized"
	EventFinalizationFailed = "FinalizationFailed"
)

type Envelope struct {
	EventID       string          `json:"event_id"`                 // uuid
	EventType     string          `json:"event_type"`               // salah satu const di atas
	EventVersion  int             `json:"event_version"`            // 1
	OccurredAt    time.Time       `json:"occurred_at"`              // RFC3339
	Producer      string          `json:"producer"`                 // e.g., "storefront-api"
	CorrelationID string          `json:"correlation_id,omitempty"` // stripe_session_id
	Payload       json.RawMessage `json:"payload"`
}

type OrderFinalizedPayload struct {
	OrderID         string `json:"order_id"`
	StripeSessionID string `json:"stripe_session_id"`
	AmountTotal     int64  `json:"amount_total"`
	Currency        string `json:"currency"`
	ItemCount       int    `json:"item_count"`
}

type FinalizationFailedPayload struct {
	StripeSessionID string `json:"stripe_session_id"`
	ProcessorEvent  string `json:"processor_event_id,omitempty"`
	Stage           Stage  `json:"stage"`
	Error           string `json:"error"`
}
