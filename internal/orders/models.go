package orders

import "time"

// Order is written once per completed checkout session and never updated.
type Order struct {
	ID              string    `json:"id"` // assigned by the store
	StripeSessionID string    `json:"stripe_session_id"`
	CustomerEmail   *string   `json:"customer_email"` // nil untuk guest checkout tanpa email
	AmountTotal     int64     `json:"amount_total"`
	Currency        string    `json:"currency"`
	PaymentStatus   string    `json:"payment_status"`
	CreatedAt       time.Time `json:"created_at"`
}

type OrderItem struct {
	ID             int64  `json:"id,omitempty"`
	OrderID        string `json:"order_id"`
	Description    string `json:"description"`
	Quantity       int64  `json:"quantity"`
	AmountSubtotal int64  `json:"amount_subtotal"`
	Currency       string `json:"currency"`
}

// SessionSummary is the processor's session-level view used to build an Order.
type SessionSummary struct {
	ID            string
	CustomerEmail string
	AmountTotal   int64
	Currency      string
	PaymentStatus string
	Status        string // open, complete, expired
}

// LineItem is the processor's authoritative line detail for a session.
type LineItem struct {
	Description    string
	ProductName    string
	Quantity       int64
	AmountSubtotal int64
	Currency       string
}

// PaymentEvent is a verified inbound notification. Session is set only for checkout.session.* events.
type PaymentEvent struct {
	ID      string
	Type    string
	Session *SessionSummary
}
