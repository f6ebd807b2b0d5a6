// Package webhook authenticates processor notifications.
package webhook

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ariefcatur/go-storefront-orders/internal/orders"
	"github.com/stripe/stripe-go/v79"
	stripewebhook "github.com/stripe/stripe-go/v79/webhook"
)

const (
	SignatureHeader  = "Stripe-Signature"
	DefaultTolerance = stripewebhook.DefaultTolerance
	// MaxBodyBytes is a local cap on webhook bodies read into memory.
	MaxBodyBytes = 65536
)

var ErrSignatureInvalid = errors.New("signature invalid")

type Verifier struct {
	Secret    string
	Tolerance time.Duration
	// StrictAPIVersion rejects events rendered for a different API version than the SDK's.
	StrictAPIVersion bool
}

// Verify checks the signature over the raw body, byte for byte, and decodes the event.
// The body must not be re-serialized before this call.
func (v *Verifier) Verify(payload []byte, header string) (orders.PaymentEvent, error) {
	if v.Secret == "" {
		return orders.PaymentEvent{}, fmt.Errorf("%w: no signing secret configured", ErrSignatureInvalid)
	}
	tol := v.Tolerance
	if tol <= 0 {
		tol = DefaultTolerance
	}
	ev, err := stripewebhook.ConstructEventWithOptions(payload, header, v.Secret, stripewebhook.ConstructEventOptions{
		Tolerance:                tol,
		IgnoreAPIVersionMismatch: !v.StrictAPIVersion,
	})
	if err != nil {
		return orders.PaymentEvent{}, fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}
	return decode(ev), nil
}

// decode never fails once the signature is valid. An undecodable session leaves
// Session nil; the finalizer reports that and the event is still acknowledged.
func decode(ev stripe.Event) orders.PaymentEvent {
	out := orders.PaymentEvent{ID: ev.ID, Type: string(ev.Type)}
	if !strings.HasPrefix(out.Type, "checkout.session.") || ev.Data == nil {
		return out
	}
	var cs stripe.CheckoutSession
	if err := json.Unmarshal(ev.Data.Raw, &cs); err != nil {
		return out
	}
	out.Session = SessionSummary(&cs)
	return out
}

// SessionSummary maps a processor session to the fields an Order needs.
func SessionSummary(cs *stripe.CheckoutSession) *orders.SessionSummary {
	s := &orders.SessionSummary{
		ID:            cs.ID,
		AmountTotal:   cs.AmountTotal,
		Currency:      string(cs.Currency),
		PaymentStatus: string(cs.PaymentStatus),
		Status:        string(cs.Status),
	}
	if cs.CustomerDetails != nil {
		s.CustomerEmail = cs.CustomerDetails.Email
	}
	return s
}
