// Package stripex adapts the stripe-go API client to the checkout and order
// finalization ports.
package stripex

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ariefcatur/go-storefront-orders/internal/checkout"
	"github.com/ariefcatur/go-storefront-orders/internal/orders"
	"github.com/ariefcatur/go-storefront-orders/internal/webhook"
	"github.com/sony/gobreaker/v2"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
)

type Client struct {
	api *client.API
	cb  *gobreaker.CircuitBreaker[any]
}

type Options struct {
	// Backends overrides the API endpoints (tests).
	Backends *stripe.Backends
	Log      *slog.Logger
}

func New(key string, opts Options) *Client {
	api := &client.API{}
	api.Init(key, opts.Backends)

	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "stripe",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 5
		},
		IsSuccessful: isSuccessful,
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return &Client{api: api, cb: cb}
}

// isSuccessful keeps request errors (4xx) from tripping the breaker.
func isSuccessful(err error) bool {
	if err == nil {
		return true
	}
	var se *stripe.Error
	if errors.As(err, &se) {
		return se.HTTPStatusCode > 0 && se.HTTPStatusCode < 500 && se.HTTPStatusCode != 429
	}
	return false
}

func call[T any](c *Client, fn func() (T, error)) (T, error) {
	var zero T
	v, err := c.cb.Execute(func() (any, error) { return fn() })
	if err != nil {
		return zero, err
	}
	return v.(T), nil
}

func (c *Client) CreateSession(ctx context.Context, req checkout.SessionRequest) (checkout.Session, error) {
	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice(req.PaymentMethodTypes),
		Mode:               stripe.String(req.Mode),
		SuccessURL:         stripe.String(req.SuccessURL),
		CancelURL:          stripe.String(req.CancelURL),
	}
	params.Context = ctx
	for _, li := range req.LineItems {
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency: stripe.String(li.Currency),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(li.Name),
				},
				UnitAmount: stripe.Int64(li.UnitAmount),
			},
			Quantity: stripe.Int64(li.Quantity),
		})
	}

	cs, err := call(c, func() (*stripe.CheckoutSession, error) {
		return c.api.CheckoutSessions.New(params)
	})
	if err != nil {
		return checkout.Session{}, fmt.Errorf("stripe create session: %w", err)
	}
	return checkout.Session{ID: cs.ID, URL: cs.URL}, nil
}

// ListLineItems returns every line item of a session, with the product expanded so the
// product name is available for the description fallback.
func (c *Client) ListLineItems(ctx context.Context, sessionID string) ([]orders.LineItem, error) {
	return call(c, func() ([]orders.LineItem, error) {
		params := &stripe.CheckoutSessionListLineItemsParams{Session: stripe.String(sessionID)}
		params.Context = ctx
		params.AddExpand("data.price.product")

		var out []orders.LineItem
		it := c.api.CheckoutSessions.ListLineItems(params)
		for it.Next() {
			out = append(out, lineItem(it.LineItem()))
		}
		if err := it.Err(); err != nil {
			return nil, fmt.Errorf("stripe list line items: %w", err)
		}
		return out, nil
	})
}

// GetSession fetches a session's current state, used for out-of-band reconciliation.
func (c *Client) GetSession(ctx context.Context, sessionID string) (orders.SessionSummary, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	cs, err := call(c, func() (*stripe.CheckoutSession, error) {
		return c.api.CheckoutSessions.Get(sessionID, params)
	})
	if err != nil {
		return orders.SessionSummary{}, fmt.Errorf("stripe get session: %w", err)
	}
	return *webhook.SessionSummary(cs), nil
}

func lineItem(li *stripe.LineItem) orders.LineItem {
	out := orders.LineItem{
		Description:    li.Description,
		Quantity:       li.Quantity,
		AmountSubtotal: li.AmountSubtotal,
		Currency:       string(li.Currency),
	}
	if li.Price != nil && li.Price.Product != nil {
		out.ProductName = li.Price.Product.Name
	}
	return out
}
