package checkout

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ariefcatur/go-storefront-orders/internal/catalog"
)

const (
	ModePayment       = "payment"
	PaymentMethodCard = "card"

	// SessionIDPlaceholder is substituted by the processor on redirect.
	SessionIDPlaceholder = "{CHECKOUT_SESSION_ID}"
)

type LineItem struct {
	ProductID  string
	Name       string
	UnitAmount int64
	Currency   string
	Quantity   int64
}

func (li LineItem) Amount() int64 { return li.UnitAmount * li.Quantity }

type SessionRequest struct {
	Mode               string
	PaymentMethodTypes []string
	LineItems          []LineItem
	SuccessURL         string
	CancelURL          string
}

// Total is the server-side sum of unit price x quantity.
func (r SessionRequest) Total() int64 {
	var sum int64
	for _, li := range r.LineItems {
		sum += li.Amount()
	}
	return sum
}

type Session struct {
	ID  string
	URL string
}

type SessionCreator interface {
	CreateSession(ctx context.Context, req SessionRequest) (Session, error)
}

type Initiator struct {
	Catalog  *catalog.Catalog
	Sessions SessionCreator
	Log      *slog.Logger
}

// BuildLineItems prices every item from the catalog. One unknown id fails the whole cart.
func BuildLineItems(c *catalog.Catalog, cart CartRequest) ([]LineItem, error) {
	if len(cart.Items) == 0 {
		return nil, &ValidationError{Err: ErrNoItems}
	}
	out := make([]LineItem, 0, len(cart.Items))
	for _, it := range cart.Items {
		p, ok := c.Lookup(it.ProductID)
		if !ok {
			return nil, &ValidationError{ProductID: it.ProductID, Err: ErrInvalidProduct}
		}
		qty := int64(it.Quantity)
		if qty < 1 {
			qty = 1
		}
		out = append(out, LineItem{
			ProductID:  p.ID,
			Name:       p.Name,
			UnitAmount: p.UnitPrice,
			Currency:   p.Currency,
			Quantity:   qty,
		})
	}
	return out, nil
}

// ReturnURLs derives success/cancel URLs from the request origin.
func ReturnURLs(origin string) (success, cancel string) {
	origin = strings.TrimRight(origin, "/")
	return origin + "/success?session_id=" + SessionIDPlaceholder, origin + "/cancel"
}

func (in *Initiator) Start(ctx context.Context, cart CartRequest, origin string) (Session, error) {
	items, err := BuildLineItems(in.Catalog, cart)
	if err != nil {
		return Session{}, err
	}
	success, cancel := ReturnURLs(origin)
	req := SessionRequest{
		Mode:               ModePayment,
		PaymentMethodTypes: []string{PaymentMethodCard},
		LineItems:          items,
		SuccessURL:         success,
		CancelURL:          cancel,
	}
	sess, err := in.Sessions.CreateSession(ctx, req)
	if err != nil {
		return Session{}, fmt.Errorf("create session: %w", err)
	}
	if in.Log != nil {
		in.Log.Info("checkout session created",
			"session_id", sess.ID,
			"items", len(items),
			"server_total", req.Total(),
		)
	}
	return sess, nil
}
