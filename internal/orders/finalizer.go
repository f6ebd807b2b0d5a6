package orders

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

const fallbackDescription = "item"

type LineItemFetcher interface {
	ListLineItems(ctx context.Context, sessionID string) ([]LineItem, error)
}

// Store inserts an order and its items atomically. A second insert for the same
// stripe_session_id returns ErrDuplicateSession.
type Store interface {
	InsertOrder(ctx context.Context, o Order, items []OrderItem) (string, error)
}

// Marker is an advisory cache of finalized sessions. The store constraint stays authoritative.
type Marker interface {
	Seen(ctx context.Context, sessionID string) (bool, error)
	Mark(ctx context.Context, sessionID string) error
}

type Notifier interface {
	OrderFinalized(ctx context.Context, o Order, items []OrderItem)
	FinalizationFailed(ctx context.Context, f Failure)
}

type Failure struct {
	SessionID string
	EventID   string
	Stage     Stage
	Err       error
}

type Finalizer struct {
	LineItems LineItemFetcher
	Store     Store
	Marker    Marker   // optional
	Notifier  Notifier // optional
	Log       *slog.Logger
	Now       func() time.Time
}

// Handle processes a verified event. It never returns an error: non-completed
// events are ignored and failures are reported through the Notifier.
func (f *Finalizer) Handle(ctx context.Context, ev PaymentEvent) Result {
	log := f.logger().With("event_id", ev.ID, "event_type", ev.Type)
	if ev.Type != EventCheckoutSessionCompleted {
		log.Debug("event ignored")
		return Result{Outcome: OutcomeIgnored}
	}
	if ev.Session == nil || ev.Session.ID == "" {
		f.fail(ctx, log, Failure{EventID: ev.ID, Stage: StageDecode, Err: ErrMissingSession})
		return Result{Outcome: OutcomeFailed}
	}

	res, err := f.Finalize(ctx, *ev.Session)
	if err != nil {
		stage := StageInsert
		var ue *UpstreamError
		if errors.As(err, &ue) {
			stage = ue.Stage
		}
		f.fail(ctx, log, Failure{SessionID: ev.Session.ID, EventID: ev.ID, Stage: stage, Err: err})
		return Result{Outcome: OutcomeFailed}
	}
	return res
}

// Finalize fetches authoritative line items and writes the order exactly once.
func (f *Finalizer) Finalize(ctx context.Context, s SessionSummary) (Result, error) {
	log := f.logger().With("session_id", s.ID)

	if f.Marker != nil {
		if seen, err := f.Marker.Seen(ctx, s.ID); err != nil {
			log.Warn("marker lookup failed", "err", err)
		} else if seen {
			log.Info("duplicate session, already finalized")
			return Result{Outcome: OutcomeDuplicate}, nil
		}
	}

	lines, err := f.LineItems.ListLineItems(ctx, s.ID)
	if err != nil {
		return Result{}, &UpstreamError{Stage: StageFetchLineItems, SessionID: s.ID, Err: err}
	}

	order := BuildOrder(s, f.now())
	items := BuildItems(lines)

	id, err := f.Store.InsertOrder(ctx, order, items)
	if errors.Is(err, ErrDuplicateSession) {
		log.Info("duplicate session, order exists")
		f.mark(ctx, log, s.ID)
		return Result{Outcome: OutcomeDuplicate}, nil
	}
	if err != nil {
		return Result{}, &UpstreamError{Stage: StageInsert, SessionID: s.ID, Err: err}
	}

	order.ID = id
	for i := range items {
		items[i].OrderID = id
	}
	log.Info("order saved", "order_id", id, "items", len(items), "amount_total", order.AmountTotal)
	f.mark(ctx, log, s.ID)
	if f.Notifier != nil {
		f.Notifier.OrderFinalized(ctx, order, items)
	}
	return Result{Outcome: OutcomeCreated, OrderID: id}, nil
}

// BuildOrder maps session-level fields; created_at is finalization time.
func BuildOrder(s SessionSummary, now time.Time) Order {
	o := Order{
		StripeSessionID: s.ID,
		AmountTotal:     s.AmountTotal,
		Currency:        s.Currency,
		PaymentStatus:   s.PaymentStatus,
		CreatedAt:       now.UTC(),
	}
	if s.CustomerEmail != "" {
		email := s.CustomerEmail
		o.CustomerEmail = &email
	}
	return o
}

func BuildItems(lines []LineItem) []OrderItem {
	out := make([]OrderItem, 0, len(lines))
	for _, li := range lines {
		out = append(out, OrderItem{
			Description:    Describe(li),
			Quantity:       li.Quantity,
			AmountSubtotal: li.AmountSubtotal,
			Currency:       li.Currency,
		})
	}
	return out
}

// Describe: description -> product name -> "item".
func Describe(li LineItem) string {
	switch {
	case li.Description != "":
		return li.Description
	case li.ProductName != "":
		return li.ProductName
	default:
		return fallbackDescription
	}
}

func (f *Finalizer) fail(ctx context.Context, log *slog.Logger, fl Failure) {
	log.Error("error saving order", "session_id", fl.SessionID, "stage", fl.Stage, "err", fl.Err)
	if f.Notifier != nil {
		f.Notifier.FinalizationFailed(ctx, fl)
	}
}

func (f *Finalizer) mark(ctx context.Context, log *slog.Logger, sessionID string) {
	if f.Marker == nil {
		return
	}
	if err := f.Marker.Mark(ctx, sessionID); err != nil {
		log.Warn("marker write failed", "err", err)
	}
}

func (f *Finalizer) now() time.Time {
	if f.Now != nil {
		return f.Now()
	}
	return time.Now()
}

func (f *Finalizer) logger() *slog.Logger {
	if f.Log != nil {
		return f.Log
	}
	return slog.Default()
}
