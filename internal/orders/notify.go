package orders

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	kafkax "github.com/ariefcatur/go-storefront-orders/internal/kafka"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
)

type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

// KafkaNotifier publishes finalization outcomes. Failures go to TopicFinalizationFailed
// as the operational alert / reconciliation channel.
type KafkaNotifier struct {
	Finalized Publisher // TopicOrderFinalized
	Failed    Publisher // TopicFinalizationFailed
	Service   string
	Now       func() time.Time
}

func (n *KafkaNotifier) OrderFinalized(ctx context.Context, o Order, items []OrderItem) {
	if n.Finalized == nil {
		return
	}
	ev := n.envelope(EventOrderFinalized, o.StripeSessionID, OrderFinalizedPayload{
		OrderID:         o.ID,
		StripeSessionID: o.StripeSessionID,
		AmountTotal:     o.AmountTotal,
		Currency:        o.Currency,
		ItemCount:       len(items),
	})
	n.Finalized.Publish(PartitionKey(o.StripeSessionID), kafkax.MustMarshal(ev), headers(ev)...)
}

func (n *KafkaNotifier) FinalizationFailed(ctx context.Context, f Failure) {
	if n.Failed == nil {
		return
	}
	ev := n.envelope(EventFinalizationFailed, f.SessionID, FinalizationFailedPayload{
		StripeSessionID: f.SessionID,
		ProcessorEvent:  f.EventID,
		Stage:           f.Stage,
		Error:           errString(f.Err),
	})
	n.Failed.Publish(PartitionKey(f.SessionID), kafkax.MustMarshal(ev), headers(ev)...)
}

func (n *KafkaNotifier) envelope(eventType, sessionID string, payload any) Envelope {
	now := time.Now
	if n.Now != nil {
		now = n.Now
	}
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    now().UTC(),
		Producer:      n.Service,
		CorrelationID: sessionID,
		Payload:       kafkax.MustMarshal(payload),
	}
}

func headers(ev Envelope) []kafkago.Header {
	return []kafkago.Header{
		{Key: "x-event-type", Value: []byte(ev.EventType)},
		{Key: "x-event-version", Value: []byte(strconv.Itoa(ev.EventVersion))},
	}
}

// LogNotifier only logs; the finalizer already logs failures, this adds the alert tag.
type LogNotifier struct{ Log *slog.Logger }

func (n LogNotifier) OrderFinalized(ctx context.Context, o Order, items []OrderItem) {}

func (n LogNotifier) FinalizationFailed(ctx context.Context, f Failure) {
	log := n.Log
	if log == nil {
		log = slog.Default()
	}
	log.Error("finalization needs manual reconciliation",
		"alert", true,
		"session_id", f.SessionID,
		"event_id", f.EventID,
		"stage", f.Stage,
		"err", errString(f.Err),
	)
}

// Multi fans out to several notifiers.
type Multi []Notifier

func (m Multi) OrderFinalized(ctx context.Context, o Order, items []OrderItem) {
	for _, n := range m {
		n.OrderFinalized(ctx, o, items)
	}
}

func (m Multi) FinalizationFailed(ctx context.Context, f Failure) {
	for _, n := range m {
		n.FinalizationFailed(ctx, f)
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
