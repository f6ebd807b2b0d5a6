package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	kafkax "github.com/ariefcatur/go-storefront-orders/internal/kafka"
	"github.com/ariefcatur/go-storefront-orders/internal/orders"
	"github.com/ariefcatur/go-storefront-orders/internal/redisx"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
)

const sessionStatusComplete = "complete"

// ErrSessionNotComplete: session masih open / expired, tidak boleh jadi order.
var ErrSessionNotComplete = errors.New("checkout session is not complete")

type SessionGetter interface {
	GetSession(ctx context.Context, sessionID string) (orders.SessionSummary, error)
}

type Finalizer interface {
	Finalize(ctx context.Context, s orders.SessionSummary) (orders.Result, error)
}

// Service re-runs finalization for sessions whose webhook processing failed.
// The store's unique constraint keeps this safe against concurrent webhook deliveries.
type Service struct {
	Sessions    SessionGetter
	Finalizer   Finalizer
	Redis       *redis.Client // optional dedup
	ServiceName string
	Log         *slog.Logger
}

// Reconcile fetches the session from the processor and finalizes it.
func (s *Service) Reconcile(ctx context.Context, sessionID string) (orders.Result, error) {
	sess, err := s.Sessions.GetSession(ctx, sessionID)
	if err != nil {
		return orders.Result{}, fmt.Errorf("get session %s: %w", sessionID, err)
	}
	if sess.Status != sessionStatusComplete {
		return orders.Result{}, fmt.Errorf("%w: %s is %q", ErrSessionNotComplete, sessionID, sess.Status)
	}
	res, err := s.Finalizer.Finalize(ctx, sess)
	if err != nil {
		return orders.Result{}, err
	}
	s.log().Info("session reconciled", "session_id", sessionID, "outcome", res.Outcome, "order_id", res.OrderID)
	return res, nil
}

// HandleFinalizationFailed: dipasang sebagai handler consumer.
func (s *Service) HandleFinalizationFailed(ctx context.Context, m kafkago.Message) error {
	// 1) decode envelope
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		s.log().Error("drop undecodable message", "offset", m.Offset, "err", err)
		return nil
	}
	if env.EventType != orders.EventFinalizationFailed {
		return nil
	}

	// 2) dedup via Redis (pakai event_id)
	if s.Redis != nil {
		claimed, err := redisx.Claim(ctx, s.Redis, s.ServiceName, env.EventID)
		if err != nil {
			s.log().Warn("dedup unavailable", "err", err)
		} else if !claimed {
			return nil
		}
	}

	// 3) decode payload
	p, err := kafkax.UnwrapPayload[orders.FinalizationFailedPayload](env.Payload)
	if err != nil {
		s.log().Error("drop undecodable payload", "event_id", env.EventID, "err", err)
		return nil
	}
	if p.StripeSessionID == "" {
		s.log().Error("alert without session id needs manual review", "event_id", env.EventID, "processor_event_id", p.ProcessorEvent, "stage", p.Stage)
		return nil
	}

	// 4) finalize ulang; duplicate = sukses
	_, err = s.Reconcile(ctx, p.StripeSessionID)
	if errors.Is(err, ErrSessionNotComplete) {
		s.log().Error("alert for unfinished session dropped", "event_id", env.EventID, "session_id", p.StripeSessionID, "err", err)
		return nil
	}
	if err != nil {
		if s.Redis != nil {
			_ = redisx.Release(ctx, s.Redis, s.ServiceName, env.EventID)
		}
		return err
	}
	return nil
}

func (s *Service) log() *slog.Logger {
	if s.Log != nil {
		return s.Log
	}
	return slog.Default()
}
