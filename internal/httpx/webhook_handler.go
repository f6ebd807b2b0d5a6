package httpx

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/ariefcatur/go-storefront-orders/internal/orders"
	"github.com/ariefcatur/go-storefront-orders/internal/webhook"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type EventVerifier interface {
	Verify(payload []byte, header string) (orders.PaymentEvent, error)
}

type EventHandler interface {
	Handle(ctx context.Context, ev orders.PaymentEvent) orders.Result
}

type WebhookHandler struct {
	Verifier EventVerifier
	Events   EventHandler
	Log      *slog.Logger
}

type WebhookResp struct {
	Received bool `json:"received"`
}

func (h *WebhookHandler) Register(r chi.Router) {
	r.Post("/webhook", h.receive)
}

func (h *WebhookHandler) receive(w http.ResponseWriter, r *http.Request) {
	// body harus raw, jangan di-decode/encode ulang sebelum verifikasi
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, webhook.MaxBodyBytes))
	if err != nil {
		http.Error(w, "Webhook Error: could not read body", http.StatusBadRequest)
		return
	}

	ev, err := h.Verifier.Verify(body, r.Header.Get(webhook.SignatureHeader))
	if err != nil && !errors.Is(err, webhook.ErrSignatureInvalid) {
		// signature sudah lolos; ack supaya processor tidak redeliver terus
		h.Log.Error("webhook event undecodable",
			"request_id", middleware.GetReqID(r.Context()),
			"err", err,
		)
		writeJSON(w, http.StatusOK, WebhookResp{Received: true})
		return
	}
	if err != nil {
		h.Log.Warn("webhook signature verification failed",
			"security", true,
			"remote_addr", r.RemoteAddr,
			"request_id", middleware.GetReqID(r.Context()),
			"err", err,
		)
		http.Error(w, "Webhook Error: "+err.Error(), http.StatusBadRequest)
		return
	}

	// sekali diterima, proses jalan sampai selesai walau client putus
	res := h.Events.Handle(context.WithoutCancel(r.Context()), ev)
	h.Log.Info("webhook handled",
		"event_id", ev.ID,
		"event_type", ev.Type,
		"outcome", res.Outcome,
		"order_id", res.OrderID,
	)
	writeJSON(w, http.StatusOK, WebhookResp{Received: true})
}
