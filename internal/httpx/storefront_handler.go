package httpx

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/ariefcatur/go-storefront-orders/internal/catalog"
	"github.com/ariefcatur/go-storefront-orders/internal/checkout"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const maxCartBytes = 1 << 20

type SessionStarter interface {
	Start(ctx context.Context, cart checkout.CartRequest, origin string) (checkout.Session, error)
}

type StorefrontHandler struct {
	Catalog  *catalog.Catalog
	Checkout SessionStarter
	// BaseURL is used as origin when the request has no Origin header.
	BaseURL string
	Log     *slog.Logger
}

type CheckoutResp struct {
	URL string `json:"url"`
}

func (h *StorefrontHandler) Register(r chi.Router) {
	r.Get("/products", h.listProducts)
	r.Post("/create-checkout-session", h.createCheckoutSession)
}

func (h *StorefrontHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Catalog.List())
}

func (h *StorefrontHandler) createCheckoutSession(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxCartBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid body"))
		return
	}
	cart, err := checkout.DecodeCart(body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid json"))
		return
	}

	sess, err := h.Checkout.Start(r.Context(), cart, h.origin(r))
	var ve *checkout.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, errorBody(capitalize(ve.Error())))
		return
	case err != nil:
		h.Log.Error("create-checkout-session error", "request_id", middleware.GetReqID(r.Context()), "err", err)
		writeJSON(w, http.StatusInternalServerError, errorBody("could not create checkout session"))
		return
	}
	writeJSON(w, http.StatusOK, CheckoutResp{URL: sess.URL})
}

func (h *StorefrontHandler) origin(r *http.Request) string {
	if o := r.Header.Get("Origin"); o != "" {
		return o
	}
	if h.BaseURL != "" {
		return h.BaseURL
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if p := r.Header.Get("X-Forwarded-Proto"); p != "" {
		scheme = p
	}
	return scheme + "://" + r.Host
}

func capitalize(s string) string {
	if s == "" || s[0] < 'a' || s[0] > 'z' {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}
