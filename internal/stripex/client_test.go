package stripex

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/ariefcatur/go-storefront-orders/internal/checkout"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v79"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(srv.URL),
		HTTPClient:        srv.Client(),
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
	})
	return New("sk_test_123", Options{Backends: &stripe.Backends{API: backend, Connect: backend, Uploads: backend}})
}

func writeJSON(w http.ResponseWriter, code int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write([]byte(body))
}

func TestCreateSession(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		assert.Equal(t, "Bearer sk_test_123", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "payment", r.PostForm.Get("mode"))
		assert.Equal(t, "card", r.PostForm.Get("payment_method_types[0]"))
		assert.Equal(t, "2000", r.PostForm.Get("line_items[0][price_data][unit_amount]"))
		assert.Equal(t, "Cool T-Shirt", r.PostForm.Get("line_items[0][price_data][product_data][name]"))
		assert.Equal(t, "usd", r.PostForm.Get("line_items[0][price_data][currency]"))
		assert.Equal(t, "2", r.PostForm.Get("line_items[0][quantity]"))
		assert.Equal(t, "500", r.PostForm.Get("line_items[1][price_data][unit_amount]"))
		assert.Equal(t, "https://shop.example/cancel", r.PostForm.Get("cancel_url"))
		writeJSON(w, http.StatusOK, `{"id":"cs_test_1","object":"checkout.session","url":"https://checkout.stripe.com/c/pay/cs_test_1"}`)
	})

	sess, err := c.CreateSession(context.Background(), checkout.SessionRequest{
		Mode:               checkout.ModePayment,
		PaymentMethodTypes: []string{checkout.PaymentMethodCard},
		LineItems: []checkout.LineItem{
			{Name: "Cool T-Shirt", UnitAmount: 2000, Currency: "usd", Quantity: 2},
			{Name: "Dragon Spit (virtual)", UnitAmount: 500, Currency: "usd", Quantity: 1},
		},
		SuccessURL: "https://shop.example/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  "https://shop.example/cancel",
	})
	require.NoError(t, err)
	assert.Equal(t, "cs_test_1", sess.ID)
	assert.Equal(t, "https://checkout.stripe.com/c/pay/cs_test_1", sess.URL)
}

func TestListLineItems(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/checkout/sessions/cs_1/line_items", r.URL.Path)
		assert.True(t, strings.Contains(r.URL.RawQuery, "data.price.product"), r.URL.RawQuery)
		writeJSON(w, http.StatusOK, `{
  "object": "list",
  "url": "/v1/checkout/sessions/cs_1/line_items",
  "has_more": false,
  "data": [
    {"id":"li_1","object":"item","description":"Cool T-Shirt","quantity":2,"amount_subtotal":4000,"currency":"usd",
     "price":{"id":"price_1","object":"price","product":{"id":"prod_1","object":"product","name":"Cool T-Shirt"}}},
    {"id":"li_2","object":"item","description":"","quantity":1,"amount_subtotal":500,"currency":"usd",
     "price":{"id":"price_2","object":"price","product":{"id":"prod_2","object":"product","name":"Dragon Spit (virtual)"}}}
  ]
}`)
	})

	items, err := c.ListLineItems(context.Background(), "cs_1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Cool T-Shirt", items[0].Description)
	assert.Equal(t, int64(2), items[0].Quantity)
	assert.Equal(t, int64(4000), items[0].AmountSubtotal)
	assert.Equal(t, "", items[1].Description)
	assert.Equal(t, "Dragon Spit (virtual)", items[1].ProductName)
	assert.Equal(t, "usd", items[1].Currency)
}

func TestGetSession(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/checkout/sessions/cs_1", r.URL.Path)
		writeJSON(w, http.StatusOK, `{"id":"cs_1","object":"checkout.session","amount_total":4500,"currency":"usd","payment_status":"paid","status":"complete","customer_details":{"email":"buyer@example.com"}}`)
	})

	s, err := c.GetSession(context.Background(), "cs_1")
	require.NoError(t, err)
	assert.Equal(t, "cs_1", s.ID)
	assert.Equal(t, int64(4500), s.AmountTotal)
	assert.Equal(t, "paid", s.PaymentStatus)
	assert.Equal(t, "complete", s.Status)
	assert.Equal(t, "buyer@example.com", s.CustomerEmail)
}

func TestBreakerOpensOnServerErrors(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		writeJSON(w, http.StatusInternalServerError, `{"error":{"type":"api_error","message":"boom"}}`)
	})

	for i := 0; i < 5; i++ {
		_, err := c.ListLineItems(context.Background(), "cs_1")
		require.Error(t, err)
	}
	_, err := c.ListLineItems(context.Background(), "cs_1")
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(5), hits.Load())
}

func TestBreakerIgnoresRequestErrors(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		writeJSON(w, http.StatusBadRequest, `{"error":{"type":"invalid_request_error","message":"No such checkout.session"}}`)
	})

	for i := 0; i < 7; i++ {
		_, err := c.GetSession(context.Background(), "cs_missing")
		require.Error(t, err)
		assert.NotErrorIs(t, err, gobreaker.ErrOpenState)
	}
	assert.Equal(t, int32(7), hits.Load())
}
