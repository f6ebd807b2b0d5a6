package checkout

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	ErrNoItems        = errors.New("no items provided")
	ErrInvalidProduct = errors.New("invalid product id")
)

// ValidationError is surfaced to the caller as 400.
type ValidationError struct {
	ProductID string
	Err       error
}

func (e *ValidationError) Error() string {
	if e.ProductID != "" {
		return fmt.Sprintf("%s: %s", e.Err, e.ProductID)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Quantity never fails to decode: anything that is not a positive number becomes 1.
type Quantity int64

func (q *Quantity) UnmarshalJSON(b []byte) error {
	*q = Quantity(parseQuantity(b))
	return nil
}

func parseQuantity(b []byte) int64 {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return 1
	}
	s := string(b)
	if b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return 1
		}
		s = strings.TrimSpace(s)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 1
	}
	if f = math.Trunc(f); f < 1 || f > math.MaxInt32 {
		return 1
	}
	return int64(f)
}

// CartItem sengaja tidak punya field price: harga selalu dari Catalog.
type CartItem struct {
	ProductID string   `json:"id"`
	Quantity  Quantity `json:"quantity"`
}

type CartRequest struct {
	Items []CartItem `json:"items"`
}

// DecodeCart parses a request body. A missing quantity defaults to 1.
func DecodeCart(b []byte) (CartRequest, error) {
	var raw struct {
		Items []struct {
			ID       string    `json:"id"`
			Quantity *Quantity `json:"quantity"`
		} `json:"items"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return CartRequest{}, fmt.Errorf("invalid json: %w", err)
	}
	req := CartRequest{Items: make([]CartItem, 0, len(raw.Items))}
	for _, it := range raw.Items {
		q := Quantity(1)
		if it.Quantity != nil {
			q = *it.Quantity
		}
		req.Items = append(req.Items, CartItem{ProductID: it.ID, Quantity: q})
	}
	return req, nil
}
