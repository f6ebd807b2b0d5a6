package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgUniqueViolation = "23505"

type Repo struct{ DB *pgxpool.Pool }

// InsertOrder: idempotent via stripe_session_id.
// - order + items dalam satu transaksi; kalau session sudah ada -> ErrDuplicateSession, tidak ada yang ditulis.
func (r *Repo) InsertOrder(ctx context.Context, o Order, items []OrderItem) (string, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return "", fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var orderID string
	err = tx.QueryRow(ctx, `
		INSERT INTO orders(stripe_session_id, customer_email, amount_total, currency, payment_status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (stripe_session_id) DO NOTHING
		RETURNING id::text
	`, o.StripeSessionID, o.CustomerEmail, o.AmountTotal, o.Currency, o.PaymentStatus, o.CreatedAt).Scan(&orderID)
	if errors.Is(err, pgx.ErrNoRows) || isUniqueViolation(err) {
		return "", ErrDuplicateSession
	}
	if err != nil {
		return "", fmt.Errorf("insert order: %w", err)
	}

	if len(items) > 0 {
		b := &pgx.Batch{}
		for _, it := range items {
			b.Queue(`
				INSERT INTO order_items(order_id, description, quantity, amount_subtotal, currency)
				VALUES ($1, $2, $3, $4, $5)`,
				orderID, it.Description, it.Quantity, it.AmountSubtotal, it.Currency,
			)
		}
		if err := tx.SendBatch(ctx, b).Close(); err != nil {
			return "", fmt.Errorf("insert order items: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		if isUniqueViolation(err) {
			return "", ErrDuplicateSession
		}
		return "", fmt.Errorf("commit: %w", err)
	}
	return orderID, nil
}

func (r *Repo) GetBySession(ctx context.Context, sessionID string) (Order, []OrderItem, error) {
	var o Order
	err := r.DB.QueryRow(ctx, `
		SELECT id::text, stripe_session_id, customer_email, amount_total, currency, payment_status, created_at
		FROM orders WHERE stripe_session_id=$1`, sessionID,
	).Scan(&o.ID, &o.StripeSessionID, &o.CustomerEmail, &o.AmountTotal, &o.Currency, &o.PaymentStatus, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, nil, ErrNotFound
	}
	if err != nil {
		return Order{}, nil, fmt.Errorf("query order: %w", err)
	}

	rows, err := r.DB.Query(ctx, `
		SELECT id, order_id::text, description, quantity, amount_subtotal, currency
		FROM order_items WHERE order_id=$1 ORDER BY id`, o.ID)
	if err != nil {
		return Order{}, nil, fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	var items []OrderItem
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.Description, &it.Quantity, &it.AmountSubtotal, &it.Currency); err != nil {
			return Order{}, nil, fmt.Errorf("scan order item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return Order{}, nil, err
	}
	return o, items, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
