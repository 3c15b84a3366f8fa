package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repo is the Postgres order store.
type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) CreateOrder(ctx context.Context, o *Order) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO orders(id, external_id, user_id, user_name, user_email, status, total_cents, created_at, updated_at)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7, $8, $9)`,
		o.ID, o.ExternalID, o.Owner.ID, o.Owner.Name, o.Owner.Email, string(o.Status), o.TotalCents, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for i, ln := range o.Lines {
		_, err = tx.Exec(ctx, `
			INSERT INTO order_items(order_id, line_no, product_id, qty, price_cents)
			VALUES ($1, $2, $3, $4, $5)`,
			o.ID, i, ln.ProductID, ln.Qty, ln.PriceCents)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}
	return tx.Commit(ctx)
}

func (r *Repo) GetOrder(ctx context.Context, id string) (*Order, error) {
	return r.queryOne(ctx, `WHERE id = $1`, id)
}

func (r *Repo) FindByExternalID(ctx context.Context, externalID string) (*Order, error) {
	return r.queryOne(ctx, `WHERE external_id = $1`, externalID)
}

func (r *Repo) queryOne(ctx context.Context, where string, arg any) (*Order, error) {
	var o Order
	var ext *string
	var status string
	err := r.DB.QueryRow(ctx, `
		SELECT id, external_id, user_id, user_name, user_email, status, total_cents, created_at, updated_at
		FROM orders `+where, arg,
	).Scan(&o.ID, &ext, &o.Owner.ID, &o.Owner.Name, &o.Owner.Email, &status, &o.TotalCents, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	o.Status = Status(status)
	if ext != nil {
		o.ExternalID = *ext
	}
	if err := r.loadLines(ctx, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *Repo) loadLines(ctx context.Context, o *Order) error {
	rows, err := r.DB.Query(ctx, `
		SELECT product_id, qty, price_cents FROM order_items
		WHERE order_id = $1 ORDER BY line_no`, o.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var ln OrderLine
		if err := rows.Scan(&ln.ProductID, &ln.Qty, &ln.PriceCents); err != nil {
			return err
		}
		o.Lines = append(o.Lines, ln)
	}
	return rows.Err()
}

func (r *Repo) ListOrders(ctx context.Context, f Filter) ([]*Order, error) {
	q := `SELECT id, external_id, user_id, user_name, user_email, status, total_cents, created_at, updated_at
	      FROM orders`
	args := []any{}
	if f.Status != "" {
		q += ` WHERE status = $1`
		args = append(args, string(f.Status))
	}
	q += fmt.Sprintf(` ORDER BY created_at DESC OFFSET %d LIMIT %d`, f.Offset(), f.PageSize())

	rows, err := r.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*Order{}
	for rows.Next() {
		var o Order
		var ext *string
		var status string
		if err := rows.Scan(&o.ID, &ext, &o.Owner.ID, &o.Owner.Name, &o.Owner.Email, &status, &o.TotalCents, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		o.Status = Status(status)
		if ext != nil {
			o.ExternalID = *ext
		}
		out = append(out, &o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, o := range out {
		if err := r.loadLines(ctx, o); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *Repo) UpdateStatus(ctx context.Context, id string, st Status) (*Order, error) {
	ct, err := r.DB.Exec(ctx, `UPDATE orders SET status = $2, updated_at = now() WHERE id = $1`, id, string(st))
	if err != nil {
		return nil, err
	}
	if ct.RowsAffected() == 0 {
		return nil, ErrNotFound
	}
	return r.GetOrder(ctx, id)
}
