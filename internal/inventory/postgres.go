package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore backs the stock contract with a conditional decrement: the
// UPDATE touches the row only when enough stock remains, so the
// check-and-subtract is a single atomic statement. Reservations are recorded
// in their own table so a release can be applied exactly once.
type PostgresStore struct{ DB *pgxpool.Pool }

func (s *PostgresStore) Reserve(ctx context.Context, productID string, qty int) (Reservation, error) {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Reservation{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var price int
	err = tx.QueryRow(ctx, `
		UPDATE products SET stock = stock - $2, updated_at = now()
		WHERE id = $1 AND stock >= $2
		RETURNING price_cents`, productID, qty).Scan(&price)
	if errors.Is(err, pgx.ErrNoRows) {
		// distinguish a missing product from a short one
		var stock int
		err = tx.QueryRow(ctx, `SELECT stock FROM products WHERE id = $1`, productID).Scan(&stock)
		if errors.Is(err, pgx.ErrNoRows) {
			return Reservation{}, ErrNotFound
		}
		if err != nil {
			return Reservation{}, err
		}
		return Reservation{}, ErrInsufficientStock
	}
	if err != nil {
		return Reservation{}, err
	}

	res := Reservation{ID: uuid.NewString(), ProductID: productID, Qty: qty, PriceCents: price}
	if _, err := tx.Exec(ctx, `
		INSERT INTO reservations(id, product_id, qty, status)
		VALUES ($1, $2, $3, 'RESERVED')`, res.ID, res.ProductID, res.Qty); err != nil {
		return Reservation{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Reservation{}, err
	}
	return res, nil
}

func (s *PostgresStore) Release(ctx context.Context, res Reservation) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ct, err := tx.Exec(ctx, `
		UPDATE reservations SET status = 'RELEASED'
		WHERE id = $1 AND status = 'RESERVED'`, res.ID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		// already released (or never recorded): nothing to credit back
		return nil
	}
	if _, err := tx.Exec(ctx, `
		UPDATE products SET stock = stock + $2, updated_at = now()
		WHERE id = $1`, res.ProductID, res.Qty); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) PriceOf(ctx context.Context, productID string) (int, error) {
	var price int
	err := s.DB.QueryRow(ctx, `SELECT price_cents FROM products WHERE id = $1`, productID).Scan(&price)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return price, nil
}

func (s *PostgresStore) CreateProduct(ctx context.Context, in ProductInput) (Product, error) {
	id := uuid.NewString()
	var p Product
	err := s.DB.QueryRow(ctx, `
		INSERT INTO products(id, name, description, category, price_cents, stock)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, name, description, category, price_cents, stock, created_at, updated_at`,
		id, in.Name, in.Description, in.Category, in.PriceCents, in.Stock,
	).Scan(&p.ID, &p.Name, &p.Description, &p.Category, &p.PriceCents, &p.Stock, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Product{}, fmt.Errorf("insert product: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) UpdateProduct(ctx context.Context, id string, upd ProductUpdate) (Product, error) {
	var p Product
	err := s.DB.QueryRow(ctx, `
		UPDATE products SET
			name        = COALESCE($2, name),
			description = COALESCE($3, description),
			category    = COALESCE($4, category),
			price_cents = COALESCE($5, price_cents),
			updated_at  = now()
		WHERE id = $1
		RETURNING id, name, description, category, price_cents, stock, created_at, updated_at`,
		id, upd.Name, upd.Description, upd.Category, upd.PriceCents,
	).Scan(&p.ID, &p.Name, &p.Description, &p.Category, &p.PriceCents, &p.Stock, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	if err != nil {
		return Product{}, err
	}
	return p, nil
}

func (s *PostgresStore) GetProduct(ctx context.Context, id string) (Product, error) {
	var p Product
	err := s.DB.QueryRow(ctx, `
		SELECT id, name, description, category, price_cents, stock, created_at, updated_at
		FROM products WHERE id = $1`, id,
	).Scan(&p.ID, &p.Name, &p.Description, &p.Category, &p.PriceCents, &p.Stock, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	if err != nil {
		return Product{}, err
	}
	return p, nil
}

func (s *PostgresStore) ListProducts(ctx context.Context, f ProductFilter) ([]Product, error) {
	order := "price_cents DESC"
	if f.Sort == "price" {
		order = "price_cents ASC"
	}
	q := `SELECT id, name, description, category, price_cents, stock, created_at, updated_at
	      FROM products`
	args := []any{}
	if f.Category != "" {
		q += ` WHERE category = $1`
		args = append(args, f.Category)
	}
	q += fmt.Sprintf(` ORDER BY %s OFFSET %d LIMIT %d`, order, f.Offset(), f.PageSize())

	rows, err := s.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Product{}
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Category, &p.PriceCents, &p.Stock, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
