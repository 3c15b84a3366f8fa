package inventory

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound          = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
)

type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category,omitempty"`
	PriceCents  int       `json:"price_cents"`
	Stock       int       `json:"stock"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Reservation is one granted stock decrement. PriceCents is the unit price
// read in the same atomic step as the decrement, so it is authoritative for
// order totals even if the catalog price changes afterwards.
type Reservation struct {
	ID         string
	ProductID  string
	Qty        int
	PriceCents int
}

// Store is the atomic stock backend. Reserve must be linearizable per
// product: concurrent reservations against one product never grant more than
// the available stock in total. Release is idempotent per reservation; a
// second release of the same reservation is a no-op, never an extra credit.
type Store interface {
	Reserve(ctx context.Context, productID string, qty int) (Reservation, error)
	Release(ctx context.Context, res Reservation) error
	PriceOf(ctx context.Context, productID string) (int, error)
}

type ProductInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	PriceCents  int    `json:"price_cents"`
	Stock       int    `json:"stock"`
}

// ProductUpdate carries optional field changes. Stock is deliberately
// absent: after creation it moves only through Reserve/Release.
type ProductUpdate struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
	PriceCents  *int    `json:"price_cents"`
}

type ProductFilter struct {
	Category string
	Sort     string // "price" ascending, "-price" descending (default)
	Page     int
	Limit    int
}

func (f ProductFilter) Offset() int {
	page := f.Page
	if page < 1 {
		page = 1
	}
	return (page - 1) * f.PageSize()
}

func (f ProductFilter) PageSize() int {
	if f.Limit <= 0 {
		return 10
	}
	return f.Limit
}

type Catalog interface {
	CreateProduct(ctx context.Context, in ProductInput) (Product, error)
	UpdateProduct(ctx context.Context, id string, upd ProductUpdate) (Product, error)
	GetProduct(ctx context.Context, id string) (Product, error)
	ListProducts(ctx context.Context, f ProductFilter) ([]Product, error)
}
