package orders

import "context"

type Filter struct {
	Status Status
	Page   int
	Limit  int
}

func (f Filter) Offset() int {
	page := f.Page
	if page < 1 {
		page = 1
	}
	return (page - 1) * f.PageSize()
}

func (f Filter) PageSize() int {
	if f.Limit <= 0 {
		return 10
	}
	return f.Limit
}

// Store persists order snapshots. CreateOrder writes the whole order or
// nothing; implementations never leave a partially written order behind.
type Store interface {
	CreateOrder(ctx context.Context, o *Order) error
	GetOrder(ctx context.Context, id string) (*Order, error)
	FindByExternalID(ctx context.Context, externalID string) (*Order, error)
	ListOrders(ctx context.Context, f Filter) ([]*Order, error)
	UpdateStatus(ctx context.Context, id string, st Status) (*Order, error)
}
