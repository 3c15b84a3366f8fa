package inventory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memProduct struct {
	mu sync.Mutex // serializes stock mutations for this product only
	p  Product
}

// MemoryStore keeps products in a locked map. Each product carries its own
// mutex, so reservations on different products proceed in parallel while
// reservations on one product serialize, matching the per-key contract of
// the durable backends.
type MemoryStore struct {
	mu       sync.RWMutex
	products map[string]*memProduct

	relMu    sync.Mutex
	released map[string]bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		products: make(map[string]*memProduct),
		released: make(map[string]bool),
	}
}

// Seed inserts a product with a fixed id, for wiring tests and local runs.
func (s *MemoryStore) Seed(id string, priceCents, stock int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	s.products[id] = &memProduct{p: Product{
		ID: id, Name: id, PriceCents: priceCents, Stock: stock,
		CreatedAt: now, UpdatedAt: now,
	}}
}

func (s *MemoryStore) lookup(id string) (*memProduct, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	mp, ok := s.products[id]
	return mp, ok
}

func (s *MemoryStore) Reserve(ctx context.Context, productID string, qty int) (Reservation, error) {
	mp, ok := s.lookup(productID)
	if !ok {
		return Reservation{}, ErrNotFound
	}
	mp.mu.Lock()
	defer mp.mu.Unlock()
	if mp.p.Stock < qty {
		return Reservation{}, ErrInsufficientStock
	}
	mp.p.Stock -= qty
	mp.p.UpdatedAt = time.Now().UTC()
	return Reservation{
		ID:         uuid.NewString(),
		ProductID:  productID,
		Qty:        qty,
		PriceCents: mp.p.PriceCents,
	}, nil
}

func (s *MemoryStore) Release(ctx context.Context, res Reservation) error {
	s.relMu.Lock()
	defer s.relMu.Unlock()
	if s.released[res.ID] {
		return nil
	}

	mp, ok := s.lookup(res.ProductID)
	if !ok {
		return ErrNotFound
	}
	mp.mu.Lock()
	mp.p.Stock += res.Qty
	mp.p.UpdatedAt = time.Now().UTC()
	mp.mu.Unlock()

	// marked only once the credit landed, so a retry after a failed
	// release still restores stock
	s.released[res.ID] = true
	return nil
}

func (s *MemoryStore) PriceOf(ctx context.Context, productID string) (int, error) {
	mp, ok := s.lookup(productID)
	if !ok {
		return 0, ErrNotFound
	}
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return mp.p.PriceCents, nil
}

// StockOf reports current stock, mainly for tests and the redis seed path.
func (s *MemoryStore) StockOf(productID string) (int, bool) {
	mp, ok := s.lookup(productID)
	if !ok {
		return 0, false
	}
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return mp.p.Stock, true
}

func (s *MemoryStore) CreateProduct(ctx context.Context, in ProductInput) (Product, error) {
	now := time.Now().UTC()
	p := Product{
		ID:          uuid.NewString(),
		Name:        in.Name,
		Description: in.Description,
		Category:    in.Category,
		PriceCents:  in.PriceCents,
		Stock:       in.Stock,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.mu.Lock()
	s.products[p.ID] = &memProduct{p: p}
	s.mu.Unlock()
	return p, nil
}

func (s *MemoryStore) UpdateProduct(ctx context.Context, id string, upd ProductUpdate) (Product, error) {
	mp, ok := s.lookup(id)
	if !ok {
		return Product{}, ErrNotFound
	}
	mp.mu.Lock()
	defer mp.mu.Unlock()
	if upd.Name != nil {
		mp.p.Name = *upd.Name
	}
	if upd.Description != nil {
		mp.p.Description = *upd.Description
	}
	if upd.Category != nil {
		mp.p.Category = *upd.Category
	}
	if upd.PriceCents != nil {
		mp.p.PriceCents = *upd.PriceCents
	}
	mp.p.UpdatedAt = time.Now().UTC()
	return mp.p, nil
}

func (s *MemoryStore) GetProduct(ctx context.Context, id string) (Product, error) {
	mp, ok := s.lookup(id)
	if !ok {
		return Product{}, ErrNotFound
	}
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return mp.p, nil
}

func (s *MemoryStore) ListProducts(ctx context.Context, f ProductFilter) ([]Product, error) {
	s.mu.RLock()
	all := make([]Product, 0, len(s.products))
	for _, mp := range s.products {
		mp.mu.Lock()
		p := mp.p
		mp.mu.Unlock()
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		all = append(all, p)
	}
	s.mu.RUnlock()

	asc := f.Sort == "price"
	sort.Slice(all, func(i, j int) bool {
		if asc {
			return all[i].PriceCents < all[j].PriceCents
		}
		return all[i].PriceCents > all[j].PriceCents
	})

	off := f.Offset()
	if off >= len(all) {
		return []Product{}, nil
	}
	end := off + f.PageSize()
	if end > len(all) {
		end = len(all)
	}
	return all[off:end], nil
}
