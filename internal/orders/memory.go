package orders

import (
	"context"
	"sync"
)

// MemoryStore is the in-memory order backend used by tests and local runs.
type MemoryStore struct {
	mu         sync.RWMutex
	byID       map[string]*Order
	byExternal map[string]string
	ordered    []string // creation order, newest last
	failNext   error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:       make(map[string]*Order),
		byExternal: make(map[string]string),
	}
}

// FailNextCreate makes the next CreateOrder return err, for exercising the
// persistence-failure rollback path.
func (s *MemoryStore) FailNextCreate(err error) {
	s.mu.Lock()
	s.failNext = err
	s.mu.Unlock()
}

func (s *MemoryStore) CreateOrder(ctx context.Context, o *Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNext != nil {
		err := s.failNext
		s.failNext = nil
		return err
	}
	cp := *o
	cp.Lines = append([]OrderLine(nil), o.Lines...)
	s.byID[o.ID] = &cp
	if o.ExternalID != "" {
		s.byExternal[o.ExternalID] = o.ID
	}
	s.ordered = append(s.ordered, o.ID)
	return nil
}

func (s *MemoryStore) GetOrder(ctx context.Context, id string) (*Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *o
	cp.Lines = append([]OrderLine(nil), o.Lines...)
	return &cp, nil
}

func (s *MemoryStore) FindByExternalID(ctx context.Context, externalID string) (*Order, error) {
	s.mu.RLock()
	id, ok := s.byExternal[externalID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return s.GetOrder(ctx, id)
}

func (s *MemoryStore) ListOrders(ctx context.Context, f Filter) ([]*Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*Order, 0, len(s.ordered))
	// newest first, as the durable store lists them
	for i := len(s.ordered) - 1; i >= 0; i-- {
		o := s.byID[s.ordered[i]]
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		cp := *o
		cp.Lines = append([]OrderLine(nil), o.Lines...)
		matched = append(matched, &cp)
	}

	off := f.Offset()
	if off >= len(matched) {
		return []*Order{}, nil
	}
	end := off + f.PageSize()
	if end > len(matched) {
		end = len(matched)
	}
	return matched[off:end], nil
}

func (s *MemoryStore) UpdateStatus(ctx context.Context, id string, st Status) (*Order, error) {
	s.mu.Lock()
	o, ok := s.byID[id]
	if !ok {
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	o.Status = st
	s.mu.Unlock()
	return s.GetOrder(ctx, id)
}
