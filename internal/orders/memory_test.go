package orders

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedOrders(t *testing.T, s *MemoryStore, n int) []string {
	t.Helper()
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		o := &Order{
			ID:        fmt.Sprintf("o-%02d", i),
			Owner:     Owner{ID: "u1", Name: "n", Email: "e@example.com"},
			Lines:     []OrderLine{{ProductID: "p1", Qty: 1, PriceCents: 100}},
			Status:    StatusPending,
			CreatedAt: time.Now().UTC(),
			UpdatedAt: time.Now().UTC(),
		}
		require.NoError(t, s.CreateOrder(context.Background(), o))
		ids = append(ids, o.ID)
	}
	return ids
}

func TestMemoryStore_GetUnknown(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.GetOrder(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_ListPagination(t *testing.T) {
	s := NewMemoryStore()
	seedOrders(t, s, 5)

	page1, err := s.ListOrders(context.Background(), Filter{Page: 1, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page1, 2)
	// newest first
	assert.Equal(t, "o-04", page1[0].ID)

	page3, err := s.ListOrders(context.Background(), Filter{Page: 3, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page3, 1)
	assert.Equal(t, "o-00", page3[0].ID)

	empty, err := s.ListOrders(context.Background(), Filter{Page: 4, Limit: 2})
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestMemoryStore_ListByStatus(t *testing.T) {
	s := NewMemoryStore()
	ids := seedOrders(t, s, 3)
	_, err := s.UpdateStatus(context.Background(), ids[1], StatusShipped)
	require.NoError(t, err)

	shipped, err := s.ListOrders(context.Background(), Filter{Status: StatusShipped})
	require.NoError(t, err)
	require.Len(t, shipped, 1)
	assert.Equal(t, ids[1], shipped[0].ID)

	pending, err := s.ListOrders(context.Background(), Filter{Status: StatusPending})
	require.NoError(t, err)
	assert.Len(t, pending, 2)
}

func TestMemoryStore_UpdateStatusUnknown(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.UpdateStatus(context.Background(), "nope", StatusShipped)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_FindByExternalID(t *testing.T) {
	s := NewMemoryStore()
	o := &Order{ID: "o-1", ExternalID: "ext-9", Status: StatusPending}
	require.NoError(t, s.CreateOrder(context.Background(), o))

	got, err := s.FindByExternalID(context.Background(), "ext-9")
	require.NoError(t, err)
	assert.Equal(t, "o-1", got.ID)

	_, err = s.FindByExternalID(context.Background(), "ext-missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_SnapshotIsolation(t *testing.T) {
	s := NewMemoryStore()
	o := &Order{ID: "o-1", Lines: []OrderLine{{ProductID: "p1", Qty: 1, PriceCents: 100}}, Status: StatusPending}
	require.NoError(t, s.CreateOrder(context.Background(), o))

	got, err := s.GetOrder(context.Background(), "o-1")
	require.NoError(t, err)
	got.Lines[0].Qty = 99

	again, err := s.GetOrder(context.Background(), "o-1")
	require.NoError(t, err)
	assert.Equal(t, 1, again.Lines[0].Qty)
}
