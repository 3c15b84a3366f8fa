package inventory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestMemoryStore_ReserveDecrements(t *testing.T) {
	s := NewMemoryStore()
	s.Seed("p1", 500, 5)

	res, err := s.Reserve(context.Background(), "p1", 3)
	require.NoError(t, err)
	assert.Equal(t, "p1", res.ProductID)
	assert.Equal(t, 3, res.Qty)
	assert.Equal(t, 500, res.PriceCents)

	stock, ok := s.StockOf("p1")
	require.True(t, ok)
	assert.Equal(t, 2, stock)
}

func TestMemoryStore_ReserveInsufficient(t *testing.T) {
	s := NewMemoryStore()
	s.Seed("p1", 500, 2)

	_, err := s.Reserve(context.Background(), "p1", 3)
	assert.ErrorIs(t, err, ErrInsufficientStock)

	stock, _ := s.StockOf("p1")
	assert.Equal(t, 2, stock)
}

func TestMemoryStore_ReserveUnknown(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.Reserve(context.Background(), "ghost", 1)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.PriceOf(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_ReleaseIsIdempotent(t *testing.T) {
	s := NewMemoryStore()
	s.Seed("p1", 500, 5)

	res, err := s.Reserve(context.Background(), "p1", 3)
	require.NoError(t, err)

	require.NoError(t, s.Release(context.Background(), res))
	stock, _ := s.StockOf("p1")
	assert.Equal(t, 5, stock)

	// second release of the same reservation must not over-credit
	require.NoError(t, s.Release(context.Background(), res))
	stock, _ = s.StockOf("p1")
	assert.Equal(t, 5, stock)
}

// A release that fails must stay retryable: the idempotency marker may only
// be set once the stock credit actually happened.
func TestMemoryStore_FailedReleaseRetryCreditsStock(t *testing.T) {
	s := NewMemoryStore()
	res := Reservation{ID: "r1", ProductID: "ghost", Qty: 2, PriceCents: 100}

	require.ErrorIs(t, s.Release(context.Background(), res), ErrNotFound)

	s.Seed("ghost", 100, 0)
	require.NoError(t, s.Release(context.Background(), res))
	stock, _ := s.StockOf("ghost")
	assert.Equal(t, 2, stock)

	// and the marker still holds after the successful retry
	require.NoError(t, s.Release(context.Background(), res))
	stock, _ = s.StockOf("ghost")
	assert.Equal(t, 2, stock)
}

func TestMemoryStore_ConcurrentReserveNoOversell(t *testing.T) {
	const (
		initialStock = 100
		workers      = 50
		perWorker    = 10
	)
	s := NewMemoryStore()
	s.Seed("hot", 100, initialStock)

	var granted atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				if _, err := s.Reserve(context.Background(), "hot", 1); err == nil {
					granted.Add(1)
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(initialStock), granted.Load())
	stock, _ := s.StockOf("hot")
	assert.Equal(t, 0, stock)
}

func TestMemoryStore_ConcurrentDistinctProductsAllGranted(t *testing.T) {
	s := NewMemoryStore()
	const products = 20
	ids := make([]string, products)
	for i := range ids {
		ids[i] = string(rune('a' + i))
		s.Seed(ids[i], 100, 1)
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := s.Reserve(context.Background(), id, 1)
			assert.NoError(t, err)
		}(id)
	}
	wg.Wait()
}

// Property: under any sequence of reserves and (possibly repeated) releases,
// stock never goes negative and stock plus outstanding reservations always
// equals the initial amount.
func TestMemoryStore_ReserveReleaseConservation(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		initial := rapid.IntRange(0, 50).Draw(t, "initial")
		s := NewMemoryStore()
		s.Seed("p", 100, initial)

		outstanding := map[string]Reservation{}
		sumOutstanding := 0
		steps := rapid.IntRange(1, 60).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			switch rapid.IntRange(0, 2).Draw(t, "op") {
			case 0: // reserve
				qty := rapid.IntRange(1, 10).Draw(t, "qty")
				res, err := s.Reserve(context.Background(), "p", qty)
				if err == nil {
					outstanding[res.ID] = res
					sumOutstanding += qty
				} else if qty <= initial-sumOutstanding {
					t.Fatalf("reserve of %d rejected with %d available", qty, initial-sumOutstanding)
				}
			case 1: // release an outstanding reservation
				for id, res := range outstanding {
					require.NoError(t, s.Release(context.Background(), res))
					delete(outstanding, id)
					sumOutstanding -= res.Qty
					break
				}
			case 2: // double-release: pick any released reservation again
				for _, res := range outstanding {
					require.NoError(t, s.Release(context.Background(), res))
					require.NoError(t, s.Release(context.Background(), res))
					delete(outstanding, res.ID)
					sumOutstanding -= res.Qty
					break
				}
			}

			stock, ok := s.StockOf("p")
			require.True(t, ok)
			if stock < 0 {
				t.Fatalf("stock went negative: %d", stock)
			}
			if stock+sumOutstanding != initial {
				t.Fatalf("conservation broken: stock=%d outstanding=%d initial=%d",
					stock, sumOutstanding, initial)
			}
		}
	})
}

func TestMemoryStore_CatalogRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	p, err := s.CreateProduct(context.Background(), ProductInput{
		Name: "Mug", Category: "kitchen", PriceCents: 799, Stock: 10,
	})
	require.NoError(t, err)
	require.NotEmpty(t, p.ID)

	name := "Big Mug"
	price := 899
	upd, err := s.UpdateProduct(context.Background(), p.ID, ProductUpdate{Name: &name, PriceCents: &price})
	require.NoError(t, err)
	assert.Equal(t, "Big Mug", upd.Name)
	assert.Equal(t, 899, upd.PriceCents)
	assert.Equal(t, 10, upd.Stock)

	got, err := s.GetProduct(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Big Mug", got.Name)
}

func TestMemoryStore_ListProductsFilterSortPaginate(t *testing.T) {
	s := NewMemoryStore()
	mk := func(name, cat string, price int) {
		_, err := s.CreateProduct(context.Background(), ProductInput{
			Name: name, Category: cat, PriceCents: price, Stock: 1,
		})
		require.NoError(t, err)
	}
	mk("a", "kitchen", 100)
	mk("b", "kitchen", 300)
	mk("c", "kitchen", 200)
	mk("d", "garden", 999)

	asc, err := s.ListProducts(context.Background(), ProductFilter{Category: "kitchen", Sort: "price"})
	require.NoError(t, err)
	require.Len(t, asc, 3)
	assert.Equal(t, []int{100, 200, 300}, []int{asc[0].PriceCents, asc[1].PriceCents, asc[2].PriceCents})

	desc, err := s.ListProducts(context.Background(), ProductFilter{Category: "kitchen"})
	require.NoError(t, err)
	assert.Equal(t, 300, desc[0].PriceCents)

	page2, err := s.ListProducts(context.Background(), ProductFilter{Category: "kitchen", Sort: "price", Page: 2, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page2, 1)
	assert.Equal(t, 300, page2[0].PriceCents)
}
