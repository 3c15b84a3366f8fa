package orders

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-shop-orders/internal/inventory"
)

const (
	releaseAttempts   = 6
	releaseBackoff    = 50 * time.Millisecond
	releaseBackoffCap = 5 * time.Second
)

// Placer coordinates order placement: validate, reserve every line, persist
// the order, and on any failure release everything already reserved so no
// partial stock mutation survives the call. Each Reserve is atomic on its
// own product and no lock is held across products, so placements touching
// different products run fully in parallel and cannot deadlock.
type Placer struct {
	Inventory inventory.Store
	Orders    Store
	Logger    *zap.Logger

	// ReleaseBackoff overrides the initial retry delay; zero means the
	// default.
	ReleaseBackoff time.Duration

	pending sync.WaitGroup // rollbacks still retrying in the background
}

// PlaceOrder either commits a whole order or leaves stock untouched.
//
// When externalID is non-empty and an order already carries it, that order
// is returned as-is instead of reserving again, so clients can safely retry
// a placement request.
func (p *Placer) PlaceOrder(ctx context.Context, owner Owner, externalID string, lines []LineInput) (*Order, error) {
	if len(lines) == 0 {
		return nil, &PlacementError{Kind: FailEmptyOrder}
	}

	if externalID != "" {
		existing, err := p.Orders.FindByExternalID(ctx, externalID)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("idempotency lookup: %w", err)
		}
	}

	// validate before touching any stock; a zero quantity or unknown
	// product rejects the request with no reservation made
	if _, err := BuildPlan(ctx, p.Inventory, lines); err != nil {
		return nil, err
	}

	reserved := make([]inventory.Reservation, 0, len(lines))
	for i, ln := range lines {
		res, err := p.Inventory.Reserve(ctx, ln.ProductID, ln.Qty)
		if err != nil {
			p.releaseAll(reserved)
			switch {
			case errors.Is(err, inventory.ErrNotFound):
				return nil, &PlacementError{Kind: FailProductNotFound, ProductID: ln.ProductID, Line: i}
			case errors.Is(err, inventory.ErrInsufficientStock):
				return nil, &PlacementError{Kind: FailInsufficientStock, ProductID: ln.ProductID, Line: i}
			default:
				return nil, fmt.Errorf("reserve %s: %w", ln.ProductID, err)
			}
		}
		reserved = append(reserved, res)
	}

	// reservation-time prices are authoritative for the frozen total
	total := 0
	orderLines := make([]OrderLine, len(reserved))
	for i, res := range reserved {
		orderLines[i] = OrderLine{ProductID: res.ProductID, Qty: res.Qty, PriceCents: res.PriceCents}
		total += res.PriceCents * res.Qty
	}

	now := time.Now().UTC()
	order := &Order{
		ID:         uuid.NewString(),
		ExternalID: externalID,
		Owner:      owner,
		Lines:      orderLines,
		Status:     StatusPending,
		TotalCents: total,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := p.Orders.CreateOrder(ctx, order); err != nil {
		p.Logger.Error("order persist failed after reservation, rolling back",
			zap.String("order_id", order.ID), zap.Error(err))
		p.releaseAll(reserved)
		return nil, &PlacementError{Kind: FailPersistence}
	}
	return order, nil
}

// releaseAll rolls back granted reservations. It runs on a background
// context: a caller timeout must not abandon the rollback, since a reserved
// decrement with no order behind it is a stock leak. Transient failures are
// retried with backoff, and a reservation that still fails after the
// synchronous attempts keeps retrying on a detached goroutine until the
// release lands. Release itself is idempotent, so a retry after an
// ambiguous failure cannot over-credit.
func (p *Placer) releaseAll(reserved []inventory.Reservation) {
	ctx := context.Background()
	for _, res := range reserved {
		backoff := p.backoffBase()
		var err error
		for attempt := 0; attempt < releaseAttempts; attempt++ {
			if err = p.Inventory.Release(ctx, res); err == nil {
				break
			}
			time.Sleep(backoff)
			backoff *= 2
		}
		if err != nil {
			p.Logger.Error("release still failing, retrying in background",
				zap.String("reservation_id", res.ID),
				zap.String("product_id", res.ProductID),
				zap.Int("qty", res.Qty),
				zap.Error(err))
			p.pending.Add(1)
			go p.retryRelease(res, backoff)
		}
	}
}

func (p *Placer) retryRelease(res inventory.Reservation, backoff time.Duration) {
	defer p.pending.Done()
	ctx := context.Background()
	for {
		if backoff > releaseBackoffCap {
			backoff = releaseBackoffCap
		}
		time.Sleep(backoff)
		if err := p.Inventory.Release(ctx, res); err == nil {
			p.Logger.Info("delayed release landed",
				zap.String("reservation_id", res.ID),
				zap.String("product_id", res.ProductID))
			return
		}
		backoff *= 2
	}
}

func (p *Placer) backoffBase() time.Duration {
	if p.ReleaseBackoff > 0 {
		return p.ReleaseBackoff
	}
	return releaseBackoff
}

// WaitReleases blocks until no rollback is still retrying, for shutdown.
func (p *Placer) WaitReleases() { p.pending.Wait() }
