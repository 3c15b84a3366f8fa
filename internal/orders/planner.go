package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/ariefcatur/go-shop-orders/internal/inventory"
)

// PriceReader is the slice of the inventory store the planner needs.
type PriceReader interface {
	PriceOf(ctx context.Context, productID string) (int, error)
}

type PricedLine struct {
	ProductID  string
	Qty        int
	PriceCents int
}

type Plan struct {
	Lines      []PricedLine
	TotalCents int
}

// BuildPlan validates and prices a line list against the current catalog
// without reserving anything. Lines are scanned in request order and the
// first offending one decides the error. A product id appearing on two lines
// is priced (and later reserved) independently per line, not merged.
//
// Prices read here are provisional: the coordinator recomputes the total
// from reservation-time prices before committing.
func BuildPlan(ctx context.Context, prices PriceReader, lines []LineInput) (Plan, error) {
	plan := Plan{Lines: make([]PricedLine, 0, len(lines))}
	for i, ln := range lines {
		if ln.Qty < 1 {
			return Plan{}, &PlacementError{Kind: FailInvalidQuantity, ProductID: ln.ProductID, Line: i}
		}
		price, err := prices.PriceOf(ctx, ln.ProductID)
		if errors.Is(err, inventory.ErrNotFound) {
			return Plan{}, &PlacementError{Kind: FailProductNotFound, ProductID: ln.ProductID, Line: i}
		}
		if err != nil {
			return Plan{}, fmt.Errorf("price of %s: %w", ln.ProductID, err)
		}
		plan.Lines = append(plan.Lines, PricedLine{ProductID: ln.ProductID, Qty: ln.Qty, PriceCents: price})
		plan.TotalCents += price * ln.Qty
	}
	return plan, nil
}
