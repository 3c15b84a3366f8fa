package orders

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by order stores for unknown order ids.
var ErrNotFound = errors.New("order not found")

type FailureKind string

const (
	FailEmptyOrder        FailureKind = "EMPTY_ORDER"
	FailInvalidQuantity   FailureKind = "INVALID_QUANTITY"
	FailProductNotFound   FailureKind = "PRODUCT_NOT_FOUND"
	FailInsufficientStock FailureKind = "INSUFFICIENT_STOCK"
	FailPersistence       FailureKind = "PERSISTENCE_FAILURE"
)

// PlacementError rejects a placement as a whole. When the failure concerns a
// specific request line, ProductID and Line identify the first offending one
// in request order.
type PlacementError struct {
	Kind      FailureKind
	ProductID string
	Line      int
}

func (e *PlacementError) Error() string {
	switch e.Kind {
	case FailEmptyOrder:
		return "order has no lines"
	case FailPersistence:
		return "order could not be persisted"
	default:
		return fmt.Sprintf("%s: product %s (line %d)", e.Kind, e.ProductID, e.Line)
	}
}
