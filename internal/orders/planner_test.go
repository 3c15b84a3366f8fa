package orders

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-shop-orders/internal/inventory"
)

func seededInventory() *inventory.MemoryStore {
	inv := inventory.NewMemoryStore()
	inv.Seed("p1", 1500, 5)
	inv.Seed("p2", 250, 10)
	return inv
}

func TestBuildPlan_PricesLines(t *testing.T) {
	inv := seededInventory()
	plan, err := BuildPlan(context.Background(), inv, []LineInput{
		{ProductID: "p1", Qty: 3},
		{ProductID: "p2", Qty: 2},
	})
	require.NoError(t, err)
	assert.Equal(t, 3*1500+2*250, plan.TotalCents)
	require.Len(t, plan.Lines, 2)
	assert.Equal(t, 1500, plan.Lines[0].PriceCents)
	assert.Equal(t, 250, plan.Lines[1].PriceCents)
}

func TestBuildPlan_InvalidQuantity(t *testing.T) {
	inv := seededInventory()
	_, err := BuildPlan(context.Background(), inv, []LineInput{
		{ProductID: "p1", Qty: 0},
	})
	var pe *PlacementError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, FailInvalidQuantity, pe.Kind)
	assert.Equal(t, "p1", pe.ProductID)
	assert.Equal(t, 0, pe.Line)
}

func TestBuildPlan_UnknownProduct(t *testing.T) {
	inv := seededInventory()
	_, err := BuildPlan(context.Background(), inv, []LineInput{
		{ProductID: "p1", Qty: 1},
		{ProductID: "ghost", Qty: 1},
	})
	var pe *PlacementError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, FailProductNotFound, pe.Kind)
	assert.Equal(t, "ghost", pe.ProductID)
	assert.Equal(t, 1, pe.Line)
}

func TestBuildPlan_FirstFailingLineWins(t *testing.T) {
	inv := seededInventory()
	// line 0 has a bad quantity, line 1 a missing product: line 0 decides
	_, err := BuildPlan(context.Background(), inv, []LineInput{
		{ProductID: "p2", Qty: -1},
		{ProductID: "ghost", Qty: 1},
	})
	var pe *PlacementError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, FailInvalidQuantity, pe.Kind)
	assert.Equal(t, "p2", pe.ProductID)
	assert.Equal(t, 0, pe.Line)
}

func TestBuildPlan_DuplicateLinesPricedIndependently(t *testing.T) {
	inv := seededInventory()
	plan, err := BuildPlan(context.Background(), inv, []LineInput{
		{ProductID: "p1", Qty: 2},
		{ProductID: "p1", Qty: 1},
	})
	require.NoError(t, err)
	require.Len(t, plan.Lines, 2)
	assert.Equal(t, 3*1500, plan.TotalCents)
}
