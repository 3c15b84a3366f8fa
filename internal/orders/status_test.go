package orders

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		ok       bool
	}{
		{StatusPending, StatusShipped, true},
		{StatusPending, StatusDelivered, true},
		{StatusShipped, StatusDelivered, true},
		{StatusShipped, StatusPending, false},
		{StatusDelivered, StatusPending, false},
		{StatusDelivered, StatusShipped, false},
		{StatusPending, StatusPending, false},
	}
	for _, c := range cases {
		assert.Equalf(t, c.ok, CanTransition(c.from, c.to), "%s -> %s", c.from, c.to)
	}
}

func TestStatusValid(t *testing.T) {
	assert.True(t, StatusPending.Valid())
	assert.True(t, StatusShipped.Valid())
	assert.True(t, StatusDelivered.Valid())
	assert.False(t, Status("Cancelled").Valid())
	assert.False(t, Status("").Valid())
}
