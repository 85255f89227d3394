package orders

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusValid(t *testing.T) {
	for _, s := range []Status{StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled} {
		assert.True(t, s.Valid(), "%s", s)
	}
	assert.False(t, Status("").Valid())
	assert.False(t, Status("refunded").Valid())
	assert.False(t, Status("Pending").Valid())
}

func TestStatusTerminal(t *testing.T) {
	assert.True(t, StatusCancelled.Terminal())
	for _, s := range []Status{StatusPending, StatusProcessing, StatusShipped, StatusDelivered} {
		assert.False(t, s.Terminal(), "%s", s)
	}
}

func TestCanTransition(t *testing.T) {
	open := []Status{StatusPending, StatusProcessing, StatusShipped, StatusDelivered}
	all := append(open, StatusCancelled)

	for _, from := range open {
		for _, to := range all {
			assert.True(t, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
	for _, to := range all {
		assert.False(t, CanTransition(StatusCancelled, to), "cancelled -> %s", to)
	}
	assert.False(t, CanTransition(StatusPending, Status("refunded")))
	assert.False(t, CanTransition(Status("refunded"), StatusPending))
}
