package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeliveryShip(t *testing.T) {
	d := NewDelivery("123 Main St", nil)
	assert.Equal(t, DeliveryStatusPending, d.Status())
	assert.Empty(t, d.TrackingNumber())

	courier := &Courier{ID: "cour1", Name: "Dmitry"}
	require.NoError(t, d.Ship(courier))
	assert.Equal(t, DeliveryStatusShipped, d.Status())
	assert.Same(t, courier, d.Courier())
	assert.NotEmpty(t, d.TrackingNumber())

	// Ship is valid only from PENDING.
	assert.ErrorIs(t, d.Ship(courier), ErrInvalidTransition)
}

func TestDeliveryAdvance(t *testing.T) {
	d := NewDelivery("123 Main St", nil)

	assert.ErrorIs(t, d.Advance(), ErrInvalidTransition)

	require.NoError(t, d.Ship(&Courier{ID: "cour1", Name: "Dmitry"}))
	require.NoError(t, d.Advance())
	assert.Equal(t, DeliveryStatusInTransit, d.Status())

	assert.ErrorIs(t, d.Advance(), ErrInvalidTransition)
}

func TestDeliveryCompleteFromShippedOrInTransit(t *testing.T) {
	for _, advance := range []bool{false, true} {
		d := NewDelivery("123 Main St", nil)
		require.NoError(t, d.Ship(&Courier{ID: "cour1", Name: "Dmitry"}))
		if advance {
			require.NoError(t, d.Advance())
		}
		require.NoError(t, d.Complete())
		assert.Equal(t, DeliveryStatusDelivered, d.Status())
	}
}

func TestDeliveryCompleteFromPendingFails(t *testing.T) {
	d := NewDelivery("123 Main St", nil)
	assert.ErrorIs(t, d.Complete(), ErrInvalidTransition)
	assert.Equal(t, DeliveryStatusPending, d.Status())
}

func TestDeliveryCompletionNotifiesOnce(t *testing.T) {
	var notified int
	d := NewDelivery("123 Main St", func() { notified++ })

	require.NoError(t, d.Ship(&Courier{ID: "cour1", Name: "Dmitry"}))
	require.NoError(t, d.Complete())
	assert.Equal(t, 1, notified)

	assert.ErrorIs(t, d.Complete(), ErrInvalidTransition)
	assert.Equal(t, 1, notified)
}

func TestNaiveRouteOptimizer(t *testing.T) {
	deliveries := []*Delivery{
		NewDelivery("123 Main St", nil),
		NewDelivery("456 Oak Ave", nil),
	}

	var opt RouteOptimizer = NaiveRouteOptimizer{}
	route := opt.CalculateRoute(deliveries)
	assert.Contains(t, route, "2 deliveries")
}
