package domain

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixtureOrder(t *testing.T) (*Order, *Warehouse) {
	t.Helper()
	now := time.Now()

	widget := NewProduct("p1", "Widget", dec("10.00"))
	gadget := NewProduct("p2", "Gadget", dec("20.00"))

	w := NewWarehouse("w1", "Rotterdam")
	require.NoError(t, w.AddStock("p1", 100))
	require.NoError(t, w.AddStock("p2", 50))

	cart := NewCart()
	require.NoError(t, cart.AddItem(widget, 2))
	require.NoError(t, cart.AddItem(gadget, 1))

	order, err := cart.CreateOrder("c1", now)
	require.NoError(t, err)
	return order, w
}

func TestOrderPlaceReservesStock(t *testing.T) {
	ctx := context.Background()
	order, w := fixtureOrder(t)

	require.NoError(t, order.Place(ctx, w))
	assert.Equal(t, OrderStatusProcessing, order.Status())
	assert.Equal(t, 98, w.Stock("p1"))
	assert.Equal(t, 49, w.Stock("p2"))

	// Place is valid only from NEW.
	err := order.Place(ctx, w)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, 98, w.Stock("p1"))
}

func TestOrderPlaceInsufficientStock(t *testing.T) {
	ctx := context.Background()
	order, w := fixtureOrder(t)

	// Drain the second product so the first line reserves and must be
	// compensated.
	ok, err := w.Reserve(ctx, "p2", 50)
	require.NoError(t, err)
	require.True(t, ok)

	err = order.Place(ctx, w)
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Contains(t, err.Error(), "p2")
	assert.Equal(t, OrderStatusNew, order.Status())
	assert.Equal(t, 100, w.Stock("p1"), "partial reservation released")
}

func TestOrderPayAmountMismatch(t *testing.T) {
	ctx := context.Background()
	order, w := fixtureOrder(t)
	require.NoError(t, order.Place(ctx, w))

	gw := &stubGateway{}
	wrong := NewCardPayment(dec("39.99"), "**** **** **** 1234", gw)

	ok, err := order.Pay(ctx, wrong)
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrAmountMismatch)
	assert.Equal(t, OrderStatusProcessing, order.Status())
	assert.Equal(t, 0, gw.charges, "mismatch rejected before processing")
}

func TestOrderPayFailureIsRetryable(t *testing.T) {
	ctx := context.Background()
	order, w := fixtureOrder(t)
	require.NoError(t, order.Place(ctx, w))

	declined := NewCardPayment(order.TotalAmount(), "**** **** **** 1234",
		&stubGateway{chargeErr: errors.New("declined")})
	ok, err := order.Pay(ctx, declined)
	assert.False(t, ok)
	assert.Error(t, err)
	assert.Equal(t, OrderStatusProcessing, order.Status())
	assert.Nil(t, order.Payment())

	// Retry with a fresh payment succeeds.
	fresh := NewCardPayment(order.TotalAmount(), "**** **** **** 1234", &stubGateway{})
	ok, err = order.Pay(ctx, fresh)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, OrderStatusInDelivery, order.Status())
	assert.Equal(t, fresh.ID(), order.Payment().ID())
}

func TestOrderPayFromWrongState(t *testing.T) {
	ctx := context.Background()
	order, _ := fixtureOrder(t)

	p := NewCardPayment(order.TotalAmount(), "**** **** **** 1234", &stubGateway{})
	ok, err := order.Pay(ctx, p)
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, OrderStatusNew, order.Status())
}

func TestOrderCancelFromNew(t *testing.T) {
	ctx := context.Background()
	order, w := fixtureOrder(t)

	require.NoError(t, order.Cancel(ctx, w))
	assert.Equal(t, OrderStatusCancelled, order.Status())
	assert.Equal(t, 100, w.Stock("p1"), "nothing was reserved")
}

func TestOrderCancelReleasesStock(t *testing.T) {
	ctx := context.Background()
	order, w := fixtureOrder(t)
	require.NoError(t, order.Place(ctx, w))
	require.Equal(t, 98, w.Stock("p1"))

	require.NoError(t, order.Cancel(ctx, w))
	assert.Equal(t, OrderStatusCancelled, order.Status())
	assert.Equal(t, 100, w.Stock("p1"))
	assert.Equal(t, 50, w.Stock("p2"))
}

func TestOrderCancelRefundsProcessedPayment(t *testing.T) {
	ctx := context.Background()
	order, w := fixtureOrder(t)
	require.NoError(t, order.Place(ctx, w))

	gw := &stubGateway{}
	p := NewCardPayment(order.TotalAmount(), "**** **** **** 1234", gw)
	require.NoError(t, p.Process(ctx))

	// Attach the processed payment by hand: this models a checkout flow that
	// charged but has not advanced the order yet.
	order.payment = p

	require.NoError(t, order.Cancel(ctx, w))
	assert.Equal(t, OrderStatusCancelled, order.Status())
	assert.Equal(t, PaymentStatusRefunded, p.Status())
	assert.Equal(t, 1, gw.refunds)
}

func TestOrderCancelFromDeliveryFails(t *testing.T) {
	ctx := context.Background()
	order, w := fixtureOrder(t)
	require.NoError(t, order.Place(ctx, w))

	p := NewCardPayment(order.TotalAmount(), "**** **** **** 1234", &stubGateway{})
	ok, err := order.Pay(ctx, p)
	require.NoError(t, err)
	require.True(t, ok)

	err = order.Cancel(ctx, w)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, OrderStatusInDelivery, order.Status())
	assert.Equal(t, 98, w.Stock("p1"), "stock untouched by rejected cancel")
}

func TestOrderLifecycleEndToEnd(t *testing.T) {
	ctx := context.Background()
	order, w := fixtureOrder(t)

	require.True(t, order.TotalAmount().Equal(dec("40.00")))

	require.NoError(t, order.Place(ctx, w))
	assert.Equal(t, 98, w.Stock("p1"))
	assert.Equal(t, 49, w.Stock("p2"))

	p := NewCardPayment(dec("40.00"), "**** **** **** 1234", &stubGateway{})
	ok, err := order.Pay(ctx, p)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, OrderStatusInDelivery, order.Status())

	d, err := order.BeginDelivery("123 Main St")
	require.NoError(t, err)

	courier := &Courier{ID: "cour1", Name: "Dmitry"}
	require.NoError(t, courier.AcceptDelivery(d))
	assert.Equal(t, DeliveryStatusShipped, d.Status())
	assert.NotEmpty(t, d.TrackingNumber())

	require.NoError(t, d.Complete())
	assert.Equal(t, DeliveryStatusDelivered, d.Status())
	assert.Equal(t, OrderStatusCompleted, order.Status())
}

func TestOrderBeginDeliveryOnce(t *testing.T) {
	ctx := context.Background()
	order, w := fixtureOrder(t)

	_, err := order.BeginDelivery("123 Main St")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	require.NoError(t, order.Place(ctx, w))
	p := NewCardPayment(order.TotalAmount(), "**** **** **** 1234", &stubGateway{})
	_, err = order.Pay(ctx, p)
	require.NoError(t, err)

	first, err := order.BeginDelivery("123 Main St")
	require.NoError(t, err)
	second, err := order.BeginDelivery("somewhere else")
	require.NoError(t, err)
	assert.Same(t, first, second, "an order owns exactly one delivery")
}

func TestOrderStatusTransitionTable(t *testing.T) {
	assert.True(t, OrderStatusNew.CanTransition(OrderStatusProcessing))
	assert.True(t, OrderStatusNew.CanTransition(OrderStatusCancelled))
	assert.True(t, OrderStatusProcessing.CanTransition(OrderStatusInDelivery))
	assert.True(t, OrderStatusProcessing.CanTransition(OrderStatusCancelled))
	assert.True(t, OrderStatusInDelivery.CanTransition(OrderStatusCompleted))

	assert.False(t, OrderStatusNew.CanTransition(OrderStatusInDelivery))
	assert.False(t, OrderStatusInDelivery.CanTransition(OrderStatusCancelled))
	assert.False(t, OrderStatusCompleted.CanTransition(OrderStatusCancelled))
	assert.False(t, OrderStatusCancelled.CanTransition(OrderStatusProcessing))
}
