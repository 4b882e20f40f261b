package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCartTotal(t *testing.T) {
	now := time.Now()
	widget := NewProduct("p1", "Widget", dec("10.00"))
	gadget := NewProduct("p2", "Gadget", dec("20.00"))

	cart := NewCart()
	require.NoError(t, cart.AddItem(widget, 2))
	require.NoError(t, cart.AddItem(gadget, 1))

	assert.True(t, cart.Total(now).Equal(dec("40.00")), "got %s", cart.Total(now))
}

func TestCartAddQuantitiesSum(t *testing.T) {
	widget := NewProduct("p1", "Widget", dec("10.00"))

	cart := NewCart()
	require.NoError(t, cart.AddItem(widget, 2))
	require.NoError(t, cart.AddItem(widget, 3))

	items := cart.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 5, items[0].Quantity)
}

func TestCartRejectsNonPositiveQuantity(t *testing.T) {
	widget := NewProduct("p1", "Widget", dec("10.00"))

	cart := NewCart()
	assert.Error(t, cart.AddItem(widget, 0))
	assert.Error(t, cart.AddItem(widget, -1))
	assert.Equal(t, 0, cart.Len())
}

func TestCartAddThenRemoveRestoresTotal(t *testing.T) {
	now := time.Now()
	widget := NewProduct("p1", "Widget", dec("10.00"))
	gadget := NewProduct("p2", "Gadget", dec("20.00"))

	cart := NewCart()
	require.NoError(t, cart.AddItem(widget, 2))
	before := cart.Total(now)

	require.NoError(t, cart.AddItem(gadget, 3))
	cart.RemoveItem(gadget.ID)

	assert.True(t, cart.Total(now).Equal(before))

	// Removing an absent product is a no-op.
	cart.RemoveItem("nope")
	assert.True(t, cart.Total(now).Equal(before))
}

func TestCartTotalUsesEffectivePrice(t *testing.T) {
	now := time.Now()
	widget := NewProduct("p1", "Widget", dec("10.00"))
	widget.ApplyDiscount(dec("2.50"))

	cart := NewCart()
	require.NoError(t, cart.AddItem(widget, 2))

	assert.True(t, cart.Total(now).Equal(dec("15.00")))

	// A discount larger than the price floors the line at zero.
	widget.ApplyDiscount(dec("99.00"))
	assert.True(t, cart.Total(now).IsZero())
}

func TestCartPromoApplied(t *testing.T) {
	now := time.Now()
	widget := NewProduct("p1", "Widget", dec("10.00"))
	gadget := NewProduct("p2", "Gadget", dec("20.00"))

	cart := NewCart()
	require.NoError(t, cart.AddItem(widget, 2))
	require.NoError(t, cart.AddItem(gadget, 1))

	promo, err := NewPromoCode("TEN", 10, now.Add(-time.Hour), now.Add(time.Hour))
	require.NoError(t, err)
	cart.ApplyPromo(promo)

	assert.True(t, cart.Total(now).Equal(dec("36.00")), "got %s", cart.Total(now))
}

func TestCartExpiredPromoIgnored(t *testing.T) {
	now := time.Now()
	widget := NewProduct("p1", "Widget", dec("10.00"))
	gadget := NewProduct("p2", "Gadget", dec("20.00"))

	cart := NewCart()
	require.NoError(t, cart.AddItem(widget, 2))
	require.NoError(t, cart.AddItem(gadget, 1))

	expired, err := NewPromoCode("OLD", 10, now.Add(-48*time.Hour), now.Add(-24*time.Hour))
	require.NoError(t, err)
	cart.ApplyPromo(expired)

	assert.True(t, cart.Total(now).Equal(dec("40.00")), "got %s", cart.Total(now))
}

func TestCreateOrderEmptyCart(t *testing.T) {
	cart := NewCart()
	_, err := cart.CreateOrder("c1", time.Now())
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestCreateOrderFreezesPrices(t *testing.T) {
	now := time.Now()
	widget := NewProduct("p1", "Widget", dec("10.00"))
	gadget := NewProduct("p2", "Gadget", dec("20.00"))

	cart := NewCart()
	require.NoError(t, cart.AddItem(widget, 2))
	require.NoError(t, cart.AddItem(gadget, 1))

	order, err := cart.CreateOrder("c1", now)
	require.NoError(t, err)

	assert.NotEmpty(t, order.ID())
	assert.Equal(t, OrderStatusNew, order.Status())
	assert.True(t, order.TotalAmount().Equal(dec("40.00")))

	items := order.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "p1", items[0].ProductID)
	assert.True(t, items[0].PriceAtPurchase.Equal(dec("10.00")))
	assert.Equal(t, "p2", items[1].ProductID)
	assert.True(t, items[1].PriceAtPurchase.Equal(dec("20.00")))

	// Later price changes do not follow into the snapshot.
	widget.SetPrice(dec("99.00"))
	assert.True(t, order.Items()[0].PriceAtPurchase.Equal(dec("10.00")))
	assert.True(t, order.TotalAmount().Equal(dec("40.00")))
}

func TestCustomerCheckoutReplacesCart(t *testing.T) {
	widget := NewProduct("p1", "Widget", dec("10.00"))

	alice := NewCustomer("c1", "Alice", "alice@example.com")
	require.NoError(t, alice.AddToCart(widget, 2))

	before := alice.Cart()
	order, err := alice.Checkout(time.Now())
	require.NoError(t, err)

	assert.NotSame(t, before, alice.Cart())
	assert.Equal(t, 0, alice.Cart().Len())

	history := alice.Orders()
	require.Len(t, history, 1)
	assert.Equal(t, order.ID(), history[0].ID())

	// Checkout with the fresh empty cart is rejected and history untouched.
	_, err = alice.Checkout(time.Now())
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Len(t, alice.Orders(), 1)
}
