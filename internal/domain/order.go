package domain

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// OrderItem is one frozen line of an order. PriceAtPurchase is fixed at
// checkout and does not follow later product price changes.
type OrderItem struct {
	ProductID       string
	ProductName     string
	Quantity        int
	PriceAtPurchase decimal.Decimal
}

// Order is the immutable snapshot a cart checks out into, driven through
// NEW → PROCESSING → IN_DELIVERY → COMPLETED by Place, Pay and the delivery
// completion callback, with CANCELLED reachable from NEW and PROCESSING only.
// All transitions are serialized by the order's own mutex, so concurrent
// retries of Pay cannot double-advance the state.
type Order struct {
	mu         sync.Mutex
	id         string
	customerID string
	items      []OrderItem
	total      decimal.Decimal
	status     OrderStatus
	payment    Payment
	delivery   *Delivery
	createdAt  time.Time
	reserved   bool
}

// ID returns the order's opaque unique id.
func (o *Order) ID() string { return o.id }

// CustomerID returns the owning customer's id.
func (o *Order) CustomerID() string { return o.customerID }

// CreatedAt returns the checkout timestamp.
func (o *Order) CreatedAt() time.Time { return o.createdAt }

// TotalAmount returns the total computed at checkout. It never changes
// afterwards.
func (o *Order) TotalAmount() decimal.Decimal { return o.total }

// Status returns the current lifecycle state.
func (o *Order) Status() OrderStatus {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status
}

// Items returns a copy of the frozen line items.
func (o *Order) Items() []OrderItem {
	items := make([]OrderItem, len(o.items))
	copy(items, o.items)
	return items
}

// Payment returns the settled payment, nil before a successful Pay.
func (o *Order) Payment() Payment {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.payment
}

// Delivery returns the order's delivery, nil until BeginDelivery.
func (o *Order) Delivery() *Delivery {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.delivery
}

// Place moves the order from NEW to PROCESSING, reserving stock for every
// line first. On the first under-stocked product all reservations made so far
// are released, the order stays NEW and the error names the product.
func (o *Order) Place(ctx context.Context, inv StockReserver) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.status != OrderStatusNew {
		return fmt.Errorf("place order %s from %s: %w", o.id, o.status, ErrInvalidTransition)
	}

	reserved := make([]OrderItem, 0, len(o.items))
	for _, item := range o.items {
		ok, err := inv.Reserve(ctx, item.ProductID, item.Quantity)
		if err != nil || !ok {
			o.releaseItems(ctx, inv, reserved)
			if err != nil {
				return fmt.Errorf("reserve stock for product %s: %w", item.ProductID, err)
			}
			return fmt.Errorf("product %s: %w", item.ProductID, ErrInsufficientStock)
		}
		reserved = append(reserved, item)
	}

	o.reserved = true
	o.status = OrderStatusProcessing
	return nil
}

// Pay settles the order with the given payment. The payment amount must equal
// the order total; a mismatch is rejected before any processing happens. On
// processing failure the order stays PROCESSING and the caller may retry with
// a fresh Payment. On success the order moves to IN_DELIVERY.
func (o *Order) Pay(ctx context.Context, p Payment) (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.status != OrderStatusProcessing {
		return false, fmt.Errorf("pay order %s from %s: %w", o.id, o.status, ErrInvalidTransition)
	}
	if !p.Amount().Equal(o.total) {
		return false, fmt.Errorf("payment %s amount %s vs order total %s: %w",
			p.ID(), p.Amount(), o.total, ErrAmountMismatch)
	}
	if err := p.Process(ctx); err != nil {
		return false, err
	}
	o.payment = p
	o.status = OrderStatusInDelivery
	return true, nil
}

// Cancel moves the order to CANCELLED from NEW or PROCESSING, releasing any
// reserved stock and refunding a processed payment. A refund failure aborts
// the cancellation with the order unchanged; stock release failures do not
// block it and are reported in the returned error.
func (o *Order) Cancel(ctx context.Context, inv StockReserver) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.status != OrderStatusNew && o.status != OrderStatusProcessing {
		return fmt.Errorf("cancel order %s from %s: %w", o.id, o.status, ErrInvalidTransition)
	}

	if o.payment != nil && o.payment.Status() == PaymentStatusProcessed {
		if err := o.payment.Refund(ctx); err != nil {
			return fmt.Errorf("refund payment %s: %w", o.payment.ID(), err)
		}
	}

	var releaseErr error
	if o.reserved {
		releaseErr = o.releaseItems(ctx, inv, o.items)
		o.reserved = false
	}

	o.status = OrderStatusCancelled
	return releaseErr
}

// BeginDelivery creates the order's single delivery, wiring its completion
// callback back into the order. Valid only from IN_DELIVERY; a second call
// returns the delivery already created.
func (o *Order) BeginDelivery(address string) (*Delivery, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.status != OrderStatusInDelivery {
		return nil, fmt.Errorf("begin delivery for order %s from %s: %w", o.id, o.status, ErrInvalidTransition)
	}
	if o.delivery != nil {
		return o.delivery, nil
	}
	o.delivery = NewDelivery(address, o.completeFromDelivery)
	return o.delivery, nil
}

// completeFromDelivery is the one-directional notification fired when the
// order's delivery reaches DELIVERED.
func (o *Order) completeFromDelivery() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.status == OrderStatusInDelivery {
		o.status = OrderStatusCompleted
	}
}

func (o *Order) releaseItems(ctx context.Context, inv StockReserver, items []OrderItem) error {
	var errs []error
	for _, item := range items {
		if err := inv.Release(ctx, item.ProductID, item.Quantity); err != nil {
			errs = append(errs, fmt.Errorf("release stock for product %s: %w", item.ProductID, err))
		}
	}
	return errors.Join(errs...)
}
