package domain

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Courier delivers shipments.
type Courier struct {
	ID    string
	Name  string
	Phone string
}

// AcceptDelivery assigns the courier and ships the delivery.
func (c *Courier) AcceptDelivery(d *Delivery) error {
	return d.Ship(c)
}

// Delivery tracks post-payment fulfillment through
// PENDING → SHIPPED → IN_TRANSIT → DELIVERED, strictly forward. Completion
// notifies the owning order through the callback installed at creation, so
// the delivery holds no back-pointer to the order.
type Delivery struct {
	mu             sync.Mutex
	id             string
	address        string
	status         DeliveryStatus
	courier        *Courier
	trackingNumber string
	createdAt      time.Time
	onDelivered    func()
}

// NewDelivery creates a PENDING delivery to the given address. onDelivered,
// if non-nil, fires once when the delivery completes.
func NewDelivery(address string, onDelivered func()) *Delivery {
	return &Delivery{
		id:          uuid.New().String(),
		address:     address,
		status:      DeliveryStatusPending,
		createdAt:   time.Now(),
		onDelivered: onDelivered,
	}
}

// ID returns the delivery's opaque unique id.
func (d *Delivery) ID() string { return d.id }

// Address returns the destination address.
func (d *Delivery) Address() string { return d.address }

// CreatedAt returns the creation timestamp.
func (d *Delivery) CreatedAt() time.Time { return d.createdAt }

// Status returns the current fulfillment state.
func (d *Delivery) Status() DeliveryStatus {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.status
}

// Courier returns the assigned courier, nil before Ship.
func (d *Delivery) Courier() *Courier {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.courier
}

// TrackingNumber returns the tracking number assigned at ship time.
func (d *Delivery) TrackingNumber() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.trackingNumber
}

// Ship assigns the courier, issues a tracking number and moves the delivery
// to SHIPPED. Valid only from PENDING.
func (d *Delivery) Ship(c *Courier) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.status != DeliveryStatusPending {
		return fmt.Errorf("ship delivery %s from %s: %w", d.id, d.status, ErrInvalidTransition)
	}
	d.courier = c
	d.trackingNumber = NewTrackingNumber()
	d.status = DeliveryStatusShipped
	return nil
}

// Advance moves a SHIPPED delivery to IN_TRANSIT.
func (d *Delivery) Advance() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.status != DeliveryStatusShipped {
		return fmt.Errorf("advance delivery %s from %s: %w", d.id, d.status, ErrInvalidTransition)
	}
	d.status = DeliveryStatusInTransit
	return nil
}

// Complete marks the delivery DELIVERED from SHIPPED or IN_TRANSIT and fires
// the completion notification.
func (d *Delivery) Complete() error {
	d.mu.Lock()
	if d.status != DeliveryStatusShipped && d.status != DeliveryStatusInTransit {
		status := d.status
		d.mu.Unlock()
		return fmt.Errorf("complete delivery %s from %s: %w", d.id, status, ErrInvalidTransition)
	}
	d.status = DeliveryStatusDelivered
	notify := d.onDelivered
	d.onDelivered = nil
	d.mu.Unlock()

	if notify != nil {
		notify()
	}
	return nil
}

// NewTrackingNumber issues an opaque tracking number.
func NewTrackingNumber() string {
	return fmt.Sprintf("TRK-%s", uuid.New().String()[:8])
}

// RouteOptimizer plans a route over pending deliveries. The core treats it as
// an opaque collaborator.
type RouteOptimizer interface {
	CalculateRoute(deliveries []*Delivery) string
}

// NaiveRouteOptimizer visits deliveries in submission order.
type NaiveRouteOptimizer struct{}

// CalculateRoute implements RouteOptimizer.
func (NaiveRouteOptimizer) CalculateRoute(deliveries []*Delivery) string {
	return fmt.Sprintf("route covering %d deliveries in submission order", len(deliveries))
}
