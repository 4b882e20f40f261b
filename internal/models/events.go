package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event types
const (
	EventTypeOrderCreated      = "ORDER_CREATED"
	EventTypeOrderPlaced       = "ORDER_PLACED"
	EventTypeOrderPaid         = "ORDER_PAID"
	EventTypeOrderCancelled    = "ORDER_CANCELLED"
	EventTypeOrderCompleted    = "ORDER_COMPLETED"
	EventTypePaymentFailed     = "PAYMENT_FAILED"
	EventTypeDeliveryShipped   = "DELIVERY_SHIPPED"
	EventTypeDeliveryCompleted = "DELIVERY_COMPLETED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderItemData represents item data in events
type OrderItemData struct {
	ProductID       string          `json:"product_id"`
	Quantity        int             `json:"quantity"`
	PriceAtPurchase decimal.Decimal `json:"price_at_purchase"`
}

// OrderCreatedEvent published when a cart is checked out into an order
type OrderCreatedEvent struct {
	BaseEvent
	OrderID     string          `json:"order_id"`
	CustomerID  string          `json:"customer_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Items       []OrderItemData `json:"items"`
}

// OrderPlacedEvent published when inventory is reserved and the order enters
// PROCESSING
type OrderPlacedEvent struct {
	BaseEvent
	OrderID     string          `json:"order_id"`
	CustomerID  string          `json:"customer_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Items       []OrderItemData `json:"items"`
}

// OrderPaidEvent published when payment settles and the order enters
// IN_DELIVERY
type OrderPaidEvent struct {
	BaseEvent
	OrderID    string          `json:"order_id"`
	PaymentID  string          `json:"payment_id"`
	DeliveryID string          `json:"delivery_id"`
	Amount     decimal.Decimal `json:"amount"`
	TxID       string          `json:"tx_id"`
}

// OrderCancelledEvent published after compensation
type OrderCancelledEvent struct {
	BaseEvent
	OrderID string `json:"order_id"`
	Reason  string `json:"reason"`
}

// OrderCompletedEvent published when the delivery notification closes the
// order
type OrderCompletedEvent struct {
	BaseEvent
	OrderID    string `json:"order_id"`
	CustomerID string `json:"customer_id"`
}

// PaymentFailedEvent published when a settlement attempt is declined; the
// order stays PROCESSING and may be retried with a fresh payment
type PaymentFailedEvent struct {
	BaseEvent
	OrderID   string `json:"order_id"`
	PaymentID string `json:"payment_id"`
	Reason    string `json:"reason"`
}

// DeliveryShippedEvent published when a courier accepts a delivery
type DeliveryShippedEvent struct {
	BaseEvent
	DeliveryID     string `json:"delivery_id"`
	OrderID        string `json:"order_id"`
	CourierID      string `json:"courier_id"`
	TrackingNumber string `json:"tracking_number"`
}

// DeliveryCompletedEvent is the one-directional notification from the
// delivery flow back into the order lifecycle; the order worker consumes it
// and moves the order to COMPLETED
type DeliveryCompletedEvent struct {
	BaseEvent
	DeliveryID string `json:"delivery_id"`
	OrderID    string `json:"order_id"`
}
