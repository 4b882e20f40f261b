package models

import (
	"time"

	"github.com/shopspring/decimal"

	"fulfillment-service/internal/domain"
)

// Product row in the catalog
type Product struct {
	ID          string          `db:"id" json:"id"`
	Name        string          `db:"name" json:"name"`
	Description string          `db:"description" json:"description,omitempty"`
	Price       decimal.Decimal `db:"price" json:"price"`
	Discount    decimal.Decimal `db:"discount" json:"discount"`
	CategoryID  string          `db:"category_id" json:"category_id,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}

// EffectivePrice is the list price minus the current discount, floored at
// zero.
func (p *Product) EffectivePrice() decimal.Decimal {
	eff := p.Price.Sub(p.Discount)
	if eff.IsNegative() {
		return decimal.Zero
	}
	return eff
}

// Category groups products
type Category struct {
	ID       string `db:"id" json:"id"`
	Name     string `db:"name" json:"name"`
	ParentID string `db:"parent_id" json:"parent_id,omitempty"`
}

// Inventory row: available/reserved counts for one product
type Inventory struct {
	ProductID string    `db:"product_id" json:"product_id"`
	Available int       `db:"available" json:"available"`
	Reserved  int       `db:"reserved" json:"reserved"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Customer row; credentials live in the profile service, not here
type Customer struct {
	ID            string    `db:"id" json:"id"`
	Name          string    `db:"name" json:"name"`
	Email         string    `db:"email" json:"email"`
	Address       string    `db:"address" json:"address,omitempty"`
	Phone         string    `db:"phone" json:"phone,omitempty"`
	LoyaltyPoints int       `db:"loyalty_points" json:"loyalty_points"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// Order row; TotalAmount and item prices are frozen at checkout
type Order struct {
	ID             string             `db:"id" json:"id"`
	CustomerID     string             `db:"customer_id" json:"customer_id"`
	TotalAmount    decimal.Decimal    `db:"total_amount" json:"total_amount"`
	Status         domain.OrderStatus `db:"status" json:"status"`
	PromoCode      string             `db:"promo_code" json:"promo_code,omitempty"`
	IdempotencyKey string             `db:"idempotency_key" json:"idempotency_key,omitempty"`
	CreatedAt      time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time          `db:"updated_at" json:"updated_at"`
}

// OrderItem row, immutable once written
type OrderItem struct {
	ID              int64           `db:"id" json:"id"`
	OrderID         string          `db:"order_id" json:"order_id"`
	ProductID       string          `db:"product_id" json:"product_id"`
	ProductName     string          `db:"product_name" json:"product_name"`
	Quantity        int             `db:"quantity" json:"quantity"`
	PriceAtPurchase decimal.Decimal `db:"price_at_purchase" json:"price_at_purchase"`
}

// Payment row; an order may accumulate failed attempts, at most one PROCESSED
type Payment struct {
	ID           string               `db:"id" json:"id"`
	OrderID      string               `db:"order_id" json:"order_id"`
	Method       string               `db:"method" json:"method"`
	CardMasked   string               `db:"card_masked" json:"card_masked,omitempty"`
	Amount       decimal.Decimal      `db:"amount" json:"amount"`
	Status       domain.PaymentStatus `db:"status" json:"status"`
	ProviderTxID string               `db:"provider_tx_id" json:"provider_tx_id,omitempty"`
	CreatedAt    time.Time            `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time            `db:"updated_at" json:"updated_at"`
}

// Delivery row, created after successful payment
type Delivery struct {
	ID             string                `db:"id" json:"id"`
	OrderID        string                `db:"order_id" json:"order_id"`
	Address        string                `db:"address" json:"address"`
	Status         domain.DeliveryStatus `db:"status" json:"status"`
	CourierID      string                `db:"courier_id" json:"courier_id,omitempty"`
	TrackingNumber string                `db:"tracking_number" json:"tracking_number,omitempty"`
	CreatedAt      time.Time             `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time             `db:"updated_at" json:"updated_at"`
}

// Courier row
type Courier struct {
	ID    string `db:"id" json:"id"`
	Name  string `db:"name" json:"name"`
	Phone string `db:"phone" json:"phone,omitempty"`
}

// PromoCode row; a NULL ValidUntil means the code never expires
type PromoCode struct {
	Code            string     `db:"code" json:"code"`
	DiscountPercent int64      `db:"discount_percent" json:"discount_percent"`
	IssuedAt        time.Time  `db:"issued_at" json:"issued_at"`
	ValidUntil      *time.Time `db:"valid_until" json:"valid_until,omitempty"`
}

// Review row, appended on behalf of the review store collaborator
type Review struct {
	ID         string    `db:"id" json:"id"`
	ProductID  string    `db:"product_id" json:"product_id"`
	CustomerID string    `db:"customer_id" json:"customer_id"`
	Rating     int       `db:"rating" json:"rating"`
	Text       string    `db:"text" json:"text,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// AdminAction row, append-only log of admin tooling calls
type AdminAction struct {
	ID          int64     `db:"id" json:"id"`
	AdminID     string    `db:"admin_id" json:"admin_id"`
	Type        string    `db:"type" json:"type"`
	Description string    `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// ProcessedEvent for consumer idempotency
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}
