package domain

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Category groups products; categories may nest via Parent.
type Category struct {
	ID     string
	Name   string
	Parent *Category
}

// Product is a sellable catalog item. Price and Discount are list values;
// the price an order actually pays is EffectivePrice at snapshot time.
type Product struct {
	mu          sync.Mutex
	ID          string
	Name        string
	Description string
	Category    *Category

	price    decimal.Decimal
	discount decimal.Decimal
}

// NewProduct creates a product with the given list price and no discount.
func NewProduct(id, name string, price decimal.Decimal) *Product {
	return &Product{
		ID:    id,
		Name:  name,
		price: price,
	}
}

// Price returns the list price before discount.
func (p *Product) Price() decimal.Decimal {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.price
}

// Discount returns the current discount amount.
func (p *Product) Discount() decimal.Decimal {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.discount
}

// SetPrice replaces the list price. Orders snapshotted earlier keep their
// frozen prices.
func (p *Product) SetPrice(price decimal.Decimal) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.price = price
}

// ApplyDiscount replaces the discount amount.
func (p *Product) ApplyDiscount(d decimal.Decimal) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.discount = d
}

// EffectivePrice is the list price minus the current discount, floored at
// zero.
func (p *Product) EffectivePrice() decimal.Decimal {
	p.mu.Lock()
	defer p.mu.Unlock()
	eff := p.price.Sub(p.discount)
	if eff.IsNegative() {
		return decimal.Zero
	}
	return eff
}

// Review is captured on behalf of the review store collaborator; the core
// only appends it.
type Review struct {
	ID         string
	ProductID  string
	CustomerID string
	Rating     int
	Text       string
	CreatedAt  time.Time
}
