package domain

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartItem is a read-only view of one cart line.
type CartItem struct {
	Product  *Product
	Quantity int
}

// Cart stages products and quantities before checkout. Adding to a cart does
// not touch inventory; stock is only reserved when the resulting order is
// placed.
type Cart struct {
	mu    sync.Mutex
	lines map[string]*cartLine
	order []string // insertion order of product ids, drives snapshot order
	promo *PromoCode
}

type cartLine struct {
	product  *Product
	quantity int
}

// NewCart creates an empty cart.
func NewCart() *Cart {
	return &Cart{lines: make(map[string]*cartLine)}
}

// AddItem stages qty units of a product. Quantities for a product already in
// the cart sum.
func (c *Cart) AddItem(p *Product, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("cart: quantity must be positive, got %d", qty)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if line, ok := c.lines[p.ID]; ok {
		line.quantity += qty
		return nil
	}
	c.lines[p.ID] = &cartLine{product: p, quantity: qty}
	c.order = append(c.order, p.ID)
	return nil
}

// RemoveItem drops a product from the cart entirely; no-op if absent.
func (c *Cart) RemoveItem(productID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.lines[productID]; !ok {
		return
	}
	delete(c.lines, productID)
	for i, id := range c.order {
		if id == productID {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// ApplyPromo attaches a promo code. Validity is checked at total time, not
// here.
func (c *Cart) ApplyPromo(pc *PromoCode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.promo = pc
}

// Promo returns the attached promo code, if any.
func (c *Cart) Promo() *PromoCode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.promo
}

// Items returns the cart lines in insertion order.
func (c *Cart) Items() []CartItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	items := make([]CartItem, 0, len(c.order))
	for _, id := range c.order {
		line := c.lines[id]
		items = append(items, CartItem{Product: line.product, Quantity: line.quantity})
	}
	return items
}

// Len returns the number of distinct products staged.
func (c *Cart) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.lines)
}

// Total quotes the cart: sum of effective price times quantity per line, with
// the promo applied only when it is valid at now. Total never mutates the
// cart.
func (c *Cart) Total(now time.Time) decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := decimal.Zero
	for _, line := range c.lines {
		total = total.Add(line.product.EffectivePrice().Mul(decimal.NewFromInt(int64(line.quantity))))
	}
	if c.promo != nil && c.promo.ValidAt(now) {
		total = c.promo.Apply(total)
	}
	return total
}

// CreateOrder snapshots the cart into a new order: immutable line items frozen
// at each product's current effective price, status NEW, total computed the
// same way Total quotes it. The order does not reserve stock; Place does.
func (c *Cart) CreateOrder(customerID string, now time.Time) (*Order, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.lines) == 0 {
		return nil, fmt.Errorf("checkout for customer %s: %w", customerID, ErrEmptyCart)
	}

	items := make([]OrderItem, 0, len(c.order))
	total := decimal.Zero
	for _, id := range c.order {
		line := c.lines[id]
		price := line.product.EffectivePrice()
		items = append(items, OrderItem{
			ProductID:       line.product.ID,
			ProductName:     line.product.Name,
			Quantity:        line.quantity,
			PriceAtPurchase: price,
		})
		total = total.Add(price.Mul(decimal.NewFromInt(int64(line.quantity))))
	}
	if c.promo != nil && c.promo.ValidAt(now) {
		total = c.promo.Apply(total)
	}

	return &Order{
		id:         uuid.New().String(),
		customerID: customerID,
		items:      items,
		total:      total,
		status:     OrderStatusNew,
		createdAt:  now,
	}, nil
}
