package domain

import (
	"sync"
	"time"
)

// Customer owns exactly one active cart, replaced at checkout, and an
// append-only order history. Registration, login and profile updates belong
// to the surrounding profile service; the core only keeps the data it needs
// for fulfillment.
type Customer struct {
	ID            string
	Name          string
	Email         string
	Address       string
	Phone         string
	LoyaltyPoints int

	mu      sync.Mutex
	cart    *Cart
	history []*Order
}

// NewCustomer creates a customer with a fresh empty cart.
func NewCustomer(id, name, email string) *Customer {
	return &Customer{
		ID:    id,
		Name:  name,
		Email: email,
		cart:  NewCart(),
	}
}

// Cart returns the active cart.
func (c *Customer) Cart() *Cart {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cart
}

// AddToCart stages qty units of a product in the active cart.
func (c *Customer) AddToCart(p *Product, qty int) error {
	return c.Cart().AddItem(p, qty)
}

// Checkout snapshots the active cart into a new order, appends it to the
// order history and replaces the cart with a fresh one. An empty cart fails
// with ErrEmptyCart and keeps the current cart.
func (c *Customer) Checkout(now time.Time) (*Order, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	order, err := c.cart.CreateOrder(c.ID, now)
	if err != nil {
		return nil, err
	}
	c.history = append(c.history, order)
	c.cart = NewCart()
	return order, nil
}

// Orders returns a copy of the customer's order history, oldest first.
func (c *Customer) Orders() []*Order {
	c.mu.Lock()
	defer c.mu.Unlock()
	orders := make([]*Order, len(c.history))
	copy(orders, c.history)
	return orders
}
