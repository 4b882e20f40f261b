package domain

import (
	"context"
	"fmt"
	"sync"
)

// StockReserver is the single seam through which the order lifecycle consumes
// and restores inventory. Implementations must make Reserve an atomic
// check-and-decrement under concurrent access.
type StockReserver interface {
	// Reserve returns (true, nil) and decrements available stock only when
	// at least qty units are available; otherwise (false, nil) with no
	// mutation.
	Reserve(ctx context.Context, productID string, qty int) (bool, error)
	// Release restores previously reserved units (compensation).
	Release(ctx context.Context, productID string, qty int) error
}

// Warehouse tracks available stock per product at one location. All mutation
// goes through the mutex so Reserve is a single indivisible
// check-and-decrement.
type Warehouse struct {
	ID       string
	Location string

	mu    sync.Mutex
	stock map[string]int
}

// NewWarehouse creates an empty warehouse.
func NewWarehouse(id, location string) *Warehouse {
	return &Warehouse{
		ID:       id,
		Location: location,
		stock:    make(map[string]int),
	}
}

// Stock returns the available count for a product, zero if unknown.
func (w *Warehouse) Stock(productID string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stock[productID]
}

// AddStock increases the available count. qty must not be negative.
func (w *Warehouse) AddStock(productID string, qty int) error {
	if qty < 0 {
		return fmt.Errorf("warehouse %s: negative restock %d for product %s", w.ID, qty, productID)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stock[productID] += qty
	return nil
}

// Reserve implements StockReserver. Two concurrent reservations of the last
// unit cannot both succeed.
func (w *Warehouse) Reserve(ctx context.Context, productID string, qty int) (bool, error) {
	if qty <= 0 {
		return false, fmt.Errorf("warehouse %s: reserve quantity must be positive, got %d", w.ID, qty)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	available := w.stock[productID]
	if available < qty {
		return false, nil
	}
	w.stock[productID] = available - qty
	return true, nil
}

// Release implements StockReserver, returning reserved units to the pool.
func (w *Warehouse) Release(ctx context.Context, productID string, qty int) error {
	if qty < 0 {
		return fmt.Errorf("warehouse %s: negative release %d for product %s", w.ID, qty, productID)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stock[productID] += qty
	return nil
}
