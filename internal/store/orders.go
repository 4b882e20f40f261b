package store

import (
	"context"
	"database/sql"
	"fmt"

	"fulfillment-service/internal/domain"
	"fulfillment-service/internal/models"

	"github.com/lib/pq"
)

// CreateOrder creates a new order
func (s *Store) CreateOrder(ctx context.Context, order *models.Order) error {
	query := `
		INSERT INTO orders (id, customer_id, total_amount, status, promo_code, idempotency_key)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''))
		RETURNING created_at, updated_at`

	row := s.db.QueryRowxContext(ctx, query,
		order.ID, order.CustomerID, order.TotalAmount, order.Status, order.PromoCode, order.IdempotencyKey)
	return row.Scan(&order.CreatedAt, &order.UpdatedAt)
}

// GetOrderByID retrieves an order by ID
func (s *Store) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, `
		SELECT id, customer_id, total_amount, status,
		       COALESCE(promo_code, '') AS promo_code,
		       COALESCE(idempotency_key, '') AS idempotency_key,
		       created_at, updated_at
		FROM orders WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("order not found: %s", id)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderByIdempotencyKey retrieves an order by idempotency key
func (s *Store) GetOrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, `
		SELECT id, customer_id, total_amount, status,
		       COALESCE(promo_code, '') AS promo_code,
		       COALESCE(idempotency_key, '') AS idempotency_key,
		       created_at, updated_at
		FROM orders WHERE idempotency_key = $1`, key)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdateOrderStatus moves an order to the given status, enforcing the state
// machine in the same statement: the row is only updated when the current
// status allows the transition. Returns ErrInvalidTransition otherwise.
func (s *Store) UpdateOrderStatus(ctx context.Context, orderID string, from []domain.OrderStatus, to domain.OrderStatus) error {
	states := make([]string, len(from))
	for i, st := range from {
		states[i] = string(st)
	}

	query := `
		UPDATE orders SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = ANY($3)`

	res, err := s.db.ExecContext(ctx, query, to, orderID, pq.Array(states))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		current, getErr := s.GetOrderByID(ctx, orderID)
		if getErr != nil {
			return getErr
		}
		return fmt.Errorf("order %s in %s cannot move to %s: %w",
			orderID, current.Status, to, domain.ErrInvalidTransition)
	}
	return nil
}

// GetOrdersByCustomerID retrieves a customer's order history, newest first
func (s *Store) GetOrdersByCustomerID(ctx context.Context, customerID string) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders, `
		SELECT id, customer_id, total_amount, status,
		       COALESCE(promo_code, '') AS promo_code,
		       COALESCE(idempotency_key, '') AS idempotency_key,
		       created_at, updated_at
		FROM orders WHERE customer_id = $1 ORDER BY created_at DESC`, customerID)
	return orders, err
}

// CreateOrderItem creates a new order item
func (s *Store) CreateOrderItem(ctx context.Context, item *models.OrderItem) error {
	query := `
		INSERT INTO order_items (order_id, product_id, product_name, quantity, price_at_purchase)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	return s.db.GetContext(ctx, &item.ID, query,
		item.OrderID, item.ProductID, item.ProductName, item.Quantity, item.PriceAtPurchase)
}

// GetOrderItemsByOrderID retrieves all items for an order in insertion order
func (s *Store) GetOrderItemsByOrderID(ctx context.Context, orderID string) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := s.db.SelectContext(ctx, &items,
		"SELECT * FROM order_items WHERE order_id = $1 ORDER BY id", orderID)
	return items, err
}

// CreatePayment creates a new payment record
func (s *Store) CreatePayment(ctx context.Context, payment *models.Payment) error {
	query := `
		INSERT INTO payments (id, order_id, method, card_masked, amount, status, provider_tx_id)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, NULLIF($7, ''))
		RETURNING created_at, updated_at`

	row := s.db.QueryRowxContext(ctx, query,
		payment.ID, payment.OrderID, payment.Method, payment.CardMasked,
		payment.Amount, payment.Status, payment.ProviderTxID)
	return row.Scan(&payment.CreatedAt, &payment.UpdatedAt)
}

// GetPaymentByOrderID retrieves the latest payment attempt for an order
func (s *Store) GetPaymentByOrderID(ctx context.Context, orderID string) (*models.Payment, error) {
	var payment models.Payment
	err := s.db.GetContext(ctx, &payment, `
		SELECT id, order_id, method,
		       COALESCE(card_masked, '') AS card_masked,
		       amount, status,
		       COALESCE(provider_tx_id, '') AS provider_tx_id,
		       created_at, updated_at
		FROM payments WHERE order_id = $1 ORDER BY created_at DESC LIMIT 1`, orderID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("payment not found for order: %s", orderID)
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// UpdatePaymentStatus updates payment status and provider transaction id
func (s *Store) UpdatePaymentStatus(ctx context.Context, paymentID string, status domain.PaymentStatus, providerTxID string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE payments SET status = $1, provider_tx_id = NULLIF($2, ''), updated_at = NOW() WHERE id = $3",
		status, providerTxID, paymentID)
	return err
}

// IsEventProcessed checks if an event has been processed
func (s *Store) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = $1)", eventID)
	return exists, err
}

// MarkEventProcessed marks an event as processed
func (s *Store) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO processed_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING",
		eventID, eventType)
	return err
}
