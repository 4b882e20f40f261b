package store

import (
	"context"
	"database/sql"
	"fmt"

	"fulfillment-service/internal/domain"
	"fulfillment-service/internal/models"

	"github.com/lib/pq"
)

// CreateDelivery creates a PENDING delivery for a paid order
func (s *Store) CreateDelivery(ctx context.Context, delivery *models.Delivery) error {
	query := `
		INSERT INTO deliveries (id, order_id, address, status)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`

	row := s.db.QueryRowxContext(ctx, query,
		delivery.ID, delivery.OrderID, delivery.Address, delivery.Status)
	return row.Scan(&delivery.CreatedAt, &delivery.UpdatedAt)
}

// GetDeliveryByID retrieves a delivery by ID
func (s *Store) GetDeliveryByID(ctx context.Context, id string) (*models.Delivery, error) {
	var delivery models.Delivery
	err := s.db.GetContext(ctx, &delivery, `
		SELECT id, order_id, address, status,
		       COALESCE(courier_id, '') AS courier_id,
		       COALESCE(tracking_number, '') AS tracking_number,
		       created_at, updated_at
		FROM deliveries WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("delivery not found: %s", id)
	}
	if err != nil {
		return nil, err
	}
	return &delivery, nil
}

// GetDeliveryByOrderID retrieves the delivery for an order
func (s *Store) GetDeliveryByOrderID(ctx context.Context, orderID string) (*models.Delivery, error) {
	var delivery models.Delivery
	err := s.db.GetContext(ctx, &delivery, `
		SELECT id, order_id, address, status,
		       COALESCE(courier_id, '') AS courier_id,
		       COALESCE(tracking_number, '') AS tracking_number,
		       created_at, updated_at
		FROM deliveries WHERE order_id = $1`, orderID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("delivery not found for order: %s", orderID)
	}
	if err != nil {
		return nil, err
	}
	return &delivery, nil
}

// MarkDeliveryShipped assigns the courier and tracking number while moving
// PENDING to SHIPPED; the transition guard lives in the statement itself.
func (s *Store) MarkDeliveryShipped(ctx context.Context, deliveryID, courierID, trackingNumber string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE deliveries
		SET status = $1, courier_id = $2, tracking_number = $3, updated_at = NOW()
		WHERE id = $4 AND status = $5`,
		domain.DeliveryStatusShipped, courierID, trackingNumber,
		deliveryID, domain.DeliveryStatusPending)
	if err != nil {
		return err
	}
	return s.checkDeliveryTransition(ctx, res, deliveryID, domain.DeliveryStatusShipped)
}

// UpdateDeliveryStatus moves a delivery forward, only from the given states
func (s *Store) UpdateDeliveryStatus(ctx context.Context, deliveryID string, from []domain.DeliveryStatus, to domain.DeliveryStatus) error {
	states := make([]string, len(from))
	for i, st := range from {
		states[i] = string(st)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE deliveries SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = ANY($3)`,
		to, deliveryID, pq.Array(states))
	if err != nil {
		return err
	}
	return s.checkDeliveryTransition(ctx, res, deliveryID, to)
}

func (s *Store) checkDeliveryTransition(ctx context.Context, res sql.Result, deliveryID string, to domain.DeliveryStatus) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		current, getErr := s.GetDeliveryByID(ctx, deliveryID)
		if getErr != nil {
			return getErr
		}
		return fmt.Errorf("delivery %s in %s cannot move to %s: %w",
			deliveryID, current.Status, to, domain.ErrInvalidTransition)
	}
	return nil
}

// GetPendingDeliveries lists deliveries awaiting shipment, for route planning
func (s *Store) GetPendingDeliveries(ctx context.Context) ([]models.Delivery, error) {
	var deliveries []models.Delivery
	err := s.db.SelectContext(ctx, &deliveries, `
		SELECT id, order_id, address, status,
		       COALESCE(courier_id, '') AS courier_id,
		       COALESCE(tracking_number, '') AS tracking_number,
		       created_at, updated_at
		FROM deliveries WHERE status = $1 ORDER BY created_at`,
		domain.DeliveryStatusPending)
	return deliveries, err
}

// CreateCourier registers a courier
func (s *Store) CreateCourier(ctx context.Context, courier *models.Courier) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO couriers (id, name, phone) VALUES ($1, $2, NULLIF($3, ''))",
		courier.ID, courier.Name, courier.Phone)
	return err
}

// GetCourierByID retrieves a courier by ID
func (s *Store) GetCourierByID(ctx context.Context, id string) (*models.Courier, error) {
	var courier models.Courier
	err := s.db.GetContext(ctx, &courier,
		"SELECT id, name, COALESCE(phone, '') AS phone FROM couriers WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("courier not found: %s", id)
	}
	if err != nil {
		return nil, err
	}
	return &courier, nil
}

// GetPromoCode retrieves a promo code by code
func (s *Store) GetPromoCode(ctx context.Context, code string) (*models.PromoCode, error) {
	var promo models.PromoCode
	err := s.db.GetContext(ctx, &promo,
		"SELECT code, discount_percent, issued_at, valid_until FROM promo_codes WHERE code = $1", code)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("promo code not found: %s", code)
	}
	if err != nil {
		return nil, err
	}
	return &promo, nil
}

// GetCustomerByID retrieves a customer by ID
func (s *Store) GetCustomerByID(ctx context.Context, id string) (*models.Customer, error) {
	var customer models.Customer
	err := s.db.GetContext(ctx, &customer, `
		SELECT id, name, email,
		       COALESCE(address, '') AS address,
		       COALESCE(phone, '') AS phone,
		       loyalty_points, created_at
		FROM customers WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("customer not found: %s", id)
	}
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

// CreateReview appends a product review
func (s *Store) CreateReview(ctx context.Context, review *models.Review) error {
	query := `
		INSERT INTO reviews (id, product_id, customer_id, rating, text)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''))
		RETURNING created_at`

	return s.db.GetContext(ctx, &review.CreatedAt, query,
		review.ID, review.ProductID, review.CustomerID, review.Rating, review.Text)
}

// GetReviewsByProductID lists reviews for a product, newest first
func (s *Store) GetReviewsByProductID(ctx context.Context, productID string) ([]models.Review, error) {
	var reviews []models.Review
	err := s.db.SelectContext(ctx, &reviews, `
		SELECT id, product_id, customer_id, rating,
		       COALESCE(text, '') AS text, created_at
		FROM reviews WHERE product_id = $1 ORDER BY created_at DESC`, productID)
	return reviews, err
}

// LogAdminAction appends to the admin action log
func (s *Store) LogAdminAction(ctx context.Context, action *models.AdminAction) error {
	query := `
		INSERT INTO admin_actions (admin_id, type, description)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	row := s.db.QueryRowxContext(ctx, query, action.AdminID, action.Type, action.Description)
	return row.Scan(&action.ID, &action.CreatedAt)
}
