package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"fulfillment-service/internal/broker"
	"fulfillment-service/internal/domain"
	"fulfillment-service/internal/models"
	"fulfillment-service/internal/redisclient"
	"fulfillment-service/internal/store"
	"fulfillment-service/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OrderService drives carts through checkout and orders through the
// NEW → PROCESSING → CANCELLED part of the lifecycle. Payment and delivery
// transitions live in their own services.
type OrderService struct {
	store           *store.Store
	redis           *redisclient.Client
	eventPublisher  *broker.EventPublisher
	inventoryClient *InventoryClient
	paymentService  *PaymentService
	logger          *zap.Logger
}

// NewOrderService creates a new order service
func NewOrderService(
	store *store.Store,
	redis *redisclient.Client,
	eventPublisher *broker.EventPublisher,
	inventoryClient *InventoryClient,
	paymentService *PaymentService,
) *OrderService {
	return &OrderService{
		store:           store,
		redis:           redis,
		eventPublisher:  eventPublisher,
		inventoryClient: inventoryClient,
		paymentService:  paymentService,
		logger:          util.NamedLogger("orders"),
	}
}

// CartLineView is one line of a quoted cart
type CartLineView struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// CartView is the quoted state of a customer's cart
type CartView struct {
	CustomerID string          `json:"customer_id"`
	Items      []CartLineView  `json:"items"`
	PromoCode  string          `json:"promo_code,omitempty"`
	Total      decimal.Decimal `json:"total"`
}

// AddToCart stages qty units of a product in the customer's cart. Inventory
// is untouched until the order is placed; browsing never locks stock.
func (s *OrderService) AddToCart(ctx context.Context, customerID, productID string, qty int) error {
	ctx, span := util.StartSpan(ctx, "OrderService.AddToCart")
	defer span.End()

	if qty <= 0 {
		return fmt.Errorf("quantity must be positive, got %d", qty)
	}
	if _, err := s.store.GetProductByID(ctx, productID); err != nil {
		return err
	}
	if err := s.redis.AddCartItem(ctx, customerID, productID, qty); err != nil {
		return fmt.Errorf("failed to stage cart item: %w", err)
	}

	util.CartItemsAddedTotal.Inc()
	return nil
}

// RemoveFromCart drops a product from the cart entirely; no-op if absent
func (s *OrderService) RemoveFromCart(ctx context.Context, customerID, productID string) error {
	return s.redis.RemoveCartItem(ctx, customerID, productID)
}

// ApplyPromo attaches a promo code to the customer's cart. The code must
// exist and carry a percent in range; expiry is evaluated at quote and
// checkout time, not here.
func (s *OrderService) ApplyPromo(ctx context.Context, customerID, code string) error {
	promo, err := s.store.GetPromoCode(ctx, code)
	if err != nil {
		return err
	}
	if _, err := promoFromRow(promo); err != nil {
		return err
	}
	return s.redis.SetCartPromo(ctx, customerID, promo.Code)
}

// GetCart quotes the customer's cart at current effective prices
func (s *OrderService) GetCart(ctx context.Context, customerID string) (*CartView, error) {
	cart, products, promoCode, err := s.buildCart(ctx, customerID)
	if err != nil {
		return nil, err
	}

	view := &CartView{
		CustomerID: customerID,
		Items:      make([]CartLineView, 0, len(products)),
		PromoCode:  promoCode,
		Total:      cart.Total(time.Now()),
	}
	for _, item := range cart.Items() {
		view.Items = append(view.Items, CartLineView{
			ProductID:   item.Product.ID,
			ProductName: item.Product.Name,
			Quantity:    item.Quantity,
			UnitPrice:   item.Product.EffectivePrice(),
		})
	}
	return view, nil
}

// CheckoutRequest converts a cart into an order
type CheckoutRequest struct {
	CustomerID     string `json:"customer_id" binding:"required"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// CheckoutResponse is returned after checkout
type CheckoutResponse struct {
	OrderID     string             `json:"order_id"`
	Status      domain.OrderStatus `json:"status"`
	TotalAmount decimal.Decimal    `json:"total_amount"`
}

// Checkout snapshots the customer's cart into a NEW order with frozen prices
// and clears the cart. Stock is not reserved here; PlaceOrder is the
// reservation point.
func (s *OrderService) Checkout(ctx context.Context, req *CheckoutRequest) (*CheckoutResponse, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.Checkout")
	defer span.End()

	if req.IdempotencyKey == "" {
		req.IdempotencyKey = uuid.New().String()
	}

	existing, err := s.store.GetOrderByIdempotencyKey(ctx, req.IdempotencyKey)
	if err != nil {
		return nil, fmt.Errorf("failed to check idempotency: %w", err)
	}
	if existing != nil {
		s.logger.Info("Duplicate checkout request detected",
			zap.String("idempotency_key", req.IdempotencyKey),
			zap.String("order_id", existing.ID))
		return &CheckoutResponse{
			OrderID:     existing.ID,
			Status:      existing.Status,
			TotalAmount: existing.TotalAmount,
		}, nil
	}

	if _, err := s.store.GetCustomerByID(ctx, req.CustomerID); err != nil {
		util.CheckoutsFailedTotal.WithLabelValues("unknown_customer").Inc()
		return nil, err
	}

	cart, _, promoCode, err := s.buildCart(ctx, req.CustomerID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	order, err := cart.CreateOrder(req.CustomerID, now)
	if err != nil {
		util.CheckoutsFailedTotal.WithLabelValues("empty_cart").Inc()
		return nil, err
	}

	promo := cart.Promo()
	if promo == nil || !promo.ValidAt(now) {
		promoCode = ""
	}

	row := &models.Order{
		ID:             order.ID(),
		CustomerID:     order.CustomerID(),
		TotalAmount:    order.TotalAmount(),
		Status:         order.Status(),
		PromoCode:      promoCode,
		IdempotencyKey: req.IdempotencyKey,
	}
	if err := s.store.CreateOrder(ctx, row); err != nil {
		util.CheckoutsFailedTotal.WithLabelValues("db_error").Inc()
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	eventItems := make([]models.OrderItemData, 0, len(order.Items()))
	for _, item := range order.Items() {
		orderItem := &models.OrderItem{
			OrderID:         order.ID(),
			ProductID:       item.ProductID,
			ProductName:     item.ProductName,
			Quantity:        item.Quantity,
			PriceAtPurchase: item.PriceAtPurchase,
		}
		if err := s.store.CreateOrderItem(ctx, orderItem); err != nil {
			return nil, fmt.Errorf("failed to create order item: %w", err)
		}
		eventItems = append(eventItems, models.OrderItemData{
			ProductID:       item.ProductID,
			Quantity:        item.Quantity,
			PriceAtPurchase: item.PriceAtPurchase,
		})
	}

	if err := s.redis.ClearCart(ctx, req.CustomerID); err != nil {
		s.logger.Error("Failed to clear cart after checkout",
			zap.String("customer_id", req.CustomerID),
			zap.Error(err))
	}

	util.CheckoutsTotal.Inc()
	s.logger.Info("Order created",
		zap.String("order_id", order.ID()),
		zap.String("total", order.TotalAmount().String()))

	event := &models.OrderCreatedEvent{
		BaseEvent:   newBaseEvent(models.EventTypeOrderCreated),
		OrderID:     order.ID(),
		CustomerID:  order.CustomerID(),
		TotalAmount: order.TotalAmount(),
		Items:       eventItems,
	}
	if err := s.eventPublisher.PublishOrderCreated(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderCreated event", zap.Error(err))
	}

	return &CheckoutResponse{
		OrderID:     order.ID(),
		Status:      order.Status(),
		TotalAmount: order.TotalAmount(),
	}, nil
}

// PlaceOrder reserves stock for every line and moves the order from NEW to
// PROCESSING. On the first under-stocked product all reservations made so far
// are released and the order stays NEW.
func (s *OrderService) PlaceOrder(ctx context.Context, orderID string) error {
	ctx, span := util.StartSpan(ctx, "OrderService.PlaceOrder")
	defer span.End()

	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return err
	}
	if order.Status != domain.OrderStatusNew {
		return fmt.Errorf("place order %s from %s: %w", orderID, order.Status, domain.ErrInvalidTransition)
	}

	items, err := s.store.GetOrderItemsByOrderID(ctx, orderID)
	if err != nil {
		return err
	}

	if err := s.reserveItems(ctx, orderID, items); err != nil {
		return err
	}

	if err := s.store.UpdateOrderStatus(ctx, orderID,
		[]domain.OrderStatus{domain.OrderStatusNew}, domain.OrderStatusProcessing); err != nil {
		// Lost the race with a concurrent place or cancel; give the stock back.
		s.releaseItems(ctx, orderID, items)
		return err
	}

	util.OrdersPlacedTotal.Inc()
	s.logger.Info("Order placed", zap.String("order_id", orderID))

	eventItems := make([]models.OrderItemData, 0, len(items))
	for _, item := range items {
		eventItems = append(eventItems, models.OrderItemData{
			ProductID:       item.ProductID,
			Quantity:        item.Quantity,
			PriceAtPurchase: item.PriceAtPurchase,
		})
	}
	event := &models.OrderPlacedEvent{
		BaseEvent:   newBaseEvent(models.EventTypeOrderPlaced),
		OrderID:     orderID,
		CustomerID:  order.CustomerID,
		TotalAmount: order.TotalAmount,
		Items:       eventItems,
	}
	if err := s.eventPublisher.PublishOrderPlaced(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderPlaced event", zap.Error(err))
	}

	return nil
}

// CancelOrder cancels an order from NEW or PROCESSING: reserved stock is
// released, a processed payment is refunded, and the order moves to
// CANCELLED. Orders already in delivery cannot be cancelled here.
func (s *OrderService) CancelOrder(ctx context.Context, orderID, reason string) error {
	ctx, span := util.StartSpan(ctx, "OrderService.CancelOrder")
	defer span.End()

	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return err
	}
	if order.Status != domain.OrderStatusNew && order.Status != domain.OrderStatusProcessing {
		return fmt.Errorf("cancel order %s from %s: %w", orderID, order.Status, domain.ErrInvalidTransition)
	}

	if err := s.paymentService.RefundOrderPayment(ctx, orderID); err != nil {
		return fmt.Errorf("refund before cancel: %w", err)
	}

	if err := s.store.UpdateOrderStatus(ctx, orderID,
		[]domain.OrderStatus{domain.OrderStatusNew, domain.OrderStatusProcessing},
		domain.OrderStatusCancelled); err != nil {
		return err
	}

	// Stock was reserved at place time only.
	if order.Status == domain.OrderStatusProcessing {
		items, err := s.store.GetOrderItemsByOrderID(ctx, orderID)
		if err != nil {
			return err
		}
		s.releaseItems(ctx, orderID, items)
	}

	util.OrdersCancelledTotal.Inc()
	s.logger.Info("Order cancelled",
		zap.String("order_id", orderID),
		zap.String("reason", reason))

	event := &models.OrderCancelledEvent{
		BaseEvent: newBaseEvent(models.EventTypeOrderCancelled),
		OrderID:   orderID,
		Reason:    reason,
	}
	if err := s.eventPublisher.PublishOrderCancelled(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderCancelled event", zap.Error(err))
	}

	return nil
}

// GetOrder retrieves an order with its items
func (s *OrderService) GetOrder(ctx context.Context, orderID string) (*models.Order, []models.OrderItem, error) {
	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}

	items, err := s.store.GetOrderItemsByOrderID(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}

	return order, items, nil
}

// ListCustomerOrders retrieves a customer's order history, newest first
func (s *OrderService) ListCustomerOrders(ctx context.Context, customerID string) ([]models.Order, error) {
	if _, err := s.store.GetCustomerByID(ctx, customerID); err != nil {
		return nil, err
	}
	return s.store.GetOrdersByCustomerID(ctx, customerID)
}

// reserveItems reserves stock for every order line, compensating on failure
func (s *OrderService) reserveItems(ctx context.Context, orderID string, items []models.OrderItem) error {
	start := time.Now()
	defer func() {
		util.InventoryReserveLatency.Observe(time.Since(start).Seconds())
	}()

	reserved := make([]models.OrderItem, 0, len(items))
	for _, item := range items {
		ok, err := s.inventoryClient.Reserve(ctx, item.ProductID, item.Quantity)
		if err != nil {
			util.InventoryReservationsFailed.WithLabelValues("error").Inc()
			s.releaseItems(ctx, orderID, reserved)
			return fmt.Errorf("failed to reserve stock for product %s: %w", item.ProductID, err)
		}
		if !ok {
			util.InventoryReservationsFailed.WithLabelValues("insufficient_stock").Inc()
			s.releaseItems(ctx, orderID, reserved)
			return fmt.Errorf("product %s: %w", item.ProductID, domain.ErrInsufficientStock)
		}
		reserved = append(reserved, item)
	}
	return nil
}

// releaseItems rolls back inventory reservations
func (s *OrderService) releaseItems(ctx context.Context, orderID string, items []models.OrderItem) {
	for _, item := range items {
		if err := s.inventoryClient.Release(ctx, item.ProductID, item.Quantity); err != nil {
			s.logger.Error("Failed to release reservation",
				zap.String("order_id", orderID),
				zap.String("product_id", item.ProductID),
				zap.Error(err))
		}
	}
}

// buildCart hydrates the customer's Redis-staged cart into a domain cart with
// current catalog prices and the attached promo, if any.
func (s *OrderService) buildCart(ctx context.Context, customerID string) (*domain.Cart, []models.Product, string, error) {
	staged, err := s.redis.GetCart(ctx, customerID)
	if err != nil {
		return nil, nil, "", fmt.Errorf("failed to load cart: %w", err)
	}

	productIDs := make([]string, 0, len(staged))
	for id := range staged {
		productIDs = append(productIDs, id)
	}
	sort.Strings(productIDs)

	products, err := s.store.GetProductsByIDs(ctx, productIDs)
	if err != nil {
		return nil, nil, "", err
	}
	if len(products) != len(productIDs) {
		return nil, nil, "", fmt.Errorf("cart for customer %s references missing products", customerID)
	}

	byID := make(map[string]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	cart := domain.NewCart()
	for _, id := range productIDs {
		row := byID[id]
		product := domain.NewProduct(row.ID, row.Name, row.Price)
		product.ApplyDiscount(row.Discount)
		if err := cart.AddItem(product, staged[id]); err != nil {
			return nil, nil, "", err
		}
	}

	promoCode, err := s.redis.GetCartPromo(ctx, customerID)
	if err != nil {
		return nil, nil, "", fmt.Errorf("failed to load cart promo: %w", err)
	}
	if promoCode != "" {
		row, err := s.store.GetPromoCode(ctx, promoCode)
		if err != nil {
			return nil, nil, "", err
		}
		promo, err := promoFromRow(row)
		if err != nil {
			return nil, nil, "", err
		}
		cart.ApplyPromo(promo)
	}

	return cart, products, promoCode, nil
}

func promoFromRow(row *models.PromoCode) (*domain.PromoCode, error) {
	validUntil := time.Time{}
	if row.ValidUntil != nil {
		validUntil = *row.ValidUntil
	}
	return domain.NewPromoCode(row.Code, row.DiscountPercent, row.IssuedAt, validUntil)
}

func newBaseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now(),
	}
}
