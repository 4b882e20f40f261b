package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
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

// mockGateway stands in for the external payment provider. Latency and
// decline rate are configurable so the failure paths can be exercised.
type mockGateway struct {
	successRate float64
}

// NewMockGateway returns a provider stub declining (1-successRate) of charges
func NewMockGateway(successRate float64) domain.Gateway {
	return &mockGateway{successRate: successRate}
}

func (g *mockGateway) Charge(ctx context.Context, amount decimal.Decimal) (string, error) {
	delay := time.Duration(100+rand.Intn(400)) * time.Millisecond
	select {
	case <-time.After(delay):
	case <-ctx.Done():
		return "", ctx.Err()
	}

	if rand.Float64() >= g.successRate {
		return "", fmt.Errorf("charge of %s declined by provider", amount)
	}
	return fmt.Sprintf("TXN-%s", uuid.New().String()[:8]), nil
}

func (g *mockGateway) Refund(ctx context.Context, txID string, amount decimal.Decimal) error {
	select {
	case <-time.After(50 * time.Millisecond):
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// PaymentService settles orders synchronously: the caller of PayOrder learns
// the outcome in the response. A declined charge leaves the order in
// PROCESSING so payment can be retried with a fresh attempt.
type PaymentService struct {
	store           *store.Store
	redis           *redisclient.Client
	eventPublisher  *broker.EventPublisher
	inventoryClient *InventoryClient
	gateway         domain.Gateway
	paymentTimeout  time.Duration
	logger          *zap.Logger
}

// NewPaymentService creates a new payment service
func NewPaymentService(
	store *store.Store,
	redis *redisclient.Client,
	eventPublisher *broker.EventPublisher,
	inventoryClient *InventoryClient,
	gateway domain.Gateway,
	paymentTimeout time.Duration,
) *PaymentService {
	return &PaymentService{
		store:           store,
		redis:           redis,
		eventPublisher:  eventPublisher,
		inventoryClient: inventoryClient,
		gateway:         gateway,
		paymentTimeout:  paymentTimeout,
		logger:          util.NamedLogger("payments"),
	}
}

// PayOrderRequest carries the payment instrument and the amount the customer
// confirmed. The amount must match the order total exactly.
type PayOrderRequest struct {
	Method     string          `json:"method" binding:"required"`
	CardMasked string          `json:"card_masked,omitempty"`
	Amount     decimal.Decimal `json:"amount" binding:"required"`
}

// PayOrder charges the order total. On success the reserved stock is
// committed, the order moves to IN_DELIVERY and a PENDING delivery is created
// for the customer's address. Concurrent attempts on the same order are
// serialized by a per-order lock.
func (ps *PaymentService) PayOrder(ctx context.Context, orderID string, req *PayOrderRequest) (*models.Payment, error) {
	ctx, span := util.StartSpan(ctx, "PaymentService.PayOrder")
	defer span.End()

	util.PaymentAttemptsTotal.Inc()
	start := time.Now()
	defer func() {
		util.PaymentProcessingLatency.Observe(time.Since(start).Seconds())
	}()

	lockKey := fmt.Sprintf("pay:order-%s", orderID)
	acquired, err := ps.redis.AcquireLock(ctx, lockKey, ps.paymentTimeout+5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire payment lock: %w", err)
	}
	if !acquired {
		return nil, fmt.Errorf("payment for order %s already in progress", orderID)
	}
	defer func() {
		if err := ps.redis.ReleaseLock(context.Background(), lockKey); err != nil {
			ps.logger.Error("Failed to release payment lock",
				zap.String("order_id", orderID),
				zap.Error(err))
		}
	}()

	order, err := ps.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != domain.OrderStatusProcessing {
		return nil, fmt.Errorf("pay order %s in %s: %w", orderID, order.Status, domain.ErrInvalidTransition)
	}
	if !req.Amount.Equal(order.TotalAmount) {
		return nil, fmt.Errorf("expected %s, got %s: %w",
			order.TotalAmount, req.Amount, domain.ErrAmountMismatch)
	}

	payment := &models.Payment{
		ID:         uuid.New().String(),
		OrderID:    orderID,
		Method:     req.Method,
		CardMasked: req.CardMasked,
		Amount:     req.Amount,
		Status:     domain.PaymentStatusPending,
	}
	if err := ps.store.CreatePayment(ctx, payment); err != nil {
		return nil, fmt.Errorf("failed to create payment: %w", err)
	}

	chargeCtx, cancel := context.WithTimeout(ctx, ps.paymentTimeout)
	defer cancel()

	txID, chargeErr := ps.gateway.Charge(chargeCtx, req.Amount)
	if chargeErr != nil {
		return ps.failPayment(ctx, order, payment, chargeErr)
	}

	payment.Status = domain.PaymentStatusProcessed
	payment.ProviderTxID = txID
	if err := ps.store.UpdatePaymentStatus(ctx, payment.ID, domain.PaymentStatusProcessed, txID); err != nil {
		return nil, fmt.Errorf("failed to update payment status: %w", err)
	}
	util.PaymentSuccessTotal.Inc()

	ps.logger.Info("Payment processed",
		zap.String("order_id", orderID),
		zap.String("payment_id", payment.ID),
		zap.String("tx_id", txID))

	items, err := ps.store.GetOrderItemsByOrderID(ctx, orderID)
	if err != nil {
		return payment, err
	}
	for _, item := range items {
		if err := ps.inventoryClient.Commit(ctx, item.ProductID, item.Quantity); err != nil {
			ps.logger.Error("Failed to commit reserved stock",
				zap.String("order_id", orderID),
				zap.String("product_id", item.ProductID),
				zap.Error(err))
		}
	}

	if err := ps.store.UpdateOrderStatus(ctx, orderID,
		[]domain.OrderStatus{domain.OrderStatusProcessing}, domain.OrderStatusInDelivery); err != nil {
		return payment, err
	}
	util.OrdersPaidTotal.Inc()

	delivery, err := ps.createDelivery(ctx, order)
	if err != nil {
		return payment, err
	}

	event := &models.OrderPaidEvent{
		BaseEvent:  newBaseEvent(models.EventTypeOrderPaid),
		OrderID:    orderID,
		PaymentID:  payment.ID,
		DeliveryID: delivery.ID,
		Amount:     req.Amount,
		TxID:       txID,
	}
	if err := ps.eventPublisher.PublishOrderPaid(ctx, event); err != nil {
		ps.logger.Error("Failed to publish OrderPaid event", zap.Error(err))
	}

	return payment, nil
}

// failPayment records a declined attempt. The order stays PROCESSING and the
// reservation stays in place; the customer may retry or cancel.
func (ps *PaymentService) failPayment(ctx context.Context, order *models.Order, payment *models.Payment, cause error) (*models.Payment, error) {
	ps.logger.Warn("Payment failed",
		zap.String("order_id", order.ID),
		zap.String("payment_id", payment.ID),
		zap.Error(cause))

	payment.Status = domain.PaymentStatusFailed
	if err := ps.store.UpdatePaymentStatus(ctx, payment.ID, domain.PaymentStatusFailed, ""); err != nil {
		return nil, fmt.Errorf("failed to update payment status: %w", err)
	}
	util.PaymentFailedTotal.Inc()

	event := &models.PaymentFailedEvent{
		BaseEvent: newBaseEvent(models.EventTypePaymentFailed),
		OrderID:   order.ID,
		PaymentID: payment.ID,
		Reason:    cause.Error(),
	}
	if err := ps.eventPublisher.PublishPaymentFailed(ctx, event); err != nil {
		ps.logger.Error("Failed to publish PaymentFailed event", zap.Error(err))
	}

	return payment, fmt.Errorf("payment for order %s: %w", order.ID, cause)
}

// RefundOrderPayment refunds the processed payment on an order, if there is
// one. Orders cancelled before paying have nothing to refund; a refund
// failure aborts the caller's cancellation.
func (ps *PaymentService) RefundOrderPayment(ctx context.Context, orderID string) error {
	ctx, span := util.StartSpan(ctx, "PaymentService.RefundOrderPayment")
	defer span.End()

	payment, err := ps.store.GetPaymentByOrderID(ctx, orderID)
	if err != nil {
		if strings.Contains(err.Error(), "payment not found") {
			return nil
		}
		return err
	}
	if payment.Status != domain.PaymentStatusProcessed {
		return nil
	}

	if err := ps.gateway.Refund(ctx, payment.ProviderTxID, payment.Amount); err != nil {
		return fmt.Errorf("provider refund for payment %s: %w", payment.ID, err)
	}
	if err := ps.store.UpdatePaymentStatus(ctx, payment.ID, domain.PaymentStatusRefunded, payment.ProviderTxID); err != nil {
		return fmt.Errorf("failed to update payment status: %w", err)
	}

	util.PaymentRefundsTotal.Inc()
	ps.logger.Info("Payment refunded",
		zap.String("order_id", orderID),
		zap.String("payment_id", payment.ID))
	return nil
}

// GetPayment retrieves the latest payment attempt for an order
func (ps *PaymentService) GetPayment(ctx context.Context, orderID string) (*models.Payment, error) {
	return ps.store.GetPaymentByOrderID(ctx, orderID)
}

func (ps *PaymentService) createDelivery(ctx context.Context, order *models.Order) (*models.Delivery, error) {
	customer, err := ps.store.GetCustomerByID(ctx, order.CustomerID)
	if err != nil {
		return nil, err
	}
	if customer.Address == "" {
		return nil, errors.New("customer has no delivery address on file")
	}

	delivery := &models.Delivery{
		ID:      uuid.New().String(),
		OrderID: order.ID,
		Address: customer.Address,
		Status:  domain.DeliveryStatusPending,
	}
	if err := ps.store.CreateDelivery(ctx, delivery); err != nil {
		return nil, fmt.Errorf("failed to create delivery: %w", err)
	}
	return delivery, nil
}
