package service

import (
	"context"
	"fmt"

	"fulfillment-service/internal/domain"
	"fulfillment-service/internal/models"
	"fulfillment-service/internal/store"
	"fulfillment-service/internal/util"

	"go.uber.org/zap"
)

// LifecycleOrchestrator reacts to fulfillment events consumed from the bus.
// Its main job is closing the loop: a completed delivery moves the owning
// order to COMPLETED without the delivery flow ever holding an order handle.
// Handlers are idempotent; redelivered events are skipped via the
// processed_events table.
type LifecycleOrchestrator struct {
	store  *store.Store
	logger *zap.Logger
}

// NewLifecycleOrchestrator creates a new lifecycle orchestrator
func NewLifecycleOrchestrator(store *store.Store) *LifecycleOrchestrator {
	return &LifecycleOrchestrator{
		store:  store,
		logger: util.NamedLogger("lifecycle"),
	}
}

// HandleDeliveryCompleted closes the order when its delivery completes
func (lo *LifecycleOrchestrator) HandleDeliveryCompleted(ctx context.Context, event *models.DeliveryCompletedEvent) error {
	ctx, span := util.StartSpan(ctx, "LifecycleOrchestrator.HandleDeliveryCompleted")
	defer span.End()

	processed, err := lo.store.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return fmt.Errorf("failed to check event processed: %w", err)
	}
	if processed {
		lo.logger.Info("Event already processed", zap.String("event_id", event.EventID))
		return nil
	}

	lo.logger.Info("Handling delivery completion",
		zap.String("order_id", event.OrderID),
		zap.String("delivery_id", event.DeliveryID))

	if err := lo.store.UpdateOrderStatus(ctx, event.OrderID,
		[]domain.OrderStatus{domain.OrderStatusInDelivery}, domain.OrderStatusCompleted); err != nil {
		return fmt.Errorf("failed to complete order: %w", err)
	}

	util.OrdersCompletedTotal.Inc()

	if err := lo.store.MarkEventProcessed(ctx, event.EventID, event.EventType); err != nil {
		lo.logger.Error("Failed to mark event processed", zap.Error(err))
	}

	lo.logger.Info("Order completed", zap.String("order_id", event.OrderID))
	return nil
}

// HandlePaymentFailed records a declined settlement. The order stays in
// PROCESSING with its reservation intact, waiting for a retry or an explicit
// cancellation; there is nothing to compensate here.
func (lo *LifecycleOrchestrator) HandlePaymentFailed(ctx context.Context, event *models.PaymentFailedEvent) error {
	ctx, span := util.StartSpan(ctx, "LifecycleOrchestrator.HandlePaymentFailed")
	defer span.End()

	processed, err := lo.store.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return fmt.Errorf("failed to check event processed: %w", err)
	}
	if processed {
		return nil
	}

	lo.logger.Warn("Payment attempt declined",
		zap.String("order_id", event.OrderID),
		zap.String("payment_id", event.PaymentID),
		zap.String("reason", event.Reason))

	if err := lo.store.MarkEventProcessed(ctx, event.EventID, event.EventType); err != nil {
		lo.logger.Error("Failed to mark event processed", zap.Error(err))
	}
	return nil
}
