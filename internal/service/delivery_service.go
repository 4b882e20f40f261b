package service

import (
	"context"
	"fmt"

	"fulfillment-service/internal/broker"
	"fulfillment-service/internal/domain"
	"fulfillment-service/internal/models"
	"fulfillment-service/internal/store"
	"fulfillment-service/internal/util"

	"go.uber.org/zap"
)

// DeliveryService moves deliveries through PENDING → SHIPPED → IN_TRANSIT →
// DELIVERED. It never touches order rows: completing a delivery publishes
// DELIVERY_COMPLETED and the order worker closes the order.
type DeliveryService struct {
	store          *store.Store
	eventPublisher *broker.EventPublisher
	routeOptimizer domain.RouteOptimizer
	logger         *zap.Logger
}

// NewDeliveryService creates a new delivery service
func NewDeliveryService(store *store.Store, eventPublisher *broker.EventPublisher, routeOptimizer domain.RouteOptimizer) *DeliveryService {
	return &DeliveryService{
		store:          store,
		eventPublisher: eventPublisher,
		routeOptimizer: routeOptimizer,
		logger:         util.NamedLogger("deliveries"),
	}
}

// ShipDelivery assigns a courier to a PENDING delivery and issues a tracking
// number
func (ds *DeliveryService) ShipDelivery(ctx context.Context, deliveryID, courierID string) (*models.Delivery, error) {
	ctx, span := util.StartSpan(ctx, "DeliveryService.ShipDelivery")
	defer span.End()

	courier, err := ds.store.GetCourierByID(ctx, courierID)
	if err != nil {
		return nil, err
	}

	trackingNumber := domain.NewTrackingNumber()
	if err := ds.store.MarkDeliveryShipped(ctx, deliveryID, courier.ID, trackingNumber); err != nil {
		return nil, err
	}

	delivery, err := ds.store.GetDeliveryByID(ctx, deliveryID)
	if err != nil {
		return nil, err
	}

	util.DeliveriesShippedTotal.Inc()
	ds.logger.Info("Delivery shipped",
		zap.String("delivery_id", deliveryID),
		zap.String("courier_id", courier.ID),
		zap.String("tracking_number", trackingNumber))

	event := &models.DeliveryShippedEvent{
		BaseEvent:      newBaseEvent(models.EventTypeDeliveryShipped),
		DeliveryID:     deliveryID,
		OrderID:        delivery.OrderID,
		CourierID:      courier.ID,
		TrackingNumber: trackingNumber,
	}
	if err := ds.eventPublisher.PublishDeliveryShipped(ctx, event); err != nil {
		ds.logger.Error("Failed to publish DeliveryShipped event", zap.Error(err))
	}

	return delivery, nil
}

// AdvanceDelivery moves a SHIPPED delivery to IN_TRANSIT
func (ds *DeliveryService) AdvanceDelivery(ctx context.Context, deliveryID string) error {
	return ds.store.UpdateDeliveryStatus(ctx, deliveryID,
		[]domain.DeliveryStatus{domain.DeliveryStatusShipped}, domain.DeliveryStatusInTransit)
}

// CompleteDelivery marks a delivery DELIVERED and publishes the completion
// notification that closes the order
func (ds *DeliveryService) CompleteDelivery(ctx context.Context, deliveryID string) error {
	ctx, span := util.StartSpan(ctx, "DeliveryService.CompleteDelivery")
	defer span.End()

	if err := ds.store.UpdateDeliveryStatus(ctx, deliveryID,
		[]domain.DeliveryStatus{domain.DeliveryStatusShipped, domain.DeliveryStatusInTransit},
		domain.DeliveryStatusDelivered); err != nil {
		return err
	}

	delivery, err := ds.store.GetDeliveryByID(ctx, deliveryID)
	if err != nil {
		return err
	}

	util.DeliveriesCompletedTotal.Inc()
	ds.logger.Info("Delivery completed",
		zap.String("delivery_id", deliveryID),
		zap.String("order_id", delivery.OrderID))

	event := &models.DeliveryCompletedEvent{
		BaseEvent:  newBaseEvent(models.EventTypeDeliveryCompleted),
		DeliveryID: deliveryID,
		OrderID:    delivery.OrderID,
	}
	if err := ds.eventPublisher.PublishDeliveryCompleted(ctx, event); err != nil {
		return fmt.Errorf("failed to publish DeliveryCompleted event: %w", err)
	}

	return nil
}

// GetDelivery retrieves a delivery by ID
func (ds *DeliveryService) GetDelivery(ctx context.Context, deliveryID string) (*models.Delivery, error) {
	return ds.store.GetDeliveryByID(ctx, deliveryID)
}

// GetDeliveryForOrder retrieves the delivery attached to an order
func (ds *DeliveryService) GetDeliveryForOrder(ctx context.Context, orderID string) (*models.Delivery, error) {
	return ds.store.GetDeliveryByOrderID(ctx, orderID)
}

// RoutePlan is the result of planning a route over pending deliveries
type RoutePlan struct {
	Route      string   `json:"route"`
	Deliveries []string `json:"deliveries"`
}

// PlanRoute plans a route covering all deliveries awaiting shipment
func (ds *DeliveryService) PlanRoute(ctx context.Context) (*RoutePlan, error) {
	rows, err := ds.store.GetPendingDeliveries(ctx)
	if err != nil {
		return nil, err
	}

	deliveries := make([]*domain.Delivery, 0, len(rows))
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		deliveries = append(deliveries, domain.NewDelivery(row.Address, nil))
		ids = append(ids, row.ID)
	}

	return &RoutePlan{
		Route:      ds.routeOptimizer.CalculateRoute(deliveries),
		Deliveries: ids,
	}, nil
}

// RegisterCourier adds a courier to the roster
func (ds *DeliveryService) RegisterCourier(ctx context.Context, courier *models.Courier) error {
	return ds.store.CreateCourier(ctx, courier)
}
