package worker

import (
	"context"
	"log"

	"fulfillment-service/internal/broker"
	"fulfillment-service/internal/service"
)

// OrderWorker consumes fulfillment events and feeds them to the lifecycle
// orchestrator. It is the only path by which a delivery outcome reaches the
// order state machine.
type OrderWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
}

// NewOrderWorker creates a new order worker
func NewOrderWorker(
	consumer *broker.Consumer,
	orchestrator *service.LifecycleOrchestrator,
) *OrderWorker {
	eventHandler := broker.NewEventHandler()

	eventHandler.OnDeliveryCompleted(orchestrator.HandleDeliveryCompleted)
	eventHandler.OnPaymentFailed(orchestrator.HandlePaymentFailed)

	return &OrderWorker{
		consumer:     consumer,
		eventHandler: eventHandler,
	}
}

// Start starts the worker
func (w *OrderWorker) Start(ctx context.Context) error {
	log.Println("Starting order worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *OrderWorker) Stop() error {
	log.Println("Stopping order worker...")
	return w.consumer.Close()
}
