package worker

import (
	"context"
	"time"

	"backoffice-service/internal/broker"
	"backoffice-service/internal/models"
	"backoffice-service/internal/redisclient"
	"backoffice-service/internal/util"

	"go.uber.org/zap"
)

// NotificationQueue receives dashboard notifications. Implemented by
// redisclient.Client.
type NotificationQueue interface {
	QueueLowStockNotification(ctx context.Context, n *redisclient.LowStockNotification) error
}

// NotificationWorker consumes warehouse events and turns low-stock events
// into queued dashboard notifications. Delivery is best-effort; a lost
// notification never affects the stock operation that triggered it.
type NotificationWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	queue        NotificationQueue
	logger       *zap.Logger
}

// NewNotificationWorker creates a new notification worker
func NewNotificationWorker(consumer *broker.Consumer, queue NotificationQueue) *NotificationWorker {
	w := &NotificationWorker{
		consumer: consumer,
		queue:    queue,
		logger:   util.GetLogger(),
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnLowStock(w.handleLowStock)
	w.eventHandler = eventHandler

	return w
}

// Start starts the worker
func (w *NotificationWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting notification worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *NotificationWorker) Stop() error {
	w.logger.Info("Stopping notification worker")
	return w.consumer.Close()
}

func (w *NotificationWorker) handleLowStock(ctx context.Context, event *models.LowStockEvent) error {
	notification := &redisclient.LowStockNotification{
		ProductID:   event.ProductID,
		ProductName: event.ProductName,
		Stock:       event.Stock.String(),
		MinStock:    event.MinStock.String(),
		StoreID:     event.StoreID,
		QueuedAt:    time.Now(),
	}

	if err := w.queue.QueueLowStockNotification(ctx, notification); err != nil {
		w.logger.Error("Failed to queue low-stock notification",
			zap.String("product_id", event.ProductID),
			zap.Error(err))
		return err
	}

	util.LowStockNotificationsTotal.Inc()
	w.logger.Info("Low-stock notification queued",
		zap.String("product_id", event.ProductID),
		zap.String("stock", event.Stock.String()))
	return nil
}
