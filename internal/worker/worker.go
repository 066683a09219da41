package worker

import (
	"context"
	"time"

	"order-inventory-service/internal/broker"
	"order-inventory-service/internal/indexer"
	"order-inventory-service/internal/util"

	"go.uber.org/zap"
)

// IndexWorker applies index events relayed through Kafka
type IndexWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	logger       *zap.Logger
}

// NewIndexWorker creates a worker that feeds consumed events to handler
func NewIndexWorker(consumer *broker.Consumer, handler indexer.Handler) *IndexWorker {
	return &IndexWorker{
		consumer:     consumer,
		eventHandler: NewIndexEventHandler(handler),
		logger:       util.GetLogger().Named("index-worker"),
	}
}

// NewIndexEventHandler routes ORDER_CHANGED and ORDER_DELETED to handler
func NewIndexEventHandler(handler indexer.Handler) *broker.EventHandler {
	eventHandler := broker.NewEventHandler()
	eventHandler.OnOrderChanged(handler.IndexOrder)
	eventHandler.OnOrderDeleted(handler.DeleteOrder)
	return eventHandler
}

// Start consumes until ctx is cancelled
func (w *IndexWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting index worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop closes the consumer
func (w *IndexWorker) Stop() error {
	w.logger.Info("Stopping index worker")
	return w.consumer.Close()
}

// Resyncer rebuilds the whole index from the database
type Resyncer interface {
	SyncAllOrders(ctx context.Context)
}

// ResyncWorker periodically rebuilds the index, repairing documents whose
// events were dropped or failed.
type ResyncWorker struct {
	syncer   Resyncer
	interval time.Duration
	logger   *zap.Logger
}

// NewResyncWorker creates a worker that resyncs every interval
func NewResyncWorker(syncer Resyncer, interval time.Duration) *ResyncWorker {
	return &ResyncWorker{
		syncer:   syncer,
		interval: interval,
		logger:   util.GetLogger().Named("resync-worker"),
	}
}

// Start runs until ctx is cancelled. A non-positive interval disables it.
func (w *ResyncWorker) Start(ctx context.Context) error {
	if w.interval <= 0 {
		w.logger.Info("Periodic resync disabled")
		return nil
	}

	w.logger.Info("Starting resync worker", zap.Duration("interval", w.interval))
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Stopping resync worker")
			return nil
		case <-ticker.C:
			w.logger.Info("Running scheduled index resync")
			w.syncer.SyncAllOrders(ctx)
		}
	}
}
