// Package indexer mirrors committed orders into the search engine.
package indexer

import (
	"context"
	"fmt"
	"time"

	"order-inventory-service/internal/models"
	"order-inventory-service/internal/search"
	"order-inventory-service/internal/util"

	"go.uber.org/zap"
)

const upsertBatchSize = 1000

// OrderLoader reads every order from the primary store
type OrderLoader interface {
	ListOrders(ctx context.Context) ([]*models.Order, error)
}

// Synchronizer keeps the search index in line with the database. It is best
// effort: failures are logged and counted, never returned.
type Synchronizer struct {
	engine search.Engine
	orders OrderLoader
	logger *zap.Logger
}

// NewSynchronizer creates a new synchronizer
func NewSynchronizer(engine search.Engine, orders OrderLoader) *Synchronizer {
	return &Synchronizer{
		engine: engine,
		orders: orders,
		logger: util.GetLogger().Named("indexer"),
	}
}

// IndexOrder upserts the order's document
func (s *Synchronizer) IndexOrder(ctx context.Context, order *models.Order) {
	err := s.upsert(ctx, []search.OrderDocument{search.NewOrderDocument(order)})
	if err != nil {
		s.fail("index", err, zap.Int64("order_id", order.ID))
		return
	}
	s.logger.Debug("Order indexed", zap.Int64("order_id", order.ID))
}

// DeleteOrder removes the order's document
func (s *Synchronizer) DeleteOrder(ctx context.Context, orderID int64) {
	task, err := s.engine.DeleteDocument(ctx, orderID)
	if err == nil {
		err = s.engine.WaitForTask(ctx, task)
	}
	if err != nil {
		s.fail("delete", err, zap.Int64("order_id", orderID))
		return
	}
	s.logger.Debug("Order removed from index", zap.Int64("order_id", orderID))
}

// InitializeIndexes creates the index with its settings when it is missing,
// then resynchronizes every order. Meant to run once at startup.
func (s *Synchronizer) InitializeIndexes(ctx context.Context) {
	exists, err := s.engine.IndexExists(ctx)
	if err != nil {
		s.fail("initialize", err)
		return
	}
	if !exists {
		s.logger.Info("Search index missing, creating it")
		if err := s.createIndex(ctx); err != nil {
			s.fail("initialize", err)
			return
		}
	}
	s.SyncAllOrders(ctx)
}

// SyncAllOrders replaces the index content with every order in the database.
// When clearing the documents fails the index is dropped and recreated.
func (s *Synchronizer) SyncAllOrders(ctx context.Context) {
	start := time.Now()
	defer func() { util.IndexSyncDuration.Observe(time.Since(start).Seconds()) }()

	orders, err := s.orders.ListOrders(ctx)
	if err != nil {
		s.fail("sync", fmt.Errorf("load orders: %w", err))
		return
	}

	if err := s.clear(ctx); err != nil {
		s.logger.Warn("Clearing index failed, recreating it", zap.Error(err))
		if err := s.recreate(ctx); err != nil {
			s.fail("sync", err)
			return
		}
	}

	if err := s.applySettings(ctx); err != nil {
		s.fail("sync", err)
		return
	}

	docs := make([]search.OrderDocument, 0, len(orders))
	for _, o := range orders {
		docs = append(docs, search.NewOrderDocument(o))
	}
	for len(docs) > 0 {
		n := min(len(docs), upsertBatchSize)
		if err := s.upsert(ctx, docs[:n]); err != nil {
			s.fail("sync", err)
			return
		}
		docs = docs[n:]
	}

	s.logger.Info("Search index synchronized",
		zap.Int("orders", len(orders)),
		zap.Duration("took", time.Since(start)))
}

func (s *Synchronizer) upsert(ctx context.Context, docs []search.OrderDocument) error {
	task, err := s.engine.UpsertDocuments(ctx, docs)
	if err != nil {
		return err
	}
	return s.engine.WaitForTask(ctx, task)
}

func (s *Synchronizer) clear(ctx context.Context) error {
	task, err := s.engine.DeleteAllDocuments(ctx)
	if err != nil {
		return err
	}
	return s.engine.WaitForTask(ctx, task)
}

func (s *Synchronizer) createIndex(ctx context.Context) error {
	task, err := s.engine.CreateIndex(ctx)
	if err != nil {
		return err
	}
	if err := s.engine.WaitForTask(ctx, task); err != nil {
		return err
	}
	return s.applySettings(ctx)
}

func (s *Synchronizer) applySettings(ctx context.Context) error {
	task, err := s.engine.UpdateSettings(ctx)
	if err != nil {
		return err
	}
	return s.engine.WaitForTask(ctx, task)
}

// recreate drops the index, ignoring failures since it may not exist, and
// creates it again.
func (s *Synchronizer) recreate(ctx context.Context) error {
	if task, err := s.engine.DeleteIndex(ctx); err != nil {
		s.logger.Warn("Dropping index failed", zap.Error(err))
	} else if err := s.engine.WaitForTask(ctx, task); err != nil {
		s.logger.Warn("Dropping index failed", zap.Error(err))
	}

	task, err := s.engine.CreateIndex(ctx)
	if err != nil {
		return err
	}
	return s.engine.WaitForTask(ctx, task)
}

func (s *Synchronizer) fail(op string, err error, fields ...zap.Field) {
	util.IndexOperationsFailed.WithLabelValues(op).Inc()
	s.logger.Error("Search index operation failed",
		append(fields, zap.String("operation", op), zap.Error(err))...)
}
