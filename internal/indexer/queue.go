package indexer

import (
	"context"
	"sync"
	"time"

	"order-inventory-service/internal/models"
	"order-inventory-service/internal/util"

	"go.uber.org/zap"
)

// Handler consumes index events. The Synchronizer is one; the Kafka relay is
// another.
type Handler interface {
	IndexOrder(ctx context.Context, order *models.Order)
	DeleteOrder(ctx context.Context, orderID int64)
}

type event struct {
	order   *models.Order
	orderID int64
}

// Queue hands committed order changes to a fixed pool of workers. Publishing
// never blocks: when the buffer is full the event is dropped and the periodic
// resync repairs the index.
type Queue struct {
	events  chan event
	handler Handler
	workers int
	timeout time.Duration
	logger  *zap.Logger
}

// NewQueue creates a queue holding at most size pending events
func NewQueue(handler Handler, size, workers int, timeout time.Duration) *Queue {
	if workers <= 0 {
		workers = 1
	}
	return &Queue{
		events:  make(chan event, size),
		handler: handler,
		workers: workers,
		timeout: timeout,
		logger:  util.GetLogger().Named("index-queue"),
	}
}

// PublishOrderChanged enqueues an upsert of the order's document
func (q *Queue) PublishOrderChanged(order *models.Order) {
	q.enqueue(event{order: order, orderID: order.ID})
}

// PublishOrderDeleted enqueues a document removal
func (q *Queue) PublishOrderDeleted(orderID int64) {
	q.enqueue(event{orderID: orderID})
}

func (q *Queue) enqueue(e event) {
	select {
	case q.events <- e:
	default:
		util.IndexEventsDropped.Inc()
		q.logger.Warn("Index queue full, dropping event",
			zap.Int64("order_id", e.orderID),
			zap.Bool("delete", e.order == nil))
	}
}

// Run processes events until ctx is cancelled. Events already buffered at that
// point are still handled before Run returns, so callers should stop
// publishing first.
func (q *Queue) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for i := 0; i < q.workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			q.work(ctx, id)
		}(i)
	}
	q.logger.Info("Index queue started", zap.Int("workers", q.workers), zap.Int("capacity", cap(q.events)))
	wg.Wait()
	q.logger.Info("Index queue stopped", zap.Int("pending", len(q.events)))
	return nil
}

func (q *Queue) work(ctx context.Context, id int) {
	// Handlers outlive ctx while draining; each is bounded by q.timeout.
	hctx := context.WithoutCancel(ctx)
	for {
		select {
		case <-ctx.Done():
			q.drain(hctx, id)
			return
		case e := <-q.events:
			q.handle(hctx, id, e)
		}
	}
}

func (q *Queue) drain(ctx context.Context, id int) {
	for {
		select {
		case e := <-q.events:
			q.handle(ctx, id, e)
		default:
			return
		}
	}
}

func (q *Queue) handle(ctx context.Context, worker int, e event) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("Index event handler panicked",
				zap.Int("worker", worker),
				zap.Int64("order_id", e.orderID),
				zap.Any("panic", r))
		}
	}()

	if q.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.timeout)
		defer cancel()
	}

	if e.order != nil {
		q.handler.IndexOrder(ctx, e.order)
		return
	}
	q.handler.DeleteOrder(ctx, e.orderID)
}
