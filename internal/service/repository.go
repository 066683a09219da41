package service

import (
	"context"
	"errors"
	"time"

	ordererrors "order-inventory-service/internal/errors"

	"order-inventory-service/internal/models"
	"order-inventory-service/internal/store"
	"order-inventory-service/internal/util"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// Repository is the persistence the services need: every query, plus a way to
// run several of them in one transaction.
type Repository interface {
	store.Querier
	InTx(ctx context.Context, fn func(q store.Querier) error) error
}

// IndexEventPublisher receives committed order changes. Implementations must
// not block the caller.
type IndexEventPublisher interface {
	PublishOrderChanged(order *models.Order)
	PublishOrderDeleted(orderID int64)
}

// Tx is a unit of work. Work registered with AfterCommit and EvictAfterCommit
// runs only once the transaction has committed.
type Tx struct {
	store.Querier
	evict       []string
	afterCommit []func()
}

// AfterCommit registers fn to run after a successful commit
func (tx *Tx) AfterCommit(fn func()) {
	tx.afterCommit = append(tx.afterCommit, fn)
}

// EvictAfterCommit schedules cache keys for eviction after a successful commit
func (tx *Tx) EvictAfterCommit(keys ...string) {
	tx.evict = append(tx.evict, keys...)
}

type txRunner struct {
	repo   Repository
	cache  Cache
	logger *zap.Logger
}

// maxTxAttempts bounds how often a transaction aborted by the database with a
// serialization failure or deadlock is run again.
const maxTxAttempts = 8

// txBackOff spaces out attempts with a short, jittered, growing interval so
// that transactions aborted together do not collide again.
func txBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 5 * time.Millisecond
	b.RandomizationFactor = 0.5
	b.Multiplier = 2
	b.MaxInterval = 50 * time.Millisecond
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, maxTxAttempts-1), ctx)
}

// run executes fn in one transaction, then evicts the scheduled cache keys and
// runs the commit hooks. Nothing scheduled survives a rollback.
//
// Under REPEATABLE READ a transaction that waited on a row lock held by a
// writer that then committed is aborted instead of re-reading the row. fn is
// run again from scratch in that case, so it must not keep state across
// attempts. Lock timeouts are not retried.
func (r *txRunner) run(ctx context.Context, fn func(tx *Tx) error) error {
	var committed *Tx
	attempt := func() error {
		committed = nil
		err := r.repo.InTx(ctx, func(q store.Querier) error {
			tx := &Tx{Querier: q}
			if err := fn(tx); err != nil {
				return err
			}
			committed = tx
			return nil
		})
		if err != nil && !errors.Is(err, ordererrors.ErrSerializationFailure) {
			return backoff.Permanent(err)
		}
		return err
	}
	retrying := func(err error, wait time.Duration) {
		util.TransactionRetriesTotal.Inc()
		r.logger.Debug("Transaction aborted by a concurrent update, retrying",
			zap.Duration("wait", wait),
			zap.Error(err))
	}

	if err := backoff.RetryNotify(attempt, txBackOff(ctx), retrying); err != nil {
		return err
	}
	r.afterCommit(ctx, committed)
	return nil
}

func (r *txRunner) afterCommit(ctx context.Context, committed *Tx) {
	if len(committed.evict) > 0 {
		if err := r.cache.Delete(ctx, dedupe(committed.evict)...); err != nil {
			util.CacheOperationsFailed.WithLabelValues("evict").Inc()
			r.logger.Warn("Failed to evict cache keys",
				zap.Strings("keys", committed.evict),
				zap.Error(err))
		}
	}
	for _, fn := range committed.afterCommit {
		fn()
	}
}

func dedupe(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := keys[:0:0]
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
