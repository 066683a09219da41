package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	ordererrors "order-inventory-service/internal/errors"
	"order-inventory-service/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Querier is the set of statements available both on the pool and inside a transaction.
type Querier interface {
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	GetProductForUpdate(ctx context.Context, id int64) (*models.Product, error)
	ListProducts(ctx context.Context) ([]models.Product, error)
	SearchProductsByName(ctx context.Context, name string) ([]models.Product, error)
	CreateProduct(ctx context.Context, p *models.Product) error
	UpdateProduct(ctx context.Context, p *models.Product) error
	UpdateProductStock(ctx context.Context, id int64, stock int) error
	DeleteProduct(ctx context.Context, id int64) error
	ProductReferenced(ctx context.Context, id int64) (bool, error)

	GetOrder(ctx context.Context, id int64) (*models.Order, error)
	ListOrders(ctx context.Context) ([]*models.Order, error)
	CreateOrder(ctx context.Context, o *models.Order) error
	UpdateOrder(ctx context.Context, o *models.Order, replaceItems bool) error
	DeleteOrder(ctx context.Context, id int64) error
	SearchOrders(ctx context.Context, f OrderFilter) ([]*models.Order, int64, error)
}

// Options tune the connection pool and transactions
type Options struct {
	MaxOpenConns int
	LockTimeout  time.Duration
}

type Store struct {
	*Queries
	db          *sqlx.DB
	lockTimeout time.Duration
}

// NewStore creates a new database store
func NewStore(databaseURL string, opts Options) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if opts.MaxOpenConns <= 0 {
		opts.MaxOpenConns = 25
	}
	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return New(db, opts.LockTimeout), nil
}

// New wraps an existing connection pool
func New(db *sqlx.DB, lockTimeout time.Duration) *Store {
	return &Store{Queries: &Queries{db: db}, db: db, lockTimeout: lockTimeout}
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the connection, used by the readiness check
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// InTx runs fn in a REPEATABLE READ transaction. Row lock waits inside it are
// bounded by the configured lock timeout. fn's error rolls the transaction back.
func (s *Store) InTx(ctx context.Context, fn func(q Querier) error) error {
	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead})
	if err != nil {
		return fmt.Errorf("%w: %w", ordererrors.ErrTransactionBegin, classify(err))
	}
	defer tx.Rollback()

	if s.lockTimeout > 0 {
		stmt := fmt.Sprintf("SET LOCAL lock_timeout = %d", s.lockTimeout.Milliseconds())
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return classify(err)
		}
	}

	if err := fn(&Queries{db: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %w", ordererrors.ErrTransactionCommit, classify(err))
	}
	return nil
}

// Queries executes statements against either the pool or a transaction
type Queries struct {
	db sqlx.ExtContext
}
