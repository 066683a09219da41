//go:build integration

// Package storetest starts a throwaway PostgreSQL for integration tests.
package storetest

import (
	"context"
	"testing"
	"time"

	"order-inventory-service/internal/store"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// NewStore runs a PostgreSQL container, applies the migrations and returns a
// store connected to it. Everything is torn down with the test.
func NewStore(t *testing.T, lockTimeout time.Duration) *store.Store {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("orders_test"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		),
	)
	require.NoError(t, err, "Failed to run PostgreSQL container")
	t.Cleanup(func() { _ = pgContainer.Terminate(ctx) })

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	s, err := store.NewStore(dsn, store.Options{MaxOpenConns: 20, LockTimeout: lockTimeout})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Migrate())
	return s
}
