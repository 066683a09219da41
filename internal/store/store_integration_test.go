//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	ordererrors "order-inventory-service/internal/errors"
	"order-inventory-service/internal/models"
	"order-inventory-service/internal/store"
	"order-inventory-service/internal/store/storetest"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createProduct(t *testing.T, s *store.Store, name string, stock int) *models.Product {
	t.Helper()
	p := &models.Product{Name: name, Description: name + " description", Price: decimal.RequireFromString("9.99"), StockQuantity: stock}
	require.NoError(t, s.CreateProduct(context.Background(), p))
	return p
}

func TestOrderRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	s := storetest.NewStore(t, time.Second)
	ctx := context.Background()
	p := createProduct(t, s, "Keyboard", 5)

	order := &models.Order{CustomerID: 7, Description: "desk setup", Status: models.OrderStatusPending}
	order.AddItem(&models.OrderItem{ProductID: p.ID, Quantity: 2, UnitPrice: p.Price})
	order.RecomputeTotal()
	require.NoError(t, s.CreateOrder(ctx, order))
	require.NotZero(t, order.ID)

	got, err := s.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "Keyboard", got.Items[0].ProductName)
	assert.True(t, decimal.RequireFromString("19.98").Equal(got.TotalAmount))

	got.ReplaceItems(nil)
	got.RecomputeTotal()
	require.NoError(t, s.UpdateOrder(ctx, got, true))

	got, err = s.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Items)
	assert.True(t, got.TotalAmount.IsZero())

	require.NoError(t, s.DeleteOrder(ctx, order.ID))
	_, err = s.GetOrder(ctx, order.ID)
	assert.ErrorIs(t, err, ordererrors.ErrNotFound)
}

func TestDeleteReferencedProduct(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	s := storetest.NewStore(t, time.Second)
	ctx := context.Background()
	p := createProduct(t, s, "Mouse", 1)

	order := &models.Order{CustomerID: 1, Status: models.OrderStatusPending}
	order.AddItem(&models.OrderItem{ProductID: p.ID, Quantity: 1, UnitPrice: p.Price})
	require.NoError(t, s.CreateOrder(ctx, order))

	referenced, err := s.ProductReferenced(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, referenced)

	err = s.DeleteProduct(ctx, p.ID)
	assert.ErrorIs(t, err, ordererrors.ErrDependentReference)
}

func TestNegativeStockIsConstraintViolation(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	s := storetest.NewStore(t, time.Second)
	p := createProduct(t, s, "Cable", 1)

	err := s.UpdateProductStock(context.Background(), p.ID, -1)
	assert.ErrorIs(t, err, ordererrors.ErrConstraintViolation)
}

func TestLockWaitTimesOutAsConflict(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	s := storetest.NewStore(t, 200*time.Millisecond)
	ctx := context.Background()
	p := createProduct(t, s, "Monitor", 1)

	locked := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- s.InTx(ctx, func(q store.Querier) error {
			if _, err := q.GetProductForUpdate(ctx, p.ID); err != nil {
				return err
			}
			close(locked)
			<-release
			return nil
		})
	}()
	<-locked

	err := s.InTx(ctx, func(q store.Querier) error {
		_, err := q.GetProductForUpdate(ctx, p.ID)
		return err
	})
	close(release)

	assert.ErrorIs(t, err, ordererrors.ErrConcurrencyConflict)
	require.NoError(t, <-done)
}

func TestSearchOrders(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	s := storetest.NewStore(t, time.Second)
	ctx := context.Background()
	laptop := createProduct(t, s, "Laptop 100%", 10)
	phone := createProduct(t, s, "Phone", 10)

	var ids []int64
	for i, tc := range []struct {
		customer int64
		desc     string
		product  *models.Product
	}{
		{1, "office", laptop},
		{1, "gift", phone},
		{2, "office refresh", phone},
	} {
		o := &models.Order{CustomerID: tc.customer, Description: tc.desc, Status: models.OrderStatusPending}
		o.AddItem(&models.OrderItem{ProductID: tc.product.ID, Quantity: i + 1, UnitPrice: tc.product.Price})
		o.RecomputeTotal()
		require.NoError(t, s.CreateOrder(ctx, o))
		ids = append(ids, o.ID)
	}

	customer := int64(1)
	orders, total, err := s.SearchOrders(ctx, store.OrderFilter{CustomerID: &customer, SortBy: "id"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, orders, 2)
	assert.Equal(t, ids[0], orders[0].ID)

	orders, total, err = s.SearchOrders(ctx, store.OrderFilter{Text: "OFFICE", SortBy: "id"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	orders, _, err = s.SearchOrders(ctx, store.OrderFilter{Text: "100%"})
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, ids[0], orders[0].ID)

	orders, total, err = s.SearchOrders(ctx, store.OrderFilter{IDs: []int64{ids[1], ids[2]}, Text: "phone", SortBy: "totalAmount", Descending: true})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, orders, 2)
	assert.Equal(t, ids[2], orders[0].ID)

	tomorrow := time.Now().Add(24 * time.Hour)
	_, total, err = s.SearchOrders(ctx, store.OrderFilter{CreatedFrom: &tomorrow})
	require.NoError(t, err)
	assert.Zero(t, total)

	_, total, err = s.SearchOrders(ctx, store.OrderFilter{IDs: []int64{}})
	require.NoError(t, err)
	assert.Zero(t, total)
}
