package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	ordererrors "order-inventory-service/internal/errors"
	"order-inventory-service/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const orderColumns = `o.id, o.customer_id, o.description, o.status, o.total_amount, o.created_at, o.updated_at`

// GetOrder retrieves an order by ID together with its items
func (q *Queries) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := sqlx.GetContext(ctx, q.db, &order,
		"SELECT "+orderColumns+" FROM orders o WHERE o.id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("order %d: %w", id, ordererrors.ErrOrderNotFound)
	}
	if err != nil {
		return nil, classify(err)
	}
	if err := q.loadItems(ctx, []*models.Order{&order}); err != nil {
		return nil, err
	}
	return &order, nil
}

// ListOrders retrieves every order with its items
func (q *Queries) ListOrders(ctx context.Context) ([]*models.Order, error) {
	orders := []*models.Order{}
	err := sqlx.SelectContext(ctx, q.db, &orders,
		"SELECT "+orderColumns+" FROM orders o ORDER BY o.id")
	if err != nil {
		return nil, classify(err)
	}
	if err := q.loadItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// CreateOrder inserts the order and its items, filling in generated IDs
func (q *Queries) CreateOrder(ctx context.Context, o *models.Order) error {
	query := `
		INSERT INTO orders (customer_id, description, status, total_amount)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`

	err := q.db.QueryRowxContext(ctx, query, o.CustomerID, o.Description, o.Status, o.TotalAmount).
		Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", classify(err))
	}
	return q.insertItems(ctx, o)
}

// UpdateOrder writes the scalar columns of o. With replaceItems the stored
// item rows are deleted and o.Items inserted in their place.
func (q *Queries) UpdateOrder(ctx context.Context, o *models.Order, replaceItems bool) error {
	query := `
		UPDATE orders SET customer_id = $1, description = $2, status = $3, total_amount = $4, updated_at = NOW()
		WHERE id = $5
		RETURNING updated_at`

	err := q.db.QueryRowxContext(ctx, query, o.CustomerID, o.Description, o.Status, o.TotalAmount, o.ID).
		Scan(&o.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("order %d: %w", o.ID, ordererrors.ErrOrderNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to update order %d: %w", o.ID, classify(err))
	}
	if !replaceItems {
		return nil
	}

	if _, err := q.db.ExecContext(ctx, "DELETE FROM order_items WHERE order_id = $1", o.ID); err != nil {
		return fmt.Errorf("failed to delete items of order %d: %w", o.ID, classify(err))
	}
	return q.insertItems(ctx, o)
}

// DeleteOrder removes an order; its items go with it (ON DELETE CASCADE)
func (q *Queries) DeleteOrder(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, "DELETE FROM orders WHERE id = $1", id)
	if err != nil {
		return classify(err)
	}
	return expectAffected(res, fmt.Errorf("order %d: %w", id, ordererrors.ErrOrderNotFound))
}

func (q *Queries) insertItems(ctx context.Context, o *models.Order) error {
	query := `
		INSERT INTO order_items (order_id, product_id, quantity, unit_price)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	for _, item := range o.Items {
		item.OrderID = o.ID
		productID := sql.NullInt64{Int64: item.ProductID, Valid: item.ProductID != 0}
		err := q.db.QueryRowxContext(ctx, query, item.OrderID, productID, item.Quantity, item.UnitPrice).
			Scan(&item.ID)
		if err != nil {
			return fmt.Errorf("failed to insert item of order %d: %w", o.ID, classify(err))
		}
	}
	return nil
}

// loadItems fills Items of every order in one round trip. Product name and
// description come from a LEFT JOIN so items of deleted products still load.
func (q *Queries) loadItems(ctx context.Context, orders []*models.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]int64, len(orders))
	byID := make(map[int64]*models.Order, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		byID[o.ID] = o
		o.Items = []*models.OrderItem{}
	}

	query := `
		SELECT oi.id, oi.order_id, COALESCE(oi.product_id, 0) AS product_id, oi.quantity, oi.unit_price,
			COALESCE(p.name, '') AS product_name, COALESCE(p.description, '') AS product_description
		FROM order_items oi
		LEFT JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = ANY($1)
		ORDER BY oi.id`

	var items []*models.OrderItem
	if err := sqlx.SelectContext(ctx, q.db, &items, query, pq.Array(ids)); err != nil {
		return fmt.Errorf("failed to load order items: %w", classify(err))
	}
	for _, item := range items {
		if o, ok := byID[item.OrderID]; ok {
			o.Items = append(o.Items, item)
		}
	}
	return nil
}
