package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	ordererrors "order-inventory-service/internal/errors"
	"order-inventory-service/internal/models"

	"github.com/jmoiron/sqlx"
)

const productColumns = `id, name, description, price, stock, created_at, updated_at`

// GetProduct retrieves a product by ID
func (q *Queries) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	err := sqlx.GetContext(ctx, q.db, &product,
		"SELECT "+productColumns+" FROM products WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("product %d: %w", id, ordererrors.ErrProductNotFound)
	}
	if err != nil {
		return nil, classify(err)
	}
	return &product, nil
}

// GetProductForUpdate retrieves a product and holds an exclusive row lock on it
// until the enclosing transaction ends.
func (q *Queries) GetProductForUpdate(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	err := sqlx.GetContext(ctx, q.db, &product,
		"SELECT "+productColumns+" FROM products WHERE id = $1 FOR UPDATE", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("product %d: %w", id, ordererrors.ErrProductNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock product %d: %w", id, classify(err))
	}
	return &product, nil
}

// ListProducts retrieves all products
func (q *Queries) ListProducts(ctx context.Context) ([]models.Product, error) {
	products := []models.Product{}
	err := sqlx.SelectContext(ctx, q.db, &products,
		"SELECT "+productColumns+" FROM products ORDER BY id")
	return products, classify(err)
}

// SearchProductsByName does a case-insensitive substring match on the name
func (q *Queries) SearchProductsByName(ctx context.Context, name string) ([]models.Product, error) {
	products := []models.Product{}
	err := sqlx.SelectContext(ctx, q.db, &products,
		"SELECT "+productColumns+` FROM products WHERE name ILIKE $1 ORDER BY id`,
		containsPattern(name))
	return products, classify(err)
}

// CreateProduct inserts p and fills in its ID and timestamps
func (q *Queries) CreateProduct(ctx context.Context, p *models.Product) error {
	query := `
		INSERT INTO products (name, description, price, stock)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`

	err := q.db.QueryRowxContext(ctx, query, p.Name, p.Description, p.Price, p.StockQuantity).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	return classify(err)
}

// UpdateProduct overwrites every mutable column of p
func (q *Queries) UpdateProduct(ctx context.Context, p *models.Product) error {
	query := `
		UPDATE products SET name = $1, description = $2, price = $3, stock = $4, updated_at = NOW()
		WHERE id = $5
		RETURNING updated_at`

	err := q.db.QueryRowxContext(ctx, query, p.Name, p.Description, p.Price, p.StockQuantity, p.ID).
		Scan(&p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("product %d: %w", p.ID, ordererrors.ErrProductNotFound)
	}
	return classify(err)
}

// UpdateProductStock sets the available quantity of a product
func (q *Queries) UpdateProductStock(ctx context.Context, id int64, stock int) error {
	res, err := q.db.ExecContext(ctx,
		"UPDATE products SET stock = $1, updated_at = NOW() WHERE id = $2", stock, id)
	if err != nil {
		return fmt.Errorf("failed to update stock of product %d: %w", id, classify(err))
	}
	return expectAffected(res, fmt.Errorf("product %d: %w", id, ordererrors.ErrProductNotFound))
}

// DeleteProduct removes a product. Products still referenced by an order item
// fail with ErrDependentReference.
func (q *Queries) DeleteProduct(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, "DELETE FROM products WHERE id = $1", id)
	if err != nil {
		return classify(err)
	}
	return expectAffected(res, fmt.Errorf("product %d: %w", id, ordererrors.ErrProductNotFound))
}

// ProductReferenced reports whether any order item points at the product
func (q *Queries) ProductReferenced(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := sqlx.GetContext(ctx, q.db, &exists,
		"SELECT EXISTS(SELECT 1 FROM order_items WHERE product_id = $1)", id)
	return exists, classify(err)
}

func expectAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
