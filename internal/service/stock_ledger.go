package service

import (
	"context"
	"fmt"
	"time"

	ordererrors "order-inventory-service/internal/errors"
	"order-inventory-service/internal/models"
	"order-inventory-service/internal/util"

	"go.uber.org/zap"
)

// StockLedger owns product stock. Mutations lock the product row for the rest
// of the enclosing transaction, so concurrent adjustments of one product
// serialize and each sees the quantity left by the previous one.
type StockLedger struct {
	repo   Repository
	logger *zap.Logger
}

// NewStockLedger creates a new stock ledger
func NewStockLedger(repo Repository) *StockLedger {
	return &StockLedger{
		repo:   repo,
		logger: util.GetLogger(),
	}
}

// Decrement takes quantity units of the product. It returns the locked
// product as of after the write.
func (l *StockLedger) Decrement(ctx context.Context, tx *Tx, productID int64, quantity int) (*models.Product, error) {
	return l.adjust(ctx, tx, productID, quantity, -1)
}

// Increment gives quantity units back to the product.
func (l *StockLedger) Increment(ctx context.Context, tx *Tx, productID int64, quantity int) (*models.Product, error) {
	return l.adjust(ctx, tx, productID, quantity, 1)
}

func (l *StockLedger) adjust(ctx context.Context, tx *Tx, productID int64, quantity, sign int) (*models.Product, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity for product %d must be positive, got %d",
			ordererrors.ErrInvalidRequest, productID, quantity)
	}

	start := time.Now()
	product, err := tx.GetProductForUpdate(ctx, productID)
	util.StockLockLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	stock := product.StockQuantity + sign*quantity
	if stock < 0 {
		return nil, fmt.Errorf("%w: product %d has %d available, %d requested",
			ordererrors.ErrInsufficientStock, productID, product.StockQuantity, quantity)
	}

	if err := tx.UpdateProductStock(ctx, productID, stock); err != nil {
		return nil, err
	}
	product.StockQuantity = stock
	tx.EvictAfterCommit(ProductKey(productID), AllProductsKey)

	direction := "increment"
	if sign < 0 {
		direction = "decrement"
	}
	util.StockAdjustmentsTotal.WithLabelValues(direction).Inc()
	l.logger.Debug("Stock adjusted",
		zap.Int64("product_id", productID),
		zap.String("direction", direction),
		zap.Int("quantity", quantity),
		zap.Int("stock", stock))

	return product, nil
}

// CheckAvailability reports whether the product currently has at least
// requested units. The answer is advisory only; Decrement is authoritative.
func (l *StockLedger) CheckAvailability(ctx context.Context, productID int64, requested int) (bool, error) {
	product, err := l.repo.GetProduct(ctx, productID)
	if err != nil {
		return false, err
	}
	return product.StockQuantity >= requested, nil
}
