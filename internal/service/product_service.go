package service

import (
	"context"
	"fmt"

	ordererrors "order-inventory-service/internal/errors"
	"order-inventory-service/internal/models"
	"order-inventory-service/internal/util"

	"go.uber.org/zap"
)

// ProductService handles product CRUD. Reads go through the cache and every
// committed mutation evicts the product and the product list.
type ProductService struct {
	repo   Repository
	cache  Cache
	tx     *txRunner
	logger *zap.Logger
}

// NewProductService creates a new product service
func NewProductService(repo Repository, cache Cache) *ProductService {
	logger := util.GetLogger()
	return &ProductService{
		repo:   repo,
		cache:  cache,
		tx:     &txRunner{repo: repo, cache: cache, logger: logger},
		logger: logger,
	}
}

// ListProducts returns every product
func (s *ProductService) ListProducts(ctx context.Context) ([]*ProductResponse, error) {
	var cached []*ProductResponse
	if cacheGet(ctx, s.cache, s.logger, AllProductsKey, &cached) {
		return cached, nil
	}

	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	resp := ToProductResponses(products)
	cacheSet(ctx, s.cache, s.logger, AllProductsKey, resp)
	return resp, nil
}

// GetProduct retrieves a product by ID
func (s *ProductService) GetProduct(ctx context.Context, id int64) (*ProductResponse, error) {
	var cached ProductResponse
	if cacheGet(ctx, s.cache, s.logger, ProductKey(id), &cached) {
		return &cached, nil
	}

	product, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToProductResponse(product)
	cacheSet(ctx, s.cache, s.logger, ProductKey(id), resp)
	return resp, nil
}

// SearchProducts finds products whose name contains name, ignoring case
func (s *ProductService) SearchProducts(ctx context.Context, name string) ([]*ProductResponse, error) {
	products, err := s.repo.SearchProductsByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to search products: %w", err)
	}
	return ToProductResponses(products), nil
}

// CreateProduct creates a new product
func (s *ProductService) CreateProduct(ctx context.Context, req *CreateProductRequest) (*ProductResponse, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if req.Price.IsNegative() {
		return nil, fmt.Errorf("%w: price must not be negative", ordererrors.ErrInvalidRequest)
	}

	product := &models.Product{
		Name:          req.Name,
		Description:   req.Description,
		Price:         *req.Price,
		StockQuantity: req.StockQuantity,
	}
	err := s.tx.run(ctx, func(tx *Tx) error {
		if err := tx.CreateProduct(ctx, product); err != nil {
			return err
		}
		tx.EvictAfterCommit(AllProductsKey)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	s.logger.Info("Product created", zap.Int64("product_id", product.ID), zap.String("name", product.Name))
	return ToProductResponse(product), nil
}

// UpdateProduct applies a partial update. The row is locked first so a stock
// change cannot interleave with an order's stock movement.
func (s *ProductService) UpdateProduct(ctx context.Context, id int64, req *UpdateProductRequest) (*ProductResponse, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if req.Price != nil && req.Price.IsNegative() {
		return nil, fmt.Errorf("%w: price must not be negative", ordererrors.ErrInvalidRequest)
	}

	var product *models.Product
	err := s.tx.run(ctx, func(tx *Tx) error {
		var err error
		product, err = tx.GetProductForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if req.Name != nil {
			product.Name = *req.Name
		}
		if req.Description != nil {
			product.Description = *req.Description
		}
		if req.Price != nil {
			product.Price = *req.Price
		}
		if req.StockQuantity != nil {
			product.StockQuantity = *req.StockQuantity
		}
		if err := tx.UpdateProduct(ctx, product); err != nil {
			return err
		}
		tx.EvictAfterCommit(ProductKey(id), AllProductsKey)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update product %d: %w", id, err)
	}

	s.logger.Info("Product updated", zap.Int64("product_id", id))
	return ToProductResponse(product), nil
}

// DeleteProduct removes a product that no order item references
func (s *ProductService) DeleteProduct(ctx context.Context, id int64) error {
	err := s.tx.run(ctx, func(tx *Tx) error {
		if _, err := tx.GetProductForUpdate(ctx, id); err != nil {
			return err
		}
		referenced, err := tx.ProductReferenced(ctx, id)
		if err != nil {
			return err
		}
		if referenced {
			return fmt.Errorf("%w: product %d is part of existing orders", ordererrors.ErrDependentReference, id)
		}
		if err := tx.DeleteProduct(ctx, id); err != nil {
			return err
		}
		tx.EvictAfterCommit(ProductKey(id), AllProductsKey)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete product %d: %w", id, err)
	}

	s.logger.Info("Product deleted", zap.Int64("product_id", id))
	return nil
}
