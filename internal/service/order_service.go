package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	ordererrors "order-inventory-service/internal/errors"
	"order-inventory-service/internal/models"
	"order-inventory-service/internal/util"

	"go.uber.org/zap"
)

// OrderService handles order business logic. Every mutation runs in a single
// transaction together with the stock movements it implies.
type OrderService struct {
	repo   Repository
	ledger *StockLedger
	cache  Cache
	events IndexEventPublisher
	tx     *txRunner
	logger *zap.Logger
}

// NewOrderService creates a new order service
func NewOrderService(repo Repository, ledger *StockLedger, cache Cache, events IndexEventPublisher) *OrderService {
	logger := util.GetLogger()
	return &OrderService{
		repo:   repo,
		ledger: ledger,
		cache:  cache,
		events: events,
		tx:     &txRunner{repo: repo, cache: cache, logger: logger},
		logger: logger,
	}
}

// CreateOrder reserves stock for every item and persists the order. Either
// all decrements commit with the order or none do.
func (s *OrderService) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*OrderResponse, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.CreateOrder")
	defer span.End()

	if err := validateCreate(req); err != nil {
		s.recordFailure("create", err)
		return nil, err
	}

	status := models.OrderStatusPending
	if req.Status != nil {
		status = *req.Status
	}

	var order *models.Order
	err := s.tx.run(ctx, func(tx *Tx) error {
		order = &models.Order{
			CustomerID:  req.CustomerID,
			Description: req.Description,
			Status:      status,
		}
		for _, item := range req.Items {
			product, err := s.ledger.Decrement(ctx, tx, item.ProductID, item.Quantity)
			if err != nil {
				return err
			}
			order.AddItem(newItem(product, item.Quantity))
		}
		order.RecomputeTotal()

		if err := tx.CreateOrder(ctx, order); err != nil {
			return err
		}
		tx.AfterCommit(func() { s.events.PublishOrderChanged(order) })
		return nil
	})
	if err != nil {
		util.RecordError(span, err)
		s.recordFailure("create", err)
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	util.OrdersCreatedTotal.Inc()
	s.logger.Info("Order created",
		zap.Int64("order_id", order.ID),
		zap.Int64("customer_id", order.CustomerID),
		zap.Int("items", len(order.Items)),
		zap.String("total", order.TotalAmount.String()))

	return ToOrderResponse(order), nil
}

// UpdateOrder applies a partial update. When Items is supplied it replaces
// the whole item set and stock moves by the per-product difference.
func (s *OrderService) UpdateOrder(ctx context.Context, orderID int64, req *UpdateOrderRequest) (*OrderResponse, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.UpdateOrder")
	defer span.End()

	if err := validateUpdate(req); err != nil {
		s.recordFailure("update", err)
		return nil, err
	}

	var order *models.Order
	err := s.tx.run(ctx, func(tx *Tx) error {
		var err error
		order, err = tx.GetOrder(ctx, orderID)
		if err != nil {
			return err
		}

		if req.CustomerID != nil {
			order.CustomerID = *req.CustomerID
		}
		if req.Description != nil {
			order.Description = *req.Description
		}
		if req.Status != nil {
			order.Status = *req.Status
		}

		replace := req.Items != nil
		if replace {
			if err := s.replaceItems(ctx, tx, order, *req.Items); err != nil {
				return err
			}
		}
		order.RecomputeTotal()

		if err := tx.UpdateOrder(ctx, order, replace); err != nil {
			return err
		}
		tx.EvictAfterCommit(OrderKey(orderID))
		tx.AfterCommit(func() { s.events.PublishOrderChanged(order) })
		return nil
	})
	if err != nil {
		util.RecordError(span, err)
		s.recordFailure("update", err)
		return nil, fmt.Errorf("failed to update order %d: %w", orderID, err)
	}

	util.OrdersUpdatedTotal.Inc()
	s.logger.Info("Order updated",
		zap.Int64("order_id", order.ID),
		zap.Bool("items_replaced", req.Items != nil),
		zap.String("total", order.TotalAmount.String()))

	return ToOrderResponse(order), nil
}

type stockDelta struct {
	productID int64
	quantity  int
}

// replaceItems moves stock from the order's current items to requested and
// swaps the item set. Deltas are computed once over the union of product ids:
// restorations run first, then consumptions, each in ascending product id
// order. Products whose quantity is unchanged are not touched.
func (s *OrderService) replaceItems(ctx context.Context, tx *Tx, order *models.Order, requested []OrderItemRequest) error {
	oldQty := order.QuantitiesByProduct()
	newQty := make(map[int64]int, len(requested))
	for _, it := range requested {
		newQty[it.ProductID] += it.Quantity
	}

	ids := make([]int64, 0, len(oldQty)+len(newQty))
	for id := range oldQty {
		ids = append(ids, id)
	}
	for id := range newQty {
		if _, ok := oldQty[id]; !ok {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var restore, consume []stockDelta
	for _, id := range ids {
		switch d := newQty[id] - oldQty[id]; {
		case d < 0:
			restore = append(restore, stockDelta{id, -d})
		case d > 0:
			consume = append(consume, stockDelta{id, d})
		}
	}

	for _, d := range restore {
		if _, err := s.ledger.Increment(ctx, tx, d.productID, d.quantity); err != nil {
			if errors.Is(err, ordererrors.ErrNotFound) {
				s.logger.Warn("Skipping stock restore for missing product",
					zap.Int64("order_id", order.ID),
					zap.Int64("product_id", d.productID))
				continue
			}
			return err
		}
	}

	locked := make(map[int64]*models.Product, len(consume))
	for _, d := range consume {
		product, err := s.ledger.Decrement(ctx, tx, d.productID, d.quantity)
		if err != nil {
			return err
		}
		locked[d.productID] = product
	}

	// Products already on the order keep the price they were bought at.
	snapshots := make(map[int64]*models.OrderItem, len(order.Items))
	for _, it := range order.Items {
		if _, ok := snapshots[it.ProductID]; !ok {
			snapshots[it.ProductID] = it
		}
	}

	items := make([]*models.OrderItem, 0, len(requested))
	for _, it := range requested {
		if prev, ok := snapshots[it.ProductID]; ok {
			items = append(items, &models.OrderItem{
				ProductID:          it.ProductID,
				Quantity:           it.Quantity,
				UnitPrice:          prev.UnitPrice,
				ProductName:        prev.ProductName,
				ProductDescription: prev.ProductDescription,
			})
			continue
		}
		items = append(items, newItem(locked[it.ProductID], it.Quantity))
	}
	order.ReplaceItems(items)
	return nil
}

// DeleteOrder restores the stock held by the order and removes it. Items
// whose product no longer exists are skipped.
func (s *OrderService) DeleteOrder(ctx context.Context, orderID int64) error {
	ctx, span := util.StartSpan(ctx, "OrderService.DeleteOrder")
	defer span.End()

	err := s.tx.run(ctx, func(tx *Tx) error {
		order, err := tx.GetOrder(ctx, orderID)
		if err != nil {
			return err
		}

		held := order.QuantitiesByProduct()
		ids := make([]int64, 0, len(held))
		for id := range held {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

		for _, id := range ids {
			if _, err := s.ledger.Increment(ctx, tx, id, held[id]); err != nil {
				if errors.Is(err, ordererrors.ErrNotFound) {
					s.logger.Warn("Skipping stock restore for missing product",
						zap.Int64("order_id", orderID),
						zap.Int64("product_id", id))
					continue
				}
				return err
			}
		}

		if err := tx.DeleteOrder(ctx, orderID); err != nil {
			return err
		}
		tx.EvictAfterCommit(OrderKey(orderID))
		tx.AfterCommit(func() { s.events.PublishOrderDeleted(orderID) })
		return nil
	})
	if err != nil {
		util.RecordError(span, err)
		s.recordFailure("delete", err)
		return fmt.Errorf("failed to delete order %d: %w", orderID, err)
	}

	util.OrdersDeletedTotal.Inc()
	s.logger.Info("Order deleted", zap.Int64("order_id", orderID))
	return nil
}

// GetOrder retrieves an order by ID, read-through cached
func (s *OrderService) GetOrder(ctx context.Context, orderID int64) (*OrderResponse, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.GetOrder")
	defer span.End()

	var cached OrderResponse
	if cacheGet(ctx, s.cache, s.logger, OrderKey(orderID), &cached) {
		return &cached, nil
	}

	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	resp := ToOrderResponse(order)
	cacheSet(ctx, s.cache, s.logger, OrderKey(orderID), resp)
	return resp, nil
}

func (s *OrderService) recordFailure(op string, err error) {
	util.OrdersFailedTotal.WithLabelValues(op, failureReason(err)).Inc()
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ordererrors.ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, ordererrors.ErrNotFound):
		return "not_found"
	case errors.Is(err, ordererrors.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, ordererrors.ErrConcurrencyConflict):
		return "conflict"
	case errors.Is(err, ordererrors.ErrConstraintViolation):
		return "constraint_violation"
	default:
		return "internal"
	}
}

func newItem(product *models.Product, quantity int) *models.OrderItem {
	return &models.OrderItem{
		ProductID:          product.ID,
		Quantity:           quantity,
		UnitPrice:          product.Price,
		ProductName:        product.Name,
		ProductDescription: product.Description,
	}
}

func validateCreate(req *CreateOrderRequest) error {
	if len(req.Items) == 0 {
		return fmt.Errorf("%w: an order needs at least one item", ordererrors.ErrInvalidRequest)
	}
	if err := validateItems(req.Items); err != nil {
		return err
	}
	return validateStatus(req.Status)
}

func validateUpdate(req *UpdateOrderRequest) error {
	if req.Items != nil {
		if err := validateItems(*req.Items); err != nil {
			return err
		}
	}
	return validateStatus(req.Status)
}

func validateItems(items []OrderItemRequest) error {
	for _, it := range items {
		if it.Quantity < 1 {
			return fmt.Errorf("%w: quantity for product %d must be at least 1, got %d",
				ordererrors.ErrInvalidRequest, it.ProductID, it.Quantity)
		}
	}
	return nil
}

func validateStatus(status *models.OrderStatus) error {
	if status != nil && !status.Valid() {
		return fmt.Errorf("%w: unknown order status %q", ordererrors.ErrInvalidRequest, *status)
	}
	return nil
}
