package service

import (
	"time"

	"order-inventory-service/internal/models"

	"github.com/shopspring/decimal"
)

// OrderItemRequest represents an item in an order
type OrderItemRequest struct {
	ProductID int64 `json:"product_id" binding:"required"`
	Quantity  int   `json:"quantity"`
}

// CreateOrderRequest represents a request to create an order
type CreateOrderRequest struct {
	CustomerID  int64               `json:"customer_id" binding:"required"`
	Description string              `json:"description"`
	Status      *models.OrderStatus `json:"status,omitempty"`
	Items       []OrderItemRequest  `json:"items" binding:"required,min=1,dive"`
}

// UpdateOrderRequest is a partial update. Nil fields are left as they are.
// Items distinguishes absent (nil) from empty (remove every item).
type UpdateOrderRequest struct {
	CustomerID  *int64              `json:"customer_id,omitempty"`
	Description *string             `json:"description,omitempty"`
	Status      *models.OrderStatus `json:"status,omitempty"`
	Items       *[]OrderItemRequest `json:"items,omitempty" binding:"omitempty,dive"`
}

// OrderItemResponse is the API view of an order item
type OrderItemResponse struct {
	ID                 int64           `json:"id"`
	ProductID          int64           `json:"product_id"`
	ProductName        string          `json:"product_name"`
	ProductDescription string          `json:"product_description"`
	Quantity           int             `json:"quantity"`
	UnitPrice          decimal.Decimal `json:"unit_price"`
	SubtotalPrice      decimal.Decimal `json:"subtotal_price"`
}

// OrderResponse is the API view of an order
type OrderResponse struct {
	ID          int64               `json:"id"`
	CustomerID  int64               `json:"customer_id"`
	Description string              `json:"description"`
	Status      models.OrderStatus  `json:"status"`
	TotalAmount decimal.Decimal     `json:"total_amount"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
	Items       []OrderItemResponse `json:"items"`
}

// OrderPage is one page of search results
type OrderPage struct {
	Content       []*OrderResponse `json:"content"`
	Page          int              `json:"page"`
	Size          int              `json:"size"`
	TotalElements int64            `json:"total_elements"`
	TotalPages    int              `json:"total_pages"`
}

// CreateProductRequest represents a request to create a product
type CreateProductRequest struct {
	Name          string           `json:"name" validate:"required,max=255"`
	Description   string           `json:"description"`
	Price         *decimal.Decimal `json:"price" validate:"required"`
	StockQuantity int              `json:"stock_quantity" validate:"gte=0"`
}

// UpdateProductRequest is a partial product update
type UpdateProductRequest struct {
	Name          *string          `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	Description   *string          `json:"description,omitempty"`
	Price         *decimal.Decimal `json:"price,omitempty"`
	StockQuantity *int             `json:"stock_quantity,omitempty" validate:"omitempty,gte=0"`
}

// ProductResponse is the API view of a product
type ProductResponse struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}
