package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product represents a product and its available stock
type Product struct {
	ID            int64           `db:"id" json:"id"`
	Name          string          `db:"name" json:"name"`
	Description   string          `db:"description" json:"description"`
	Price         decimal.Decimal `db:"price" json:"price"`
	StockQuantity int             `db:"stock" json:"stock_quantity"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}

// OrderStatus is an open enumeration: any status may follow any other.
type OrderStatus string

// Order statuses
const (
	OrderStatusCreated    OrderStatus = "CREATED"
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusConfirmed  OrderStatus = "CONFIRMED"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusShipped    OrderStatus = "SHIPPED"
	OrderStatusDelivered  OrderStatus = "DELIVERED"
	OrderStatusCompleted  OrderStatus = "COMPLETED"
	OrderStatusCanceled   OrderStatus = "CANCELED"
	OrderStatusReturned   OrderStatus = "RETURNED"
	OrderStatusRefunded   OrderStatus = "REFUNDED"
	OrderStatusFailed     OrderStatus = "FAILED"
)

var orderStatuses = map[OrderStatus]struct{}{
	OrderStatusCreated:    {},
	OrderStatusPending:    {},
	OrderStatusConfirmed:  {},
	OrderStatusProcessing: {},
	OrderStatusShipped:    {},
	OrderStatusDelivered:  {},
	OrderStatusCompleted:  {},
	OrderStatusCanceled:   {},
	OrderStatusReturned:   {},
	OrderStatusRefunded:   {},
	OrderStatusFailed:     {},
}

// Valid reports whether s is a known status. It says nothing about transitions.
func (s OrderStatus) Valid() bool {
	_, ok := orderStatuses[s]
	return ok
}
