package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is the aggregate root. It exclusively owns its items.
type Order struct {
	ID          int64           `db:"id" json:"id"`
	CustomerID  int64           `db:"customer_id" json:"customer_id"`
	Description string          `db:"description" json:"description"`
	Status      OrderStatus     `db:"status" json:"status"`
	TotalAmount decimal.Decimal `db:"total_amount" json:"total_amount"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
	Items       []*OrderItem    `db:"-" json:"items"`
}

// OrderItem is a line of an order. OrderID is a back-reference only;
// ProductName and ProductDescription are read-side joins and are not persisted.
type OrderItem struct {
	ID                 int64           `db:"id" json:"id"`
	OrderID            int64           `db:"order_id" json:"order_id"`
	ProductID          int64           `db:"product_id" json:"product_id"`
	Quantity           int             `db:"quantity" json:"quantity"`
	UnitPrice          decimal.Decimal `db:"unit_price" json:"unit_price"`
	ProductName        string          `db:"product_name" json:"product_name"`
	ProductDescription string          `db:"product_description" json:"product_description"`
}

// Subtotal returns quantity × unit price.
func (i *OrderItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// AddItem appends item and points it back at the order.
// The total is not recomputed.
func (o *Order) AddItem(item *OrderItem) {
	item.OrderID = o.ID
	o.Items = append(o.Items, item)
}

// RemoveItem removes item (by identity) and clears its back-reference.
// It reports whether the item belonged to the order.
func (o *Order) RemoveItem(item *OrderItem) bool {
	for i, it := range o.Items {
		if it == item {
			o.Items = append(o.Items[:i], o.Items[i+1:]...)
			item.OrderID = 0
			return true
		}
	}
	return false
}

// ReplaceItems drops every current item and adopts items.
func (o *Order) ReplaceItems(items []*OrderItem) {
	for _, it := range o.Items {
		it.OrderID = 0
	}
	o.Items = make([]*OrderItem, 0, len(items))
	for _, it := range items {
		o.AddItem(it)
	}
}

// RecomputeTotal sets TotalAmount to the sum of the item subtotals.
func (o *Order) RecomputeTotal() {
	total := decimal.Zero
	for _, it := range o.Items {
		total = total.Add(it.Subtotal())
	}
	o.TotalAmount = total
}

// QuantitiesByProduct sums item quantities per product id.
func (o *Order) QuantitiesByProduct() map[int64]int {
	return SumQuantities(o.Items)
}

// SumQuantities sums quantities per product id, skipping items without a product.
func SumQuantities(items []*OrderItem) map[int64]int {
	res := make(map[int64]int, len(items))
	for _, it := range items {
		if it.ProductID == 0 {
			continue
		}
		res[it.ProductID] += it.Quantity
	}
	return res
}
