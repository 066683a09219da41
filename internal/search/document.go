package search

import (
	"time"

	"order-inventory-service/internal/models"

	"github.com/shopspring/decimal"
)

// createdAtLayout is fixed width so lexicographic order equals time order.
const createdAtLayout = "2006-01-02T15:04:05.000000Z"

// OrderDocument is the indexed shape of an order
type OrderDocument struct {
	ID          int64          `json:"id"`
	CustomerID  int64          `json:"customerId"`
	Description string         `json:"description"`
	Status      string         `json:"status"`
	TotalAmount float64        `json:"totalAmount"`
	CreatedAt   string         `json:"createdAt"`
	UpdatedAt   string         `json:"updatedAt"`
	Items       []ItemDocument `json:"items"`
}

// ItemDocument is an order line inside an OrderDocument. Prices are kept as
// decimal strings so they survive the round trip exactly.
type ItemDocument struct {
	ID                 int64  `json:"id"`
	ProductID          int64  `json:"productId"`
	ProductName        string `json:"productName"`
	ProductDescription string `json:"productDescription"`
	Quantity           int    `json:"quantity"`
	UnitPrice          string `json:"unitPrice"`
}

// NewOrderDocument maps an order to its document
func NewOrderDocument(o *models.Order) OrderDocument {
	doc := OrderDocument{
		ID:          o.ID,
		CustomerID:  o.CustomerID,
		Description: o.Description,
		Status:      string(o.Status),
		TotalAmount: o.TotalAmount.InexactFloat64(),
		CreatedAt:   o.CreatedAt.UTC().Format(createdAtLayout),
		UpdatedAt:   o.UpdatedAt.UTC().Format(createdAtLayout),
		Items:       make([]ItemDocument, 0, len(o.Items)),
	}
	for _, it := range o.Items {
		doc.Items = append(doc.Items, ItemDocument{
			ID:                 it.ID,
			ProductID:          it.ProductID,
			ProductName:        it.ProductName,
			ProductDescription: it.ProductDescription,
			Quantity:           it.Quantity,
			UnitPrice:          it.UnitPrice.String(),
		})
	}
	return doc
}

// Order rebuilds an order from the document. The total is recomputed from
// the exact item prices.
func (d OrderDocument) Order() *models.Order {
	o := &models.Order{
		ID:          d.ID,
		CustomerID:  d.CustomerID,
		Description: d.Description,
		Status:      models.OrderStatus(d.Status),
		CreatedAt:   parseTime(d.CreatedAt),
		UpdatedAt:   parseTime(d.UpdatedAt),
		Items:       make([]*models.OrderItem, 0, len(d.Items)),
	}
	for _, it := range d.Items {
		price, err := decimal.NewFromString(it.UnitPrice)
		if err != nil {
			price = decimal.Zero
		}
		o.AddItem(&models.OrderItem{
			ID:                 it.ID,
			ProductID:          it.ProductID,
			Quantity:           it.Quantity,
			UnitPrice:          price,
			ProductName:        it.ProductName,
			ProductDescription: it.ProductDescription,
		})
	}
	o.RecomputeTotal()
	return o
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
