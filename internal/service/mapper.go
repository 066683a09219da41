package service

import "order-inventory-service/internal/models"

// ToOrderResponse maps an order to a fresh response. A nil order maps to nil.
func ToOrderResponse(o *models.Order) *OrderResponse {
	if o == nil {
		return nil
	}
	resp := &OrderResponse{
		ID:          o.ID,
		CustomerID:  o.CustomerID,
		Description: o.Description,
		Status:      o.Status,
		TotalAmount: o.TotalAmount,
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
		Items:       make([]OrderItemResponse, 0, len(o.Items)),
	}
	for _, it := range o.Items {
		resp.Items = append(resp.Items, OrderItemResponse{
			ID:                 it.ID,
			ProductID:          it.ProductID,
			ProductName:        it.ProductName,
			ProductDescription: it.ProductDescription,
			Quantity:           it.Quantity,
			UnitPrice:          it.UnitPrice,
			SubtotalPrice:      it.Subtotal(),
		})
	}
	return resp
}

// ToOrderResponses maps a slice of orders
func ToOrderResponses(orders []*models.Order) []*OrderResponse {
	out := make([]*OrderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, ToOrderResponse(o))
	}
	return out
}

// ToProductResponse maps a product to a fresh response. A nil product maps to nil.
func ToProductResponse(p *models.Product) *ProductResponse {
	if p == nil {
		return nil
	}
	return &ProductResponse{
		ID:            p.ID,
		Name:          p.Name,
		Description:   p.Description,
		Price:         p.Price,
		StockQuantity: p.StockQuantity,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

// ToProductResponses maps a slice of products
func ToProductResponses(products []models.Product) []*ProductResponse {
	out := make([]*ProductResponse, 0, len(products))
	for i := range products {
		out = append(out, ToProductResponse(&products[i]))
	}
	return out
}
