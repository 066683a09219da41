package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"order-inventory-service/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// OrderFilter is a dynamic order query. Zero values mean "no constraint",
// except IDs: a non-nil empty slice matches nothing.
type OrderFilter struct {
	CustomerID  *int64
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Text        string
	IDs         []int64
	SortBy      string
	Descending  bool
	Limit       int
	Offset      int
}

var sortColumns = map[string]string{
	"id":          "o.id",
	"createdAt":   "o.created_at",
	"updatedAt":   "o.updated_at",
	"totalAmount": "o.total_amount",
	"status":      "o.status",
	"customerId":  "o.customer_id",
}

// SortableField reports whether field may be used as OrderFilter.SortBy
func SortableField(field string) bool {
	_, ok := sortColumns[field]
	return ok
}

// SearchOrders returns one page of orders matching f and the total match count
func (q *Queries) SearchOrders(ctx context.Context, f OrderFilter) ([]*models.Order, int64, error) {
	var (
		where []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.CustomerID != nil {
		where = append(where, "o.customer_id = "+arg(*f.CustomerID))
	}
	if f.CreatedFrom != nil {
		where = append(where, "o.created_at >= "+arg(*f.CreatedFrom))
	}
	if f.CreatedTo != nil {
		where = append(where, "o.created_at <= "+arg(*f.CreatedTo))
	}
	if text := strings.TrimSpace(f.Text); text != "" {
		p := arg(containsPattern(text))
		where = append(where, fmt.Sprintf(`(o.description ILIKE %[1]s OR EXISTS (
			SELECT 1 FROM order_items oi JOIN products p ON p.id = oi.product_id
			WHERE oi.order_id = o.id AND (p.name ILIKE %[1]s OR p.description ILIKE %[1]s)))`, p))
	}
	if f.IDs != nil {
		where = append(where, "o.id = ANY("+arg(pq.Array(f.IDs))+")")
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int64
	if err := sqlx.GetContext(ctx, q.db, &total, "SELECT COUNT(*) FROM orders o"+clause, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", classify(err))
	}

	column, ok := sortColumns[f.SortBy]
	if !ok {
		column = sortColumns["createdAt"]
	}
	direction := "ASC"
	if f.Descending {
		direction = "DESC"
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}

	query := fmt.Sprintf("SELECT %s FROM orders o%s ORDER BY %s %s, o.id %s LIMIT %s OFFSET %s",
		orderColumns, clause, column, direction, direction, arg(limit), arg(f.Offset))

	orders := []*models.Order{}
	if err := sqlx.SelectContext(ctx, q.db, &orders, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to search orders: %w", classify(err))
	}
	if err := q.loadItems(ctx, orders); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}
