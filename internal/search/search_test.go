package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"order-inventory-service/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderDocumentRoundTrip(t *testing.T) {
	created := time.Date(2024, 3, 9, 8, 7, 6, 5000, time.UTC)
	order := &models.Order{
		ID:          42,
		CustomerID:  7,
		Description: "birthday",
		Status:      models.OrderStatusShipped,
		CreatedAt:   created,
		UpdatedAt:   created.Add(time.Hour),
	}
	order.AddItem(&models.OrderItem{ID: 1, ProductID: 3, Quantity: 3, UnitPrice: decimal.RequireFromString("0.1111"), ProductName: "Pen"})
	order.RecomputeTotal()

	doc := NewOrderDocument(order)
	assert.Equal(t, "2024-03-09T08:07:06.000005Z", doc.CreatedAt)
	assert.InDelta(t, 0.3333, doc.TotalAmount, 1e-9)

	back := doc.Order()
	assert.Equal(t, order.ID, back.ID)
	assert.True(t, order.CreatedAt.Equal(back.CreatedAt))
	assert.True(t, order.TotalAmount.Equal(back.TotalAmount))
	require.Len(t, back.Items, 1)
	assert.Equal(t, int64(42), back.Items[0].OrderID)
	assert.Equal(t, "Pen", back.Items[0].ProductName)
}

func TestCreatedAtSortsLexicographically(t *testing.T) {
	early := NewOrderDocument(&models.Order{CreatedAt: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)})
	late := NewOrderDocument(&models.Order{CreatedAt: time.Date(2024, 1, 1, 10, 0, 0, 123, time.UTC)})

	assert.Less(t, early.CreatedAt, late.CreatedAt)
	assert.Len(t, late.CreatedAt, len(early.CreatedAt))
}

func TestMeiliEngineIndexExists(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/indexes/present" {
			_, _ = w.Write([]byte(`{"uid":"present","primaryKey":"id"}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Index not found","code":"index_not_found","type":"invalid_request","link":""}`))
	}))
	defer srv.Close()

	ok, err := NewMeiliEngine(srv.URL, "", "present").IndexExists(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = NewMeiliEngine(srv.URL, "", "missing").IndexExists(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMeiliEngineSearchIDs(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/indexes/orders/search", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"hits":[{"id":5},{"id":2}],"estimatedTotalHits":2,"limit":1000,"offset":0}`))
	}))
	defer srv.Close()

	ids, err := NewMeiliEngine(srv.URL, "", "orders").SearchIDs(context.Background(), "lamp", 1000)
	require.NoError(t, err)

	assert.Equal(t, []int64{5, 2}, ids)
	assert.Equal(t, "lamp", got["q"])
	assert.Equal(t, float64(1000), got["limit"])
}
