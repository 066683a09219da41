package broker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"order-inventory-service/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	key   string
	value []byte
}

type fakeWriter struct {
	messages []published
	err      error
}

func (w *fakeWriter) PublishEvent(_ context.Context, key string, event interface{}) error {
	if w.err != nil {
		return w.err
	}
	b, err := json.Marshal(event)
	if err != nil {
		return err
	}
	w.messages = append(w.messages, published{key: key, value: b})
	return nil
}

func TestIndexRelayPublishesKeyedEvents(t *testing.T) {
	w := &fakeWriter{}
	relay := NewIndexRelay(w)
	ctx := context.Background()

	order := &models.Order{ID: 12, CustomerID: 4, Status: models.OrderStatusPending, TotalAmount: decimal.RequireFromString("9.50")}
	relay.IndexOrder(ctx, order)
	relay.DeleteOrder(ctx, 12)

	require.Len(t, w.messages, 2)
	assert.Equal(t, "order-12", w.messages[0].key)
	assert.Equal(t, "order-12", w.messages[1].key)

	var changed models.OrderChangedEvent
	require.NoError(t, json.Unmarshal(w.messages[0].value, &changed))
	assert.Equal(t, models.EventTypeOrderChanged, changed.EventType)
	assert.NotEmpty(t, changed.EventID)
	require.NotNil(t, changed.Order)
	assert.Equal(t, int64(4), changed.Order.CustomerID)
	assert.True(t, changed.Order.TotalAmount.Equal(order.TotalAmount))

	var deleted models.OrderDeletedEvent
	require.NoError(t, json.Unmarshal(w.messages[1].value, &deleted))
	assert.Equal(t, models.EventTypeOrderDeleted, deleted.EventType)
	assert.Equal(t, int64(12), deleted.OrderID)
	assert.NotEqual(t, changed.EventID, deleted.EventID)
}

func TestIndexRelaySwallowsWriteErrors(t *testing.T) {
	relay := NewIndexRelay(&fakeWriter{err: errors.New("broker down")})

	assert.NotPanics(t, func() {
		relay.IndexOrder(context.Background(), &models.Order{ID: 1})
		relay.DeleteOrder(context.Background(), 1)
	})
}

func TestHandleMessageRoutesByType(t *testing.T) {
	w := &fakeWriter{}
	relay := NewIndexRelay(w)
	relay.IndexOrder(context.Background(), &models.Order{ID: 3, Description: "desk"})
	relay.DeleteOrder(context.Background(), 8)

	var changed []*models.Order
	var deleted []int64
	h := NewEventHandler()
	h.OnOrderChanged(func(_ context.Context, o *models.Order) { changed = append(changed, o) })
	h.OnOrderDeleted(func(_ context.Context, id int64) { deleted = append(deleted, id) })

	for _, m := range w.messages {
		require.NoError(t, h.HandleMessage(context.Background(), kafka.Message{Key: []byte(m.key), Value: m.value}))
	}

	require.Len(t, changed, 1)
	assert.Equal(t, int64(3), changed[0].ID)
	assert.Equal(t, "desk", changed[0].Description)
	assert.Equal(t, []int64{8}, deleted)
}

func TestHandleMessageRejectsMalformedEvents(t *testing.T) {
	h := NewEventHandler()
	h.OnOrderChanged(func(context.Context, *models.Order) { t.Fatal("unexpected call") })

	err := h.HandleMessage(context.Background(), kafka.Message{Value: []byte("not json")})
	assert.Error(t, err)

	err = h.HandleMessage(context.Background(), kafka.Message{Value: []byte(`{"event_type":"ORDER_CHANGED","event_id":"x"}`)})
	assert.Error(t, err)

	err = h.HandleMessage(context.Background(), kafka.Message{Value: []byte(`{"event_type":"PAYMENT_SUCCESS"}`)})
	assert.NoError(t, err, "unknown types are skipped")
}
