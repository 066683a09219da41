package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"order-inventory-service/internal/models"
	"order-inventory-service/internal/util"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EventWriter is the part of Producer the relay needs
type EventWriter interface {
	PublishEvent(ctx context.Context, key string, event interface{}) error
}

// IndexRelay forwards index events to Kafka instead of applying them locally.
// It satisfies indexer.Handler, so the in-process queue can drive it.
type IndexRelay struct {
	writer EventWriter
	logger *zap.Logger
}

// NewIndexRelay creates a relay writing through w
func NewIndexRelay(w EventWriter) *IndexRelay {
	return &IndexRelay{writer: w, logger: util.GetLogger().Named("index-relay")}
}

func orderKey(orderID int64) string {
	return fmt.Sprintf("order-%d", orderID)
}

func newBaseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now().UTC(),
	}
}

// IndexOrder publishes an ORDER_CHANGED event
func (r *IndexRelay) IndexOrder(ctx context.Context, order *models.Order) {
	event := &models.OrderChangedEvent{
		BaseEvent: newBaseEvent(models.EventTypeOrderChanged),
		Order:     order,
	}
	if err := r.writer.PublishEvent(ctx, orderKey(order.ID), event); err != nil {
		util.IndexOperationsFailed.WithLabelValues("relay").Inc()
		r.logger.Error("Failed to relay order change", zap.Int64("order_id", order.ID), zap.Error(err))
	}
}

// DeleteOrder publishes an ORDER_DELETED event
func (r *IndexRelay) DeleteOrder(ctx context.Context, orderID int64) {
	event := &models.OrderDeletedEvent{
		BaseEvent: newBaseEvent(models.EventTypeOrderDeleted),
		OrderID:   orderID,
	}
	if err := r.writer.PublishEvent(ctx, orderKey(orderID), event); err != nil {
		util.IndexOperationsFailed.WithLabelValues("relay").Inc()
		r.logger.Error("Failed to relay order delete", zap.Int64("order_id", orderID), zap.Error(err))
	}
}

// EventHandler routes consumed index events to registered callbacks
type EventHandler struct {
	onOrderChanged func(context.Context, *models.Order)
	onOrderDeleted func(context.Context, int64)
	logger         *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{logger: util.GetLogger().Named("index-events")}
}

// OnOrderChanged registers a handler for ORDER_CHANGED events
func (eh *EventHandler) OnOrderChanged(handler func(context.Context, *models.Order)) {
	eh.onOrderChanged = handler
}

// OnOrderDeleted registers a handler for ORDER_DELETED events
func (eh *EventHandler) OnOrderDeleted(handler func(context.Context, int64)) {
	eh.onOrderDeleted = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	eh.logger.Debug("Handling event",
		zap.String("type", baseEvent.EventType),
		zap.String("id", baseEvent.EventID))

	switch baseEvent.EventType {
	case models.EventTypeOrderChanged:
		if eh.onOrderChanged != nil {
			var event models.OrderChangedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal %s event: %w", baseEvent.EventType, err)
			}
			if event.Order == nil {
				return fmt.Errorf("%s event %s carries no order", baseEvent.EventType, baseEvent.EventID)
			}
			eh.onOrderChanged(ctx, event.Order)
		}

	case models.EventTypeOrderDeleted:
		if eh.onOrderDeleted != nil {
			var event models.OrderDeletedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal %s event: %w", baseEvent.EventType, err)
			}
			eh.onOrderDeleted(ctx, event.OrderID)
		}

	default:
		eh.logger.Warn("Unhandled event type", zap.String("type", baseEvent.EventType))
	}

	return nil
}
