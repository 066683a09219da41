package models

import "time"

// Event types
const (
	EventTypeOrderChanged = "ORDER_CHANGED"
	EventTypeOrderDeleted = "ORDER_DELETED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderChangedEvent published after an order create or update commits
type OrderChangedEvent struct {
	BaseEvent
	Order *Order `json:"order"`
}

// OrderDeletedEvent published after an order delete commits
type OrderDeletedEvent struct {
	BaseEvent
	OrderID int64 `json:"order_id"`
}
