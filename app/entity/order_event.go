package entity

import "time"

// OrderEvent is an append-only audit record of one lifecycle transition.
type OrderEvent struct {
	ID uint64

	OrderID   string
	EventType string

	OldStatus *OrderStatus
	NewStatus OrderStatus

	Detail *string

	CreatedAt time.Time
}
