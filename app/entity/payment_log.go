package entity

import "time"

// PaymentLog is an append-only record of an inbound provider event.
// Unprocessed rows are the replay input for the recovery sweep.
type PaymentLog struct {
	ID string

	EventType   string
	SessionID   *string
	PayloadJSON string

	Processed bool
	OrderID   *string

	CreatedAt   time.Time
	ProcessedAt *time.Time
}
