package entity

import "time"

type PaymentEvent struct {
	ID uint64

	TransactionID string

	EventType string

	OldStatus *string
	NewStatus string

	PayloadJSON *string

	CreatedAt time.Time
}
