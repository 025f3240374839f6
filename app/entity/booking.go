package entity

import "time"

const (
	BookingStatusConfirmed = "confirmed"
	BookingStatusCancelled = "cancelled"
	BookingStatusCompleted = "completed"
)

type Audience struct {
	ID uint64

	Name             string
	Phone            string
	BusService       bool
	BusDetails       *string
	PrivacyAgreement bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

type Booking struct {
	ID uint64

	AudienceID uint64

	PropID   int64
	PropName string

	PaymentAmount int64
	TransactionID *string

	BookingStatus string
	Processed     bool

	CreatedAt time.Time
	UpdatedAt time.Time
}
