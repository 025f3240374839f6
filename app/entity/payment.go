package entity

import "time"

const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
)

const (
	PaymentSourceWebhook     = "webhook"
	PaymentSourceManualCheck = "manual_check"
	PaymentSourceAPICall     = "api_call"
)

// PaymentAttempt is one payment request against the gateway, keyed by the
// gateway-issued transaction id. The row exists from the moment the gateway
// accepts the create request and is only removed by an administrative reset.
type PaymentAttempt struct {
	ID uint64

	TransactionID string

	Amount     int64
	ItemName   string
	PayerPhone string
	Memo       string

	Status string
	Source string

	// Metadata carries the booking context captured at create time
	// (attendee count, prop id, bus details) so the dispatcher can
	// persist the booking without a second round trip to the UI.
	Metadata map[string]string

	ProcessedAt *time.Time

	RawResponse string

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (p *PaymentAttempt) Terminal() bool {
	return p.Status == PaymentStatusCompleted || p.Status == PaymentStatusFailed
}

func (p *PaymentAttempt) Processed() bool {
	return p.ProcessedAt != nil
}
