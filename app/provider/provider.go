package provider

import "context"

type CreateInput struct {
	ShopName   string
	ItemName   string
	Amount     int64
	PayerPhone string
	Memo       string

	RedirectURL string
	FeedbackURL string

	Var1 string
	Var2 string
}

type CreateOutput struct {
	TransactionID string
	PayURL        string
}

// Gateway is the outbound payment-provider client. It never touches the
// payment store; persisting the resulting attempt is the caller's job.
type Gateway interface {
	CreatePayment(ctx context.Context, input *CreateInput) (*CreateOutput, error)
	CancelPayment(ctx context.Context, transactionID string) error
}
