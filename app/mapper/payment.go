package mapper

import (
	"time"

	"github.com/stagedoor-labs/kiosk-payments/app/entity"
	"github.com/stagedoor-labs/kiosk-payments/app/types"
)

func PaymentToResponse(payment *entity.PaymentAttempt) *types.Payment {
	if payment == nil {
		return nil
	}

	resp := &types.Payment{
		TransactionID: payment.TransactionID,
		Amount:        payment.Amount,
		ItemName:      payment.ItemName,
		PayerPhone:    payment.PayerPhone,
		Memo:          payment.Memo,
		Status:        payment.Status,
		Source:        payment.Source,
		Metadata:      payment.Metadata,
		CreatedAt:     payment.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:     payment.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if resp.Metadata == nil {
		resp.Metadata = map[string]string{}
	}
	if payment.ProcessedAt != nil {
		resp.ProcessedAt = payment.ProcessedAt.UTC().Format(time.RFC3339)
	}

	return resp
}

func PaymentsToResponse(payments []*entity.PaymentAttempt) []*types.Payment {
	result := make([]*types.Payment, 0, len(payments))
	for _, payment := range payments {
		result = append(result, PaymentToResponse(payment))
	}
	return result
}
