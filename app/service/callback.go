package service

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/stagedoor-labs/kiosk-payments/app/entity"
	"github.com/stagedoor-labs/kiosk-payments/app/metrics"
	"github.com/stagedoor-labs/kiosk-payments/app/types"
)

// payStateCompleted is the feedback field value PayApp sends for a
// settled payment. The request-level "state" flag only reports whether
// the API call itself succeeded, so it is ignored here.
const payStateCompleted = "4"

// HandleGatewayCallback records the asynchronous feedback result. It only
// ever writes the store; side effects stay behind the poller and the
// manual check, both gated by MarkProcessed. The HTTP layer acknowledges
// the gateway no matter what this returns.
func (s *PaymentService) HandleGatewayCallback(ctx context.Context, req *types.GatewayCallbackRequest) error {
	transactionID := strings.TrimSpace(req.TransactionID)
	if transactionID == "" {
		return ErrInvalidRequest
	}

	status := entity.PaymentStatusFailed
	if req.PayState == payStateCompleted {
		status = entity.PaymentStatusCompleted
	}

	existing, err := s.paymentRepo.FindByTransactionID(ctx, transactionID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	rawPayload := ""
	if payload, err := json.Marshal(req.Raw); err == nil {
		rawPayload = string(payload)
	}

	payment := &entity.PaymentAttempt{
		TransactionID: transactionID,
		Status:        status,
		Source:        entity.PaymentSourceWebhook,
		RawResponse:   rawPayload,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	var oldStatus *string
	if existing != nil {
		payment.ID = existing.ID
		payment.Amount = existing.Amount
		payment.ItemName = existing.ItemName
		payment.PayerPhone = existing.PayerPhone
		payment.Memo = existing.Memo
		payment.Metadata = existing.Metadata
		payment.CreatedAt = existing.CreatedAt
		old := existing.Status
		oldStatus = &old
	} else {
		// A callback can race the create-side persist or arrive for a
		// transaction issued before a restart. Keep whatever the
		// gateway echoed so the record is still reconcilable.
		payment.ItemName = strings.TrimSpace(req.ItemName)
		if price, err := strconv.ParseInt(strings.TrimSpace(req.Price), 10, 64); err == nil {
			payment.Amount = price
		}
		payment.Memo = strings.TrimSpace(req.Memo)
		payment.Metadata = map[string]string{}
	}

	duplicate := existing != nil && existing.Terminal()

	// The upsert's conflict guard keeps terminal statuses frozen, so a
	// duplicate delivery degenerates to a timestamp touch.
	if err := s.paymentRepo.Upsert(ctx, payment); err != nil {
		return err
	}

	result := status
	if duplicate {
		result = "duplicate"
	}
	metrics.CallbacksReceived.WithLabelValues(result).Inc()

	if duplicate {
		s.logger.WithField("transaction_id", transactionID).
			Info("Duplicate gateway callback ignored")
		return nil
	}

	_ = s.eventRepo.Create(ctx, &entity.PaymentEvent{
		TransactionID: transactionID,
		EventType:     "gateway_feedback",
		OldStatus:     oldStatus,
		NewStatus:     status,
		PayloadJSON:   &rawPayload,
		CreatedAt:     now,
	})

	return nil
}
