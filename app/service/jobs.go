package service

import (
	"context"
	"strings"

	"github.com/stagedoor-labs/kiosk-payments/app/entity"
)

const defaultBatchSize = int32(100)

// CheckStatus is the manual reconciliation fallback for payments whose
// poll was cancelled or timed out. It re-reads the store and, when the
// webhook did land, claims the side effects through the usual gate.
func (s *PaymentService) CheckStatus(ctx context.Context, transactionID string) (*PollResult, bool, error) {
	payment, err := s.GetPayment(ctx, strings.TrimSpace(transactionID))
	if err != nil {
		return nil, false, err
	}

	dispatched := false
	outcome := PollOutcomeTimeout
	switch {
	case payment.Status == entity.PaymentStatusCompleted:
		outcome = PollOutcomeCompleted
		if !payment.Processed() {
			dispatched, err = s.DispatchSideEffects(ctx, payment)
			if err != nil {
				s.logger.WithError(err).WithField("transaction_id", payment.TransactionID).
					Error("Side-effect dispatch failed during manual check")
				err = nil
			}
		}
	case payment.Status == entity.PaymentStatusFailed:
		outcome = PollOutcomeFailed
	}

	return &PollResult{Outcome: outcome, Payment: payment}, dispatched, err
}

// RunDispatchBatch sweeps completed-but-unprocessed payments and claims
// their side effects. Safe to run concurrently with live pollers and
// manual checks; the MarkProcessed gate dedupes.
func (s *PaymentService) RunDispatchBatch(ctx context.Context, batchSize int32) error {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	items, err := s.paymentRepo.ListUnprocessedCompleted(ctx, batchSize)
	if err != nil {
		return err
	}

	var firstErr error
	for _, payment := range items {
		if payment == nil {
			continue
		}
		if _, err := s.DispatchSideEffects(ctx, payment); err != nil {
			firstErr = keepFirstErr(firstErr, err)
		}
	}

	return firstErr
}

func keepFirstErr(current error, candidate error) error {
	if current != nil {
		return current
	}
	return candidate
}
