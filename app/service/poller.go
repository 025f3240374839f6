package service

import (
	"context"
	"time"

	"github.com/stagedoor-labs/kiosk-payments/app/entity"
	"github.com/stagedoor-labs/kiosk-payments/app/metrics"
)

const (
	PollOutcomeCompleted = "completed"
	PollOutcomeFailed    = "failed"
	PollOutcomeTimeout   = "timeout"
)

type PollResult struct {
	Outcome string
	Payment *entity.PaymentAttempt
}

// WaitForResult bridges the asynchronous gateway feedback to the
// synchronous kiosk flow: it re-reads the store on a fixed interval
// until the attempt turns terminal or the timeout lapses.
//
// A timeout is not a failure: the record stays pending and the webhook
// may still land later. Context cancellation (the user backing out of
// the payment screen) stops the loop without touching the store; only a
// gateway cancel or a feedback callback ever changes the status, so a
// cancelled-then-completed payment remains reconcilable by the manual
// check.
func (s *PaymentService) WaitForResult(ctx context.Context, transactionID string, interval, timeout time.Duration) (*PollResult, error) {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if timeout <= 0 {
		timeout = 3 * time.Minute
	}

	// First read up front: the webhook may have beaten the poll.
	if result, err := s.pollOnce(ctx, transactionID); err != nil || result != nil {
		return result, err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			payment, err := s.GetPayment(ctx, transactionID)
			if err != nil {
				return nil, err
			}
			metrics.PollOutcomes.WithLabelValues(PollOutcomeTimeout).Inc()
			return &PollResult{Outcome: PollOutcomeTimeout, Payment: payment}, nil
		case <-ticker.C:
			result, err := s.pollOnce(ctx, transactionID)
			if err != nil {
				return nil, err
			}
			if result != nil {
				return result, nil
			}
		}
	}
}

// pollOnce returns a result only for terminal states; nil means keep
// waiting. An unknown transaction id is an error immediately; the
// pending record is persisted before any poll starts, so its absence
// means "never created", not "not yet".
func (s *PaymentService) pollOnce(ctx context.Context, transactionID string) (*PollResult, error) {
	payment, err := s.GetPayment(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	switch payment.Status {
	case entity.PaymentStatusCompleted:
		if _, err := s.DispatchSideEffects(ctx, payment); err != nil {
			s.logger.WithError(err).WithField("transaction_id", transactionID).
				Error("Side-effect dispatch failed after completed poll")
		}
		metrics.PollOutcomes.WithLabelValues(PollOutcomeCompleted).Inc()
		return &PollResult{Outcome: PollOutcomeCompleted, Payment: payment}, nil
	case entity.PaymentStatusFailed:
		metrics.PollOutcomes.WithLabelValues(PollOutcomeFailed).Inc()
		return &PollResult{Outcome: PollOutcomeFailed, Payment: payment}, nil
	default:
		return nil, nil
	}
}
