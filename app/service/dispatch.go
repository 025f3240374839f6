package service

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stagedoor-labs/kiosk-payments/app/entity"
	"github.com/stagedoor-labs/kiosk-payments/app/metrics"
	"github.com/stagedoor-labs/kiosk-payments/app/notify"
)

// DispatchSideEffects runs the non-reversible post-payment actions:
// booking persistence, event-feed notice, confirmation mail. The
// MarkProcessed claim decides a single winner; losers return (false, nil)
// and do nothing. Failures after the claim are logged and never unwind
// it; a processed payment with a missing mail beats a double booking.
func (s *PaymentService) DispatchSideEffects(ctx context.Context, payment *entity.PaymentAttempt) (bool, error) {
	if payment == nil || payment.Status != entity.PaymentStatusCompleted {
		metrics.DispatchOutcomes.WithLabelValues("skipped").Inc()
		return false, ErrInvalidStatus
	}

	now := time.Now().UTC()
	won, err := s.paymentRepo.MarkProcessed(ctx, payment.TransactionID, now)
	if err != nil {
		return false, err
	}
	if !won {
		metrics.DispatchOutcomes.WithLabelValues("lost").Inc()
		return false, nil
	}
	metrics.DispatchOutcomes.WithLabelValues("won").Inc()

	log := s.logger.WithField("transaction_id", payment.TransactionID)

	booking := s.persistBooking(ctx, payment, log)
	s.notifyCompleted(ctx, payment, booking, log)

	_ = s.eventRepo.Create(ctx, &entity.PaymentEvent{
		TransactionID: payment.TransactionID,
		EventType:     "side_effects_dispatched",
		NewStatus:     payment.Status,
		CreatedAt:     now,
	})

	return true, nil
}

func (s *PaymentService) persistBooking(ctx context.Context, payment *entity.PaymentAttempt, log logrus.FieldLogger) *entity.Booking {
	meta := payment.Metadata

	audience := &entity.Audience{
		Name:             meta["name"],
		Phone:            payment.PayerPhone,
		BusService:       meta["bus_service"] == "true",
		PrivacyAgreement: meta["privacy_agreement"] == "true",
	}
	if details := meta["bus_details"]; details != "" {
		audience.BusDetails = &details
	}
	if audience.Name == "" {
		audience.Name = "Unknown"
	}

	transactionID := payment.TransactionID
	booking := &entity.Booking{
		PropID:        parseInt64(meta["prop_id"]),
		PropName:      payment.ItemName,
		PaymentAmount: payment.Amount,
		TransactionID: &transactionID,
		BookingStatus: entity.BookingStatusConfirmed,
		Processed:     true,
	}
	if name := meta["prop_name"]; name != "" {
		booking.PropName = name
	}

	if err := s.bookingRepo.CreateWithAudience(ctx, audience, booking); err != nil {
		log.WithError(err).Error("Failed to persist booking for completed payment")
		return nil
	}

	return booking
}

func (s *PaymentService) notifyCompleted(ctx context.Context, payment *entity.PaymentAttempt, booking *entity.Booking, log logrus.FieldLogger) {
	meta := payment.Metadata

	notice := notify.PaymentNotice{
		ID:            uuid.NewString(),
		TransactionID: payment.TransactionID,
		PropID:        parseInt64(meta["prop_id"]),
		PropName:      payment.ItemName,
		FromCity:      meta["from_city"],
		FromCountry:   meta["from_country"],
		Amount:        payment.Amount,
		OccurredAt:    time.Now().UTC(),
	}
	if booking != nil {
		notice.PropName = booking.PropName
	}
	s.publisher.Publish(notice)

	if !s.email.Enabled() {
		return
	}

	attendees := int(parseInt64(meta["attendee_count"]))
	if attendees <= 0 {
		attendees = 1
	}
	confirmation := notify.BookingConfirmation{
		Name:          meta["name"],
		Phone:         payment.PayerPhone,
		PropName:      notice.PropName,
		AttendeeCount: attendees,
		TotalAmount:   payment.Amount,
		BusService:    meta["bus_service"] == "true",
	}
	if err := s.email.SendBookingConfirmation(ctx, confirmation); err != nil {
		log.WithError(err).Warn("Failed to send booking confirmation email")
	}
}

func parseInt64(v string) int64 {
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
