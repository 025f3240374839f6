package service

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stagedoor-labs/kiosk-payments/app/entity"
	"github.com/stagedoor-labs/kiosk-payments/app/factory"
	"github.com/stagedoor-labs/kiosk-payments/app/metrics"
	"github.com/stagedoor-labs/kiosk-payments/app/notify"
	"github.com/stagedoor-labs/kiosk-payments/app/provider"
	"github.com/stagedoor-labs/kiosk-payments/app/types"
	"github.com/stagedoor-labs/kiosk-payments/config"
)

const defaultListLimit = int32(100)

type paymentRepository interface {
	Upsert(ctx context.Context, payment *entity.PaymentAttempt) error
	FindByTransactionID(ctx context.Context, transactionID string) (*entity.PaymentAttempt, error)
	MarkProcessed(ctx context.Context, transactionID string, now time.Time) (bool, error)
	ListPending(ctx context.Context, limit int32) ([]*entity.PaymentAttempt, error)
	ListUnprocessedCompleted(ctx context.Context, limit int32) ([]*entity.PaymentAttempt, error)
	List(ctx context.Context, status string, limit, offset int32) ([]*entity.PaymentAttempt, error)
	DeleteAll(ctx context.Context) error
}

type bookingRepository interface {
	CreateWithAudience(ctx context.Context, audience *entity.Audience, booking *entity.Booking) error
	FindByTransactionID(ctx context.Context, transactionID string) (*entity.Booking, error)
	Reset(ctx context.Context) error
}

type paymentEventRepository interface {
	Create(ctx context.Context, event *entity.PaymentEvent) error
	DeleteAll(ctx context.Context) error
}

type noticePublisher interface {
	Publish(notice notify.PaymentNotice)
}

type confirmationSender interface {
	Enabled() bool
	SendBookingConfirmation(ctx context.Context, c notify.BookingConfirmation) error
}

type PaymentService struct {
	paymentRepo paymentRepository
	bookingRepo bookingRepository
	eventRepo   paymentEventRepository
	gateway     provider.Gateway
	publisher   noticePublisher
	email       confirmationSender
	appCfg      config.AppConfig
	logger      logrus.FieldLogger
}

func NewPaymentService(
	paymentRepo paymentRepository,
	bookingRepo bookingRepository,
	eventRepo paymentEventRepository,
	gateway provider.Gateway,
	publisher noticePublisher,
	email confirmationSender,
	appCfg config.AppConfig,
) *PaymentService {
	return &PaymentService{
		paymentRepo: paymentRepo,
		bookingRepo: bookingRepo,
		eventRepo:   eventRepo,
		gateway:     gateway,
		publisher:   publisher,
		email:       email,
		appCfg:      appCfg,
		logger:      factory.NewModuleLogger("payments-service"),
	}
}

// CreatePayment asks the gateway for a new payment and persists the
// pending attempt. Nothing is written when the gateway call fails; the
// write happens immediately after the gateway hands out the transaction
// id, before the response goes back to the UI.
func (s *PaymentService) CreatePayment(ctx context.Context, req *types.CreatePaymentRequest) (*entity.PaymentAttempt, string, error) {
	if req.Amount <= 0 || strings.TrimSpace(req.PayerPhone) == "" {
		return nil, "", ErrInvalidRequest
	}

	base := strings.TrimRight(s.appCfg.PublicBaseURL, "/")
	redirectURL := strings.TrimSpace(req.ReturnURL)
	if redirectURL == "" {
		redirectURL = base + "/payments/return"
	}

	output, err := s.gateway.CreatePayment(ctx, &provider.CreateInput{
		ShopName:    s.appCfg.ShopName,
		ItemName:    strings.TrimSpace(req.ItemName),
		Amount:      req.Amount,
		PayerPhone:  strings.TrimSpace(req.PayerPhone),
		Memo:        strings.TrimSpace(req.Memo),
		RedirectURL: redirectURL,
		FeedbackURL: base + "/payments/callback",
		Var1:        req.Metadata["prop_id"],
		Var2:        req.Metadata["attendee_count"],
	})
	if err != nil {
		return nil, "", err
	}

	now := time.Now().UTC()
	payment := &entity.PaymentAttempt{
		TransactionID: output.TransactionID,
		Amount:        req.Amount,
		ItemName:      strings.TrimSpace(req.ItemName),
		PayerPhone:    strings.TrimSpace(req.PayerPhone),
		Memo:          strings.TrimSpace(req.Memo),
		Status:        entity.PaymentStatusPending,
		Source:        entity.PaymentSourceAPICall,
		Metadata:      cloneMetadata(req.Metadata),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.paymentRepo.Upsert(ctx, payment); err != nil {
		// The gateway already issued the id; losing this write would
		// orphan the transaction, so the id goes to the log before the
		// error goes to the UI.
		s.logger.WithError(err).WithField("transaction_id", output.TransactionID).
			Error("Failed to persist pending payment after gateway accept")
		return nil, "", err
	}

	metrics.PaymentsCreated.Inc()

	_ = s.eventRepo.Create(ctx, &entity.PaymentEvent{
		TransactionID: payment.TransactionID,
		EventType:     "payment_created",
		NewStatus:     payment.Status,
		CreatedAt:     now,
	})

	return payment, output.PayURL, nil
}

// CancelPayment asks the gateway to void the transaction. Only a gateway
// accept moves the stored record to failed; a rejection leaves the record
// untouched and surfaces to the caller.
func (s *PaymentService) CancelPayment(ctx context.Context, transactionID string) error {
	transactionID = strings.TrimSpace(transactionID)
	if transactionID == "" {
		return ErrInvalidRequest
	}

	payment, err := s.paymentRepo.FindByTransactionID(ctx, transactionID)
	if err != nil {
		return err
	}
	if payment == nil {
		return ErrPaymentNotFound
	}
	if payment.Terminal() {
		return ErrInvalidStatus
	}

	if err := s.gateway.CancelPayment(ctx, transactionID); err != nil {
		return err
	}

	now := time.Now().UTC()
	oldStatus := payment.Status
	payment.Status = entity.PaymentStatusFailed
	payment.Source = entity.PaymentSourceAPICall
	payment.UpdatedAt = now
	if err := s.paymentRepo.Upsert(ctx, payment); err != nil {
		return err
	}

	_ = s.eventRepo.Create(ctx, &entity.PaymentEvent{
		TransactionID: transactionID,
		EventType:     "payment_cancelled",
		OldStatus:     &oldStatus,
		NewStatus:     payment.Status,
		CreatedAt:     now,
	})

	return nil
}

// GetPayment distinguishes "never created" from "still pending": an
// unknown transaction id is ErrPaymentNotFound, never an empty record.
func (s *PaymentService) GetPayment(ctx context.Context, transactionID string) (*entity.PaymentAttempt, error) {
	payment, err := s.paymentRepo.FindByTransactionID(ctx, strings.TrimSpace(transactionID))
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}
	return payment, nil
}

func (s *PaymentService) ListPayments(ctx context.Context, status string, limit, offset int32) ([]*entity.PaymentAttempt, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	return s.paymentRepo.List(ctx, status, limit, offset)
}

func (s *PaymentService) ListUnprocessedCompleted(ctx context.Context, limit int32) ([]*entity.PaymentAttempt, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	return s.paymentRepo.ListUnprocessedCompleted(ctx, limit)
}

// ResetAll wipes every table. Admin-only; the single path that deletes
// payment rows.
func (s *PaymentService) ResetAll(ctx context.Context) error {
	if err := s.bookingRepo.Reset(ctx); err != nil {
		return err
	}
	if err := s.eventRepo.DeleteAll(ctx); err != nil {
		return err
	}
	return s.paymentRepo.DeleteAll(ctx)
}

func cloneMetadata(src map[string]string) map[string]string {
	if len(src) == 0 {
		return map[string]string{}
	}
	dst := make(map[string]string, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
