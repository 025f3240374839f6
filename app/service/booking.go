package service

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/stagedoor-labs/kiosk-payments/app/entity"
	"github.com/stagedoor-labs/kiosk-payments/app/factory"
	"github.com/stagedoor-labs/kiosk-payments/app/repository"
	"github.com/stagedoor-labs/kiosk-payments/app/types"
)

type bookingQueryRepository interface {
	CreateWithAudience(ctx context.Context, audience *entity.Audience, booking *entity.Booking) error
	Find(ctx context.Context, q repository.BookingQuery) ([]*repository.BookingWithAudience, error)
}

type BookingService struct {
	bookingRepo bookingQueryRepository
	logger      logrus.FieldLogger
}

func NewBookingService(bookingRepo bookingQueryRepository) *BookingService {
	return &BookingService{
		bookingRepo: bookingRepo,
		logger:      factory.NewModuleLogger("bookings-service"),
	}
}

func (s *BookingService) CreateBooking(ctx context.Context, req *types.CreateBookingRequest) (*entity.Audience, *entity.Booking, error) {
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Phone) == "" || !req.PrivacyAgreement {
		return nil, nil, ErrInvalidRequest
	}

	audience := &entity.Audience{
		Name:             strings.TrimSpace(req.Name),
		Phone:            strings.TrimSpace(req.Phone),
		BusService:       req.BusService,
		PrivacyAgreement: req.PrivacyAgreement,
	}
	if details := strings.TrimSpace(req.BusDetails); details != "" {
		audience.BusDetails = &details
	}

	booking := &entity.Booking{
		PropID:        req.PropID,
		PropName:      strings.TrimSpace(req.PropName),
		PaymentAmount: req.PaymentAmount,
		BookingStatus: entity.BookingStatusConfirmed,
	}
	if booking.PropName == "" {
		booking.PropName = "Unknown"
	}
	if txn := strings.TrimSpace(req.TransactionID); txn != "" {
		booking.TransactionID = &txn
	}

	if err := s.bookingRepo.CreateWithAudience(ctx, audience, booking); err != nil {
		return nil, nil, err
	}

	return audience, booking, nil
}

func (s *BookingService) FindBookings(ctx context.Context, phone, name string) ([]*repository.BookingWithAudience, error) {
	if strings.TrimSpace(phone) == "" && strings.TrimSpace(name) == "" {
		return nil, ErrInvalidRequest
	}
	return s.bookingRepo.Find(ctx, repository.BookingQuery{Phone: phone, Name: name})
}
