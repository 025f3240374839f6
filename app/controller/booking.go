package controller

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/stagedoor-labs/kiosk-payments/app/factory"
	"github.com/stagedoor-labs/kiosk-payments/app/repository"
	"github.com/stagedoor-labs/kiosk-payments/app/service"
	"github.com/stagedoor-labs/kiosk-payments/app/types"
)

type BookingController struct {
	bookingService *service.BookingService
	logger         logrus.FieldLogger
}

func NewBookingController(bookingService *service.BookingService) *BookingController {
	return &BookingController{
		bookingService: bookingService,
		logger:         factory.NewModuleLogger("bookings-controller"),
	}
}

func (c *BookingController) CreateBooking(ctx echo.Context) error {
	req, err := types.NewCreateBookingRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	audience, booking, err := c.bookingService.CreateBooking(ctx.Request().Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRequest) {
			return c.writeError(ctx, http.StatusBadRequest, err.Error())
		}
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Create booking failed")
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}

	return ctx.JSON(http.StatusCreated, map[string]any{
		"audience_id": audience.ID,
		"booking_id":  booking.ID,
	})
}

func (c *BookingController) FindBookings(ctx echo.Context) error {
	req, err := types.NewFindBookingsRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	items, err := c.bookingService.FindBookings(ctx.Request().Context(), req.Phone, req.Name)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRequest) {
			return c.writeError(ctx, http.StatusBadRequest, err.Error())
		}
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Find bookings failed")
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}

	if items == nil {
		items = []*repository.BookingWithAudience{}
	}
	return ctx.JSON(http.StatusOK, map[string]any{"bookings": items})
}

func (c *BookingController) writeError(ctx echo.Context, statusCode int, message string) error {
	return ctx.JSON(statusCode, &types.ErrorResponse{Error: message})
}
