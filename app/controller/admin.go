package controller

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/stagedoor-labs/kiosk-payments/app/factory"
	"github.com/stagedoor-labs/kiosk-payments/app/service"
	"github.com/stagedoor-labs/kiosk-payments/app/types"
)

type AdminController struct {
	paymentService *service.PaymentService
	logger         logrus.FieldLogger
}

func NewAdminController(paymentService *service.PaymentService) *AdminController {
	return &AdminController{
		paymentService: paymentService,
		logger:         factory.NewModuleLogger("admin-controller"),
	}
}

// Reset wipes payments, bookings and events. Used between performance
// runs when the kiosk database starts from a clean slate.
func (c *AdminController) Reset(ctx echo.Context) error {
	if err := c.paymentService.ResetAll(ctx.Request().Context()); err != nil {
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Reset failed")
		return ctx.JSON(http.StatusInternalServerError, &types.ErrorResponse{Error: "internal server error"})
	}
	return ctx.JSON(http.StatusOK, &types.MessageResponse{Message: "All records deleted"})
}
