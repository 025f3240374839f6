package controller

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/stagedoor-labs/kiosk-payments/app/factory"
	"github.com/stagedoor-labs/kiosk-payments/app/mapper"
	"github.com/stagedoor-labs/kiosk-payments/app/metrics"
	"github.com/stagedoor-labs/kiosk-payments/app/provider"
	"github.com/stagedoor-labs/kiosk-payments/app/service"
	"github.com/stagedoor-labs/kiosk-payments/app/types"
	"github.com/stagedoor-labs/kiosk-payments/config"
)

type PaymentController struct {
	paymentService *service.PaymentService
	paymentsCfg    config.PaymentsConfig
	logger         logrus.FieldLogger
}

func NewPaymentController(paymentService *service.PaymentService, paymentsCfg config.PaymentsConfig) *PaymentController {
	return &PaymentController{
		paymentService: paymentService,
		paymentsCfg:    paymentsCfg,
		logger:         factory.NewModuleLogger("payments-controller"),
	}
}

func (c *PaymentController) Health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, &types.HealthResponse{Status: "ok"})
}

func (c *PaymentController) CreatePayment(ctx echo.Context) error {
	req, err := types.NewCreatePaymentRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	item, payURL, err := c.paymentService.CreatePayment(ctx.Request().Context(), req)
	if err != nil {
		var rejection *provider.RejectionError
		switch {
		case errors.Is(err, service.ErrInvalidRequest):
			return c.writeError(ctx, http.StatusBadRequest, err.Error())
		case errors.As(err, &rejection):
			return c.writeError(ctx, http.StatusUnprocessableEntity, rejection.Message)
		case errors.Is(err, provider.ErrGatewayUnavailable), errors.Is(err, provider.ErrMalformedResponse):
			factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Create payment failed at gateway")
			return c.writeError(ctx, http.StatusBadGateway, "payment gateway unavailable")
		default:
			factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Create payment failed")
			return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	return ctx.JSON(http.StatusCreated, &types.CreatePaymentResponse{
		TransactionID: item.TransactionID,
		PayURL:        payURL,
	})
}

func (c *PaymentController) GetPayment(ctx echo.Context) error {
	req, err := types.NewTransactionRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	item, err := c.paymentService.GetPayment(ctx.Request().Context(), req.TransactionID)
	if err != nil {
		if errors.Is(err, service.ErrPaymentNotFound) {
			return c.writeError(ctx, http.StatusNotFound, "payment not found")
		}
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Get payment failed")
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}

	return ctx.JSON(http.StatusOK, &types.PaymentEnvelopeResponse{Payment: mapper.PaymentToResponse(item)})
}

func (c *PaymentController) ListPayments(ctx echo.Context) error {
	req, err := types.NewListPaymentsRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	items, err := c.paymentService.ListPayments(ctx.Request().Context(), req.Status, req.Limit, req.Offset)
	if err != nil {
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("List payments failed")
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}

	return ctx.JSON(http.StatusOK, &types.ListPaymentsResponse{Payments: mapper.PaymentsToResponse(items)})
}

func (c *PaymentController) ListUnprocessedCompleted(ctx echo.Context) error {
	items, err := c.paymentService.ListUnprocessedCompleted(ctx.Request().Context(), 500)
	if err != nil {
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("List unprocessed payments failed")
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}

	return ctx.JSON(http.StatusOK, &types.ListPaymentsResponse{Payments: mapper.PaymentsToResponse(items)})
}

func (c *PaymentController) CancelPayment(ctx echo.Context) error {
	req, err := types.NewTransactionRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	if err := c.paymentService.CancelPayment(ctx.Request().Context(), req.TransactionID); err != nil {
		var rejection *provider.RejectionError
		switch {
		case errors.Is(err, service.ErrPaymentNotFound):
			return c.writeError(ctx, http.StatusNotFound, "payment not found")
		case errors.Is(err, service.ErrInvalidStatus):
			return c.writeError(ctx, http.StatusConflict, "payment is already settled")
		case errors.As(err, &rejection):
			return c.writeError(ctx, http.StatusUnprocessableEntity, rejection.Message)
		case errors.Is(err, provider.ErrGatewayUnavailable), errors.Is(err, provider.ErrMalformedResponse):
			factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Cancel payment failed at gateway")
			return c.writeError(ctx, http.StatusBadGateway, "payment gateway unavailable")
		default:
			factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Cancel payment failed")
			return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	return ctx.JSON(http.StatusOK, &types.MessageResponse{Message: "Payment cancelled"})
}

// WaitForResult holds the connection open while the poller watches the
// store for the gateway feedback. The kiosk UI calls this right after
// opening the hosted payment page.
func (c *PaymentController) WaitForResult(ctx echo.Context) error {
	req, err := types.NewTransactionRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	result, err := c.paymentService.WaitForResult(
		ctx.Request().Context(),
		req.TransactionID,
		c.paymentsCfg.PollInterval,
		c.paymentsCfg.PollTimeout,
	)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPaymentNotFound):
			return c.writeError(ctx, http.StatusNotFound, "payment not found")
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			// Client went away; nothing to answer.
			return nil
		default:
			factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Wait for payment result failed")
			return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	return ctx.JSON(http.StatusOK, &types.PollResultResponse{
		Outcome: result.Outcome,
		Payment: mapper.PaymentToResponse(result.Payment),
	})
}

// CheckStatus is the manual reconciliation entry point: one immediate
// store read, with side-effect dispatch if the payment turned out
// completed while nobody was watching.
func (c *PaymentController) CheckStatus(ctx echo.Context) error {
	req, err := types.NewTransactionRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	result, dispatched, err := c.paymentService.CheckStatus(ctx.Request().Context(), req.TransactionID)
	if err != nil {
		if errors.Is(err, service.ErrPaymentNotFound) {
			return c.writeError(ctx, http.StatusNotFound, "payment not found")
		}
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Check payment status failed")
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}

	return ctx.JSON(http.StatusOK, &types.CheckStatusResponse{
		Outcome:    result.Outcome,
		Dispatched: dispatched,
		Payment:    mapper.PaymentToResponse(result.Payment),
	})
}

// HandleGatewayCallback receives the PayApp feedback POST. The gateway
// retries on anything other than a 200 "SUCCESS" body, so every path out
// of this handler answers exactly that; internal failures are logged and
// counted instead of surfaced.
func (c *PaymentController) HandleGatewayCallback(ctx echo.Context) error {
	req, err := types.NewGatewayCallbackRequestFromContext(ctx)
	if err != nil {
		metrics.CallbackFailures.Inc()
		factory.LoggerWithContext(c.logger, ctx).WithError(err).Error("Gateway callback unreadable")
		return ctx.String(http.StatusOK, "SUCCESS")
	}

	if err := c.paymentService.HandleGatewayCallback(ctx.Request().Context(), req); err != nil {
		metrics.CallbackFailures.Inc()
		factory.LoggerWithContext(c.logger, ctx).
			WithError(err).
			WithField("transaction_id", req.TransactionID).
			Error("Gateway callback processing failed")
	}

	return ctx.String(http.StatusOK, "SUCCESS")
}

func (c *PaymentController) writeError(ctx echo.Context, statusCode int, message string) error {
	return ctx.JSON(statusCode, &types.ErrorResponse{Error: message})
}
