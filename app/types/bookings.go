package types

import (
	"errors"
	"strings"

	"github.com/labstack/echo/v4"
)

type CreateBookingRequest struct {
	Name             string `json:"name"`
	Phone            string `json:"phone"`
	BusService       bool   `json:"bus_service"`
	BusDetails       string `json:"bus_details"`
	PrivacyAgreement bool   `json:"privacy_agreement"`
	PropID           int64  `json:"prop_id"`
	PropName         string `json:"prop_name"`
	PaymentAmount    int64  `json:"payment_amount"`
	TransactionID    string `json:"transaction_id"`
}

func NewCreateBookingRequestFromContext(ctx echo.Context) (*CreateBookingRequest, error) {
	var body CreateBookingRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	body.Name = strings.TrimSpace(body.Name)
	body.Phone = strings.TrimSpace(body.Phone)
	body.BusDetails = strings.TrimSpace(body.BusDetails)
	body.PropName = strings.TrimSpace(body.PropName)
	body.TransactionID = strings.TrimSpace(body.TransactionID)

	return &body, nil
}

func (r *CreateBookingRequest) Validate() error {
	if r.Name == "" {
		return errors.New("name is required")
	}
	if r.Phone == "" {
		return errors.New("phone is required")
	}
	if !r.PrivacyAgreement {
		return errors.New("privacy_agreement must be accepted")
	}
	return nil
}

type FindBookingsRequest struct {
	Phone string
	Name  string
}

func NewFindBookingsRequestFromContext(ctx echo.Context) (*FindBookingsRequest, error) {
	req := &FindBookingsRequest{
		Phone: strings.TrimSpace(ctx.QueryParam("phone")),
		Name:  strings.TrimSpace(ctx.QueryParam("name")),
	}
	if req.Phone == "" && req.Name == "" {
		return nil, errors.New("phone or name is required")
	}
	return req, nil
}
