package types

import (
	"errors"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

type CreatePaymentRequest struct {
	ItemName   string            `json:"item_name"`
	Amount     int64             `json:"amount"`
	PayerPhone string            `json:"payer_phone"`
	Memo       string            `json:"memo"`
	ReturnURL  string            `json:"return_url"`
	Metadata   map[string]string `json:"metadata"`
}

func NewCreatePaymentRequestFromContext(ctx echo.Context) (*CreatePaymentRequest, error) {
	var body CreatePaymentRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	body.ItemName = strings.TrimSpace(body.ItemName)
	body.PayerPhone = strings.TrimSpace(body.PayerPhone)
	body.Memo = strings.TrimSpace(body.Memo)
	body.ReturnURL = strings.TrimSpace(body.ReturnURL)
	if body.Metadata == nil {
		body.Metadata = map[string]string{}
	}

	return &body, nil
}

func (r *CreatePaymentRequest) Validate() error {
	if r.ItemName == "" {
		return errors.New("item_name is required")
	}
	if r.Amount <= 0 {
		return errors.New("amount must be > 0")
	}
	if r.PayerPhone == "" {
		return errors.New("payer_phone is required")
	}
	return nil
}

// GatewayCallbackRequest mirrors the form fields PayApp posts to the
// feedback URL. Raw keeps every field for the audit column; the named
// fields are the ones the state machine reads.
type GatewayCallbackRequest struct {
	TransactionID string
	State         string
	PayState      string
	Price         string
	ItemName      string
	Memo          string
	Var1          string
	Var2          string
	Raw           map[string]string
}

func NewGatewayCallbackRequestFromContext(ctx echo.Context) (*GatewayCallbackRequest, error) {
	params, err := ctx.FormParams()
	if err != nil {
		return nil, err
	}

	raw := make(map[string]string, len(params))
	for key := range params {
		raw[key] = params.Get(key)
	}

	req := &GatewayCallbackRequest{
		TransactionID: strings.TrimSpace(params.Get("mul_no")),
		State:         strings.TrimSpace(params.Get("state")),
		PayState:      strings.TrimSpace(params.Get("pay_state")),
		Price:         strings.TrimSpace(params.Get("price")),
		ItemName:      strings.TrimSpace(params.Get("goodname")),
		Memo:          strings.TrimSpace(params.Get("memo")),
		Var1:          strings.TrimSpace(params.Get("var1")),
		Var2:          strings.TrimSpace(params.Get("var2")),
		Raw:           raw,
	}
	if req.TransactionID == "" {
		req.TransactionID = strings.TrimSpace(params.Get("mulno"))
	}

	return req, nil
}

type TransactionRequest struct {
	TransactionID string
}

func NewTransactionRequestFromContext(ctx echo.Context) (*TransactionRequest, error) {
	id := strings.TrimSpace(ctx.Param("transaction_id"))
	if id == "" {
		return nil, errors.New("transaction_id is required")
	}
	return &TransactionRequest{TransactionID: id}, nil
}

type ListPaymentsRequest struct {
	Status string
	Limit  int32
	Offset int32
}

func NewListPaymentsRequestFromContext(ctx echo.Context) (*ListPaymentsRequest, error) {
	req := &ListPaymentsRequest{
		Status: strings.TrimSpace(ctx.QueryParam("status")),
		Limit:  100,
		Offset: 0,
	}

	if limitRaw := strings.TrimSpace(ctx.QueryParam("limit")); limitRaw != "" {
		limit, err := strconv.ParseInt(limitRaw, 10, 32)
		if err != nil {
			return nil, err
		}
		req.Limit = int32(limit)
	}
	if offsetRaw := strings.TrimSpace(ctx.QueryParam("offset")); offsetRaw != "" {
		offset, err := strconv.ParseInt(offsetRaw, 10, 32)
		if err != nil {
			return nil, err
		}
		req.Offset = int32(offset)
	}

	return req, nil
}

func (r *ListPaymentsRequest) Validate() error {
	if r.Limit <= 0 || r.Limit > 500 {
		return errors.New("limit must be between 1 and 500")
	}
	if r.Offset < 0 {
		return errors.New("offset must be >= 0")
	}
	switch r.Status {
	case "", "pending", "completed", "failed":
	default:
		return errors.New("invalid status")
	}
	return nil
}

type Payment struct {
	TransactionID string            `json:"transaction_id"`
	Amount        int64             `json:"amount"`
	ItemName      string            `json:"item_name"`
	PayerPhone    string            `json:"payer_phone"`
	Memo          string            `json:"memo,omitempty"`
	Status        string            `json:"status"`
	Source        string            `json:"source"`
	Metadata      map[string]string `json:"metadata"`
	ProcessedAt   string            `json:"processed_at,omitempty"`
	CreatedAt     string            `json:"created_at"`
	UpdatedAt     string            `json:"updated_at"`
}

type CreatePaymentResponse struct {
	TransactionID string `json:"transaction_id"`
	PayURL        string `json:"pay_url"`
}

type PaymentEnvelopeResponse struct {
	Payment *Payment `json:"payment"`
}

type ListPaymentsResponse struct {
	Payments []*Payment `json:"payments"`
}

type PollResultResponse struct {
	Outcome string   `json:"outcome"`
	Payment *Payment `json:"payment,omitempty"`
}

type CheckStatusResponse struct {
	Outcome    string   `json:"outcome"`
	Dispatched bool     `json:"dispatched"`
	Payment    *Payment `json:"payment,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type HealthResponse struct {
	Status string `json:"status"`
}
