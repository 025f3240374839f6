package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

type PayAppConfig struct {
	APIURL      string
	UserID      string
	LinkKey     string
	LinkValue   string
	HTTPTimeout time.Duration
}

// PayAppClient talks to the PayApp open API. Requests and responses are
// both flat application/x-www-form-urlencoded key/value sets; there is no
// JSON envelope to lean on, so parsing tolerates missing optional fields
// and treats an absent "state" field as a hard error.
type PayAppClient struct {
	cfg    PayAppConfig
	client *http.Client
}

func NewPayAppClient(cfg PayAppConfig) *PayAppClient {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if strings.TrimSpace(cfg.APIURL) == "" {
		cfg.APIURL = "https://api.payapp.kr/oapi/apiLoad.html"
	}

	return &PayAppClient{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

func (p *PayAppClient) CreatePayment(ctx context.Context, input *CreateInput) (*CreateOutput, error) {
	if err := p.checkCredentials(); err != nil {
		return nil, err
	}
	if input.Amount <= 0 {
		return nil, errors.New("amount must be > 0")
	}
	if strings.TrimSpace(input.PayerPhone) == "" {
		return nil, errors.New("payer phone is required")
	}
	if strings.TrimSpace(input.FeedbackURL) == "" || strings.TrimSpace(input.RedirectURL) == "" {
		return nil, errors.New("feedback and redirect urls are required")
	}

	values := p.baseValues("payrequest")
	values.Set("shopname", input.ShopName)
	values.Set("goodname", input.ItemName)
	values.Set("price", strconv.FormatInt(input.Amount, 10))
	values.Set("recvphone", input.PayerPhone)
	values.Set("memo", input.Memo)
	values.Set("redirecturl", input.RedirectURL)
	values.Set("redirect", "opener")
	values.Set("feedbackurl", input.FeedbackURL)
	values.Set("reqaddr", "0")
	values.Set("vccode", "82")
	values.Set("checkretry", "n")
	values.Set("var1", input.Var1)
	values.Set("var2", input.Var2)

	params, err := p.postForm(ctx, values)
	if err != nil {
		return nil, err
	}

	transactionID := strings.TrimSpace(params.Get("mul_no"))
	payURL := strings.TrimSpace(params.Get("payurl"))
	if transactionID == "" || payURL == "" {
		return nil, fmt.Errorf("%w: mul_no or payurl missing", ErrMalformedResponse)
	}

	return &CreateOutput{
		TransactionID: transactionID,
		PayURL:        payURL,
	}, nil
}

func (p *PayAppClient) CancelPayment(ctx context.Context, transactionID string) error {
	if err := p.checkCredentials(); err != nil {
		return err
	}
	if strings.TrimSpace(transactionID) == "" {
		return errors.New("transaction id is required")
	}

	values := p.baseValues("paycancel")
	values.Set("mul_no", transactionID)

	_, err := p.postForm(ctx, values)
	return err
}

func (p *PayAppClient) baseValues(cmd string) url.Values {
	values := url.Values{}
	values.Set("cmd", cmd)
	values.Set("userid", p.cfg.UserID)
	values.Set("linkkey", p.cfg.LinkKey)
	values.Set("linkvalue", p.cfg.LinkValue)
	return values
}

func (p *PayAppClient) checkCredentials() error {
	if strings.TrimSpace(p.cfg.UserID) == "" || strings.TrimSpace(p.cfg.LinkKey) == "" || strings.TrimSpace(p.cfg.LinkValue) == "" {
		return errors.New("payapp credentials are not configured")
	}
	return nil
}

// postForm sends the request and parses the flat urlencoded response,
// returning the parameter set only when the gateway reports success.
func (p *PayAppClient) postForm(ctx context.Context, values url.Values) (url.Values, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.APIURL, strings.NewReader(values.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrGatewayUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status=%d", ErrGatewayUnavailable, resp.StatusCode)
	}

	params, err := url.ParseQuery(strings.TrimSpace(string(body)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	// state=1 is success, state=0 failure. No state at all means the
	// response is not a PayApp reply.
	if !params.Has("state") {
		return nil, fmt.Errorf("%w: state field missing", ErrMalformedResponse)
	}
	if params.Get("state") != "1" {
		return nil, &RejectionError{
			Code:    strings.TrimSpace(params.Get("errorCode")),
			Message: strings.TrimSpace(params.Get("errorMessage")),
		}
	}

	return params, nil
}
