package provider

import (
	"errors"
	"fmt"
)

var (
	// ErrGatewayUnavailable covers transport failures, timeouts, and
	// non-2xx replies from the gateway. The user may re-initiate the
	// payment; the client never retries on its own.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")

	// ErrMalformedResponse means the gateway answered but the response
	// was missing its status indicator. This is an integration bug, not
	// a business rejection.
	ErrMalformedResponse = errors.New("malformed gateway response")
)

// RejectionError is a well-formed gateway response that declined the
// request (bad credentials, uncancellable transaction, ...).
type RejectionError struct {
	Code    string
	Message string
}

func (e *RejectionError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("gateway rejected request: %s", e.Message)
	}
	return fmt.Sprintf("gateway rejected request: [%s] %s", e.Code, e.Message)
}
