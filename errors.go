package lnpos

import (
	"errors"
	"fmt"
)

// Configuration and flow errors
var (
	ErrNoAPIKey          = errors.New("lnpos: api key not configured")
	ErrEmptyCart         = errors.New("lnpos: cart is empty")
	ErrCheckoutActive    = errors.New("lnpos: checkout already in progress")
	ErrResumeUnavailable = errors.New("lnpos: invoice details no longer available")
)

// UpstreamError carries a non-success response from the payment processor.
// The message and code come from the processor's {data:{message, code}}
// envelope when present, the HTTP status text otherwise.
type UpstreamError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *UpstreamError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("lnpos: processor returned %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("lnpos: processor returned %d: %s", e.StatusCode, e.Message)
}

// NewUpstreamError creates an UpstreamError for a processor response.
func NewUpstreamError(statusCode int, message, code string) *UpstreamError {
	return &UpstreamError{StatusCode: statusCode, Message: message, Code: code}
}
