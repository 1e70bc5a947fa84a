package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// ErrorType categorizes provider failures.
type ErrorType string

const (
	ErrorTypeAuth       ErrorType = "auth"
	ErrorTypeRateLimit  ErrorType = "rate_limit"
	ErrorTypeBadRequest ErrorType = "bad_request"
	ErrorTypeTimeout    ErrorType = "timeout"
	ErrorTypeUpstream   ErrorType = "upstream"
)

// Error is a structured provider error. Callers branch on Type via
// errors.As rather than matching message text.
type Error struct {
	Type       ErrorType
	Message    string
	StatusCode int
	RetryAfter time.Duration
	Retryable  bool
	Cause      error
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("llm: %s (%d): %s", e.Type, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("llm: %s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// IsRetryable reports whether the caller may reasonably retry.
func (e *Error) IsRetryable() bool {
	return e != nil && e.Retryable
}

// ClassifyError maps a raw provider error onto the taxonomy: 401 becomes
// auth, 429 rate limit, 400 bad request, I/O timeouts timeout, everything
// else upstream with the status code attached.
func ClassifyError(err error) *Error {
	if err == nil {
		return nil
	}

	var classified *Error
	if errors.As(err, &classified) {
		return classified
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Type: ErrorTypeTimeout, Message: "request timed out", Retryable: true, Cause: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{Type: ErrorTypeTimeout, Message: "request timed out", Retryable: true, Cause: err}
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return classifyStatus(apiErr.HTTPStatusCode, apiErr.Message, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return classifyStatus(reqErr.HTTPStatusCode, reqErr.Error(), err)
	}

	return &Error{Type: ErrorTypeUpstream, Message: err.Error(), Cause: err}
}

func classifyStatus(status int, message string, cause error) *Error {
	switch status {
	case http.StatusUnauthorized:
		return &Error{Type: ErrorTypeAuth, Message: "invalid API key", StatusCode: status, Cause: cause}
	case http.StatusTooManyRequests:
		return &Error{
			Type:       ErrorTypeRateLimit,
			Message:    "rate limit exceeded",
			StatusCode: status,
			RetryAfter: 30 * time.Second,
			Retryable:  true,
			Cause:      cause,
		}
	case http.StatusBadRequest:
		return &Error{Type: ErrorTypeBadRequest, Message: message, StatusCode: status, Cause: cause}
	default:
		return &Error{Type: ErrorTypeUpstream, Message: message, StatusCode: status, Retryable: status >= 500, Cause: cause}
	}
}
