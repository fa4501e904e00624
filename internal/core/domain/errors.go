package domain

import (
	"errors"
	"fmt"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrNotFound        = errors.New("not found")
	ErrInvalidInput    = errors.New("invalid input")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrTemporary       = errors.New("temporary failure")
	ErrAborted         = errors.New("request superseded")
	ErrParse           = errors.New("malformed provider response")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

type APIErrorCode string

const (
	CodeRateLimited  APIErrorCode = "rate_limited"
	CodeServerError  APIErrorCode = "server_error"
	CodeUnauthorized APIErrorCode = "unauthorized"
	CodeNetwork      APIErrorCode = "network_error"
	CodeTimeout      APIErrorCode = "timeout"
	CodeCircuitOpen  APIErrorCode = "circuit_open"
	CodeAborted      APIErrorCode = "aborted"
	CodeUnknown      APIErrorCode = "unknown"
)

// APIError is the user-facing form of a failed suggestion request. Message is
// safe to display; the underlying cause stays in Err.
type APIError struct {
	Code       APIErrorCode `json:"code"`
	Message    string       `json:"message"`
	HTTPStatus int          `json:"http_status,omitempty"`
	Retryable  bool         `json:"retryable"`
	Err        error        `json:"-"`
}

func (e *APIError) Error() string {
	if e == nil {
		return "api error"
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
}

func (e *APIError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is lets errors.Is match an APIError against the semantic kinds above.
func (e *APIError) Is(target error) bool {
	if e == nil {
		return false
	}
	switch target {
	case ErrUnauthorized:
		return e.Code == CodeUnauthorized
	case ErrAborted:
		return e.Code == CodeAborted
	case ErrTemporary:
		return e.Retryable
	default:
		return false
	}
}

func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
