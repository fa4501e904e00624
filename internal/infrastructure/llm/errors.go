// Package llm holds what the LLM transports share: the status error they
// return and the mapping from transport failures to user-facing API errors.
package llm

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"

	"github.com/kirillkom/writing-assistant/internal/core/domain"
	"github.com/kirillkom/writing-assistant/internal/infrastructure/resilience"
)

type HTTPStatusError struct {
	Provider   string
	Operation  string
	StatusCode int
	Status     string
	Body       string
	Err        error
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "llm status error"
	}
	if strings.TrimSpace(e.Body) == "" {
		return fmt.Sprintf("%s %s status: %s", e.Provider, e.Operation, e.Status)
	}
	return fmt.Sprintf("%s %s status: %s: %s", e.Provider, e.Operation, e.Status, strings.TrimSpace(e.Body))
}

func (e *HTTPStatusError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ClassifyError maps a provider failure to an APIError:
// 429 and 5xx are retryable, 401/403 are terminal, connection failures are
// retryable, and anything else is terminal.
func ClassifyError(err error) *domain.APIError {
	if err == nil {
		return nil
	}
	if apiErr, ok := resilience.ClassifyCommon(err); ok {
		return apiErr
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return classifyStatus(statusErr.StatusCode, err)
	}

	if isNetworkError(err) {
		return &domain.APIError{
			Code:      domain.CodeNetwork,
			Message:   "Could not reach the writing service. Check your connection and try again.",
			Retryable: true,
			Err:       err,
		}
	}

	return unknownError(0, err)
}

func classifyStatus(statusCode int, err error) *domain.APIError {
	switch {
	case statusCode == http.StatusTooManyRequests:
		return &domain.APIError{
			Code:       domain.CodeRateLimited,
			Message:    "Too many requests to the writing service. Please wait a moment and try again.",
			HTTPStatus: statusCode,
			Retryable:  true,
			Err:        err,
		}
	case statusCode >= http.StatusInternalServerError:
		return &domain.APIError{
			Code:       domain.CodeServerError,
			Message:    "The writing service is having trouble right now. Please try again.",
			HTTPStatus: statusCode,
			Retryable:  true,
			Err:        err,
		}
	case statusCode == http.StatusUnauthorized, statusCode == http.StatusForbidden:
		return &domain.APIError{
			Code:       domain.CodeUnauthorized,
			Message:    "Authentication with the writing service failed. Check the API key configuration.",
			HTTPStatus: statusCode,
			Retryable:  false,
			Err:        err,
		}
	default:
		return unknownError(statusCode, err)
	}
}

func unknownError(statusCode int, err error) *domain.APIError {
	return &domain.APIError{
		Code:       domain.CodeUnknown,
		Message:    "Something went wrong while generating suggestions.",
		HTTPStatus: statusCode,
		Retryable:  false,
		Err:        err,
	}
}

func isNetworkError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	return errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, io.ErrUnexpectedEOF)
}
