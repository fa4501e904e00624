package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/kirillkom/writing-assistant/internal/core/domain"
)

// ErrAttemptTimeout marks an attempt abandoned after AttemptTimeout.
var ErrAttemptTimeout = errors.New("attempt timed out")

type attemptTimeoutError struct {
	timeout time.Duration
}

func (e *attemptTimeoutError) Error() string {
	return fmt.Sprintf("attempt timed out after %s", e.timeout)
}

func (e *attemptTimeoutError) Is(target error) bool {
	return target == ErrAttemptTimeout
}

// ErrorClassifier turns a failed attempt into the user-facing APIError whose
// Retryable flag drives the retry loop.
type ErrorClassifier func(err error) *domain.APIError

// ClassifyCommon handles failures that do not depend on the transport:
// caller cancellation, attempt timeouts and an open circuit.
func ClassifyCommon(err error) (*domain.APIError, bool) {
	switch {
	case err == nil:
		return nil, false
	case errors.Is(err, context.Canceled), errors.Is(err, domain.ErrAborted):
		return &domain.APIError{
			Code:      domain.CodeAborted,
			Message:   "The request was cancelled.",
			Retryable: false,
			Err:       err,
		}, true
	case errors.Is(err, ErrAttemptTimeout), errors.Is(err, context.DeadlineExceeded):
		return &domain.APIError{
			Code:      domain.CodeTimeout,
			Message:   "The writing service took too long to respond. Please try again.",
			Retryable: true,
			Err:       err,
		}, true
	case IsCircuitOpen(err):
		return &domain.APIError{
			Code:      domain.CodeCircuitOpen,
			Message:   "The writing service is temporarily unavailable. Please try again shortly.",
			Retryable: true,
			Err:       err,
		}, true
	default:
		return nil, false
	}
}

func IsCircuitOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

func defaultClassifier(err error) *domain.APIError {
	if apiErr, ok := ClassifyCommon(err); ok {
		return apiErr
	}
	return &domain.APIError{
		Code:      domain.CodeUnknown,
		Message:   "Something went wrong while contacting the writing service.",
		Retryable: false,
		Err:       err,
	}
}

func classify(classifier ErrorClassifier, err error) *domain.APIError {
	if apiErr, ok := domain.AsAPIError(err); ok {
		return apiErr
	}
	if apiErr := classifier(err); apiErr != nil {
		return apiErr
	}
	return defaultClassifier(err)
}
