package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"testing"

	"github.com/kirillkom/writing-assistant/internal/core/domain"
	"github.com/kirillkom/writing-assistant/internal/infrastructure/resilience"
)

func TestClassifyError(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		code      domain.APIErrorCode
		retryable bool
		status    int
	}{
		{
			name:      "rate limited",
			err:       &HTTPStatusError{Provider: "openai", Operation: "chat", StatusCode: http.StatusTooManyRequests},
			code:      domain.CodeRateLimited,
			retryable: true,
			status:    http.StatusTooManyRequests,
		},
		{
			name:      "server error",
			err:       fmt.Errorf("wrapped: %w", &HTTPStatusError{StatusCode: http.StatusBadGateway}),
			code:      domain.CodeServerError,
			retryable: true,
			status:    http.StatusBadGateway,
		},
		{
			name:   "unauthorized",
			err:    &HTTPStatusError{StatusCode: http.StatusUnauthorized},
			code:   domain.CodeUnauthorized,
			status: http.StatusUnauthorized,
		},
		{
			name:   "forbidden",
			err:    &HTTPStatusError{StatusCode: http.StatusForbidden},
			code:   domain.CodeUnauthorized,
			status: http.StatusForbidden,
		},
		{
			name:   "bad request",
			err:    &HTTPStatusError{StatusCode: http.StatusBadRequest},
			code:   domain.CodeUnknown,
			status: http.StatusBadRequest,
		},
		{
			name:      "connection refused",
			err:       &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")},
			code:      domain.CodeNetwork,
			retryable: true,
		},
		{
			name:      "dns failure",
			err:       &net.DNSError{Err: "no such host", Name: "api.example.invalid"},
			code:      domain.CodeNetwork,
			retryable: true,
		},
		{
			name:      "attempt timeout",
			err:       fmt.Errorf("call: %w", resilience.ErrAttemptTimeout),
			code:      domain.CodeTimeout,
			retryable: true,
		},
		{
			name: "cancelled",
			err:  context.Canceled,
			code: domain.CodeAborted,
		},
		{
			name: "anything else",
			err:  errors.New("boom"),
			code: domain.CodeUnknown,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ClassifyError(tc.err)
			if got.Code != tc.code || got.Retryable != tc.retryable || got.HTTPStatus != tc.status {
				t.Fatalf("ClassifyError() = %+v, want code=%s retryable=%v status=%d", got, tc.code, tc.retryable, tc.status)
			}
			if got.Message == "" {
				t.Fatalf("expected user-facing message")
			}
			if !errors.Is(got, tc.err) {
				t.Fatalf("expected cause to stay in the error chain")
			}
		})
	}
}
