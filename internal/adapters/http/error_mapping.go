package httpadapter

import (
	"net/http"

	"github.com/kirillkom/writing-assistant/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	if apiErr, ok := domain.AsAPIError(err); ok {
		switch apiErr.Code {
		case domain.CodeRateLimited:
			return http.StatusTooManyRequests
		case domain.CodeUnauthorized:
			return http.StatusBadGateway
		case domain.CodeAborted:
			return http.StatusConflict
		case domain.CodeTimeout:
			return http.StatusGatewayTimeout
		}
		if apiErr.Retryable {
			return http.StatusServiceUnavailable
		}
		return http.StatusBadGateway
	}

	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case domain.IsKind(err, domain.ErrSessionNotFound), domain.IsKind(err, domain.ErrNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

type errorResponse struct {
	Error    string           `json:"error"`
	Provider *domain.APIError `json:"provider_error,omitempty"`
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeDomainError hides internal causes; provider failures expose only their
// user-safe message.
func writeDomainError(w http.ResponseWriter, err error) {
	status := mapErrorToHTTPStatus(err)
	resp := errorResponse{Error: http.StatusText(status)}
	if apiErr, ok := domain.AsAPIError(err); ok {
		resp.Error = apiErr.Message
		resp.Provider = apiErr
	} else if status < http.StatusInternalServerError {
		resp.Error = err.Error()
	}
	writeJSON(w, status, resp)
}
