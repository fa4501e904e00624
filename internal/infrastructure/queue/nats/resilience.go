package nats

import (
	"errors"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/writing-assistant/internal/core/domain"
	"github.com/kirillkom/writing-assistant/internal/infrastructure/resilience"
)

func classifyNATSError(err error) *domain.APIError {
	if err == nil {
		return nil
	}
	if apiErr, ok := resilience.ClassifyCommon(err); ok {
		return apiErr
	}
	if errors.Is(err, nats.ErrNoServers) ||
		errors.Is(err, nats.ErrTimeout) ||
		errors.Is(err, nats.ErrConnectionClosed) ||
		errors.Is(err, nats.ErrDisconnected) {
		return &domain.APIError{
			Code:      domain.CodeNetwork,
			Message:   "The message broker is unreachable.",
			Retryable: true,
			Err:       err,
		}
	}

	return &domain.APIError{
		Code:      domain.CodeUnknown,
		Message:   "Publishing the snapshot event failed.",
		Retryable: false,
		Err:       err,
	}
}

func wrapTemporaryIfNeeded(err error) error {
	if err == nil {
		return nil
	}
	if domain.IsKind(err, domain.ErrTemporary) {
		return err
	}
	if classifyNATSError(err).Retryable || resilience.IsCircuitOpen(err) {
		return domain.WrapError(domain.ErrTemporary, "nats publish", err)
	}
	return err
}
