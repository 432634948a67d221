package workflow

import (
	"context"
	"errors"
	"fmt"

	"go.temporal.io/sdk/temporal"

	"github.com/pnct-tools/container-query/internal/domain"
)

// EncodeError converts a typed lookup failure into a Temporal application
// error whose Type is the failure kind. InvalidInput and NotFound are marked
// non-retryable so the server never schedules another attempt for them.
func EncodeError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	var (
		invalid  *domain.InvalidInputError
		notFound *domain.NotFoundError
		upstream *domain.UpstreamError
		network  *domain.NetworkError
	)
	switch {
	case errors.As(err, &invalid):
		return temporal.NewNonRetryableApplicationError(invalid.Message, string(domain.KindInvalidInput), nil)
	case errors.As(err, &notFound):
		return temporal.NewNonRetryableApplicationError(notFound.Error(), string(domain.KindNotFound), nil, notFound.ContainerID)
	case errors.As(err, &upstream):
		return temporal.NewApplicationError(upstream.Error(), string(domain.KindUpstream), upstream.StatusCode, upstream.Body)
	case errors.As(err, &network):
		return temporal.NewApplicationError(network.Error(), string(domain.KindNetwork), network.Timeout, causeText(network.Err))
	}
	return temporal.NewNonRetryableApplicationError(err.Error(), string(domain.KindUnknown), nil)
}

// DecodeError rebuilds the domain error carried by a workflow or activity
// failure, so callers see the same taxonomy as with the in-process runner.
// Errors without a recognizable payload are returned unchanged.
func DecodeError(err error) error {
	if err == nil {
		return nil
	}

	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) {
		if decoded := decodeApplicationError(appErr); decoded != nil {
			return decoded
		}
		return err
	}

	var timeoutErr *temporal.TimeoutError
	if errors.As(err, &timeoutErr) {
		return domain.NewNetworkError(timeoutErr, true)
	}
	var canceledErr *temporal.CanceledError
	if errors.As(err, &canceledErr) {
		return fmt.Errorf("%w: %v", context.Canceled, err)
	}
	return err
}

func decodeApplicationError(appErr *temporal.ApplicationError) error {
	switch domain.Kind(appErr.Type()) {
	case domain.KindInvalidInput:
		return domain.NewInvalidInputError(appErr.Message())
	case domain.KindNotFound:
		var containerID string
		_ = appErr.Details(&containerID)
		return domain.NewNotFoundError(containerID)
	case domain.KindUpstream:
		var (
			status int
			body   string
		)
		_ = appErr.Details(&status, &body)
		return domain.NewUpstreamError(status, body)
	case domain.KindNetwork:
		var (
			timeout bool
			cause   string
		)
		_ = appErr.Details(&timeout, &cause)
		if cause == "" {
			cause = appErr.Message()
		}
		return domain.NewNetworkError(errors.New(cause), timeout)
	case domain.KindRetriesExhausted:
		var attempts int
		_ = appErr.Details(&attempts)
		return domain.NewRetriesExhaustedError(attempts, DecodeError(appErr.Unwrap()))
	}
	return nil
}

func causeText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
