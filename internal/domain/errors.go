package domain

import (
	"errors"
	"fmt"
)

// Kind names a failure class. The values double as Temporal application
// error types, so they must stay stable.
type Kind string

const (
	KindInvalidInput     Kind = "InvalidInput"
	KindNotFound         Kind = "NotFound"
	KindUpstream         Kind = "UpstreamError"
	KindNetwork          Kind = "NetworkError"
	KindRetriesExhausted Kind = "RetriesExhausted"
	KindUnknown          Kind = "Unknown"
)

// InvalidInputError is returned before any network call when the lookup
// arguments are unusable.
type InvalidInputError struct {
	Message string
}

func (e *InvalidInputError) Error() string {
	return e.Message
}

func NewInvalidInputError(message string) *InvalidInputError {
	return &InvalidInputError{Message: message}
}

// NotFoundError means the terminal has no record for the container.
type NotFoundError struct {
	ContainerID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("container %s not found", e.ContainerID)
}

func NewNotFoundError(containerID string) *NotFoundError {
	return &NotFoundError{ContainerID: containerID}
}

// UpstreamError is a non-2xx answer (other than 404) or an unreadable body
// from the terminal API.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("API error: %d - %s", e.StatusCode, e.Body)
}

func NewUpstreamError(statusCode int, body string) *UpstreamError {
	return &UpstreamError{StatusCode: statusCode, Body: body}
}

// NetworkError covers failures that happen before a status code is obtained.
type NetworkError struct {
	Err     error
	Timeout bool
}

func (e *NetworkError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("Network error: timeout: %v", e.Err)
	}
	return fmt.Sprintf("Network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

func NewNetworkError(err error, timeout bool) *NetworkError {
	return &NetworkError{Err: err, Timeout: timeout}
}

// RetriesExhaustedError wraps the last failure once the retry budget is spent.
type RetriesExhaustedError struct {
	Attempts int
	Last     error
}

func (e *RetriesExhaustedError) Error() string {
	if e.Attempts > 0 {
		return fmt.Sprintf("retries exhausted after %d attempts: %v", e.Attempts, e.Last)
	}
	return fmt.Sprintf("retries exhausted: %v", e.Last)
}

func (e *RetriesExhaustedError) Unwrap() error {
	return e.Last
}

func NewRetriesExhaustedError(attempts int, last error) *RetriesExhaustedError {
	return &RetriesExhaustedError{Attempts: attempts, Last: last}
}

// KindOf reports the kind of the innermost typed failure in err's chain, so a
// RetriesExhaustedError reports the kind of the error it wraps.
func KindOf(err error) Kind {
	var (
		invalid  *InvalidInputError
		notFound *NotFoundError
		upstream *UpstreamError
		network  *NetworkError
		spent    *RetriesExhaustedError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &invalid):
		return KindInvalidInput
	case errors.As(err, &notFound):
		return KindNotFound
	case errors.As(err, &upstream):
		return KindUpstream
	case errors.As(err, &network):
		return KindNetwork
	case errors.As(err, &spent):
		return KindRetriesExhausted
	}
	return KindUnknown
}

// IsRetryable reports whether another attempt could succeed.
func IsRetryable(err error) bool {
	var spent *RetriesExhaustedError
	if errors.As(err, &spent) {
		return false
	}
	switch KindOf(err) {
	case KindUpstream, KindNetwork:
		return true
	}
	return false
}

// IsExhausted reports whether err carries a RetriesExhaustedError.
func IsExhausted(err error) bool {
	var spent *RetriesExhaustedError
	return errors.As(err, &spent)
}
