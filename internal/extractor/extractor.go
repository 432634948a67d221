// Package extractor turns a free-text question into a container lookup: a
// container id and one of the lookup intents.
package extractor

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/time/rate"

	"github.com/pnct-tools/container-query/internal/domain"
)

// Extraction is what a provider pulled out of a question. ContainerID and
// Intent are empty when the question did not yield them; Reply then holds any
// text the model answered with instead.
type Extraction struct {
	ContainerID string
	Intent      domain.Intent
	Reply       string
}

// Complete reports whether the extraction can drive a lookup.
func (e Extraction) Complete() bool {
	return e.ContainerID != "" && e.Intent != ""
}

type Extractor interface {
	Extract(ctx context.Context, question string) (Extraction, error)
}

// Narrator phrases a lookup outcome for the user. toolResult is the JSON
// object the query_container tool returned.
type Narrator interface {
	Narrate(ctx context.Context, question string, call Extraction, toolResult map[string]any) (string, error)
}

// QuotaExceededError means the model provider rejected the call for rate or
// quota reasons.
type QuotaExceededError struct {
	Provider string
	Err      error
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("%s quota exceeded: %v", e.Provider, e.Err)
}

func (e *QuotaExceededError) Unwrap() error {
	return e.Err
}

// looksLikeQuotaError matches provider messages for HTTP 429 and gRPC
// RESOURCE_EXHAUSTED.
func looksLikeQuotaError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "429") || strings.Contains(msg, "RESOURCE_EXHAUSTED")
}

// newLimiter builds the client-side throttle for model calls. A non-positive
// rps disables throttling.
func newLimiter(rps float64, burst int) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}
