// Package agent answers natural-language container questions: it extracts a
// lookup from the question, runs it, and phrases the outcome.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/pnct-tools/container-query/internal/domain"
	"github.com/pnct-tools/container-query/internal/extractor"
)

const (
	ClarificationMessage = "I need a container ID to query. Please provide a container ID in your query."
	HighDemandMessage    = "I'm currently experiencing high demand from the AI service. Please wait a few moments and try again. The system is temporarily rate-limited."
)

// ErrRateLimited is reported when the model provider throttled the question.
var ErrRateLimited = errors.New("rate limit exceeded, please try again in a moment")

type lookupRunner interface {
	Lookup(ctx context.Context, containerID string, intent domain.Intent) (domain.LookupResult, error)
}

// Answer is the outcome of one question. Result is set only when the lookup
// succeeded; Err carries the failure that Text describes.
type Answer struct {
	ContainerID string
	Intent      domain.Intent
	Text        string
	Result      *domain.LookupResult
	Err         error
}

// Success reports whether the question was handled without error. A request
// for clarification is a success.
func (a Answer) Success() bool {
	return a.Err == nil
}

type Agent struct {
	extractor extractor.Extractor
	runner    lookupRunner
	narrator  extractor.Narrator
	logger    zerolog.Logger
}

// New builds an agent. narrator may be nil, in which case answers are always
// rendered deterministically.
func New(ex extractor.Extractor, runner lookupRunner, narrator extractor.Narrator, logger zerolog.Logger) *Agent {
	return &Agent{
		extractor: ex,
		runner:    runner,
		narrator:  narrator,
		logger:    logger.With().Str("component", "agent").Logger(),
	}
}

// Answer never returns a Go error: every failure is folded into the Answer so
// that callers can always show Text to the user.
func (a *Agent) Answer(ctx context.Context, question string) Answer {
	a.logger.Info().Str("query", question).Msg("Processing query")

	call, err := a.extractor.Extract(ctx, question)
	if err != nil {
		a.logger.Error().Err(err).Msg("Intent extraction failed")
		var quota *extractor.QuotaExceededError
		if errors.As(err, &quota) {
			return Answer{Text: HighDemandMessage, Err: fmt.Errorf("%w: %v", ErrRateLimited, err)}
		}
		return Answer{Text: fmt.Sprintf("Error processing query: %v", err), Err: err}
	}

	if !call.Complete() {
		text := call.Reply
		if text == "" {
			text = ClarificationMessage
		}
		return Answer{ContainerID: call.ContainerID, Intent: call.Intent, Text: text}
	}

	answer := Answer{ContainerID: call.ContainerID, Intent: call.Intent}
	result, err := a.runner.Lookup(ctx, call.ContainerID, call.Intent)
	if err != nil {
		a.logger.Warn().
			Str("container_id", call.ContainerID).
			Str("intent", call.Intent.String()).
			Str("kind", string(domain.KindOf(err))).
			Err(err).
			Msg("Lookup failed")
		answer.Text = DescribeError(call.ContainerID, err)
		answer.Err = err
		return answer
	}

	answer.Result = &result
	answer.Text = a.narrate(ctx, question, call, result)
	a.logger.Info().Str("container_id", call.ContainerID).Str("intent", call.Intent.String()).Msg("Query processed")
	return answer
}

func (a *Agent) narrate(ctx context.Context, question string, call extractor.Extraction, result domain.LookupResult) string {
	if a.narrator == nil {
		return Render(result)
	}
	toolResult, err := toMap(result)
	if err == nil {
		var text string
		text, err = a.narrator.Narrate(ctx, question, call, toolResult)
		if err == nil && text != "" {
			return text
		}
	}
	a.logger.Warn().Err(err).Msg("Narration unavailable, rendering answer")
	return Render(result)
}

// DescribeError phrases a lookup failure. Not-found and invalid ids are
// presented as something the user can fix; everything else as transient.
func DescribeError(containerID string, err error) string {
	switch domain.KindOf(err) {
	case domain.KindInvalidInput:
		return fmt.Sprintf("%q doesn't look like a valid container ID. Container IDs are usually 4 letters followed by 7 digits, like ABCU1234567.", containerID)
	case domain.KindNotFound:
		return fmt.Sprintf("I couldn't find container %s at PNCT. Please check the container ID and try again.", containerID)
	case domain.KindUpstream, domain.KindNetwork, domain.KindRetriesExhausted:
		return fmt.Sprintf("The PNCT tracking service isn't responding right now, so I couldn't look up %s. Please try again shortly.", containerID)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Sprintf("Looking up %s took too long. Please try again shortly.", containerID)
	}
	return fmt.Sprintf("Something went wrong while looking up %s: %v", containerID, err)
}

func toMap(result domain.LookupResult) (map[string]any, error) {
	b, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}
