// Package orchestrator runs a lookup in-process under the same bounded retry
// policy the Temporal workflow applies. It is used for one-shot CLI lookups
// and deployments without a Temporal cluster.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/pnct-tools/container-query/internal/domain"
)

// State is the lifecycle position of one lookup.
type State int

const (
	StateScheduled State = iota
	StateRunning
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateScheduled:
		return "scheduled"
	case StateRunning:
		return "running"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal reports whether no further transition can happen.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// A retryable failure moves a lookup from Running back to Scheduled until the
// next attempt starts.

// Transition is reported to an observer each time a lookup changes state.
type Transition struct {
	ContainerID string
	Intent      domain.Intent
	Attempt     int
	From, To    State
	Err         error
}

type activity interface {
	FetchAndProject(ctx context.Context, containerID string, intent domain.Intent) (domain.LookupResult, error)
}

type Option func(*Runner)

// WithSleep replaces the backoff wait. fn must return ctx.Err() when ctx is
// done before d elapses.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(r *Runner) {
		r.sleep = fn
	}
}

// WithObserver registers a callback invoked synchronously on every transition.
func WithObserver(fn func(Transition)) Option {
	return func(r *Runner) {
		r.observe = fn
	}
}

// Runner executes lookups with sequential retries. It keeps no per-lookup
// state between calls and is safe for concurrent use.
type Runner struct {
	activity activity
	policy   domain.RetryPolicy
	sleep    func(ctx context.Context, d time.Duration) error
	observe  func(Transition)
	logger   zerolog.Logger
}

func New(act activity, policy domain.RetryPolicy, logger zerolog.Logger, opts ...Option) *Runner {
	r := &Runner{
		activity: act,
		policy:   policy,
		sleep:    sleepContext,
		logger:   logger.With().Str("component", "orchestrator").Logger(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	if r.policy.MaximumAttempts < 1 {
		r.policy.MaximumAttempts = 1
	}
	return r
}

// Lookup runs the activity until it succeeds, fails terminally, or the
// attempt budget is spent. Exhaustion yields a RetriesExhaustedError wrapping
// the last failure. Cancellation of ctx aborts both an in-flight attempt and
// a pending backoff.
func (r *Runner) Lookup(ctx context.Context, containerID string, intent domain.Intent) (domain.LookupResult, error) {
	run := &execution{runner: r, containerID: containerID, intent: intent, state: StateScheduled}

	var last error
	for attempt := 1; attempt <= r.policy.MaximumAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			run.moveTo(StateFailed, attempt, err)
			return domain.LookupResult{}, err
		}

		run.moveTo(StateRunning, attempt, nil)
		result, err := r.attempt(ctx, containerID, intent)
		if err == nil {
			run.moveTo(StateSucceeded, attempt, nil)
			return result, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			run.moveTo(StateFailed, attempt, ctxErr)
			return domain.LookupResult{}, fmt.Errorf("lookup %s aborted: %w", containerID, ctxErr)
		}

		last = err
		if !domain.IsRetryable(err) {
			run.moveTo(StateFailed, attempt, err)
			return domain.LookupResult{}, err
		}
		if attempt == r.policy.MaximumAttempts {
			break
		}

		run.moveTo(StateScheduled, attempt, err)
		wait := r.policy.Backoff(attempt)
		r.logger.Warn().
			Str("container_id", containerID).
			Str("intent", intent.String()).
			Int("attempt", attempt).
			Dur("backoff", wait).
			Err(err).
			Msg("Attempt failed, retrying")
		if err := r.sleep(ctx, wait); err != nil {
			run.moveTo(StateFailed, attempt, err)
			return domain.LookupResult{}, fmt.Errorf("lookup %s aborted during backoff: %w", containerID, err)
		}
	}

	err := domain.NewRetriesExhaustedError(r.policy.MaximumAttempts, last)
	run.moveTo(StateFailed, r.policy.MaximumAttempts, err)
	return domain.LookupResult{}, err
}

// attempt bounds a single activity execution by StartToCloseTimeout.
func (r *Runner) attempt(ctx context.Context, containerID string, intent domain.Intent) (domain.LookupResult, error) {
	attemptCtx := ctx
	if r.policy.StartToCloseTimeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, r.policy.StartToCloseTimeout)
		defer cancel()
	}

	result, err := r.activity.FetchAndProject(attemptCtx, containerID, intent)
	if err != nil && ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
		if domain.KindOf(err) != domain.KindNetwork {
			err = domain.NewNetworkError(fmt.Errorf("activity exceeded start-to-close timeout of %s: %w", r.policy.StartToCloseTimeout, err), true)
		}
	}
	return result, err
}

type execution struct {
	runner      *Runner
	containerID string
	intent      domain.Intent
	state       State
}

func (e *execution) moveTo(to State, attempt int, err error) {
	from := e.state
	e.state = to

	event := e.runner.logger.Debug()
	if to == StateFailed {
		event = e.runner.logger.Info()
	}
	event.
		Str("container_id", e.containerID).
		Str("intent", e.intent.String()).
		Int("attempt", attempt).
		Stringer("from", from).
		Stringer("to", to).
		AnErr("error", err).
		Msg("Lookup state changed")

	if e.runner.observe != nil {
		e.runner.observe(Transition{
			ContainerID: e.containerID,
			Intent:      e.intent,
			Attempt:     attempt,
			From:        from,
			To:          to,
			Err:         err,
		})
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
