// Package workflow holds the Temporal workflow and activity that run a
// container lookup durably.
package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/pnct-tools/container-query/internal/domain"
)

// Registration names. Changing them breaks running workflows.
const (
	WorkflowName = "PNCTLookupWorkflow"
	ActivityName = "FetchAndProject"
)

type lookupActivity interface {
	FetchAndProject(ctx context.Context, containerID string, intent domain.Intent) (domain.LookupResult, error)
}

type registry interface {
	RegisterWorkflowWithOptions(w interface{}, options workflow.RegisterOptions)
	RegisterActivityWithOptions(a interface{}, options activity.RegisterOptions)
}

// Register adds the lookup workflow and activity to a worker.
func Register(r registry, policy domain.RetryPolicy, act lookupActivity, logger zerolog.Logger) {
	r.RegisterWorkflowWithOptions(NewLookupWorkflow(policy).Run, workflow.RegisterOptions{Name: WorkflowName})
	r.RegisterActivityWithOptions(NewActivities(act, logger).FetchAndProject, activity.RegisterOptions{Name: ActivityName})
}

// LookupWorkflow schedules one activity execution and lets the Temporal server
// drive retries. The policy must be identical on every worker of a task queue.
type LookupWorkflow struct {
	policy domain.RetryPolicy
}

func NewLookupWorkflow(policy domain.RetryPolicy) *LookupWorkflow {
	return &LookupWorkflow{policy: policy}
}

func (w *LookupWorkflow) Run(ctx workflow.Context, req domain.LookupRequest) (domain.LookupResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Lookup workflow started", "container_id", req.ContainerID, "intent", string(req.Intent))

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: w.policy.StartToCloseTimeout,
		RetryPolicy:         ConvertRetryPolicy(w.policy),
	})

	var result domain.LookupResult
	err := workflow.ExecuteActivity(ctx, ActivityName, req).Get(ctx, &result)
	if err == nil {
		logger.Info("Lookup workflow completed", "container_id", req.ContainerID)
		return result, nil
	}

	if !exhaustedRetries(err) {
		logger.Warn("Lookup workflow failed", "container_id", req.ContainerID, "error", err)
		return domain.LookupResult{}, err
	}
	logger.Warn("Lookup retries exhausted", "container_id", req.ContainerID, "attempts", w.policy.MaximumAttempts, "error", err)
	return domain.LookupResult{}, temporal.NewNonRetryableApplicationError(
		fmt.Sprintf("retries exhausted after %d attempts", w.policy.MaximumAttempts),
		string(domain.KindRetriesExhausted),
		err,
		w.policy.MaximumAttempts,
	)
}

// exhaustedRetries reports whether err is an activity failure of a kind the
// retry policy would have retried, meaning the attempt budget is spent.
func exhaustedRetries(err error) bool {
	var activityErr *temporal.ActivityError
	if !errors.As(err, &activityErr) {
		return false
	}
	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) {
		switch domain.Kind(appErr.Type()) {
		case domain.KindUpstream, domain.KindNetwork:
			return true
		}
		return false
	}
	var timeoutErr *temporal.TimeoutError
	return errors.As(err, &timeoutErr)
}

// ConvertRetryPolicy maps the lookup retry policy onto Temporal's.
func ConvertRetryPolicy(p domain.RetryPolicy) *temporal.RetryPolicy {
	policy := &temporal.RetryPolicy{
		InitialInterval:    p.InitialInterval,
		BackoffCoefficient: p.BackoffCoefficient,
		MaximumInterval:    p.MaximumInterval,
		NonRetryableErrorTypes: []string{
			string(domain.KindInvalidInput),
			string(domain.KindNotFound),
			string(domain.KindUnknown),
		},
	}
	if p.MaximumAttempts > 0 {
		//nolint:gosec // bounded by config validation
		policy.MaximumAttempts = int32(p.MaximumAttempts)
	}
	return policy
}

// Activities adapts the lookup activity to Temporal: a single request payload
// in, typed failures out as application errors.
type Activities struct {
	lookup lookupActivity
	logger zerolog.Logger
}

func NewActivities(act lookupActivity, logger zerolog.Logger) *Activities {
	return &Activities{lookup: act, logger: logger.With().Str("component", "activity").Logger()}
}

func (a *Activities) FetchAndProject(ctx context.Context, req domain.LookupRequest) (domain.LookupResult, error) {
	info := activity.GetInfo(ctx)
	a.logger.Debug().
		Str("container_id", req.ContainerID).
		Str("intent", req.Intent.String()).
		Str("workflow_id", info.WorkflowExecution.ID).
		Int32("attempt", info.Attempt).
		Msg("Running lookup activity")

	result, err := a.lookup.FetchAndProject(ctx, req.ContainerID, req.Intent)
	if err != nil {
		return domain.LookupResult{}, EncodeError(err)
	}
	return result, nil
}
