package temporal

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.temporal.io/sdk/client"

	"github.com/pnct-tools/container-query/internal/config"
	"github.com/pnct-tools/container-query/internal/domain"
	"github.com/pnct-tools/container-query/internal/workflow"
)

type workflowStarter interface {
	ExecuteWorkflow(ctx context.Context, options client.StartWorkflowOptions, workflow interface{}, args ...interface{}) (client.WorkflowRun, error)
}

// Runner starts one lookup workflow per call and waits for it to finish.
type Runner struct {
	client        workflowStarter
	taskQueue     string
	idPrefix      string
	resultTimeout time.Duration
	newID         func() string
	logger        zerolog.Logger
}

func NewRunner(c workflowStarter, cfg *config.TemporalConfig, logger zerolog.Logger) *Runner {
	return &Runner{
		client:        c,
		taskQueue:     cfg.TaskQueue,
		idPrefix:      cfg.WorkflowIDPrefix,
		resultTimeout: cfg.ResultTimeout,
		newID:         uuid.NewString,
		logger:        logger.With().Str("component", "temporal_runner").Logger(),
	}
}

func (r *Runner) Lookup(ctx context.Context, containerID string, intent domain.Intent) (domain.LookupResult, error) {
	result, _, err := r.LookupTracked(ctx, containerID, intent)
	return result, err
}

// LookupTracked is Lookup that also reports the workflow ID, which is
// returned even when the workflow fails.
func (r *Runner) LookupTracked(ctx context.Context, containerID string, intent domain.Intent) (domain.LookupResult, string, error) {
	workflowID := r.WorkflowID(containerID, intent)
	opts := client.StartWorkflowOptions{
		ID:        workflowID,
		TaskQueue: r.taskQueue,
	}

	run, err := r.client.ExecuteWorkflow(ctx, opts, workflow.WorkflowName, domain.LookupRequest{
		ContainerID: containerID,
		Intent:      intent,
	})
	if err != nil {
		return domain.LookupResult{}, workflowID, fmt.Errorf("start workflow %s: %w", workflowID, domain.NewNetworkError(err, false))
	}
	r.logger.Info().
		Str("workflow_id", run.GetID()).
		Str("run_id", run.GetRunID()).
		Str("container_id", containerID).
		Str("intent", intent.String()).
		Msg("Started lookup workflow")

	waitCtx := ctx
	if r.resultTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, r.resultTimeout)
		defer cancel()
	}

	var result domain.LookupResult
	if err := run.Get(waitCtx, &result); err != nil {
		decoded := workflow.DecodeError(err)
		r.logger.Warn().
			Str("workflow_id", workflowID).
			Str("kind", string(domain.KindOf(decoded))).
			Err(decoded).
			Msg("Lookup workflow failed")
		return domain.LookupResult{}, workflowID, decoded
	}
	return result, workflowID, nil
}

// WorkflowID is <prefix>-<container>-<intent>-<uuid>. The random suffix keeps
// concurrent identical requests from colliding.
func (r *Runner) WorkflowID(containerID string, intent domain.Intent) string {
	return fmt.Sprintf("%s-%s-%s-%s", r.idPrefix, containerID, intent, r.newID())
}
