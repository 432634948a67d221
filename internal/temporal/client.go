// Package temporal connects the lookup workflow to a Temporal cluster: client
// construction, the worker, and a Runner that starts workflows and waits for
// their result.
package temporal

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	temporalotel "go.temporal.io/sdk/contrib/opentelemetry"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/pnct-tools/container-query/internal/config"
	"github.com/pnct-tools/container-query/internal/domain"
	"github.com/pnct-tools/container-query/internal/workflow"
)

// NewClient creates a lazy client; the connection is established on first
// use. With tracing enabled the OpenTelemetry interceptor is installed on the
// client, and workers created from it inherit it.
func NewClient(cfg *config.TemporalConfig, logger zerolog.Logger) (client.Client, error) {
	opts := client.Options{
		HostPort:  cfg.HostPort,
		Namespace: cfg.Namespace,
		Logger:    NewLogger(logger),
	}
	if cfg.Tracing {
		tracer, err := temporalotel.NewTracingInterceptor(temporalotel.TracerOptions{})
		if err != nil {
			return nil, fmt.Errorf("configure tracing interceptor: %w", err)
		}
		opts.Interceptors = append(opts.Interceptors, tracer)
	}

	c, err := client.NewLazyClient(opts)
	if err != nil {
		return nil, fmt.Errorf("create temporal client for %s: %w", cfg.HostPort, err)
	}
	return c, nil
}

type lookupActivity interface {
	FetchAndProject(ctx context.Context, containerID string, intent domain.Intent) (domain.LookupResult, error)
}

// Worker polls the lookup task queue.
type Worker struct {
	worker    worker.Worker
	taskQueue string
	logger    zerolog.Logger
}

func NewWorker(c client.Client, cfg *config.TemporalConfig, policy domain.RetryPolicy, act lookupActivity, logger zerolog.Logger) *Worker {
	w := worker.New(c, cfg.TaskQueue, worker.Options{})
	workflow.Register(w, policy, act, logger)
	return &Worker{
		worker:    w,
		taskQueue: cfg.TaskQueue,
		logger:    logger.With().Str("component", "worker").Logger(),
	}
}

// Run starts polling and blocks until ctx is canceled, then stops the worker.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.worker.Start(); err != nil {
		return fmt.Errorf("start worker on %s: %w", w.taskQueue, err)
	}
	w.logger.Info().Str("task_queue", w.taskQueue).Msg("Temporal worker started")

	<-ctx.Done()

	w.logger.Info().Str("task_queue", w.taskQueue).Msg("Stopping Temporal worker")
	w.worker.Stop()
	return nil
}
