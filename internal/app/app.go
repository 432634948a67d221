package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"go.temporal.io/sdk/client"
	"golang.org/x/sync/errgroup"

	"github.com/pnct-tools/container-query/internal/agent"
	"github.com/pnct-tools/container-query/internal/clock"
	"github.com/pnct-tools/container-query/internal/config"
	"github.com/pnct-tools/container-query/internal/domain"
	"github.com/pnct-tools/container-query/internal/extractor"
	"github.com/pnct-tools/container-query/internal/lookup"
	"github.com/pnct-tools/container-query/internal/orchestrator"
	"github.com/pnct-tools/container-query/internal/temporal"
	transport "github.com/pnct-tools/container-query/internal/transport/http"
	"github.com/pnct-tools/container-query/internal/upstream"
)

type lookupRunner interface {
	Lookup(ctx context.Context, containerID string, intent domain.Intent) (domain.LookupResult, error)
}

type Option func(*options)

type options struct {
	runner string
}

// WithRunner overrides lookup.runner from the configuration.
func WithRunner(runner string) Option {
	return func(o *options) {
		o.runner = runner
	}
}

type App struct {
	cfg            *config.Config
	runnerName     string
	activity       *lookup.Activity
	runner         lookupRunner
	agent          *agent.Agent
	temporalClient client.Client
	logger         zerolog.Logger
}

// New creates a new App by wiring up all dependencies.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger, opts ...Option) (*App, error) {
	o := options{runner: cfg.Lookup.Runner}
	for _, opt := range opts {
		opt(&o)
	}

	clk := clock.NewSystem()

	// Upstream and activity
	up := upstream.NewClient(&cfg.Upstream, logger, upstream.WithClock(clk))
	act := lookup.NewActivity(up, clk, cfg.Lookup.MinContainerIDLength, logger)

	a := &App{
		cfg:        cfg,
		runnerName: o.runner,
		activity:   act,
		logger:     logger,
	}

	// Runner
	switch o.runner {
	case config.RunnerInline:
		a.runner = orchestrator.New(act, cfg.Lookup.Retry, logger)
	case config.RunnerTemporal:
		tc, err := temporal.NewClient(&cfg.Temporal, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create temporal client: %w", err)
		}
		a.temporalClient = tc
		a.runner = temporal.NewRunner(tc, &cfg.Temporal, logger)
	default:
		return nil, fmt.Errorf("unknown lookup runner %q", o.runner)
	}

	// Extractor and agent
	ex, narrator, err := newExtractor(ctx, &cfg.Extractor, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.agent = agent.New(ex, a.runner, narrator, logger)

	return a, nil
}

// newExtractor builds the configured extractor. An LLM provider without an
// API key falls back to keyword extraction. The narrator is nil unless an
// LLM provider is in use and narration is enabled.
func newExtractor(ctx context.Context, cfg *config.ExtractorConfig, logger zerolog.Logger) (extractor.Extractor, extractor.Narrator, error) {
	var llm interface {
		extractor.Extractor
		extractor.Narrator
	}

	switch cfg.Provider {
	case config.ProviderGemini:
		if cfg.Gemini.APIKey == "" {
			logger.Warn().Msg("No Gemini API key configured, using keyword extraction")
			return extractor.NewKeyword(), nil, nil
		}
		g, err := extractor.NewGemini(ctx, extractor.GeminiConfig{
			APIKey: cfg.Gemini.APIKey,
			Model:  cfg.Gemini.Model,
			Rate:   cfg.Rate,
			Burst:  cfg.Burst,
		}, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create gemini extractor: %w", err)
		}
		llm = g
	case config.ProviderOpenAI:
		if cfg.OpenAI.APIKey == "" {
			logger.Warn().Msg("No OpenAI API key configured, using keyword extraction")
			return extractor.NewKeyword(), nil, nil
		}
		oa, err := extractor.NewOpenAI(extractor.OpenAIConfig{
			APIKey:  cfg.OpenAI.APIKey,
			Model:   cfg.OpenAI.Model,
			BaseURL: cfg.OpenAI.BaseURL,
			Rate:    cfg.Rate,
			Burst:   cfg.Burst,
		}, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create openai extractor: %w", err)
		}
		llm = oa
	case config.ProviderKeyword:
		return extractor.NewKeyword(), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown extractor provider %q", cfg.Provider)
	}

	if !cfg.Narrate {
		return llm, nil, nil
	}
	return llm, llm, nil
}

// Lookup runs one lookup through the configured runner.
func (a *App) Lookup(ctx context.Context, containerID string, intent domain.Intent) (domain.LookupResult, error) {
	return a.runner.Lookup(ctx, containerID, intent)
}

// Ask answers a natural-language question.
func (a *App) Ask(ctx context.Context, question string) agent.Answer {
	return a.agent.Answer(ctx, question)
}

// RunServer serves the HTTP API until ctx is canceled. With withWorker set
// and the Temporal runner in use, a worker runs alongside the server.
func (a *App) RunServer(ctx context.Context, withWorker bool) error {
	handler := transport.NewRouter(&a.cfg.Server, a.runnerName, a.runner, a.agent, a.logger)
	srv := transport.NewServer(&a.cfg.Server, handler, a.logger)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(ctx)
	})
	if withWorker && a.temporalClient != nil {
		w := temporal.NewWorker(a.temporalClient, &a.cfg.Temporal, a.cfg.Lookup.Retry, a.activity, a.logger)
		g.Go(func() error {
			return w.Run(ctx)
		})
	}

	a.logger.Info().Str("runner", a.runnerName).Bool("worker", withWorker && a.temporalClient != nil).Msg("Application starting")
	return g.Wait()
}

// RunWorker runs a standalone Temporal worker until ctx is canceled.
func (a *App) RunWorker(ctx context.Context) error {
	if a.temporalClient == nil {
		return errors.New("worker requires lookup.runner to be temporal")
	}
	w := temporal.NewWorker(a.temporalClient, &a.cfg.Temporal, a.cfg.Lookup.Retry, a.activity, a.logger)
	return w.Run(ctx)
}

func (a *App) Close() {
	if a.temporalClient != nil {
		a.temporalClient.Close()
	}
}
