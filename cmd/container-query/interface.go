package main

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/pnct-tools/container-query/internal/agent"
	"github.com/pnct-tools/container-query/internal/app"
	"github.com/pnct-tools/container-query/internal/config"
	"github.com/pnct-tools/container-query/internal/domain"
)

type application interface {
	Lookup(ctx context.Context, containerID string, intent domain.Intent) (domain.LookupResult, error)
	Ask(ctx context.Context, question string) agent.Answer
	RunServer(ctx context.Context, withWorker bool) error
	RunWorker(ctx context.Context) error
	Close()
}

var newApplication = func(ctx context.Context, cfg *config.Config, logger zerolog.Logger, opts ...app.Option) (application, error) {
	return app.New(ctx, cfg, logger, opts...)
}
