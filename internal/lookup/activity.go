// Package lookup fetches one container record from the terminal API and
// projects it into the requested view. It is the unit of work that both
// orchestrators retry.
package lookup

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/pnct-tools/container-query/internal/clock"
	"github.com/pnct-tools/container-query/internal/domain"
	"github.com/pnct-tools/container-query/internal/projection"
)

// DefaultMinIDLength is the shortest container id sent upstream.
const DefaultMinIDLength = 4

type containerFetcher interface {
	GetContainer(ctx context.Context, containerID string) (domain.ContainerRecord, error)
}

// Activity performs exactly one upstream call per invocation. Retries belong
// to the caller.
type Activity struct {
	fetcher     containerFetcher
	projector   *projection.Projector
	clock       clock.Clock
	minIDLength int
	logger      zerolog.Logger
}

func NewActivity(fetcher containerFetcher, clk clock.Clock, minIDLength int, logger zerolog.Logger) *Activity {
	if clk == nil {
		clk = clock.NewSystem()
	}
	if minIDLength < 1 {
		minIDLength = DefaultMinIDLength
	}
	return &Activity{
		fetcher:     fetcher,
		projector:   projection.New(clk),
		clock:       clk,
		minIDLength: minIDLength,
		logger:      logger.With().Str("component", "lookup").Logger(),
	}
}

// FetchAndProject validates containerID, fetches its record and projects it
// under intent. Intent is not validated here; an unrecognized intent yields
// the raw view.
func (a *Activity) FetchAndProject(ctx context.Context, containerID string, intent domain.Intent) (domain.LookupResult, error) {
	containerID = strings.TrimSpace(containerID)
	if err := a.validateID(containerID); err != nil {
		a.logger.Warn().Str("container_id", containerID).Err(err).Msg("Rejected lookup")
		return domain.LookupResult{}, err
	}

	start := time.Now()
	record, err := a.fetcher.GetContainer(ctx, containerID)
	if err != nil {
		a.logger.Warn().
			Str("container_id", containerID).
			Str("intent", intent.String()).
			Str("kind", string(domain.KindOf(err))).
			Dur("elapsed", time.Since(start)).
			Err(err).
			Msg("Lookup failed")
		return domain.LookupResult{}, fmt.Errorf("fetch container %s: %w", containerID, err)
	}

	result := domain.LookupResult{
		ContainerID: containerID,
		Intent:      intent,
		Data:        a.projector.Project(record, intent),
		ScrapedAt:   domain.FormatTimestamp(a.clock.Now()),
	}

	a.logger.Info().
		Str("container_id", containerID).
		Str("intent", intent.String()).
		Dur("elapsed", time.Since(start)).
		Msg("Lookup succeeded")
	return result, nil
}

func (a *Activity) validateID(containerID string) error {
	if containerID == "" {
		return domain.NewInvalidInputError("container ID is required")
	}
	if utf8.RuneCountInString(containerID) < a.minIDLength {
		return domain.NewInvalidInputError(fmt.Sprintf("invalid container ID %q: must be at least %d characters", containerID, a.minIDLength))
	}
	return nil
}
