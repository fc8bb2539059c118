package studio

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"studio/internal/domain"
	"studio/internal/providers/image"
)

// meteredGenerator records per-mode outcomes of every call.
type meteredGenerator struct {
	next   image.Generator
	repo   domain.UsageRepository
	logger zerolog.Logger
	now    func() time.Time
}

// Metered wraps gen so outcomes are counted in repo. A nil repo returns gen unchanged.
func Metered(gen image.Generator, repo domain.UsageRepository, logger zerolog.Logger) image.Generator {
	if repo == nil {
		return gen
	}
	return &meteredGenerator{next: gen, repo: repo, logger: logger, now: time.Now}
}

func (m *meteredGenerator) Generate(ctx context.Context, req image.GenerateRequest) ([]image.Artifact, error) {
	artifacts, err := m.next.Generate(ctx, req)

	counters := domain.UsageCounters{Requests: 1, Artifacts: len(artifacts)}
	if err != nil {
		counters.Fail = 1
	} else {
		counters.Success = 1
	}
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()
	if rerr := m.repo.IncrementCounters(recordCtx, m.now(), string(req.Mode), counters); rerr != nil {
		m.logger.Warn().Err(rerr).Str("mode", string(req.Mode)).Msg("usage counters not recorded")
	}
	return artifacts, err
}
