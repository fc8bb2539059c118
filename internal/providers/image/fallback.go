package image

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// FallbackGenerator tries a primary provider and hands the request to the
// fallback when the primary is unconfigured or cannot serve the mode.
// Transient upstream errors are retried once against the primary.
type FallbackGenerator struct {
	primary  Generator
	fallback Generator
	logger   zerolog.Logger
}

// NewFallbackGenerator wires a primary provider with an optional fallback.
func NewFallbackGenerator(primary, fallback Generator, logger zerolog.Logger) *FallbackGenerator {
	return &FallbackGenerator{primary: primary, fallback: fallback, logger: logger}
}

// Generate fulfils the Generator interface.
func (g *FallbackGenerator) Generate(ctx context.Context, req GenerateRequest) ([]Artifact, error) {
	if g == nil {
		return nil, fmt.Errorf("image generator not configured")
	}
	if g.primary == nil {
		if g.fallback != nil {
			return g.fallback.Generate(ctx, req)
		}
		return nil, ErrMissingAPIKey
	}

	artifacts, err := g.primary.Generate(ctx, req)
	if err != nil && isTransient(err) && ctx.Err() == nil {
		g.logger.Warn().Err(err).Str("request_id", req.RequestID).Msg("transient provider error, retrying once")
		artifacts, err = g.primary.Generate(ctx, req)
	}
	if err != nil && shouldFallback(err) && g.fallback != nil {
		g.logger.Info().Err(err).Str("request_id", req.RequestID).Str("mode", string(req.Mode)).Msg("using fallback provider")
		return g.fallback.Generate(ctx, req)
	}
	return artifacts, err
}

func (g *FallbackGenerator) String() string {
	if g == nil {
		return "fallback"
	}
	return fmt.Sprintf("%v>%v", g.primary, g.fallback)
}

var _ Generator = (*FallbackGenerator)(nil)

func shouldFallback(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrMissingAPIKey) || errors.Is(err, ErrUnsupportedMode) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unauthorized") || strings.Contains(msg, "forbidden")
}

func isTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case msg == "":
		return false
	case strings.Contains(msg, "internal error"), strings.Contains(msg, "internalerror"):
		return true
	case strings.Contains(msg, "service unavailable"), strings.Contains(msg, "overloaded"):
		return true
	case strings.Contains(msg, "timeout"):
		return true
	}
	return false
}
