package infra

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"studio/internal/providers/image"
)

// NewGenerator builds the provider chain selected by IMAGE_PROVIDER. Gemini
// serves every mode; OpenAI and Qwen cover single-image edits and hand the
// rest to Gemini. Outside production the synthetic generator closes the chain so the
// service runs without credentials.
func NewGenerator(ctx context.Context, cfg *Config, logger zerolog.Logger) (image.Generator, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	var last image.Generator
	if cfg.AppEnv != "production" || cfg.ImageProvider == "synthetic" {
		last = image.NewSynthetic()
	}
	if cfg.ImageProvider == "synthetic" {
		return last, nil
	}

	var chain image.Generator = last
	gemini, err := image.NewGeminiGenerator(ctx, cfg.GeminiAPIKey, cfg.GeminiImageModel, logger)
	switch {
	case err == nil:
		chain = image.NewFallbackGenerator(gemini, last, logger)
	case errors.Is(err, image.ErrMissingAPIKey):
		logger.Warn().Msg("GEMINI_API_KEY not set, gemini provider disabled")
	default:
		return nil, err
	}

	if cfg.ImageProvider == "openai" {
		openai, err := image.NewOpenAIGenerator(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIImageModel, logger)
		switch {
		case err == nil:
			chain = image.NewFallbackGenerator(openai, chain, logger)
		case errors.Is(err, image.ErrMissingAPIKey):
			logger.Warn().Msg("OPENAI_API_KEY not set, openai provider disabled")
		default:
			return nil, err
		}
	}

	if cfg.ImageProvider == "qwen" {
		qwen, err := image.NewQwenGenerator(image.QwenOptions{
			APIKey:         cfg.QwenAPIKey,
			BaseURL:        cfg.QwenBaseURL,
			Model:          cfg.QwenImageModel,
			RequestTimeout: cfg.GenerationTimeout,
			Logger:         logger,
		})
		switch {
		case err == nil:
			chain = image.NewFallbackGenerator(qwen, chain, logger)
		case errors.Is(err, image.ErrMissingAPIKey):
			logger.Warn().Msg("QWEN_API_KEY not set, qwen provider disabled")
		default:
			return nil, err
		}
	}

	if chain == nil {
		return nil, fmt.Errorf("no image provider configured for %s", cfg.ImageProvider)
	}
	return chain, nil
}
