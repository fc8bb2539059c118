package infra

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"studio/internal/providers/prompt"
)

// NewEnhancer picks the prompt assistant backend. OpenAI is used when it is
// the image provider and has a key, then Gemini when it has a key. Both fall
// back to the static enhancer, which is also the choice without credentials.
func NewEnhancer(ctx context.Context, cfg *Config, logger zerolog.Logger) (prompt.Enhancer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	static := prompt.NewStaticEnhancer()
	if cfg.ImageProvider == "synthetic" {
		return static, nil
	}
	log := logger.With().Str("component", "prompt_enhancer").Logger()

	if cfg.ImageProvider == "openai" && strings.TrimSpace(cfg.OpenAIAPIKey) != "" {
		enhancer, err := prompt.NewOpenAIEnhancer(prompt.OpenAIOptions{
			APIKey:   cfg.OpenAIAPIKey,
			Model:    cfg.OpenAIChatModel,
			BaseURL:  cfg.OpenAIBaseURL,
			Fallback: static,
			OnFallback: func(reason string, err error) {
				log.Warn().Err(err).Str("reason", reason).Msg("openai enhancer fell back")
			},
			OnWarning: func(reason, detail string) {
				log.Warn().Str("reason", reason).Str("detail", detail).Msg("openai chat model adjusted")
			},
		})
		if err != nil {
			return nil, err
		}
		return enhancer, nil
	}
	if strings.TrimSpace(cfg.GeminiAPIKey) != "" {
		enhancer, err := prompt.NewGeminiEnhancer(ctx, prompt.GeminiOptions{
			APIKey:   cfg.GeminiAPIKey,
			Model:    cfg.GeminiTextModel,
			Fallback: static,
			Logger:   log,
		})
		if err != nil {
			return nil, err
		}
		return enhancer, nil
	}
	log.Info().Msg("no text model credentials, using static prompt enhancer")
	return static, nil
}
