package prompt

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"google.golang.org/genai"
)

const defaultGeminiTextModel = "gemini-2.5-flash"

// textGenerator is the slice of *genai.Models used by the enhancer.
type textGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type GeminiOptions struct {
	APIKey   string
	Model    string
	Fallback Enhancer
	Logger   zerolog.Logger
}

type GeminiEnhancer struct {
	models   textGenerator
	model    string
	fallback Enhancer
	logger   zerolog.Logger
}

func NewGeminiEnhancer(ctx context.Context, opts GeminiOptions) (*GeminiEnhancer, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("gemini api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  strings.TrimSpace(opts.APIKey),
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return newGeminiEnhancer(client.Models, opts), nil
}

func newGeminiEnhancer(models textGenerator, opts GeminiOptions) *GeminiEnhancer {
	model := coalesce(opts.Model, defaultGeminiTextModel)
	return &GeminiEnhancer{
		models:   models,
		model:    model,
		fallback: opts.Fallback,
		logger:   opts.Logger.With().Str("enhancer", geminiProviderName).Logger(),
	}
}

func (g *GeminiEnhancer) Enhance(ctx context.Context, req EnhanceRequest) (*EnhanceResponse, error) {
	if g.models == nil {
		return g.useFallback(ctx, req, "missing_client", nil)
	}
	temperature := float32(0.5)
	contents := []*genai.Content{{
		Role:  "user",
		Parts: []*genai.Part{{Text: buildEnhancePromptPayload(req)}},
	}}
	resp, err := g.models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: systemInstruction}}},
		Temperature:       &temperature,
		ResponseMIMEType:  "application/json",
	})
	if err != nil {
		return g.useFallback(ctx, req, "generate", err)
	}
	text := extractText(resp)
	if text == "" {
		return g.useFallback(ctx, req, "empty_response", nil)
	}
	parsed, err := parseModelPayload[modelEnhancePayload](text)
	if err != nil {
		return g.useFallback(ctx, req, "parse_payload", err)
	}
	prompt := coalesce(parsed.Prompt, req.Prompt)
	return &EnhanceResponse{
		Prompt:   prompt,
		Ideas:    normalizeIdeas(parsed.Ideas, prompt),
		Metadata: ensureMetadata(nil, req.Locale),
		Provider: geminiProviderName,
	}, nil
}

func (g *GeminiEnhancer) useFallback(ctx context.Context, req EnhanceRequest, reason string, err error) (*EnhanceResponse, error) {
	g.logger.Warn().Err(err).Str("reason", reason).Msg("prompt enhancer fell back")
	return useFallback(ctx, g.fallback, req, reason)
}

func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part != nil && strings.TrimSpace(part.Text) != "" {
				return part.Text
			}
		}
	}
	return ""
}

var _ Enhancer = (*GeminiEnhancer)(nil)
