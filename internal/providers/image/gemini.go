package image

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"google.golang.org/genai"
)

// DefaultGeminiModel is the image-capable model used when none is configured.
const DefaultGeminiModel = "gemini-2.5-flash-image-preview"

// contentGenerator is the slice of *genai.Models used by the generator.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiGenerator edits portraits through the Gemini API. Every request is
// sent as inline image parts followed by the instruction text.
type GeminiGenerator struct {
	models contentGenerator
	model  string
	logger zerolog.Logger
}

// NewGeminiGenerator creates a client for the Gemini developer API. An empty
// key yields ErrMissingAPIKey so callers can fall back.
func NewGeminiGenerator(ctx context.Context, apiKey, model string, logger zerolog.Logger) (*GeminiGenerator, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return newGeminiGenerator(client.Models, model, logger), nil
}

func newGeminiGenerator(models contentGenerator, model string, logger zerolog.Logger) *GeminiGenerator {
	model = strings.TrimSpace(model)
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiGenerator{
		models: models,
		model:  model,
		logger: logger.With().Str("provider", "gemini").Str("model", model).Logger(),
	}
}

// Generate asks for one image per requested variation.
func (g *GeminiGenerator) Generate(ctx context.Context, req GenerateRequest) ([]Artifact, error) {
	if g == nil || g.models == nil {
		return nil, ErrMissingAPIKey
	}
	images := inputImages(req)
	quantity := req.Quantity
	if quantity <= 0 {
		quantity = 1
	}
	instruction := BuildInstruction(req)
	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
	}

	out := make([]Artifact, 0, quantity)
	for i := 0; i < quantity; i++ {
		parts := make([]*genai.Part, 0, len(images)+1)
		for _, img := range images {
			parts = append(parts, &genai.Part{
				InlineData: &genai.Blob{MIMEType: normalizeMIME(img.MIME), Data: img.Data},
			})
		}
		parts = append(parts, &genai.Part{Text: variationPrompt(instruction, quantity, i)})
		contents := []*genai.Content{{Role: "user", Parts: parts}}

		resp, err := g.models.GenerateContent(ctx, g.model, contents, config)
		if err != nil {
			return nil, fmt.Errorf("gemini generate: %w", err)
		}
		artifact, ok := firstInlineImage(resp)
		if !ok {
			g.logger.Warn().Str("request_id", req.RequestID).Int("variation", i).Msg("response carried no image part")
			continue
		}
		out = append(out, artifact)
	}
	if len(out) == 0 {
		return nil, ErrEmptyResult
	}
	g.logger.Debug().Str("request_id", req.RequestID).Int("artifacts", len(out)).Msg("gemini edit complete")
	return out, nil
}

func (g *GeminiGenerator) String() string {
	return "gemini:" + g.model
}

var _ Generator = (*GeminiGenerator)(nil)

func firstInlineImage(resp *genai.GenerateContentResponse) (Artifact, bool) {
	if resp == nil {
		return Artifact{}, false
	}
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
				continue
			}
			if !strings.HasPrefix(part.InlineData.MIMEType, "image/") {
				continue
			}
			return Artifact{Data: part.InlineData.Data, MIME: normalizeMIME(part.InlineData.MIMEType)}, true
		}
	}
	return Artifact{}, false
}

// inputImages returns the images in the order the instruction refers to them.
func inputImages(req GenerateRequest) []Payload {
	switch {
	case req.Mode == WorkflowModeFaceSwap && len(req.Images) > 0:
		return req.Images
	case req.Current != nil:
		return append([]Payload{*req.Current}, req.Images...)
	default:
		return req.Images
	}
}

func variationPrompt(instruction string, total, index int) string {
	if total <= 1 {
		return instruction
	}
	return fmt.Sprintf("%s\nVariation #%d of %d: vary framing and expression slightly.", instruction, index+1, total)
}

func normalizeMIME(mime string) string {
	mime = strings.ToLower(strings.TrimSpace(mime))
	switch mime {
	case "image/jpeg", "image/jpg":
		return "image/jpeg"
	case "":
		return "image/png"
	default:
		if strings.HasPrefix(mime, "image/") {
			return mime
		}
		return "image/png"
	}
}
