package image

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
)

// imageEditor is the slice of *openai.Client used by the generator.
type imageEditor interface {
	CreateEditImage(ctx context.Context, request openai.ImageEditRequest) (openai.ImageResponse, error)
}

// OpenAIGenerator serves the modes that edit a single image. The edit
// endpoint takes one image, so face swap and headshot report
// ErrUnsupportedMode and are left to the fallback chain.
type OpenAIGenerator struct {
	client imageEditor
	model  string
	logger zerolog.Logger
}

// NewOpenAIGenerator builds a client against baseURL, or the public API when empty.
func NewOpenAIGenerator(apiKey, baseURL, model string, logger zerolog.Logger) (*OpenAIGenerator, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL = strings.TrimSpace(baseURL); baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return newOpenAIGenerator(openai.NewClientWithConfig(cfg), model, logger), nil
}

func newOpenAIGenerator(client imageEditor, model string, logger zerolog.Logger) *OpenAIGenerator {
	model = strings.TrimSpace(model)
	if model == "" {
		model = openai.CreateImageModelDallE2
	}
	return &OpenAIGenerator{
		client: client,
		model:  model,
		logger: logger.With().Str("provider", "openai").Str("model", model).Logger(),
	}
}

// Generate edits the current image, or the only upload when there is no current image.
func (g *OpenAIGenerator) Generate(ctx context.Context, req GenerateRequest) ([]Artifact, error) {
	if g == nil || g.client == nil {
		return nil, ErrMissingAPIKey
	}
	source, ok := singleSource(req)
	if !ok {
		return nil, fmt.Errorf("openai %s: %w", req.Mode, ErrUnsupportedMode)
	}

	// The edit endpoint uploads from a file handle.
	file, err := os.CreateTemp("", "studio-edit-*"+extensionFor(source.MIME))
	if err != nil {
		return nil, fmt.Errorf("openai temp file: %w", err)
	}
	defer func() {
		_ = file.Close()
		_ = os.Remove(file.Name())
	}()
	if _, err := file.Write(source.Data); err != nil {
		return nil, fmt.Errorf("openai temp file: %w", err)
	}
	if _, err := file.Seek(0, 0); err != nil {
		return nil, fmt.Errorf("openai temp file: %w", err)
	}

	quantity := req.Quantity
	if quantity <= 0 {
		quantity = 1
	}
	resp, err := g.client.CreateEditImage(ctx, openai.ImageEditRequest{
		Image:          file,
		Prompt:         BuildInstruction(req),
		Model:          g.model,
		N:              quantity,
		Size:           openai.CreateImageSize1024x1024,
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	})
	if err != nil {
		return nil, fmt.Errorf("openai edit: %w", err)
	}

	out := make([]Artifact, 0, len(resp.Data))
	for _, item := range resp.Data {
		if item.B64JSON == "" {
			if item.URL != "" {
				out = append(out, Artifact{URL: item.URL, MIME: "image/png", Width: 1024, Height: 1024})
			}
			continue
		}
		data, err := base64.StdEncoding.DecodeString(item.B64JSON)
		if err != nil {
			return nil, fmt.Errorf("openai decode: %w", err)
		}
		out = append(out, Artifact{Data: data, MIME: "image/png", Width: 1024, Height: 1024})
	}
	if len(out) == 0 {
		return nil, ErrEmptyResult
	}
	g.logger.Debug().Str("request_id", req.RequestID).Int("artifacts", len(out)).Msg("openai edit complete")
	return out, nil
}

func (g *OpenAIGenerator) String() string {
	return "openai:" + g.model
}

var _ Generator = (*OpenAIGenerator)(nil)

func singleSource(req GenerateRequest) (Payload, bool) {
	switch req.Mode {
	case WorkflowModeFaceSwap, WorkflowModeHeadshot:
		return Payload{}, false
	}
	if req.Current != nil {
		return *req.Current, true
	}
	if len(req.Images) == 1 {
		return req.Images[0], true
	}
	return Payload{}, false
}

func extensionFor(mime string) string {
	switch normalizeMIME(mime) {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}
