package image

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	stdimage "image"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultQwenBaseURL = "https://dashscope-intl.aliyuncs.com/api/v1"
	defaultQwenModel   = "qwen-image-edit"
	qwenGenerationPath = "/services/aigc/multimodal-generation/generation"
)

// QwenOptions configures the DashScope image edit client.
type QwenOptions struct {
	APIKey         string
	BaseURL        string
	Model          string
	Watermark      bool
	HTTPClient     *http.Client
	RequestTimeout time.Duration
	Logger         zerolog.Logger
}

// QwenGenerator edits a single image through DashScope. Like the OpenAI edit
// endpoint it takes one picture, so face swap and headshot are left to the
// fallback chain.
type QwenGenerator struct {
	apiKey     string
	baseURL    string
	model      string
	watermark  bool
	httpClient *http.Client
	logger     zerolog.Logger
}

type qwenRequest struct {
	Model      string         `json:"model"`
	Input      qwenInput      `json:"input"`
	Parameters qwenParameters `json:"parameters"`
}

type qwenInput struct {
	Messages []qwenMessage `json:"messages"`
}

type qwenMessage struct {
	Role    string        `json:"role"`
	Content []qwenContent `json:"content"`
}

type qwenContent struct {
	Image string `json:"image,omitempty"`
	Text  string `json:"text,omitempty"`
}

type qwenParameters struct {
	NegativePrompt string `json:"negative_prompt,omitempty"`
	Watermark      *bool  `json:"watermark,omitempty"`
}

type qwenResponse struct {
	Output struct {
		Choices []struct {
			Message struct {
				Content []struct {
					Image string `json:"image"`
				} `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	} `json:"output"`
	Usage struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	} `json:"usage"`
	RequestID string `json:"request_id"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

// NewQwenGenerator applies defaults; it fails only without an API key.
func NewQwenGenerator(opts QwenOptions) (*QwenGenerator, error) {
	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 90 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultQwenBaseURL
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultQwenModel
	}
	return &QwenGenerator{
		apiKey:     apiKey,
		baseURL:    baseURL,
		model:      model,
		watermark:  opts.Watermark,
		httpClient: httpClient,
		logger:     opts.Logger.With().Str("provider", "qwen").Str("model", model).Logger(),
	}, nil
}

func (g *QwenGenerator) Generate(ctx context.Context, req GenerateRequest) ([]Artifact, error) {
	if g == nil || g.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	source, ok := singleSource(req)
	if !ok {
		return nil, fmt.Errorf("qwen %s: %w", req.Mode, ErrUnsupportedMode)
	}

	watermark := g.watermark
	payload := qwenRequest{
		Model: g.model,
		Input: qwenInput{Messages: []qwenMessage{{
			Role: "user",
			Content: []qwenContent{
				{Image: dataURI(source)},
				{Text: BuildInstruction(req)},
			},
		}}},
		Parameters: qwenParameters{
			NegativePrompt: "extra people, distorted face, text, watermark",
			Watermark:      &watermark,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("qwen: encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+qwenGenerationPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("qwen: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("qwen: http request: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("qwen: read response: %w", err)
	}

	var decoded qwenResponse
	decodeErr := json.Unmarshal(raw, &decoded)
	if resp.StatusCode >= 300 {
		if decodeErr == nil && decoded.Message != "" {
			return nil, fmt.Errorf("qwen: %s (%s)", decoded.Message, decoded.Code)
		}
		return nil, fmt.Errorf("qwen: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("qwen: decode response: %w", decodeErr)
	}
	if decoded.Code != "" {
		return nil, fmt.Errorf("qwen: %s (%s)", decoded.Message, decoded.Code)
	}

	var out []Artifact
	for _, choice := range decoded.Output.Choices {
		for _, content := range choice.Message.Content {
			url := strings.TrimSpace(content.Image)
			if url == "" {
				continue
			}
			data, mime, err := g.download(ctx, url)
			if err != nil {
				return nil, err
			}
			width, height := decoded.Usage.Width, decoded.Usage.Height
			if width == 0 || height == 0 {
				if cfg, _, err := stdimage.DecodeConfig(bytes.NewReader(data)); err == nil {
					width, height = cfg.Width, cfg.Height
				}
			}
			out = append(out, Artifact{Data: data, MIME: mime, URL: url, Width: width, Height: height})
		}
	}
	if len(out) == 0 {
		return nil, ErrEmptyResult
	}
	g.logger.Debug().Str("request_id", req.RequestID).Str("upstream_request_id", decoded.RequestID).Int("artifacts", len(out)).Msg("qwen edit complete")
	return out, nil
}

func (g *QwenGenerator) download(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("qwen: build download request: %w", err)
	}
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("qwen: download image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("qwen: download status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("qwen: read image: %w", err)
	}
	if len(data) == 0 {
		return nil, "", errors.New("qwen: empty image body")
	}
	return data, normalizeMIME(resp.Header.Get("Content-Type")), nil
}

func (g *QwenGenerator) String() string {
	return "qwen:" + g.model
}

var _ Generator = (*QwenGenerator)(nil)

func dataURI(p Payload) string {
	return "data:" + normalizeMIME(p.MIME) + ";base64," + base64.StdEncoding.EncodeToString(p.Data)
}
