package prompt

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// chatCompleter is the slice of *openai.Client used by the enhancer.
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type OpenAIOptions struct {
	APIKey     string
	Model      string
	BaseURL    string
	Fallback   Enhancer
	OnFallback func(reason string, err error)
	OnWarning  func(reason, detail string)
}

type OpenAIEnhancer struct {
	client     chatCompleter
	model      string
	fallback   Enhancer
	onFallback func(reason string, err error)
}

const defaultOpenAIModel = "gpt-4o-mini"

var openAIModelCanonical = map[string]string{
	"gpt-4o-mini": "gpt-4o-mini",
	"gpt-4o":      "gpt-4o",
	"gpt-4.1":     "gpt-4.1",
}

var openAIModelAliases = map[string]string{
	"gpt4o-mini":             "gpt-4o-mini",
	"gpt4omini":              "gpt-4o-mini",
	"gpt-4o-mini-2024-07-18": "gpt-4o-mini",
	"gpt4o":                  "gpt-4o",
	"gpt4.1":                 "gpt-4.1",
}

func NewOpenAIEnhancer(opts OpenAIOptions) (*OpenAIEnhancer, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("openai api key is required")
	}
	cfg := openai.DefaultConfig(strings.TrimSpace(opts.APIKey))
	if base := strings.TrimSpace(opts.BaseURL); base != "" {
		cfg.BaseURL = base
	}
	return newOpenAIEnhancer(openai.NewClientWithConfig(cfg), opts), nil
}

func newOpenAIEnhancer(client chatCompleter, opts OpenAIOptions) *OpenAIEnhancer {
	modelInput := strings.TrimSpace(opts.Model)
	model, reason := normalizeOpenAIModel(modelInput)
	if reason != "" && opts.OnWarning != nil {
		opts.OnWarning("model_"+reason, fmt.Sprintf("requested=%s resolved=%s", coalesce(modelInput, defaultOpenAIModel), model))
	}
	return &OpenAIEnhancer{
		client:     client,
		model:      model,
		fallback:   opts.Fallback,
		onFallback: opts.OnFallback,
	}
}

func (o *OpenAIEnhancer) Enhance(ctx context.Context, req EnhanceRequest) (*EnhanceResponse, error) {
	if o.client == nil {
		return o.useFallback(ctx, req, "missing_client", nil)
	}
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		Temperature: 0.6,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemInstruction},
			{Role: openai.ChatMessageRoleUser, Content: buildEnhancePromptPayload(req)},
		},
	})
	if err != nil {
		return o.useFallback(ctx, req, "chat_completion", err)
	}
	if len(resp.Choices) == 0 {
		return o.useFallback(ctx, req, "empty_choices", errors.New("no choices"))
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return o.useFallback(ctx, req, "empty_response", errors.New("empty response"))
	}
	parsed, err := parseModelPayload[modelEnhancePayload](text)
	if err != nil {
		return o.useFallback(ctx, req, "parse_payload", err)
	}
	prompt := coalesce(parsed.Prompt, req.Prompt)
	return &EnhanceResponse{
		Prompt:   prompt,
		Ideas:    normalizeIdeas(parsed.Ideas, prompt),
		Metadata: ensureMetadata(nil, req.Locale),
		Provider: openAIProviderName,
	}, nil
}

func (o *OpenAIEnhancer) useFallback(ctx context.Context, req EnhanceRequest, reason string, err error) (*EnhanceResponse, error) {
	if o.onFallback != nil {
		o.onFallback(reason, err)
	}
	return useFallback(ctx, o.fallback, req, reason)
}

var _ Enhancer = (*OpenAIEnhancer)(nil)

func normalizeOpenAIModel(name string) (string, string) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return defaultOpenAIModel, ""
	}
	normalized := strings.ToLower(trimmed)
	normalized = strings.ReplaceAll(normalized, "_", "-")
	normalized = strings.ReplaceAll(normalized, " ", "-")
	if canonical, ok := openAIModelCanonical[normalized]; ok {
		return canonical, ""
	}
	if alias, ok := openAIModelAliases[normalized]; ok {
		return alias, "alias"
	}
	return defaultOpenAIModel, "defaulted"
}
