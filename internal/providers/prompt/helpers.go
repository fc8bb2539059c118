package prompt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"studio/internal/providers/image"
)

const (
	staticProviderName = "static"
	geminiProviderName = "gemini"
	openAIProviderName = "openai"

	maxIdeas = 4
)

type modelEnhancePayload struct {
	Prompt string   `json:"prompt"`
	Ideas  []string `json:"ideas"`
}

const systemInstruction = "You write edit directions for an AI portrait photo editor. Respond only with valid JSON."

func buildEnhancePromptPayload(req EnhanceRequest) string {
	locale := coalesce(req.Locale, "en")
	sb := &strings.Builder{}
	fmt.Fprintf(sb, "Rewrite the user's direction for the %s panel of a portrait editor into one precise instruction an image model follows well. ", panelTask(req.Mode))
	sb.WriteString("Keep the person's identity. Do not add new people or text. Also propose up to three alternative directions. ")
	sb.WriteString(`Respond strictly with JSON matching {"prompt":string,"ideas":string[]}. `)
	fmt.Fprintf(sb, "Write in locale '%s'. User direction: %q.", locale, strings.TrimSpace(req.Prompt))
	return sb.String()
}

func panelTask(mode image.WorkflowMode) string {
	switch mode {
	case image.WorkflowModeRetouch:
		return "retouch (skin and lighting touch-ups)"
	case image.WorkflowModePose:
		return "pose (body and head position)"
	case image.WorkflowModeHairstyle:
		return "hairstyle (hair cut, colour and styling)"
	case image.WorkflowModeFaceSwap:
		return "face swap"
	case image.WorkflowModeHeadshot:
		return "professional headshot"
	case image.WorkflowModePassport:
		return "passport photo"
	default:
		return string(mode)
	}
}

func ensureMetadata(meta map[string]string, locale string) map[string]string {
	if meta == nil {
		meta = map[string]string{}
	}
	meta["locale"] = coalesce(locale, "en")
	return meta
}

// normalizeIdeas trims, drops duplicates of each other and of prompt, and caps the list.
func normalizeIdeas(ideas []string, prompt string) []string {
	seen := map[string]struct{}{strings.ToLower(strings.TrimSpace(prompt)): {}}
	result := []string{}
	for _, idea := range ideas {
		idea = strings.TrimSpace(idea)
		if idea == "" {
			continue
		}
		key := strings.ToLower(idea)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, idea)
		if len(result) == maxIdeas {
			break
		}
	}
	return result
}

func coalesce(values ...string) string {
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" {
			return v
		}
	}
	return ""
}

func parseModelPayload[T any](raw string) (T, error) {
	var zero T
	cleaned := extractJSONFragment(raw)
	if cleaned == "" {
		return zero, errors.New("empty payload")
	}
	var decoded T
	if err := json.Unmarshal([]byte(cleaned), &decoded); err != nil {
		return zero, err
	}
	return decoded, nil
}

func extractJSONFragment(raw string) string {
	text := strings.TrimSpace(raw)
	if text == "" {
		return ""
	}
	text = trimCodeFence(text)
	start := strings.IndexAny(text, "{[")
	end := strings.LastIndexAny(text, "]}")
	if start >= 0 && end >= start {
		text = text[start : end+1]
	}
	return strings.TrimSpace(text)
}

func trimCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```JSON")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)
	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}

// useFallback answers from fallback, or the static enhancer, and records why
// the model was skipped.
func useFallback(ctx context.Context, fallback Enhancer, req EnhanceRequest, reason string) (*EnhanceResponse, error) {
	if fallback == nil {
		fallback = NewStaticEnhancer()
	}
	res, err := fallback.Enhance(ctx, req)
	if res != nil {
		if res.Provider == "" {
			res.Provider = staticProviderName
		}
		if res.Metadata == nil {
			res.Metadata = map[string]string{}
		}
		if reason != "" {
			res.Metadata["fallback_reason"] = reason
		}
	}
	return res, err
}
