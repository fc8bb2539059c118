package prompt

import (
	"context"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"studio/internal/domain"
	"studio/internal/providers/image"
)

// EnhanceRequest is a free-text direction typed into a panel.
type EnhanceRequest struct {
	Mode   image.WorkflowMode
	Prompt string
	Locale string
}

// EnhanceResponse is a rewritten direction plus alternatives the user can pick.
type EnhanceResponse struct {
	Prompt   string            `json:"prompt"`
	Ideas    []string          `json:"ideas"`
	Metadata map[string]string `json:"metadata"`
	Provider string            `json:"provider"`
}

// Enhancer turns a rough direction into one a generation model follows well.
type Enhancer interface {
	Enhance(ctx context.Context, req EnhanceRequest) (*EnhanceResponse, error)
}

// StaticEnhancer tidies the text and offers the panel presets as ideas.
type StaticEnhancer struct{}

func NewStaticEnhancer() *StaticEnhancer {
	return &StaticEnhancer{}
}

func (s *StaticEnhancer) Enhance(ctx context.Context, req EnhanceRequest) (*EnhanceResponse, error) {
	text := sentenceCase(req.Prompt, req.Locale)
	var ideas []string
	for _, p := range domain.Presets(req.Mode) {
		idea := p.Instruction
		if text != "" {
			idea = text + "; " + p.Instruction
		}
		ideas = append(ideas, idea)
	}
	prompt := coalesce(text, firstOf(ideas))
	return &EnhanceResponse{
		Prompt:   prompt,
		Ideas:    normalizeIdeas(ideas, prompt),
		Metadata: ensureMetadata(nil, req.Locale),
		Provider: staticProviderName,
	}, nil
}

var _ Enhancer = (*StaticEnhancer)(nil)

// sentenceCase collapses whitespace and capitalises the first word.
func sentenceCase(text, locale string) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.Und
	}
	words[0] = cases.Title(tag, cases.NoLower).String(words[0])
	return strings.Join(words, " ")
}

func firstOf(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
