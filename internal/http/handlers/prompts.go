package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"studio/internal/domain"
	"studio/internal/middleware"
	"studio/internal/providers/image"
	"studio/internal/providers/prompt"
)

type enhanceRequest struct {
	Panel  string `json:"panel"`
	Prompt string `json:"prompt"`
}

// EnhancePrompt rewrites a free-text direction for a prompt-driven panel.
// The result is only a suggestion; clients apply it through SetPrompt.
func (a *App) EnhancePrompt(w http.ResponseWriter, r *http.Request) {
	var req enhanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, r, http.StatusBadRequest, "bad_request", msgBadRequest)
		return
	}
	mode, ok := image.ParseWorkflowMode(req.Panel)
	if !ok {
		a.fail(w, r, domain.ErrUnknownPanel)
		return
	}
	if strings.TrimSpace(req.Prompt) == "" && len(domain.Presets(mode)) == 0 {
		a.error(w, r, http.StatusUnprocessableEntity, "prompt_required", msgEmptyPrompt)
		return
	}
	enhancer := a.Enhancer
	if enhancer == nil {
		enhancer = prompt.NewStaticEnhancer()
	}
	res, err := enhancer.Enhance(r.Context(), prompt.EnhanceRequest{
		Mode:   mode,
		Prompt: req.Prompt,
		Locale: middleware.LocaleFromContext(r.Context()),
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.logger(r).Debug().Str("panel", string(mode)).Str("provider", res.Provider).Msg("prompt enhanced")
	a.json(w, http.StatusOK, res)
}
