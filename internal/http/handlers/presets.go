package handlers

import (
	"net/http"

	"studio/internal/domain"
	"studio/internal/middleware"
	"studio/internal/providers/image"
)

type presetResponse struct {
	ID    string             `json:"id"`
	Mode  image.WorkflowMode `json:"mode"`
	Label string             `json:"label"`
}

// Presets lists the preset catalogue, optionally filtered by ?panel=.
func (a *App) Presets(w http.ResponseWriter, r *http.Request) {
	var mode image.WorkflowMode
	if raw := r.URL.Query().Get("panel"); raw != "" {
		m, ok := image.ParseWorkflowMode(raw)
		if !ok {
			a.fail(w, r, domain.ErrUnknownPanel)
			return
		}
		mode = m
	}
	locale := middleware.LocaleFromContext(r.Context())
	items := []presetResponse{}
	for _, p := range domain.Presets(mode) {
		items = append(items, presetResponse{ID: p.ID, Mode: p.Mode, Label: p.Label(locale)})
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}
