package handlers

import (
	"net/http"
	"time"

	"studio/internal/domain"
)

// UsageReport returns per-mode generation counters for ?day=YYYY-MM-DD (UTC, default today).
func (a *App) UsageReport(w http.ResponseWriter, r *http.Request) {
	if a.Usage == nil {
		a.error(w, r, http.StatusNotFound, "not_found", msgNotFound)
		return
	}
	day := time.Now().UTC()
	if raw := r.URL.Query().Get("day"); raw != "" {
		parsed, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			a.error(w, r, http.StatusBadRequest, "bad_request", msgBadRequest)
			return
		}
		day = parsed
	}
	rows, err := a.Usage.ListDay(r.Context(), day)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if rows == nil {
		rows = []domain.UsageDaily{}
	}
	a.json(w, http.StatusOK, map[string]any{"day": day.Format(time.DateOnly), "items": rows})
}
