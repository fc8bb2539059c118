package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"studio/internal/domain"
	"studio/internal/middleware"
	"studio/internal/providers/image"
	"studio/internal/providers/prompt"
	"studio/internal/studio"
	"studio/internal/workflow"
)

// App carries the collaborators shared by every handler.
type App struct {
	Sessions          *studio.Manager
	Usage             domain.UsageRepository
	Enhancer          prompt.Enhancer
	Logger            zerolog.Logger
	MaxUploadBytes    int64
	GenerationTimeout time.Duration
	Provider          string
	AllowedOrigins    []string
}

func NewApp(sessions *studio.Manager, logger zerolog.Logger) *App {
	return &App{
		Sessions:          sessions,
		Enhancer:          prompt.NewStaticEnhancer(),
		Logger:            logger,
		MaxUploadBytes:    15 << 20,
		GenerationTimeout: 2 * time.Minute,
	}
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Reason  string `json:"reason,omitempty"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, r *http.Request, code int, errCode, key string, args ...any) {
	a.json(w, code, errorResponse{Error: errCode, Message: localize(middleware.LocaleFromContext(r.Context()), key, args...)})
}

// fail maps domain and workflow errors onto HTTP responses.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	locale := middleware.LocaleFromContext(r.Context())
	if cv, ok := workflow.IsConstraintViolation(err); ok {
		key := cv.Reason
		if !cv.Constraint.AcceptsUploads() && cv.Reason == workflow.ReasonAboveMaximum {
			key = msgNoUploads
		}
		a.json(w, http.StatusUnprocessableEntity, errorResponse{
			Error:   "constraint_violation",
			Message: localize(locale, key, cv.Count, cv.Constraint.Min, cv.Constraint.Max),
			Reason:  cv.Reason,
		})
		return
	}
	var gf *workflow.GenerationFailure
	switch {
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, r, http.StatusNotFound, "not_found", msgNotFound)
	case errors.Is(err, domain.ErrUnknownPanel):
		a.error(w, r, http.StatusNotFound, "unknown_panel", msgUnknownPanel)
	case errors.Is(err, workflow.ErrClosed):
		a.error(w, r, http.StatusGone, "closed", msgClosed)
	case errors.Is(err, workflow.ErrBusy):
		a.error(w, r, http.StatusConflict, "busy", msgBusy)
	case errors.Is(err, workflow.ErrNotReady):
		a.error(w, r, http.StatusConflict, "not_ready", msgNotReady)
	case errors.Is(err, domain.ErrNoCurrentImage):
		a.error(w, r, http.StatusConflict, "no_current_image", msgNoCurrentImage)
	case errors.Is(err, domain.ErrPromptRequired):
		a.error(w, r, http.StatusUnprocessableEntity, "prompt_required", msgPromptRequired)
	case errors.Is(err, domain.ErrUnknownPreset):
		a.error(w, r, http.StatusBadRequest, "unknown_preset", msgUnknownPreset)
	case errors.Is(err, domain.ErrUnsupportedMedia):
		a.error(w, r, http.StatusUnsupportedMediaType, "unsupported_media", msgUnsupportedMedia)
	case errors.Is(err, domain.ErrPayloadTooLarge):
		a.error(w, r, http.StatusRequestEntityTooLarge, "payload_too_large", msgPayloadTooLarge)
	case errors.As(err, &gf):
		a.json(w, http.StatusBadGateway, errorResponse{Error: "generation_failed", Message: gf.Message})
	default:
		a.logger(r).Error().Err(err).Msg("request failed")
		a.error(w, r, http.StatusInternalServerError, "internal", msgInternal)
	}
}

func (a *App) logger(r *http.Request) *zerolog.Logger {
	if l := zerolog.Ctx(r.Context()); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &a.Logger
}

func (a *App) session(r *http.Request) (*studio.Session, error) {
	return a.Sessions.Get(chi.URLParam(r, "sid"))
}

func (a *App) panel(r *http.Request) (*studio.Session, image.WorkflowMode, error) {
	s, err := a.session(r)
	if err != nil {
		return nil, "", err
	}
	mode, ok := image.ParseWorkflowMode(chi.URLParam(r, "panel"))
	if !ok {
		return nil, "", domain.ErrUnknownPanel
	}
	if _, err := s.Panel(mode); err != nil {
		return nil, "", err
	}
	return s, mode, nil
}

func writeImage(w http.ResponseWriter, mime string, data []byte) {
	if mime == "" {
		mime = "application/octet-stream"
	}
	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
