package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"studio/internal/domain"
	"studio/internal/providers/image"
	"studio/internal/workflow"
)

type roleRequest struct {
	Role string `json:"role"`
}

type promptRequest struct {
	Preset string `json:"preset"`
	Prompt string `json:"prompt"`
}

func (a *App) GetPanel(w http.ResponseWriter, r *http.Request) {
	s, mode, err := a.panel(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	c, _ := s.Panel(mode)
	a.json(w, http.StatusOK, c.Snapshot())
}

// AddFiles takes the "files" parts of one picker selection or drop.
func (a *App) AddFiles(w http.ResponseWriter, r *http.Request) {
	s, mode, err := a.panel(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	c, _ := s.Panel(mode)
	maxFiles := workflow.HeadshotConstraint.Max
	if spec, err := s.Spec(mode); err == nil && spec.Constraint.Max > 0 {
		maxFiles = spec.Constraint.Max
	}
	uploads, err := a.readUploads(w, r, "files", maxFiles)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if err := c.Add(r.Context(), uploads...); err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, c.Snapshot())
}

func (a *App) ClearFiles(w http.ResponseWriter, r *http.Request) {
	s, mode, err := a.panel(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	c, _ := s.Panel(mode)
	if snap := c.Snapshot(); snap.State == workflow.StateInFlight {
		a.fail(w, r, workflow.ErrBusy)
		return
	}
	c.Clear(r.Context())
	a.json(w, http.StatusOK, c.Snapshot())
}

// RemoveFile drops one input. A stale index leaves the panel unchanged.
func (a *App) RemoveFile(w http.ResponseWriter, r *http.Request) {
	s, mode, err := a.panel(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		a.error(w, r, http.StatusBadRequest, "bad_request", msgBadRequest)
		return
	}
	c, _ := s.Panel(mode)
	if snap := c.Snapshot(); snap.State == workflow.StateInFlight {
		a.fail(w, r, workflow.ErrBusy)
		return
	}
	c.Remove(r.Context(), index)
	a.json(w, http.StatusOK, c.Snapshot())
}

func (a *App) SetRole(w http.ResponseWriter, r *http.Request) {
	s, mode, err := a.panel(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var req roleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, r, http.StatusBadRequest, "bad_request", msgBadRequest)
		return
	}
	role, ok := image.ParseRoleMode(req.Role)
	if !ok || mode != image.WorkflowModeFaceSwap {
		a.error(w, r, http.StatusBadRequest, "bad_request", msgUnknownRole)
		return
	}
	c, _ := s.Panel(mode)
	if err := c.SetRole(role); err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, c.Snapshot())
}

func (a *App) SetPrompt(w http.ResponseWriter, r *http.Request) {
	s, mode, err := a.panel(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var req promptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, r, http.StatusBadRequest, "bad_request", msgBadRequest)
		return
	}
	if err := s.SetPrompt(mode, req.Preset, req.Prompt); err != nil {
		a.fail(w, r, err)
		return
	}
	c, _ := s.Panel(mode)
	a.json(w, http.StatusOK, c.Snapshot())
}

// Generate validates synchronously and runs the call in the background.
// Clients follow progress through the panel snapshot or the event stream.
func (a *App) Generate(w http.ResponseWriter, r *http.Request) {
	s, mode, err := a.panel(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if err := s.GenerateAsync(mode, a.GenerationTimeout); err != nil {
		a.fail(w, r, err)
		return
	}
	c, _ := s.Panel(mode)
	a.json(w, http.StatusAccepted, c.Snapshot())
}

func (a *App) GetPreview(w http.ResponseWriter, r *http.Request) {
	s, mode, err := a.panel(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	c, _ := s.Panel(mode)
	data, handle, err := c.OpenPreview(r.Context(), chi.URLParam(r, "hid"))
	if err != nil {
		a.fail(w, r, domain.ErrNotFound)
		return
	}
	writeImage(w, handle.MIME, data)
}
