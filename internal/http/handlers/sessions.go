package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"studio/internal/providers/image"
)

type imageResponse struct {
	Version int    `json:"image_version"`
	MIME    string `json:"mime"`
}

// CreateSession opens a session, seeded with the optional "image" part.
func (a *App) CreateSession(w http.ResponseWriter, r *http.Request) {
	uploads, err := a.readUploads(w, r, "image", 1)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var current *image.Payload
	if len(uploads) > 0 {
		current = &uploads[0]
	}
	s := a.Sessions.Create(current)
	w.Header().Set("Location", "/v1/sessions/"+s.ID)
	a.json(w, http.StatusCreated, s.Summary())
}

func (a *App) GetSession(w http.ResponseWriter, r *http.Request) {
	s, err := a.session(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, s.Summary())
}

func (a *App) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := a.Sessions.Close(r.Context(), chi.URLParam(r, "sid")); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PutImage replaces the current image with the "image" part.
func (a *App) PutImage(w http.ResponseWriter, r *http.Request) {
	s, err := a.session(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	uploads, err := a.readUploads(w, r, "image", 1)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if len(uploads) != 1 {
		a.error(w, r, http.StatusBadRequest, "bad_request", msgBadRequest)
		return
	}
	version, err := s.SetImage(uploads[0])
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, imageResponse{Version: version, MIME: uploads[0].MIME})
}

func (a *App) GetImage(w http.ResponseWriter, r *http.Request) {
	s, err := a.session(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	img, version, err := s.Image()
	if err != nil {
		a.fail(w, r, err)
		return
	}
	w.Header().Set("X-Image-Version", strconv.Itoa(version))
	writeImage(w, img.MIME, img.Data)
}
