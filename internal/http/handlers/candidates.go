package handlers

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"studio/pkg/zip"
)

func (a *App) ListCandidates(w http.ResponseWriter, r *http.Request) {
	s, err := a.session(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"items": s.Candidates()})
}

func (a *App) GetCandidate(w http.ResponseWriter, r *http.Request) {
	s, err := a.session(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	c, err := s.Candidate(chi.URLParam(r, "cid"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeImage(w, c.MIME, c.Data())
}

func (a *App) SelectCandidate(w http.ResponseWriter, r *http.Request) {
	s, err := a.session(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	version, err := s.SelectCandidate(chi.URLParam(r, "cid"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	img, _, err := s.Image()
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, imageResponse{Version: version, MIME: img.MIME})
}

// CandidatesZip streams every headshot candidate as one archive.
func (a *App) CandidatesZip(w http.ResponseWriter, r *http.Request) {
	s, err := a.session(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	cands := s.Candidates()
	if len(cands) == 0 {
		a.error(w, r, http.StatusNotFound, "not_found", msgNotFound)
		return
	}
	assets := make([]zip.Asset, 0, len(cands))
	for _, c := range cands {
		assets = append(assets, zip.Asset{
			Filename: fmt.Sprintf("headshot-%d%s", c.Index+1, extension(c.MIME)),
			MIME:     c.MIME,
			Data:     c.Data(),
			Modified: c.CreatedAt,
		})
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=headshots-%s.zip", s.ID))
	w.WriteHeader(http.StatusOK)
	if err := zip.WriteAssets(w, assets); err != nil {
		a.logger(r).Warn().Err(err).Msg("candidate archive interrupted")
	}
}

func extension(mime string) string {
	switch mime {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}
