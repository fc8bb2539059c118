package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"

	"studio/internal/domain"
	"studio/internal/providers/image"
)

// readUploads parses a multipart body and returns every part under field as
// a sniffed image payload. Each file is capped at a.MaxUploadBytes and the
// body at maxFiles of them.
func (a *App) readUploads(w http.ResponseWriter, r *http.Request, field string, maxFiles int) ([]image.Payload, error) {
	if maxFiles < 1 {
		maxFiles = 1
	}
	r.Body = http.MaxBytesReader(w, r.Body, a.MaxUploadBytes*int64(maxFiles)+(1<<20))
	if err := r.ParseMultipartForm(a.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, domain.ErrPayloadTooLarge
		}
		if errors.Is(err, http.ErrNotMultipart) || errors.Is(err, http.ErrMissingBoundary) {
			return nil, nil
		}
		return nil, fmt.Errorf("parse multipart: %w", err)
	}
	if r.MultipartForm == nil {
		return nil, nil
	}
	headers := r.MultipartForm.File[field]
	out := make([]image.Payload, 0, len(headers))
	for _, fh := range headers {
		p, err := a.readPart(fh)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (a *App) readPart(fh *multipart.FileHeader) (image.Payload, error) {
	if fh.Size > a.MaxUploadBytes {
		return image.Payload{}, domain.ErrPayloadTooLarge
	}
	f, err := fh.Open()
	if err != nil {
		return image.Payload{}, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, a.MaxUploadBytes+1))
	if err != nil {
		return image.Payload{}, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > a.MaxUploadBytes {
		return image.Payload{}, domain.ErrPayloadTooLarge
	}
	mime, err := domain.SniffImageMIME(data, fh.Header.Get("Content-Type"))
	if err != nil {
		return image.Payload{}, err
	}
	return image.Payload{Data: data, MIME: mime, Filename: filepath.Base(fh.Filename)}, nil
}
