package domain

import (
	"net/http"
	"strings"
)

var allowedImageTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/webp": {},
	"image/heic": {},
}

// SniffImageMIME returns the media type of data when it is an accepted image
// format. The declared type is only trusted for formats the sniffer does not know.
func SniffImageMIME(data []byte, declared string) (string, error) {
	if len(data) == 0 {
		return "", ErrUnsupportedMedia
	}
	sniffed := http.DetectContentType(data)
	if _, ok := allowedImageTypes[sniffed]; ok {
		return sniffed, nil
	}
	declared = strings.ToLower(strings.TrimSpace(declared))
	if sniffed == "application/octet-stream" && declared == "image/heic" {
		return declared, nil
	}
	return "", ErrUnsupportedMedia
}
