package image

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	stdimage "image"
	"image/color"
	"image/draw"
	"image/png"
	"time"
)

// Synthetic produces deterministic placeholder images so the service and CLI
// work end to end without credentials.
type Synthetic struct {
	Delay time.Duration
	Size  int
}

// NewSynthetic returns a placeholder generator with a short artificial latency.
func NewSynthetic() *Synthetic {
	return &Synthetic{Delay: 1500 * time.Millisecond, Size: 256}
}

func (s *Synthetic) Generate(ctx context.Context, req GenerateRequest) ([]Artifact, error) {
	quantity := req.Quantity
	if quantity <= 0 {
		quantity = 1
	}
	size := s.Size
	if size <= 0 {
		size = 256
	}
	out := make([]Artifact, quantity)
	for i := range out {
		data, err := placeholderPNG(size, fmt.Sprintf("%s|%s|%s|%d", req.Mode, req.RequestID, req.Prompt, i))
		if err != nil {
			return nil, err
		}
		out[i] = Artifact{Data: data, MIME: "image/png", Width: size, Height: size}
	}
	if s.Delay <= 0 {
		return out, nil
	}
	timer := time.NewTimer(s.Delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return out, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Synthetic) String() string { return "synthetic" }

var _ Generator = (*Synthetic)(nil)

// placeholderPNG renders a two-tone square whose colours derive from seed.
func placeholderPNG(size int, seed string) ([]byte, error) {
	sum := sha256.Sum256([]byte(seed))
	bg := color.RGBA{R: sum[0], G: sum[1], B: sum[2], A: 255}
	fg := color.RGBA{R: 255 - sum[0], G: 255 - sum[1], B: 255 - sum[2], A: 255}

	img := stdimage.NewRGBA(stdimage.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), &stdimage.Uniform{C: bg}, stdimage.Point{}, draw.Src)
	inset := size / 4
	draw.Draw(img, stdimage.Rect(inset, inset, size-inset, size-inset), &stdimage.Uniform{C: fg}, stdimage.Point{}, draw.Src)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode placeholder: %w", err)
	}
	return buf.Bytes(), nil
}
