package domain

import (
	"errors"

	"studio/internal/workflow"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrNoCurrentImage   = workflow.ErrNoCurrentImage
	ErrUnknownPanel     = errors.New("unknown panel")
	ErrUnknownPreset    = errors.New("unknown preset")
	ErrPromptRequired   = errors.New("prompt or preset required")
	ErrUnsupportedMedia = errors.New("unsupported media type")
	ErrPayloadTooLarge  = errors.New("payload too large")
)
