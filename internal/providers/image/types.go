package image

import (
	"context"
	"errors"
	"strings"
)

// WorkflowMode enumerates the portrait edits a panel can request.
type WorkflowMode string

const (
	WorkflowModeRetouch   WorkflowMode = "retouch"
	WorkflowModePose      WorkflowMode = "pose"
	WorkflowModeFaceSwap  WorkflowMode = "faceswap"
	WorkflowModeHairstyle WorkflowMode = "hairstyle"
	WorkflowModeHeadshot  WorkflowMode = "headshot"
	WorkflowModePassport  WorkflowMode = "passport"
)

// WorkflowModes lists every mode in panel order.
var WorkflowModes = []WorkflowMode{
	WorkflowModeRetouch,
	WorkflowModePose,
	WorkflowModeFaceSwap,
	WorkflowModeHairstyle,
	WorkflowModeHeadshot,
	WorkflowModePassport,
}

// ParseWorkflowMode sanitizes a path segment or flag into a known mode.
func ParseWorkflowMode(raw string) (WorkflowMode, bool) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	raw = strings.NewReplacer("-", "", "_", "").Replace(raw)
	for _, mode := range WorkflowModes {
		if string(mode) == raw {
			return mode, true
		}
	}
	return "", false
}

// RoleMode decides which face-swap image is the face source.
type RoleMode string

const (
	RoleCurrentIsSource RoleMode = "current_is_source"
	RoleCurrentIsTarget RoleMode = "current_is_target"
)

// ParseRoleMode accepts the canonical names plus the short forms used by the CLI.
func ParseRoleMode(raw string) (RoleMode, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(RoleCurrentIsSource), "source", "current-is-source":
		return RoleCurrentIsSource, true
	case string(RoleCurrentIsTarget), "target", "current-is-target":
		return RoleCurrentIsTarget, true
	default:
		return "", false
	}
}

// Payload is an opaque image blob.
type Payload struct {
	Data     []byte
	MIME     string
	Filename string
}

// GenerateRequest is the normalized input contract handed to every provider.
//
// Images holds the uploaded inputs in order; for face swap it is always
// [source, target] after role resolution. Current is the ambient image the
// edit applies to, when the mode uses one.
type GenerateRequest struct {
	Mode      WorkflowMode
	Prompt    string
	Images    []Payload
	Current   *Payload
	Role      RoleMode
	Quantity  int
	RequestID string
	Locale    string
}

// Artifact is a generated or edited image.
type Artifact struct {
	Data   []byte
	MIME   string
	URL    string
	Width  int
	Height int
}

// Generator is the contract implemented by all image providers.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) ([]Artifact, error)
}

var (
	// ErrMissingAPIKey is returned by providers constructed without credentials.
	ErrMissingAPIKey = errors.New("image: missing api key")
	// ErrUnsupportedMode is returned when a provider cannot serve the request shape.
	ErrUnsupportedMode = errors.New("image: unsupported mode for provider")
	// ErrEmptyResult is returned when a provider answers without any image.
	ErrEmptyResult = errors.New("image: provider returned no image")
)
