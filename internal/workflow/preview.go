package workflow

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrPreviewNotFound is returned for unknown or already released handles.
var ErrPreviewNotFound = errors.New("workflow: preview not found")

// PreviewStore is the blob store backing preview handles.
type PreviewStore interface {
	Write(ctx context.Context, key string, data []byte) (string, error)
	Read(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// PreviewHandle is a revocable reference to the rendered preview of one input.
type PreviewHandle struct {
	ID        string    `json:"id"`
	InputID   string    `json:"input_id"`
	Key       string    `json:"-"`
	MIME      string    `json:"mime"`
	Filename  string    `json:"filename,omitempty"`
	Size      int       `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// PreviewManager keeps exactly one live handle per held input.
type PreviewManager struct {
	store   PreviewStore
	scope   string
	logger  zerolog.Logger
	byInput map[string]*PreviewHandle
	byID    map[string]*PreviewHandle
}

// NewPreviewManager creates a manager whose blobs live under previews/<scope>/.
func NewPreviewManager(store PreviewStore, scope string, logger zerolog.Logger) *PreviewManager {
	return &PreviewManager{
		store:   store,
		scope:   scope,
		logger:  logger,
		byInput: make(map[string]*PreviewHandle),
		byID:    make(map[string]*PreviewHandle),
	}
}

// Reconcile acquires handles for inputs that lack one, then releases handles
// whose input is no longer held. Acquisition runs first so that a failure
// leaves every previously live handle intact: the caller rolls its input set
// back and reconciles again, which then only has to release.
func (m *PreviewManager) Reconcile(ctx context.Context, inputs []PendingInput) error {
	want := make(map[string]struct{}, len(inputs))
	for _, in := range inputs {
		want[in.ID] = struct{}{}
		if _, ok := m.byInput[in.ID]; ok {
			continue
		}
		if err := m.acquire(ctx, in); err != nil {
			return err
		}
	}
	for inputID, h := range m.byInput {
		if _, ok := want[inputID]; !ok {
			m.release(ctx, h)
		}
	}
	return nil
}

// ReleaseAll revokes every live handle. It is safe to call repeatedly.
func (m *PreviewManager) ReleaseAll(ctx context.Context) {
	for _, h := range m.byInput {
		m.release(ctx, h)
	}
}

// Live returns the number of handles currently acquired.
func (m *PreviewManager) Live() int {
	return len(m.byInput)
}

// Handles returns the live handles ordered like inputs.
func (m *PreviewManager) Handles(inputs []PendingInput) []PreviewHandle {
	out := make([]PreviewHandle, 0, len(inputs))
	for _, in := range inputs {
		if h, ok := m.byInput[in.ID]; ok {
			out = append(out, *h)
		}
	}
	return out
}

// Open returns the preview bytes for a live handle.
func (m *PreviewManager) Open(ctx context.Context, handleID string) ([]byte, PreviewHandle, error) {
	h, ok := m.byID[handleID]
	if !ok {
		return nil, PreviewHandle{}, ErrPreviewNotFound
	}
	data, err := m.store.Read(ctx, h.Key)
	if err != nil {
		return nil, PreviewHandle{}, fmt.Errorf("preview: read %s: %w", h.ID, err)
	}
	return data, *h, nil
}

func (m *PreviewManager) acquire(ctx context.Context, in PendingInput) error {
	id := uuid.NewString()
	key, err := m.store.Write(ctx, path.Join("previews", m.scope, id), in.Payload.Data)
	if err != nil {
		return fmt.Errorf("preview: acquire for input %s: %w", in.ID, err)
	}
	h := &PreviewHandle{
		ID:        id,
		InputID:   in.ID,
		Key:       key,
		MIME:      in.Payload.MIME,
		Filename:  in.Payload.Filename,
		Size:      len(in.Payload.Data),
		CreatedAt: time.Now().UTC(),
	}
	m.byInput[in.ID] = h
	m.byID[id] = h
	return nil
}

// release revokes h before touching the store, so a failed delete leaves a
// stray blob on disk but never a live handle.
func (m *PreviewManager) release(ctx context.Context, h *PreviewHandle) {
	if _, ok := m.byID[h.ID]; !ok {
		return
	}
	delete(m.byID, h.ID)
	delete(m.byInput, h.InputID)
	if err := m.store.Delete(context.WithoutCancel(ctx), h.Key); err != nil {
		m.logger.Warn().Err(err).Str("preview", h.ID).Msg("preview blob delete failed")
	}
}
