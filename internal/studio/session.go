package studio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"studio/internal/domain"
	"studio/internal/providers/image"
	"studio/internal/workflow"
)

// Candidate is a headshot result the user can promote to the current image.
type Candidate struct {
	ID        string    `json:"id"`
	Index     int       `json:"index"`
	MIME      string    `json:"mime"`
	Size      int       `json:"size"`
	CreatedAt time.Time `json:"created_at"`
	data      []byte
}

// Data returns the candidate bytes.
func (c Candidate) Data() []byte { return c.data }

// Summary is the render state of a whole session.
type Summary struct {
	ID           string              `json:"id"`
	HasImage     bool                `json:"has_image"`
	ImageVersion int                 `json:"image_version"`
	ImageMIME    string              `json:"image_mime,omitempty"`
	Candidates   []Candidate         `json:"candidates"`
	Panels       []workflow.Snapshot `json:"panels"`
	CreatedAt    time.Time           `json:"created_at"`
	LastActive   time.Time           `json:"last_active"`
}

// Session owns the current image, headshot candidates and one controller per
// panel. Controllers call into the session (CurrentImage, Deliver) while
// holding their own lock, so the session never calls a controller while
// holding s.mu.
type Session struct {
	ID        string
	CreatedAt time.Time

	specs  map[image.WorkflowMode]PanelSpec
	order  []image.WorkflowMode
	panels map[image.WorkflowMode]*workflow.Controller
	hub    *Hub
	logger zerolog.Logger
	now    func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	current    *image.Payload
	version    int
	candidates []Candidate
	lastActive time.Time
	closed     bool
}

// CurrentImage implements workflow.Shell.
func (s *Session) CurrentImage() (image.Payload, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return image.Payload{}, false
	}
	return *s.current, true
}

// Deliver implements workflow.Shell. Headshot results replace the candidate
// list; every other panel's first artifact becomes the current image.
func (s *Session) Deliver(mode image.WorkflowMode, artifacts []image.Artifact) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.lastActive = s.now()
	if mode == image.WorkflowModeHeadshot {
		s.candidates = nil
		for _, a := range artifacts {
			if len(a.Data) == 0 {
				s.logger.Warn().Str("panel", string(mode)).Msg("artifact without data skipped")
				continue
			}
			s.candidates = append(s.candidates, Candidate{
				ID:        uuid.NewString(),
				Index:     len(s.candidates),
				MIME:      a.MIME,
				Size:      len(a.Data),
				CreatedAt: s.now().UTC(),
				data:      a.Data,
			})
		}
		n := len(s.candidates)
		s.mu.Unlock()
		s.hub.Publish(Event{Type: EventCandidates, Candidates: n})
		return
	}

	var applied bool
	for _, a := range artifacts {
		if len(a.Data) == 0 {
			continue
		}
		s.current = &image.Payload{Data: a.Data, MIME: a.MIME, Filename: fmt.Sprintf("%s-%d.png", mode, s.version+1)}
		s.version++
		applied = true
		break
	}
	version := s.version
	s.mu.Unlock()
	if !applied {
		s.logger.Warn().Str("panel", string(mode)).Msg("no artifact carried image data")
		return
	}
	s.hub.Publish(Event{Type: EventImage, ImageVersion: version})
}

// SetImage replaces the current image and returns its new version.
func (s *Session) SetImage(p image.Payload) (int, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0, workflow.ErrClosed
	}
	s.current = &p
	s.version++
	s.lastActive = s.now()
	version := s.version
	s.mu.Unlock()
	s.hub.Publish(Event{Type: EventImage, ImageVersion: version})
	return version, nil
}

// Image returns the current image and its version.
func (s *Session) Image() (image.Payload, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return image.Payload{}, s.version, domain.ErrNoCurrentImage
	}
	return *s.current, s.version, nil
}

// Candidates returns the headshot candidates in delivery order.
func (s *Session) Candidates() []Candidate {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Candidate, len(s.candidates))
	copy(out, s.candidates)
	return out
}

// Candidate looks up one candidate.
func (s *Session) Candidate(id string) (Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.candidates {
		if c.ID == id {
			return c, nil
		}
	}
	return Candidate{}, domain.ErrNotFound
}

// SelectCandidate promotes a candidate to the current image.
func (s *Session) SelectCandidate(id string) (int, error) {
	c, err := s.Candidate(id)
	if err != nil {
		return 0, err
	}
	return s.SetImage(image.Payload{Data: c.data, MIME: c.MIME, Filename: "headshot-" + c.ID + ".png"})
}

// Panel returns the controller for mode.
func (s *Session) Panel(mode image.WorkflowMode) (*workflow.Controller, error) {
	c, ok := s.panels[mode]
	if !ok {
		return nil, domain.ErrUnknownPanel
	}
	return c, nil
}

// Spec returns the static policy of mode.
func (s *Session) Spec(mode image.WorkflowMode) (PanelSpec, error) {
	spec, ok := s.specs[mode]
	if !ok {
		return PanelSpec{}, domain.ErrUnknownPanel
	}
	return spec, nil
}

// SetPrompt resolves a preset and free text into the panel prompt.
func (s *Session) SetPrompt(mode image.WorkflowMode, presetID, text string) error {
	c, err := s.Panel(mode)
	if err != nil {
		return err
	}
	prompt, err := domain.ResolvePrompt(mode, presetID, text)
	if err != nil {
		return err
	}
	s.Touch()
	return c.SetPrompt(prompt)
}

// Ready checks everything Generate would check without calling out.
func (s *Session) Ready(mode image.WorkflowMode) error {
	c, err := s.Panel(mode)
	if err != nil {
		return err
	}
	return c.Ready()
}

// Generate triggers mode and blocks until the call resolves. The call is
// canceled when the session closes.
func (s *Session) Generate(ctx context.Context, mode image.WorkflowMode) ([]image.Artifact, error) {
	c, err := s.Panel(mode)
	if err != nil {
		return nil, err
	}
	s.Touch()

	ctx, stop := mergeCancel(ctx, s.ctx)
	defer stop()
	artifacts, err := c.Trigger(ctx)
	s.Touch()
	return artifacts, err
}

// GenerateAsync moves the panel to in_flight before returning, then runs the
// call in the background bounded by timeout. A second request for the same
// panel gets ErrBusy. Progress is observable through snapshots.
func (s *Session) GenerateAsync(mode image.WorkflowMode, timeout time.Duration) error {
	c, err := s.Panel(mode)
	if err != nil {
		return err
	}
	req, err := c.Begin()
	if err != nil {
		return err
	}
	s.Touch()
	go func() {
		ctx, cancel := context.WithTimeout(s.ctx, timeout)
		defer cancel()
		_, err := c.Finish(ctx, req)
		s.Touch()
		var gf *workflow.GenerationFailure
		switch {
		case err == nil, errors.As(err, &gf):
			// Recorded on the panel snapshot.
		case errors.Is(err, workflow.ErrClosed):
			s.logger.Debug().Err(err).Str("panel", string(mode)).Msg("background generation discarded")
		default:
			s.logger.Warn().Err(err).Str("panel", string(mode)).Msg("background generation refused")
		}
	}()
	return nil
}

// Snapshots returns every panel snapshot in display order.
func (s *Session) Snapshots() []workflow.Snapshot {
	out := make([]workflow.Snapshot, 0, len(s.order))
	for _, mode := range s.order {
		out = append(out, s.panels[mode].Snapshot())
	}
	return out
}

// Summary returns the render state of the session.
func (s *Session) Summary() Summary {
	panels := s.Snapshots()
	s.mu.Lock()
	defer s.mu.Unlock()
	sum := Summary{
		ID:           s.ID,
		HasImage:     s.current != nil,
		ImageVersion: s.version,
		Candidates:   make([]Candidate, len(s.candidates)),
		Panels:       panels,
		CreatedAt:    s.CreatedAt,
		LastActive:   s.lastActive,
	}
	if s.current != nil {
		sum.ImageMIME = s.current.MIME
	}
	copy(sum.Candidates, s.candidates)
	return sum
}

// Subscribe streams session events until cancel is called or the session closes.
func (s *Session) Subscribe(buffer int) (<-chan Event, func()) {
	return s.hub.Subscribe(buffer)
}

// Touch records activity for the idle sweep.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastActive = s.now()
	s.mu.Unlock()
}

// LastActive returns the time of the last recorded activity.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Busy reports whether any panel has a call in flight.
func (s *Session) Busy() bool {
	for _, c := range s.panels {
		if c.Snapshot().State == workflow.StateInFlight {
			return true
		}
	}
	return false
}

// close tears down every panel and ends subscriptions. It is idempotent.
func (s *Session) close(ctx context.Context) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	s.closed = true
	s.candidates = nil
	s.current = nil
	s.mu.Unlock()

	// Panels close before the context is canceled so a call unblocked by the
	// cancellation finds its controller closed and discards the result.
	for _, mode := range s.order {
		s.panels[mode].Teardown(ctx)
	}
	s.cancel()
	s.hub.Close()
	return true
}

func (s *Session) publishPanel(snap workflow.Snapshot) {
	s.hub.Publish(Event{Type: EventPanel, Panel: &snap})
}

// mergeCancel returns a context canceled when either parent is done.
func mergeCancel(ctx, other context.Context) (context.Context, context.CancelFunc) {
	merged, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(other, cancel)
	return merged, func() {
		stop()
		cancel()
	}
}
