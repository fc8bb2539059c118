package workflow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"studio/internal/providers/image"
)

type stubGenerator struct {
	mu        sync.Mutex
	calls     int
	lastReq   image.GenerateRequest
	artifacts []image.Artifact
	err       error
	started   chan struct{}
	release   chan struct{}
}

func (s *stubGenerator) Generate(ctx context.Context, req image.GenerateRequest) ([]image.Artifact, error) {
	s.mu.Lock()
	s.calls++
	s.lastReq = req
	artifacts, err := s.artifacts, s.err
	started, release := s.started, s.release
	s.mu.Unlock()
	if started != nil {
		close(started)
	}
	if release != nil {
		<-release
	}
	return artifacts, err
}

func (s *stubGenerator) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *stubGenerator) set(artifacts []image.Artifact, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.artifacts, s.err = artifacts, err
}

type stubShell struct {
	current   *image.Payload
	delivered [][]image.Artifact
}

func (s *stubShell) CurrentImage() (image.Payload, bool) {
	if s.current == nil {
		return image.Payload{}, false
	}
	return *s.current, true
}

func (s *stubShell) Deliver(mode image.WorkflowMode, artifacts []image.Artifact) {
	s.delivered = append(s.delivered, artifacts)
}

func artifacts(n int) []image.Artifact {
	out := make([]image.Artifact, n)
	for i := range out {
		out[i] = image.Artifact{Data: []byte{byte(i)}, MIME: "image/png"}
	}
	return out
}

func payloads(n int) []image.Payload {
	out := make([]image.Payload, n)
	for i := range out {
		out[i] = payload("in")
	}
	return out
}

func newHeadshotController(t *testing.T, gen image.Generator, shell Shell) *Controller {
	t.Helper()
	store, _ := newFileStore(t)
	return NewController(Config{
		Mode:             image.WorkflowModeHeadshot,
		Constraint:       HeadshotConstraint,
		ConsumeOnSuccess: true,
		Quantity:         4,
		Generator:        gen,
		Previews:         store,
		Scope:            "s1/headshot",
		Shell:            shell,
		Logger:           zerolog.Nop(),
	})
}

func newFaceSwapController(t *testing.T, gen image.Generator, shell Shell) *Controller {
	t.Helper()
	store, _ := newFileStore(t)
	return NewController(Config{
		Mode:             image.WorkflowModeFaceSwap,
		Constraint:       FaceSwapConstraint,
		UsesCurrentImage: true,
		Generator:        gen,
		Previews:         store,
		Scope:            "s1/faceswap",
		Shell:            shell,
		Logger:           zerolog.Nop(),
	})
}

func TestHeadshotScenario(t *testing.T) {
	ctx := context.Background()
	gen := &stubGenerator{artifacts: artifacts(4)}
	shell := &stubShell{}
	c := newHeadshotController(t, gen, shell)

	if err := c.Add(ctx, payloads(3)...); err != nil {
		t.Fatalf("Add(3): %v", err)
	}
	if c.CanTrigger() {
		t.Fatal("canTrigger should be false with 3 files")
	}
	if snap := c.Snapshot(); snap.PendingReason != ReasonBelowMinimum {
		t.Fatalf("pending reason = %q, want %q", snap.PendingReason, ReasonBelowMinimum)
	}

	if err := c.Add(ctx, payloads(1)...); err != nil {
		t.Fatalf("Add(1): %v", err)
	}
	if !c.CanTrigger() {
		t.Fatal("canTrigger should be true once the minimum is reached")
	}

	got, err := c.Trigger(ctx)
	if err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("artifacts = %d, want 4", len(got))
	}
	snap := c.Snapshot()
	if snap.State != StateSucceeded {
		t.Fatalf("state = %s, want succeeded", snap.State)
	}
	if snap.Count != 0 || c.LivePreviews() != 0 {
		t.Fatalf("accumulator should be consumed: count=%d previews=%d", snap.Count, c.LivePreviews())
	}
	if len(shell.delivered) != 1 || len(shell.delivered[0]) != 4 {
		t.Fatalf("shell deliveries = %+v", shell.delivered)
	}
	if len(gen.lastReq.Images) != 4 || gen.lastReq.Quantity != 4 || gen.lastReq.Current != nil {
		t.Fatalf("unexpected request: images=%d quantity=%d current=%v", len(gen.lastReq.Images), gen.lastReq.Quantity, gen.lastReq.Current)
	}
}

func TestHeadshotOverflowIsRejectedBeforeMutation(t *testing.T) {
	ctx := context.Background()
	c := newHeadshotController(t, &stubGenerator{}, &stubShell{})
	if err := c.Add(ctx, payloads(9)...); err != nil {
		t.Fatalf("Add(9): %v", err)
	}
	before := c.Snapshot()

	err := c.Add(ctx, payloads(2)...)
	cv, ok := IsConstraintViolation(err)
	if !ok {
		t.Fatalf("Add(2) err = %v, want ConstraintViolation", err)
	}
	if cv.Reason != ReasonAboveMaximum || cv.Count != 11 {
		t.Fatalf("violation = %+v", cv)
	}
	after := c.Snapshot()
	if after.Count != 9 || c.LivePreviews() != 9 {
		t.Fatalf("count = %d previews = %d, want 9/9", after.Count, c.LivePreviews())
	}
	for i := range before.Previews {
		if before.Previews[i].ID != after.Previews[i].ID {
			t.Fatalf("preview %d changed after rejected add", i)
		}
	}
	if after.State != StateIdle {
		t.Fatalf("state = %s, want idle", after.State)
	}
}

func TestTriggerBelowMinimumDoesNotCallOut(t *testing.T) {
	gen := &stubGenerator{artifacts: artifacts(1)}
	c := newHeadshotController(t, gen, &stubShell{})
	if err := c.Add(context.Background(), payloads(2)...); err != nil {
		t.Fatalf("Add: %v", err)
	}
	_, err := c.Trigger(context.Background())
	cv, ok := IsConstraintViolation(err)
	if !ok || cv.Reason != ReasonBelowMinimum {
		t.Fatalf("Trigger err = %v, want below minimum", err)
	}
	if gen.callCount() != 0 {
		t.Fatalf("generator called %d times", gen.callCount())
	}
	if c.Snapshot().State != StateIdle {
		t.Fatalf("state = %s, want idle", c.Snapshot().State)
	}
}

func TestFaceSwapFailureKeepsSelectionForRetry(t *testing.T) {
	ctx := context.Background()
	gen := &stubGenerator{err: errors.New("face not detected")}
	shell := &stubShell{current: &image.Payload{Data: []byte("current"), MIME: "image/jpeg"}}
	c := newFaceSwapController(t, gen, shell)

	if err := c.SetRole(image.RoleCurrentIsTarget); err != nil {
		t.Fatalf("SetRole: %v", err)
	}
	if err := c.Add(ctx, image.Payload{Data: []byte("other"), MIME: "image/png"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if !c.CanTrigger() {
		t.Fatal("canTrigger should be true with the slot filled")
	}

	_, err := c.Trigger(ctx)
	var gf *GenerationFailure
	if !errors.As(err, &gf) || gf.Message != "face not detected" {
		t.Fatalf("Trigger err = %v, want GenerationFailure", err)
	}
	snap := c.Snapshot()
	if snap.State != StateFailed || snap.LastError != "face not detected" {
		t.Fatalf("snapshot = %+v", snap)
	}
	if snap.Count != 1 || c.LivePreviews() != 1 {
		t.Fatalf("selection lost after failure: count=%d previews=%d", snap.Count, c.LivePreviews())
	}
	if !snap.CanTrigger {
		t.Fatal("retry should be enabled from failed")
	}
	if got := gen.lastReq.Images; len(got) != 2 || string(got[0].Data) != "other" || string(got[1].Data) != "current" {
		t.Fatalf("current-is-target should send [other, current], got %d images", len(got))
	}

	gen.set(artifacts(1), nil)
	if _, err := c.Trigger(ctx); err != nil {
		t.Fatalf("retry Trigger: %v", err)
	}
	snap = c.Snapshot()
	if snap.State != StateSucceeded || snap.Count != 1 {
		t.Fatalf("face swap should keep its selection on success: %+v", snap)
	}
	if _, err := c.Trigger(ctx); !errors.Is(err, ErrNotReady) {
		t.Fatalf("Trigger after success err = %v, want ErrNotReady", err)
	}
	if err := c.SetRole(image.RoleCurrentIsSource); err != nil {
		t.Fatalf("SetRole: %v", err)
	}
	if !c.CanTrigger() || c.Len() != 1 {
		t.Fatal("a role change should return to idle and keep the file")
	}
	if _, err := c.Trigger(ctx); err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	if got := gen.lastReq.Images; string(got[0].Data) != "current" || string(got[1].Data) != "other" {
		t.Fatal("current-is-source should send [current, other]")
	}
}

func TestFaceSwapSingleSlot(t *testing.T) {
	ctx := context.Background()
	c := newFaceSwapController(t, &stubGenerator{}, &stubShell{})

	if err := c.Add(ctx, payload("first")); err != nil {
		t.Fatalf("Add: %v", err)
	}
	first := c.Snapshot().Previews[0]

	if err := c.Add(ctx, payload("second")); err != nil {
		t.Fatalf("replacing Add: %v", err)
	}
	snap := c.Snapshot()
	if snap.Count != 1 || c.LivePreviews() != 1 || snap.Previews[0].ID == first.ID {
		t.Fatalf("second selection should replace the first: %+v", snap)
	}
	if _, _, err := c.OpenPreview(ctx, first.ID); !errors.Is(err, ErrPreviewNotFound) {
		t.Fatalf("replaced preview should be released, err = %v", err)
	}

	err := c.Add(ctx, payload("x"), payload("y"))
	if cv, ok := IsConstraintViolation(err); !ok || cv.Reason != ReasonAboveMaximum {
		t.Fatalf("multi-select into single slot err = %v, want above maximum", err)
	}
	data, _, err := c.OpenPreview(ctx, snap.Previews[0].ID)
	if err != nil || string(data) != "second" {
		t.Fatalf("occupant should be untouched after a rejected multi-select: %q %v", data, err)
	}
}

func TestFaceSwapGateNeedsCurrentImage(t *testing.T) {
	ctx := context.Background()
	gen := &stubGenerator{artifacts: artifacts(1)}
	shell := &stubShell{}
	c := newFaceSwapController(t, gen, shell)
	if err := c.Add(ctx, payload("other")); err != nil {
		t.Fatalf("Add: %v", err)
	}

	snap := c.Snapshot()
	if snap.CanTrigger || c.CanTrigger() {
		t.Fatal("face swap without a current image should not be triggerable")
	}
	if snap.PendingReason != ErrNoCurrentImage.Error() {
		t.Fatalf("pending reason = %q, want %q", snap.PendingReason, ErrNoCurrentImage.Error())
	}
	if err := c.Ready(); !errors.Is(err, ErrNoCurrentImage) {
		t.Fatalf("Ready err = %v, want ErrNoCurrentImage", err)
	}
	if _, err := c.Trigger(ctx); !errors.Is(err, ErrNoCurrentImage) {
		t.Fatalf("Trigger err = %v, want ErrNoCurrentImage", err)
	}
	if gen.callCount() != 0 {
		t.Fatalf("generator calls = %d, want 0", gen.callCount())
	}
	if c.Snapshot().State != StateIdle {
		t.Fatalf("state = %s, want idle", c.Snapshot().State)
	}

	shell.current = &image.Payload{Data: []byte("current"), MIME: "image/jpeg"}
	if !c.Snapshot().CanTrigger {
		t.Fatal("face swap should be triggerable once a current image exists")
	}
	if _, err := c.Trigger(ctx); err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	if got := gen.lastReq.Images; len(got) != 2 {
		t.Fatalf("face swap sent %d images, want 2", len(got))
	}
}

func TestPreconditionClosesGate(t *testing.T) {
	ctx := context.Background()
	store, _ := newFileStore(t)
	errNoPrompt := errors.New("prompt required")
	gen := &stubGenerator{artifacts: artifacts(1)}
	c := NewController(Config{
		Mode:             image.WorkflowModePose,
		Constraint:       NoUploads,
		UsesCurrentImage: true,
		Generator:        gen,
		Previews:         store,
		Scope:            "s1/pose",
		Shell:            &stubShell{current: &image.Payload{Data: []byte("current"), MIME: "image/jpeg"}},
		Precondition: func(prompt string) error {
			if prompt == "" {
				return errNoPrompt
			}
			return nil
		},
		Logger: zerolog.Nop(),
	})

	if c.Snapshot().CanTrigger {
		t.Fatal("an empty prompt should close the gate")
	}
	if _, err := c.Trigger(ctx); !errors.Is(err, errNoPrompt) {
		t.Fatalf("Trigger err = %v, want precondition error", err)
	}
	if err := c.SetPrompt("arms crossed"); err != nil {
		t.Fatalf("SetPrompt: %v", err)
	}
	if !c.Snapshot().CanTrigger {
		t.Fatal("a prompt should open the gate")
	}
	if _, err := c.Trigger(ctx); err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	if err := c.Ready(); !errors.Is(err, ErrNotReady) {
		t.Fatalf("Ready after success err = %v, want ErrNotReady", err)
	}
	if gen.callCount() != 1 {
		t.Fatalf("generator calls = %d, want 1", gen.callCount())
	}
}

func TestBeginEntersInFlightBeforeCallingOut(t *testing.T) {
	ctx := context.Background()
	gen := &stubGenerator{artifacts: artifacts(4)}
	c := newHeadshotController(t, gen, &stubShell{})
	if err := c.Add(ctx, payloads(4)...); err != nil {
		t.Fatalf("Add: %v", err)
	}

	req, err := c.Begin()
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if snap := c.Snapshot(); snap.State != StateInFlight || snap.CanTrigger {
		t.Fatalf("after Begin state = %s can_trigger = %v, want in_flight/false", snap.State, snap.CanTrigger)
	}
	if _, err := c.Begin(); !errors.Is(err, ErrBusy) {
		t.Fatalf("second Begin err = %v, want ErrBusy", err)
	}
	if _, err := c.Finish(ctx, image.GenerateRequest{RequestID: "other"}); !errors.Is(err, ErrNotBegun) {
		t.Fatalf("Finish with foreign request err = %v, want ErrNotBegun", err)
	}
	if gen.callCount() != 0 {
		t.Fatalf("generator calls before Finish = %d, want 0", gen.callCount())
	}

	if _, err := c.Finish(ctx, req); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if gen.callCount() != 1 || c.Snapshot().State != StateSucceeded {
		t.Fatalf("calls = %d state = %s, want 1/succeeded", gen.callCount(), c.Snapshot().State)
	}
	if _, err := c.Finish(ctx, req); !errors.Is(err, ErrNotBegun) {
		t.Fatalf("repeated Finish err = %v, want ErrNotBegun", err)
	}
}

func TestFinishAfterTeardownDoesNotCallOut(t *testing.T) {
	ctx := context.Background()
	gen := &stubGenerator{artifacts: artifacts(4)}
	c := newHeadshotController(t, gen, &stubShell{})
	if err := c.Add(ctx, payloads(4)...); err != nil {
		t.Fatalf("Add: %v", err)
	}
	req, err := c.Begin()
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	c.Teardown(ctx)
	if _, err := c.Finish(ctx, req); !errors.Is(err, ErrClosed) {
		t.Fatalf("Finish after teardown err = %v, want ErrClosed", err)
	}
	if gen.callCount() != 0 {
		t.Fatalf("generator calls = %d, want 0", gen.callCount())
	}
}

func TestMutationsRefusedWhileInFlight(t *testing.T) {
	ctx := context.Background()
	gen := &stubGenerator{artifacts: artifacts(4), started: make(chan struct{}), release: make(chan struct{})}
	c := newHeadshotController(t, gen, &stubShell{})
	if err := c.Add(ctx, payloads(5)...); err != nil {
		t.Fatalf("Add: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := c.Trigger(ctx)
		done <- err
	}()
	<-gen.started

	if c.Snapshot().State != StateInFlight {
		t.Fatalf("state = %s, want in_flight", c.Snapshot().State)
	}
	if err := c.Add(ctx, payloads(1)...); !errors.Is(err, ErrBusy) {
		t.Fatalf("Add during flight err = %v, want ErrBusy", err)
	}
	if c.Remove(ctx, 0) {
		t.Fatal("Remove during flight should be refused")
	}
	if c.Clear(ctx) {
		t.Fatal("Clear during flight should be refused")
	}
	if err := c.SetPrompt("x"); !errors.Is(err, ErrBusy) {
		t.Fatalf("SetPrompt during flight err = %v, want ErrBusy", err)
	}
	if _, err := c.Trigger(ctx); !errors.Is(err, ErrBusy) {
		t.Fatalf("second Trigger err = %v, want ErrBusy", err)
	}
	if c.Len() != 5 || c.LivePreviews() != 5 {
		t.Fatalf("inputs changed during flight: len=%d previews=%d", c.Len(), c.LivePreviews())
	}
	if gen.callCount() != 1 {
		t.Fatalf("generator calls = %d, want 1", gen.callCount())
	}

	close(gen.release)
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Trigger: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Trigger did not return")
	}
}

func TestRemoveIsSilentForStaleIndex(t *testing.T) {
	ctx := context.Background()
	c := newHeadshotController(t, &stubGenerator{}, &stubShell{})
	if err := c.Add(ctx, payloads(2)...); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if c.Remove(ctx, 2) {
		t.Fatal("Remove(2) should be a no-op")
	}
	if !c.Remove(ctx, 0) {
		t.Fatal("Remove(0) should succeed")
	}
	if c.Len() != 1 || c.LivePreviews() != 1 {
		t.Fatalf("len=%d previews=%d, want 1/1", c.Len(), c.LivePreviews())
	}
}

func TestTeardownReleasesPreviewsInEveryState(t *testing.T) {
	ctx := context.Background()

	t.Run("idle", func(t *testing.T) {
		c := newHeadshotController(t, &stubGenerator{}, &stubShell{})
		if err := c.Add(ctx, payloads(6)...); err != nil {
			t.Fatalf("Add: %v", err)
		}
		c.Teardown(ctx)
		if c.LivePreviews() != 0 {
			t.Fatalf("live previews = %d", c.LivePreviews())
		}
		if err := c.Add(ctx, payloads(1)...); !errors.Is(err, ErrClosed) {
			t.Fatalf("Add after teardown err = %v, want ErrClosed", err)
		}
	})

	t.Run("failed", func(t *testing.T) {
		shell := &stubShell{current: &image.Payload{Data: []byte("current"), MIME: "image/jpeg"}}
		c := newFaceSwapController(t, &stubGenerator{err: errors.New("boom")}, shell)
		if err := c.Add(ctx, payload("x")); err != nil {
			t.Fatalf("Add: %v", err)
		}
		if _, err := c.Trigger(ctx); err == nil {
			t.Fatal("Trigger should fail")
		}
		if c.Snapshot().State != StateFailed {
			t.Fatalf("state = %s, want failed", c.Snapshot().State)
		}
		c.Teardown(ctx)
		if c.LivePreviews() != 0 {
			t.Fatalf("live previews = %d", c.LivePreviews())
		}
	})

	t.Run("in flight", func(t *testing.T) {
		gen := &stubGenerator{artifacts: artifacts(4), started: make(chan struct{}), release: make(chan struct{})}
		shell := &stubShell{}
		c := newHeadshotController(t, gen, shell)
		if err := c.Add(ctx, payloads(4)...); err != nil {
			t.Fatalf("Add: %v", err)
		}
		done := make(chan error, 1)
		go func() {
			_, err := c.Trigger(ctx)
			done <- err
		}()
		<-gen.started
		c.Teardown(ctx)
		if c.LivePreviews() != 0 {
			t.Fatalf("live previews = %d", c.LivePreviews())
		}
		close(gen.release)
		if err := <-done; !errors.Is(err, ErrClosed) {
			t.Fatalf("Trigger after teardown err = %v, want ErrClosed", err)
		}
		if len(shell.delivered) != 0 {
			t.Fatal("a result arriving after teardown must not be delivered")
		}
	})
}

func TestOnChangeObservesTransitionsInOrder(t *testing.T) {
	ctx := context.Background()
	store, _ := newFileStore(t)
	var states []State
	c := NewController(Config{
		Mode:       image.WorkflowModePassport,
		Constraint: NoUploads,
		Generator:  &stubGenerator{artifacts: artifacts(1)},
		Previews:   store,
		Scope:      "s1/passport",
		Shell:      &stubShell{},
		Logger:     zerolog.Nop(),
		OnChange:   func(s Snapshot) { states = append(states, s.State) },
	})
	if !c.CanTrigger() {
		t.Fatal("passport panel should be triggerable with no uploads")
	}
	if _, err := c.Trigger(ctx); err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	if err := c.SetPrompt(""); err != nil {
		t.Fatalf("SetPrompt: %v", err)
	}
	want := []State{StateInFlight, StateSucceeded, StateIdle}
	if len(states) != len(want) {
		t.Fatalf("states = %v, want %v", states, want)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Fatalf("states = %v, want %v", states, want)
		}
	}
	if err := c.Add(ctx, payload("x")); err == nil {
		t.Fatal("passport panel must refuse uploads")
	}
}

func TestValidatingIsNeverPublished(t *testing.T) {
	ctx := context.Background()
	store, _ := newFileStore(t)
	var states []State
	c := NewController(Config{
		Mode:       image.WorkflowModeHeadshot,
		Constraint: HeadshotConstraint,
		Generator:  &stubGenerator{},
		Previews:   store,
		Scope:      "s1/headshot",
		Logger:     zerolog.Nop(),
		OnChange:   func(s Snapshot) { states = append(states, s.State) },
	})
	if err := c.Add(ctx, payloads(3)...); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := c.Add(ctx, payloads(8)...); err == nil {
		t.Fatal("overflowing Add should be rejected")
	}
	for _, st := range states {
		if st == StateValidating {
			t.Fatalf("published states = %v, validating must stay internal", states)
		}
	}
	if got := c.Snapshot().State; got != StateIdle {
		t.Fatalf("state after rejected Add = %s, want idle", got)
	}
}

func TestEmptyResultIsAFailure(t *testing.T) {
	c := newHeadshotController(t, &stubGenerator{}, &stubShell{})
	if err := c.Add(context.Background(), payloads(4)...); err != nil {
		t.Fatalf("Add: %v", err)
	}
	_, err := c.Trigger(context.Background())
	if !errors.Is(err, image.ErrEmptyResult) {
		t.Fatalf("Trigger err = %v, want ErrEmptyResult", err)
	}
	if snap := c.Snapshot(); snap.State != StateFailed || snap.Count != 4 {
		t.Fatalf("snapshot = %+v", snap)
	}
}
