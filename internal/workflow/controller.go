// Package workflow implements the per-panel acquisition and generation
// lifecycle: pending uploads, their previews, count constraints, and the
// single outstanding call to the generation capability.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"studio/internal/providers/image"
)

// State is the operation state of one panel.
type State string

const (
	StateIdle State = "idle"
	// StateValidating is held only while Add evaluates a selection under the
	// controller lock. It is never published to OnChange or a Snapshot.
	StateValidating State = "validating"
	StateInFlight   State = "in_flight"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
)

// ErrNotReady is returned by Trigger after a success until the user edits the panel again.
var ErrNotReady = errors.New("workflow: awaiting user edit")

// Shell is the owner of the ambient current image and the receiver of results.
// Its methods are called with the controller lock held and must not call back
// into the controller.
type Shell interface {
	CurrentImage() (image.Payload, bool)
	Deliver(mode image.WorkflowMode, artifacts []image.Artifact)
}

// Config wires a controller to its panel policy and collaborators.
type Config struct {
	Mode             image.WorkflowMode
	Constraint       Constraint
	ConsumeOnSuccess bool
	UsesCurrentImage bool
	// Quantity is the number of artifacts to ask for; zero lets the provider decide.
	Quantity  int
	Role      image.RoleMode
	Generator image.Generator
	Previews  PreviewStore
	// Scope namespaces preview blobs, usually "<session>/<mode>".
	Scope string
	Shell Shell
	// Precondition, when set, is consulted by the gate with the panel prompt.
	// A non-nil result closes the gate and is what Trigger reports. It runs
	// under the controller lock and must not call back into the controller.
	Precondition func(prompt string) error
	Logger       zerolog.Logger
	// OnChange receives a snapshot after every visible transition, in order.
	// It runs under the controller lock and must not block.
	OnChange func(Snapshot)
}

// Snapshot is the render state of a panel.
type Snapshot struct {
	Mode          image.WorkflowMode `json:"mode"`
	State         State              `json:"state"`
	Count         int                `json:"count"`
	Min           int                `json:"min"`
	Max           int                `json:"max"`
	SingleSlot    bool               `json:"single_slot"`
	CanTrigger    bool               `json:"can_trigger"`
	PendingReason string             `json:"pending_reason,omitempty"`
	LastError     string             `json:"last_error,omitempty"`
	Role          image.RoleMode     `json:"role,omitempty"`
	Prompt        string             `json:"prompt,omitempty"`
	Previews      []PreviewHandle    `json:"previews"`
	Delivered     int                `json:"delivered"`
	Closed        bool               `json:"closed"`
}

// Controller runs the state machine of one panel instance.
type Controller struct {
	mu        sync.Mutex
	cfg       Config
	state     State
	inputs    Accumulator
	previews  *PreviewManager
	role      image.RoleMode
	prompt    string
	pending   string
	lastErr   string
	delivered int
	closed    bool
}

// NewController creates an idle controller with an empty input set.
func NewController(cfg Config) *Controller {
	role := cfg.Role
	if role == "" {
		role = image.RoleCurrentIsTarget
	}
	logger := cfg.Logger.With().Str("panel", string(cfg.Mode)).Logger()
	cfg.Logger = logger
	return &Controller{
		cfg:      cfg,
		state:    StateIdle,
		previews: NewPreviewManager(cfg.Previews, cfg.Scope, logger),
		role:     role,
	}
}

// Mode returns the panel mode.
func (c *Controller) Mode() image.WorkflowMode {
	return c.cfg.Mode
}

// Add handles a file selection from the picker or a drop. The count
// constraint is checked before anything is mutated.
func (c *Controller) Add(ctx context.Context, payloads ...image.Payload) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if c.state == StateInFlight {
		return ErrBusy
	}

	prev := c.state
	c.state = StateValidating
	held := c.inputs.Len()
	dec := EvaluateAddition(held, len(payloads), c.cfg.Constraint)
	if !dec.Admitted() {
		c.state = prev
		count := held + len(payloads)
		if c.cfg.Constraint.SingleSlot {
			count = len(payloads)
		}
		c.cfg.Logger.Debug().Str("reason", dec.Reason).Int("count", count).Msg("selection rejected")
		return &ConstraintViolation{Reason: dec.Reason, Count: count, Constraint: c.cfg.Constraint}
	}

	before := c.inputs.Items()
	if c.cfg.Constraint.SingleSlot {
		c.inputs.Replace(payloads...)
	} else {
		c.inputs.Add(payloads...)
	}
	if err := c.previews.Reconcile(ctx, c.inputs.Items()); err != nil {
		c.rollback(ctx, before)
		c.state = prev
		return fmt.Errorf("add inputs: %w", err)
	}
	c.edited()
	c.cfg.Logger.Debug().Int("count", c.inputs.Len()).Msg("inputs added")
	return nil
}

// Remove drops the input at index. It reports false, without error, when the
// index is stale or a call is in flight.
func (c *Controller) Remove(ctx context.Context, index int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.state == StateInFlight {
		return false
	}
	before := c.inputs.Items()
	if _, ok := c.inputs.Remove(index); !ok {
		return false
	}
	if err := c.previews.Reconcile(ctx, c.inputs.Items()); err != nil {
		c.rollback(ctx, before)
		return false
	}
	c.edited()
	return true
}

// Clear drops every held input. It reports false when refused.
func (c *Controller) Clear(ctx context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.state == StateInFlight {
		return false
	}
	c.inputs.Clear()
	c.previews.ReleaseAll(ctx)
	c.edited()
	return true
}

// SetRole switches the face-swap role mode. Held files are kept.
func (c *Controller) SetRole(role image.RoleMode) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.editable(); err != nil {
		return err
	}
	c.role = role
	c.edited()
	return nil
}

// SetPrompt stores the text forwarded with the next trigger.
func (c *Controller) SetPrompt(prompt string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.editable(); err != nil {
		return err
	}
	c.prompt = prompt
	c.edited()
	return nil
}

// CanTrigger reports the gate for the current state.
func (c *Controller) CanTrigger() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed && CanTrigger(c.state, c.inputs.Len(), c.cfg.Constraint, c.readinessLocked())
}

// Ready reports the error Trigger would return without calling out, or nil
// when the gate is open.
func (c *Controller) Ready() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	return c.gateErrorLocked()
}

// Trigger invokes the generation capability once. It blocks until the call
// resolves. A closed gate is reported locally without calling out.
func (c *Controller) Trigger(ctx context.Context) ([]image.Artifact, error) {
	req, err := c.Begin()
	if err != nil {
		return nil, err
	}
	return c.Finish(ctx, req)
}

// Begin checks the gate, builds the request and enters in_flight in one
// locked step, so a second Begin reports ErrBusy. A successful Begin must be
// followed by exactly one Finish with the returned request.
func (c *Controller) Begin() (image.GenerateRequest, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return image.GenerateRequest{}, ErrClosed
	}
	if err := c.gateErrorLocked(); err != nil {
		return image.GenerateRequest{}, err
	}
	req, err := c.buildRequest()
	if err != nil {
		return image.GenerateRequest{}, err
	}
	c.state = StateInFlight
	c.pending = req.RequestID
	c.lastErr = ""
	c.notify()
	c.cfg.Logger.Info().Str("request_id", req.RequestID).Int("images", len(req.Images)).Msg("generation started")
	return req, nil
}

// Finish calls the generation capability with a request from Begin and
// settles the panel on the outcome. A result arriving after Teardown is
// discarded.
func (c *Controller) Finish(ctx context.Context, req image.GenerateRequest) ([]image.Artifact, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	if c.state != StateInFlight || c.pending != req.RequestID {
		c.mu.Unlock()
		return nil, ErrNotBegun
	}
	c.mu.Unlock()

	artifacts, err := c.cfg.Generator.Generate(ctx, req)
	if err == nil && len(artifacts) == 0 {
		err = image.ErrEmptyResult
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = ""
	if c.closed {
		c.cfg.Logger.Info().Str("request_id", req.RequestID).Msg("generation finished after teardown, result discarded")
		return nil, ErrClosed
	}
	if err != nil {
		c.state = StateFailed
		c.lastErr = failureMessage(err)
		c.cfg.Logger.Warn().Err(err).Str("request_id", req.RequestID).Msg("generation failed")
		c.notify()
		return nil, &GenerationFailure{Message: c.lastErr, Err: err}
	}

	if c.cfg.Shell != nil {
		c.cfg.Shell.Deliver(c.cfg.Mode, artifacts)
	}
	if c.cfg.ConsumeOnSuccess {
		c.inputs.Clear()
		c.previews.ReleaseAll(ctx)
	}
	c.state = StateSucceeded
	c.delivered = len(artifacts)
	c.cfg.Logger.Info().Str("request_id", req.RequestID).Int("artifacts", len(artifacts)).Msg("generation succeeded")
	c.notify()
	return artifacts, nil
}

// Teardown releases every preview whatever the current state. A call still in
// flight completes but its result is discarded.
func (c *Controller) Teardown(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.inputs.Clear()
	c.previews.ReleaseAll(ctx)
	c.notify()
}

// Snapshot returns the current render state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// OpenPreview returns the bytes behind a live preview handle.
func (c *Controller) OpenPreview(ctx context.Context, handleID string) ([]byte, PreviewHandle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.previews.Open(ctx, handleID)
}

// LivePreviews returns the number of acquired preview handles.
func (c *Controller) LivePreviews() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.previews.Live()
}

// Len returns the number of held inputs.
func (c *Controller) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inputs.Len()
}

func (c *Controller) editable() error {
	if c.closed {
		return ErrClosed
	}
	if c.state == StateInFlight {
		return ErrBusy
	}
	return nil
}

func (c *Controller) gateErrorLocked() error {
	count := c.inputs.Len()
	ready := c.readinessLocked()
	if CanTrigger(c.state, count, c.cfg.Constraint, ready) {
		return nil
	}
	if dec := Evaluate(count, c.cfg.Constraint); !dec.Admitted() {
		return &ConstraintViolation{Reason: dec.Reason, Count: count, Constraint: c.cfg.Constraint}
	}
	switch {
	case c.state == StateInFlight:
		return ErrBusy
	case c.state == StateSucceeded:
		return ErrNotReady
	case ready != nil:
		return ready
	}
	return ErrNotReady
}

// readinessLocked reports what the panel still lacks apart from its uploads.
func (c *Controller) readinessLocked() error {
	if c.cfg.UsesCurrentImage {
		if _, err := c.currentLocked(); err != nil {
			return err
		}
	}
	if c.cfg.Precondition != nil {
		return c.cfg.Precondition(c.prompt)
	}
	return nil
}

func (c *Controller) currentLocked() (image.Payload, error) {
	if c.cfg.Shell == nil {
		return image.Payload{}, ErrNoCurrentImage
	}
	cur, ok := c.cfg.Shell.CurrentImage()
	if !ok {
		return image.Payload{}, ErrNoCurrentImage
	}
	return cur, nil
}

// edited settles the panel after a user edit: succeeded and failed return to idle.
func (c *Controller) edited() {
	c.state = StateIdle
	c.lastErr = ""
	c.delivered = 0
	c.notify()
}

func (c *Controller) rollback(ctx context.Context, before []PendingInput) {
	c.inputs.Restore(before)
	if err := c.previews.Reconcile(ctx, c.inputs.Items()); err != nil {
		c.cfg.Logger.Error().Err(err).Msg("preview rollback failed")
	}
}

func (c *Controller) buildRequest() (image.GenerateRequest, error) {
	req := image.GenerateRequest{
		Mode:      c.cfg.Mode,
		Prompt:    c.prompt,
		Role:      c.role,
		Quantity:  c.cfg.Quantity,
		RequestID: uuid.NewString(),
	}
	uploads := c.inputs.Payloads()
	if c.cfg.UsesCurrentImage {
		cur, err := c.currentLocked()
		if err != nil {
			return image.GenerateRequest{}, err
		}
		req.Current = &cur
	}
	if c.cfg.Mode == image.WorkflowModeFaceSwap {
		if req.Current == nil {
			return image.GenerateRequest{}, ErrNoCurrentImage
		}
		if c.role == image.RoleCurrentIsSource {
			req.Images = []image.Payload{*req.Current, uploads[0]}
		} else {
			req.Images = []image.Payload{uploads[0], *req.Current}
		}
		return req, nil
	}
	req.Images = uploads
	return req, nil
}

func (c *Controller) snapshotLocked() Snapshot {
	count := c.inputs.Len()
	ready := c.readinessLocked()
	snap := Snapshot{
		Mode:       c.cfg.Mode,
		State:      c.state,
		Count:      count,
		Min:        c.cfg.Constraint.Min,
		Max:        c.cfg.Constraint.Max,
		SingleSlot: c.cfg.Constraint.SingleSlot,
		CanTrigger: !c.closed && CanTrigger(c.state, count, c.cfg.Constraint, ready),
		LastError:  c.lastErr,
		Prompt:     c.prompt,
		Previews:   c.previews.Handles(c.inputs.Items()),
		Delivered:  c.delivered,
		Closed:     c.closed,
	}
	if c.cfg.Mode == image.WorkflowModeFaceSwap {
		snap.Role = c.role
	}
	if dec := Evaluate(count, c.cfg.Constraint); !dec.Admitted() {
		snap.PendingReason = dec.Reason
	} else if ready != nil {
		snap.PendingReason = ready.Error()
	}
	return snap
}

func (c *Controller) notify() {
	if c.cfg.OnChange != nil {
		c.cfg.OnChange(c.snapshotLocked())
	}
}

func failureMessage(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "generation timed out"
	case errors.Is(err, image.ErrEmptyResult):
		return "no image was returned"
	default:
		return err.Error()
	}
}
