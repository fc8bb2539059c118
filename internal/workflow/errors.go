package workflow

import (
	"errors"
	"fmt"
)

var (
	// ErrBusy is returned when a mutation or trigger arrives while a
	// generation call is outstanding.
	ErrBusy = errors.New("workflow: generation in flight")
	// ErrClosed is returned once the controller has been torn down.
	ErrClosed = errors.New("workflow: controller closed")
	// ErrNoCurrentImage is returned when a panel that edits the current image
	// is triggered before one is set.
	ErrNoCurrentImage = errors.New("no current image")
	// ErrNotBegun is returned by Finish for a request Begin did not hand out.
	ErrNotBegun = errors.New("workflow: finish without matching begin")
)

// ConstraintViolation reports a count that the panel constraint rejected.
// It is always handled locally and never reaches the generation capability.
type ConstraintViolation struct {
	Reason     string
	Count      int
	Constraint Constraint
}

func (e *ConstraintViolation) Error() string {
	return fmt.Sprintf("constraint violation: %s (count=%d, min=%d, max=%d)", e.Reason, e.Count, e.Constraint.Min, e.Constraint.Max)
}

// GenerationFailure wraps a rejection from the generation capability.
type GenerationFailure struct {
	Message string
	Err     error
}

func (e *GenerationFailure) Error() string {
	if e.Err == nil {
		return "generation failed: " + e.Message
	}
	return fmt.Sprintf("generation failed: %s: %v", e.Message, e.Err)
}

func (e *GenerationFailure) Unwrap() error { return e.Err }

// IsConstraintViolation reports whether err carries a ConstraintViolation and returns it.
func IsConstraintViolation(err error) (*ConstraintViolation, bool) {
	var cv *ConstraintViolation
	if errors.As(err, &cv) {
		return cv, true
	}
	return nil, false
}
