package workflow

// Reason codes surfaced to users when a constraint rejects a count.
const (
	ReasonBelowMinimum = "below minimum"
	ReasonAboveMaximum = "above maximum"
	ReasonNoFiles      = "no files"
)

// Constraint bounds how many inputs a panel may hold.
type Constraint struct {
	Min int
	Max int
	// SingleSlot switches additions to replace semantics: a new selection
	// swaps out the occupant instead of appending.
	SingleSlot bool
}

var (
	// HeadshotConstraint requires between four and ten reference portraits.
	HeadshotConstraint = Constraint{Min: 4, Max: 10}
	// FaceSwapConstraint holds exactly one "other image" in a single slot.
	FaceSwapConstraint = Constraint{Min: 1, Max: 1, SingleSlot: true}
	// NoUploads is used by panels that only operate on the current image.
	NoUploads = Constraint{Min: 0, Max: 0}
)

// AcceptsUploads reports whether the constraint admits any file at all.
func (c Constraint) AcceptsUploads() bool {
	return c.Max > 0
}

// Status is the outcome of a policy evaluation.
type Status string

const (
	StatusAdmit  Status = "admit"
	StatusReject Status = "reject"
)

// Decision carries the status and, on rejection, a user-facing reason.
type Decision struct {
	Status Status
	Reason string
}

// Admitted reports whether the decision admits.
func (d Decision) Admitted() bool {
	return d.Status == StatusAdmit
}

func admit() Decision { return Decision{Status: StatusAdmit} }

func reject(reason string) Decision { return Decision{Status: StatusReject, Reason: reason} }

// Evaluate decides whether count inputs satisfy c.
func Evaluate(count int, c Constraint) Decision {
	switch {
	case count < c.Min:
		return reject(ReasonBelowMinimum)
	case count > c.Max:
		return reject(ReasonAboveMaximum)
	default:
		return admit()
	}
}

// EvaluateAddition runs before an add mutates the accumulator. held is the
// current count and incoming the size of the new selection.
//
// Single-slot constraints replace the occupant, so only the incoming size
// matters there; selecting several files into a single slot is rejected
// outright instead of silently keeping the first one.
func EvaluateAddition(held, incoming int, c Constraint) Decision {
	if incoming <= 0 {
		return reject(ReasonNoFiles)
	}
	if c.SingleSlot {
		if incoming > c.Max {
			return reject(ReasonAboveMaximum)
		}
		return admit()
	}
	if held+incoming > c.Max {
		return reject(ReasonAboveMaximum)
	}
	return admit()
}
