package workflow

import (
	"github.com/google/uuid"

	"studio/internal/providers/image"
)

// PendingInput is an uploaded payload held by a panel until it is consumed,
// removed, or the panel is torn down.
type PendingInput struct {
	ID      string
	Ordinal int
	Payload image.Payload
}

// Accumulator is the ordered set of pending inputs. It does not enforce
// count limits; callers run the constraint policy first.
type Accumulator struct {
	items []PendingInput
}

// Add appends payloads in arrival order and returns the created inputs.
func (a *Accumulator) Add(payloads ...image.Payload) []PendingInput {
	added := make([]PendingInput, 0, len(payloads))
	for _, p := range payloads {
		in := PendingInput{ID: uuid.NewString(), Ordinal: len(a.items), Payload: p}
		a.items = append(a.items, in)
		added = append(added, in)
	}
	return added
}

// Remove drops the input at index. Out-of-range indexes are ignored because
// removal clicks can race with a fresh selection.
func (a *Accumulator) Remove(index int) (PendingInput, bool) {
	if index < 0 || index >= len(a.items) {
		return PendingInput{}, false
	}
	removed := a.items[index]
	a.items = append(a.items[:index], a.items[index+1:]...)
	a.renumber()
	return removed, true
}

// Clear empties the set and returns what was held.
func (a *Accumulator) Clear() []PendingInput {
	old := a.items
	a.items = nil
	return old
}

// Replace swaps the whole set for payloads and returns the previous inputs.
func (a *Accumulator) Replace(payloads ...image.Payload) []PendingInput {
	old := a.Clear()
	a.Add(payloads...)
	return old
}

// Restore puts back a previously captured set, used to roll back a failed mutation.
func (a *Accumulator) Restore(items []PendingInput) {
	a.items = append([]PendingInput(nil), items...)
	a.renumber()
}

// Len returns the number of held inputs.
func (a *Accumulator) Len() int {
	return len(a.items)
}

// Items returns a copy of the held inputs.
func (a *Accumulator) Items() []PendingInput {
	return append([]PendingInput(nil), a.items...)
}

// Payloads returns the held payloads in order.
func (a *Accumulator) Payloads() []image.Payload {
	out := make([]image.Payload, len(a.items))
	for i, in := range a.items {
		out[i] = in.Payload
	}
	return out
}

func (a *Accumulator) renumber() {
	for i := range a.items {
		a.items[i].Ordinal = i
	}
}
