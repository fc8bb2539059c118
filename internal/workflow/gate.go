package workflow

// CanTrigger is the only place that decides whether a panel's generate
// action is enabled. precondition is what the panel still lacks apart from
// its uploads, such as a current image or a prompt; nil means nothing.
func CanTrigger(state State, count int, c Constraint, precondition error) bool {
	if state != StateIdle && state != StateFailed {
		return false
	}
	if precondition != nil {
		return false
	}
	return Evaluate(count, c).Admitted()
}
