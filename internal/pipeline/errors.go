package pipeline

// ValidationError marks caller input rejected before any state was
// written. Handlers map it to a 400 instead of a 500.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}
