package errors

// ErrScoring signals the scoring pipeline could not be set up
// (e.g. misconfiguration). Unlike ErrInternal, its reason is meant to be
// shown to the caller.
type ErrScoring struct {
	Reason string
}

func (err ErrScoring) Error() string {
	return err.Reason
}
