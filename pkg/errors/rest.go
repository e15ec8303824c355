package errors

// ErrRest carries a client error with an explicit HTTP code.
type ErrRest struct {
	Message string
	Code    int
}

func (err ErrRest) Error() string {
	return err.Message
}
