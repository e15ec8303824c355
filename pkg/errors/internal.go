package errors

import "github.com/pkg/errors"

// ErrInternal wraps an unexpected failure. Its sub-error is logged but
// never returned to API clients.
type ErrInternal struct {
	Sub error
}

func (err ErrInternal) Error() string {
	// If embedded internal server error, unwrap it
	if err, ok := err.Sub.(*ErrInternal); ok {
		return err.Sub.Error()
	}
	return errors.Wrap(err.Sub, ErrInternalNoSub.Error()).Error()
}

func (err ErrInternal) Unwrap() error {
	return err.Sub
}

var (
	ErrInternalNoSub = errors.New("internal server error")
)
