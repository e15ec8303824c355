package errors

import "errors"

// ErrAccess signals that the current user lacks the access level an
// operation requires.
type ErrAccess struct {
	Message string
}

func (err ErrAccess) Error() string {
	if err.Message == "" {
		return "Access denied."
	}
	return err.Message
}

var (
	// ErrUnauthenticated is returned when an operation requires a user but
	// the request carries no valid token.
	ErrUnauthenticated = errors.New("You must be logged in.")
)
