package errors

import "fmt"

// ErrNotFound is returned when a document is loaded by an ID that
// matches nothing.
type ErrNotFound struct {
	Kind string
	ID   string
}

func (err ErrNotFound) Error() string {
	return fmt.Sprintf("Invalid %s id (%s).", err.Kind, err.ID)
}
