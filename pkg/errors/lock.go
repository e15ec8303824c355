package errors

import "errors"

// ErrLockUnavailable signals that a lock could not be acquired in time.
var ErrLockUnavailable = errors.New("resource is locked, try again")
