package errors

// ErrValidation signals that a request or a document failed validation.
// Field names the offending parameter, when any.
type ErrValidation struct {
	Message string
	Field   string
}

func (err ErrValidation) Error() string {
	if err.Message == "" {
		return "validation failed"
	}
	return err.Message
}

// NewValidation is a shorthand for a field-less validation error.
func NewValidation(msg string) error {
	return &ErrValidation{Message: msg}
}

// MissingParam builds the validation error of a required parameter.
func MissingParam(field string) error {
	return &ErrValidation{
		Message: "Parameter '" + field + "' is required.",
		Field:   field,
	}
}
