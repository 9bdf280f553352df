package validation

import "fmt"

// InvalidInputError is returned for requests rejected before the pipeline runs
type InvalidInputError struct {
	Field  string
	Reason string
	Cause  error
}

func (e *InvalidInputError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid input: %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid input: %s", e.Reason)
}

func (e *InvalidInputError) Unwrap() error {
	return e.Cause
}
