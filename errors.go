package envquery

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownTemplate is returned when a request names an unregistered template.
	ErrUnknownTemplate = errors.New("unknown query template")

	// ErrInvalidRequest is returned for malformed requests.
	ErrInvalidRequest = errors.New("invalid query request")

	// ErrBackpressure is returned when the manager refuses to start a query
	// because its running slots or start rate are exhausted.
	ErrBackpressure = errors.New("query rejected: backpressure")

	// ErrQueryNotFound is returned when an ID does not name a running query.
	ErrQueryNotFound = errors.New("query not found")

	// ErrNoOptions is returned when registering a template without options.
	ErrNoOptions = errors.New("query template has no options")
)

// ErrTemplate indicates an invalid query template.
//
// The original underlying error can be accessed via errors.Unwrap.
type ErrTemplate struct {
	Name   string
	Option int
	cause  error
}

func (e *ErrTemplate) Error() string {
	if e.Option >= 0 {
		return fmt.Sprintf("template %q option %d: %v", e.Name, e.Option, e.cause)
	}
	return fmt.Sprintf("template %q: %v", e.Name, e.cause)
}

func (e *ErrTemplate) Unwrap() error { return e.cause }
