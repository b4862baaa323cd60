package request

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a request lookup by code or ID matches nothing.
var ErrNotFound = errors.New("request: not found")

// ErrCodeExhausted is returned when code generation keeps colliding with
// existing codes. With a 17k suffix space per second this only happens under
// pathological load.
var ErrCodeExhausted = errors.New("request: code space exhausted, try again")

// TransitionError reports a rejected status change. Conflict is true when the
// transition was valid against the status the caller saw, but another writer
// changed the row first.
type TransitionError struct {
	Code     string
	From     string
	To       string
	Conflict bool
}

func (e *TransitionError) Error() string {
	if e.Conflict {
		return fmt.Sprintf("request: %s changed concurrently, no longer %q", e.Code, e.From)
	}
	return fmt.Sprintf("request: invalid transition %q to %q for %s; valid: %v", e.From, e.To, e.Code, ValidTransitions[e.From])
}

// ValidationError reports bad input to CreateRequest.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("request: %s: %s", e.Field, e.Msg)
}
