package intake

import (
	"errors"
	"fmt"
)

// ErrNoSession is returned for events that require an active intake session
// when the user has none (never started, cancelled, committed, or evicted).
var ErrNoSession = errors.New("intake: no active session")

// InputError reports recoverable bad input. The session state is unchanged;
// the caller should show Msg and re-prompt.
type InputError struct {
	Msg string
}

func (e *InputError) Error() string {
	return "intake: " + e.Msg
}

// UnexpectedEventError reports an event that the session's current state does
// not accept, e.g. a stale button press. The session state is unchanged.
type UnexpectedEventError struct {
	State State
	Event string
}

func (e *UnexpectedEventError) Error() string {
	return fmt.Sprintf("intake: event %q not accepted in state %s", e.Event, e.State)
}
