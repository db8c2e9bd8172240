package remote

import (
	"errors"
	"fmt"
)

// Wire call outcomes form a three-way split: nil (the peer answered as
// expected), ErrUnreachable (the peer could not be reached at the transport
// level) and *StatusError (the peer answered with an unexpected status).
var (
	// ErrUnreachable wraps every transport-level failure: refused
	// connections, DNS errors, timeouts. Check with errors.Is.
	ErrUnreachable = errors.New("remote: cannot connect")

	// ErrBindingInvalid is returned when assembling a remote-backed hub
	// against a binding that fails validation.
	ErrBindingInvalid = errors.New("remote: api not valid")
)

// StatusError reports a wire call that reached the peer but came back with
// an unexpected HTTP status. Check with errors.As.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("remote: unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("remote: unexpected status %d: %s", e.StatusCode, e.Body)
}
