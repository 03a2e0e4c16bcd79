package server

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrUsernameTaken indicates another live session already uses the name.
var ErrUsernameTaken = errors.New("username already logged in")

// ErrInvalidUsername indicates an empty login name.
var ErrInvalidUsername = errors.New("invalid username")

// ErrProtocol indicates a message kind that is illegal in the session's state.
var ErrProtocol = errors.New("protocol violation")

// StartupError is returned when the server cannot bind its listening address.
type StartupError struct {
	Addr string
	Err  error
}

func (e *StartupError) Error() string {
	return fmt.Sprintf("could not listen on %s: %v", e.Addr, e.Err)
}

func (e *StartupError) Unwrap() error {
	return e.Err
}

// isRejection reports whether the session ended because the server refused
// the client, as opposed to a broken transport.
func isRejection(err error) bool {
	return errors.Is(err, ErrUsernameTaken) ||
		errors.Is(err, ErrInvalidUsername) ||
		errors.Is(err, ErrProtocol)
}
