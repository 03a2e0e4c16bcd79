package client

import "github.com/pkg/errors"

// ErrLoginRejected indicates the server answered LOGIN with ERROR.
var ErrLoginRejected = errors.New("login rejected")

// ErrUnexpectedMessage indicates the server broke the message ordering.
var ErrUnexpectedMessage = errors.New("unexpected message")

// ErrServerError indicates the server ended the session with ERROR.
var ErrServerError = errors.New("server error")

// ErrInvalidTile indicates a change outside the board or the palette.
var ErrInvalidTile = errors.New("invalid tile")

// ErrNotActive indicates the client is closed or has failed.
var ErrNotActive = errors.New("client not active")
