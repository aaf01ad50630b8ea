package messages

import "errors"

var (
	errMessageRequired = errors.New("message cannot be nil")
	errSessionRequired = errors.New("session ID cannot be empty")
	errInvalidKind     = errors.New("invalid message kind")
)
