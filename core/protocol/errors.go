package protocol

import (
	"errors"
	"fmt"
)

var (
	ErrNotJSON   = errors.New("not JSON")
	ErrMalformed = errors.New("malformed event")
	ErrProtocol  = errors.New("protocol violation")

	ErrInvalidSession = errors.New("invalid session configuration")
	ErrInvalidCommand = errors.New("invalid command")
)

// DecodeError describes why an inbound payload could not be decoded. Kind is
// one of ErrNotJSON, ErrMalformed or ErrProtocol.
type DecodeError struct {
	Kind      error
	EventType string
	Err       error
}

func (e *DecodeError) Error() string {
	msg := e.Kind.Error()
	if e.EventType != "" {
		msg = fmt.Sprintf("%s (type %q)", msg, e.EventType)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %s", msg, e.Err.Error())
	}
	return msg
}

func (e *DecodeError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
