package events

const (
	// KindSessionStateChanged identifies an engine state transition.
	KindSessionStateChanged Kind = "session.state_changed"
	// KindSessionClosed identifies the terminal transition of the engine.
	KindSessionClosed Kind = "session.closed"
	// KindDecodeFailed identifies an inbound message that could not be
	// decoded. The session keeps running.
	KindDecodeFailed Kind = "session.decode_failed"
)

// SessionStateChanged carries the name of the state the engine moved into.
type SessionStateChanged struct {
	Base
	State string
}

// NewSessionStateChanged creates a session state changed event.
func NewSessionStateChanged(state string) SessionStateChanged {
	return SessionStateChanged{Base: NewBase(KindSessionStateChanged), State: state}
}

// SessionClosed is emitted once, when the engine reaches its terminal state.
type SessionClosed struct {
	Base
	Reason error
}

// NewSessionClosed creates a session closed event.
func NewSessionClosed(reason error) SessionClosed {
	return SessionClosed{Base: NewBase(KindSessionClosed), Reason: reason}
}

// DecodeFailed carries a per-message decode failure and the offending bytes.
type DecodeFailed struct {
	Base
	Err error
	Raw []byte
}

// NewDecodeFailed creates a decode failed event.
func NewDecodeFailed(err error, raw []byte) DecodeFailed {
	return DecodeFailed{Base: NewBase(KindDecodeFailed), Err: err, Raw: raw}
}
