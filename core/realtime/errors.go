package realtime

import (
	"errors"

	"github.com/koscakluka/aiproxy-core/core/audio"
	"github.com/koscakluka/aiproxy-core/core/protocol"
)

var (
	// ErrTransportUnavailable is returned by Start when the stream cannot be
	// opened. The engine is closed with it.
	ErrTransportUnavailable = errors.New("transport unavailable")
	// ErrNotOpen is returned by sends outside the open state.
	ErrNotOpen = errors.New("session not open")
	// ErrTransportFailure closes the session when the stream fails after it
	// was opened.
	ErrTransportFailure = errors.New("transport failure")
	// ErrUserRequested is the close reason after Stop.
	ErrUserRequested = errors.New("session stopped")
	ErrAlreadyStarted = errors.New("session already started")
)

// Per-message decode failures, reported through events.DecodeFailed.
var (
	ErrNotJSON     = protocol.ErrNotJSON
	ErrMalformed   = protocol.ErrMalformed
	ErrProtocol    = protocol.ErrProtocol
	ErrBadEncoding = audio.ErrBadEncoding
)
