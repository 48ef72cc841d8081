package realtime

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/koscakluka/aiproxy-core/core/events"
	"github.com/koscakluka/aiproxy-core/core/playback"
)

type Option func(*Engine)

// WithEndpoint opens the stream at a fixed endpoint with the given headers.
func WithEndpoint(endpoint string, header http.Header) Option {
	return func(e *Engine) {
		e.connection = staticConnection{endpoint: endpoint, header: header}
	}
}

// WithConnectionProvider resolves the endpoint and headers on Start.
func WithConnectionProvider(provider ConnectionProvider) Option {
	return func(e *Engine) {
		e.connection = provider
	}
}

// WithAudioSink plays audio deltas through sink. Without it audio is decoded
// and discarded.
func WithAudioSink(sink playback.Sink) Option {
	return func(e *Engine) {
		e.sink = sink
	}
}

// WithEventHandler registers the observer of provider events and session
// notifications. The handler may be called from the receive loop and from
// playback callbacks concurrently, and should return quickly.
func WithEventHandler(handler func(events.Event)) Option {
	return func(e *Engine) {
		e.handler = handler
	}
}

// WithEventIDGenerator overrides how client event ids are generated. An empty
// id leaves commands without one.
func WithEventIDGenerator(generate func() string) Option {
	return func(e *Engine) {
		e.newEventID = generate
	}
}

func newEventID() string {
	return "evt_" + uuid.NewString()
}
