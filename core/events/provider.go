package events

import (
	"encoding/json"
	"fmt"
)

const (
	// KindAudioDelta identifies a chunk of synthesized audio pushed by the
	// provider.
	KindAudioDelta Kind = "provider.audio_delta"
	// KindProviderError identifies a provider-level error envelope.
	KindProviderError Kind = "provider.error"
	// KindProviderEvent identifies any other provider envelope.
	KindProviderEvent Kind = "provider.event"
)

// AudioDelta carries one base64 PCM16 chunk of a streamed audio response.
type AudioDelta struct {
	Base
	Delta string
}

// NewAudioDelta creates an audio delta event.
func NewAudioDelta(delta string) AudioDelta {
	return AudioDelta{Base: NewBase(KindAudioDelta), Delta: delta}
}

// ProviderError carries an error envelope sent by the provider. Payload holds
// the nested error object as sent.
type ProviderError struct {
	Base
	Type    string
	Payload map[string]any
}

// NewProviderError creates a provider error event.
func NewProviderError(eventType string, payload map[string]any) ProviderError {
	return ProviderError{Base: NewBase(KindProviderError), Type: eventType, Payload: payload}
}

// Message returns the human readable message of the error, if present.
func (e ProviderError) Message() string { return e.field("message") }

// Code returns the provider error code, if present.
func (e ProviderError) Code() string { return e.field("code") }

// ErrorType returns the provider error category (e.g.
// "invalid_request_error"), if present.
func (e ProviderError) ErrorType() string { return e.field("type") }

func (e ProviderError) field(name string) string {
	if value, ok := e.Payload[name].(string); ok {
		return value
	}
	return ""
}

// Error implements error so the event can be reported as-is.
func (e ProviderError) Error() string {
	switch {
	case e.Code() != "":
		return fmt.Sprintf("provider error: %s: %s", e.Code(), e.Message())
	case e.ErrorType() != "":
		return fmt.Sprintf("provider error: %s: %s", e.ErrorType(), e.Message())
	}
	return fmt.Sprintf("provider error: %s", e.Message())
}

// ProviderEvent carries any envelope that is neither an error nor an audio
// delta. Raw is the inbound payload, unchanged.
type ProviderEvent struct {
	Base
	Type string
	Raw  json.RawMessage
}

// NewProviderEvent creates a provider event.
func NewProviderEvent(eventType string, raw []byte) ProviderEvent {
	return ProviderEvent{Base: NewBase(KindProviderEvent), Type: eventType, Raw: raw}
}
