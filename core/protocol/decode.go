package protocol

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/koscakluka/aiproxy-core/core/events"
)

// Decode parses one inbound envelope. The "type" field is inspected once and
// selects the event shape:
//
//   - "error" decodes into events.ProviderError and requires an "error" object
//   - "response.audio.delta" decodes into events.AudioDelta and requires a
//     string "delta"
//   - every other type decodes into events.ProviderEvent carrying data as-is
//
// Failures are returned as *DecodeError.
func Decode(data []byte) (events.Event, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, &DecodeError{Kind: ErrMalformed, Err: errors.New("envelope is not an object")}
		}
		return nil, &DecodeError{Kind: ErrNotJSON, Err: err}
	}
	if fields == nil {
		return nil, &DecodeError{Kind: ErrMalformed, Err: errors.New("envelope is null")}
	}

	rawType, ok := fields["type"]
	if !ok {
		return nil, &DecodeError{Kind: ErrMalformed, Err: errors.New("missing type")}
	}
	var eventType string
	if err := json.Unmarshal(rawType, &eventType); err != nil || isNull(rawType) {
		return nil, &DecodeError{Kind: ErrMalformed, Err: errors.New("type is not a string")}
	}

	switch eventType {
	case TypeError:
		rawError, ok := fields["error"]
		if !ok {
			return nil, &DecodeError{Kind: ErrProtocol, EventType: eventType, Err: errors.New("missing error object")}
		}
		var payload map[string]any
		if err := json.Unmarshal(rawError, &payload); err != nil || payload == nil {
			return nil, &DecodeError{Kind: ErrProtocol, EventType: eventType, Err: errors.New("error is not an object")}
		}
		return events.NewProviderError(eventType, payload), nil

	case TypeResponseAudioDelta:
		rawDelta, ok := fields["delta"]
		if !ok {
			return nil, &DecodeError{Kind: ErrMalformed, EventType: eventType, Err: errors.New("missing delta")}
		}
		var delta string
		if err := json.Unmarshal(rawDelta, &delta); err != nil || isNull(rawDelta) {
			return nil, &DecodeError{Kind: ErrMalformed, EventType: eventType, Err: errors.New("delta is not a string")}
		}
		return events.NewAudioDelta(delta), nil
	}

	return events.NewProviderEvent(eventType, bytes.Clone(data)), nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
