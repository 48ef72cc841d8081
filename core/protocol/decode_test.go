package protocol

import (
	"errors"
	"testing"

	"github.com/koscakluka/aiproxy-core/core/audio"
	"github.com/koscakluka/aiproxy-core/core/events"
)

func TestDecodeProviderError(t *testing.T) {
	event, err := Decode([]byte(`{"type":"error","error":{"message":"x","code":"bad"}}`))
	if err != nil {
		t.Fatalf("expected decode to succeed, got %v", err)
	}

	providerError, ok := event.(events.ProviderError)
	if !ok {
		t.Fatalf("expected events.ProviderError, got %T", event)
	}
	if providerError.Message() != "x" {
		t.Fatalf("expected message %q, got %q", "x", providerError.Message())
	}
	if providerError.Code() != "bad" {
		t.Fatalf("expected code %q, got %q", "bad", providerError.Code())
	}
	if providerError.Type != "error" {
		t.Fatalf("expected type %q, got %q", "error", providerError.Type)
	}
}

func TestDecodeAudioDelta(t *testing.T) {
	event, err := Decode([]byte(`{"type":"response.audio.delta","delta":"QQA="}`))
	if err != nil {
		t.Fatalf("expected decode to succeed, got %v", err)
	}

	delta, ok := event.(events.AudioDelta)
	if !ok {
		t.Fatalf("expected events.AudioDelta, got %T", event)
	}
	if delta.Delta != "QQA=" {
		t.Fatalf("expected delta %q, got %q", "QQA=", delta.Delta)
	}

	segment, err := audio.DecodeBase64PCM16(delta.Delta)
	if err != nil {
		t.Fatalf("expected audio decode to succeed, got %v", err)
	}
	if len(segment.Samples) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(segment.Samples))
	}
	if segment.Samples[0] != segment.Samples[1] {
		t.Fatalf("expected left == right, got %v", segment.Samples)
	}
}

func TestDecodeOtherEventsKeepRawPayload(t *testing.T) {
	testCases := []struct {
		name string
		data string
		typ  string
	}{
		{name: "session created", data: `{"type":"session.created","session":{"id":"sess_1"}}`, typ: "session.created"},
		{name: "unknown type", data: `{"type":"something.new","value":[1,2,3]}`, typ: "something.new"},
		{name: "transcript", data: `{"type":"response.audio_transcript.delta","delta":"Hi"}`, typ: "response.audio_transcript.delta"},
		{name: "empty type", data: `{"type":""}`, typ: ""},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			event, err := Decode([]byte(testCase.data))
			if err != nil {
				t.Fatalf("expected decode to succeed, got %v", err)
			}
			providerEvent, ok := event.(events.ProviderEvent)
			if !ok {
				t.Fatalf("expected events.ProviderEvent, got %T", event)
			}
			if providerEvent.Type != testCase.typ {
				t.Fatalf("expected type %q, got %q", testCase.typ, providerEvent.Type)
			}
			if string(providerEvent.Raw) != testCase.data {
				t.Fatalf("expected raw payload %s, got %s", testCase.data, providerEvent.Raw)
			}
		})
	}
}

func TestDecodeFailures(t *testing.T) {
	testCases := []struct {
		name     string
		data     string
		expected error
	}{
		{name: "empty", data: ``, expected: ErrNotJSON},
		{name: "not json", data: `hello`, expected: ErrNotJSON},
		{name: "truncated", data: `{"type":"error"`, expected: ErrNotJSON},
		{name: "array", data: `[1,2]`, expected: ErrMalformed},
		{name: "string", data: `"error"`, expected: ErrMalformed},
		{name: "null", data: `null`, expected: ErrMalformed},
		{name: "missing type", data: `{"delta":"QQA="}`, expected: ErrMalformed},
		{name: "numeric type", data: `{"type":5}`, expected: ErrMalformed},
		{name: "null type", data: `{"type":null}`, expected: ErrMalformed},
		{name: "error without error object", data: `{"type":"error"}`, expected: ErrProtocol},
		{name: "error with string error", data: `{"type":"error","error":"boom"}`, expected: ErrProtocol},
		{name: "error with null error", data: `{"type":"error","error":null}`, expected: ErrProtocol},
		{name: "audio delta without delta", data: `{"type":"response.audio.delta"}`, expected: ErrMalformed},
		{name: "audio delta with numeric delta", data: `{"type":"response.audio.delta","delta":1}`, expected: ErrMalformed},
		{name: "audio delta with null delta", data: `{"type":"response.audio.delta","delta":null}`, expected: ErrMalformed},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			event, err := Decode([]byte(testCase.data))
			if event != nil {
				t.Fatalf("expected no event, got %T", event)
			}
			if !errors.Is(err, testCase.expected) {
				t.Fatalf("expected %v, got %v", testCase.expected, err)
			}
			var decodeErr *DecodeError
			if !errors.As(err, &decodeErr) {
				t.Fatalf("expected *DecodeError, got %T", err)
			}
		})
	}
}

func TestDecodeErrorMissingObjectIsProtocolNotMalformed(t *testing.T) {
	_, err := Decode([]byte(`{"type":"error"}`))
	if errors.Is(err, ErrMalformed) {
		t.Fatalf("expected protocol error only, got %v", err)
	}
	if !errors.Is(err, ErrProtocol) {
		t.Fatalf("expected ErrProtocol, got %v", err)
	}
}
