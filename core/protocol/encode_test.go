package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func validSessionConfig() SessionConfig {
	return SessionConfig{
		InputAudioFormat:        AudioFormatPCM16,
		InputAudioTranscription: Transcription{Model: "whisper-1"},
		Instructions:            "You are a helpful assistant.",
		MaxResponseOutputTokens: UnlimitedTokens(),
		Modalities:              []Modality{ModalityText, ModalityAudio},
		OutputAudioFormat:       AudioFormatPCM16,
		Temperature:             0.8,
		ToolChoice:              ToolChoiceAuto(),
		TurnDetection: TurnDetection{
			PrefixPadding:   300 * time.Millisecond,
			SilenceDuration: 500 * time.Millisecond,
			Threshold:       0.5,
		},
		Voice: "shimmer",
	}
}

func assertNoNulls(t *testing.T, path string, value any) {
	t.Helper()
	switch v := value.(type) {
	case nil:
		t.Fatalf("expected no null values, got null at %s", path)
	case map[string]any:
		for key, nested := range v {
			assertNoNulls(t, path+"."+key, nested)
		}
	case []any:
		for _, nested := range v {
			assertNoNulls(t, path+"[]", nested)
		}
	}
}

func TestEncodeUpdateSession(t *testing.T) {
	weather, err := NewTool[struct {
		City string `json:"city" jsonschema:"description=City to look up"`
	}]("get_weather", "Look up the weather")
	if err != nil {
		t.Fatalf("expected tool to be created, got %v", err)
	}

	testCases := []struct {
		name   string
		modify func(*SessionConfig)
	}{
		{name: "defaults", modify: func(*SessionConfig) {}},
		{name: "token limit", modify: func(c *SessionConfig) { c.MaxResponseOutputTokens = TokenLimit(4096) }},
		{name: "text only", modify: func(c *SessionConfig) { c.Modalities = []Modality{ModalityText} }},
		{name: "empty instructions", modify: func(c *SessionConfig) { c.Instructions = "" }},
		{name: "with tools", modify: func(c *SessionConfig) {
			c.Tools = []Tool{weather}
			c.ToolChoice = ToolChoiceFunction("get_weather")
		}},
		{name: "g711", modify: func(c *SessionConfig) {
			c.InputAudioFormat = AudioFormatG711ULaw
			c.OutputAudioFormat = AudioFormatG711ALaw
		}},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			cfg := validSessionConfig()
			testCase.modify(&cfg)
			cmd, err := NewUpdateSession(cfg)
			if err != nil {
				t.Fatalf("expected command, got %v", err)
			}

			data, err := Encode(cmd)
			if err != nil {
				t.Fatalf("expected encode to succeed, got %v", err)
			}
			if !bytes.HasPrefix(data, []byte(`{"type":"session.update"`)) {
				t.Fatalf("expected type to be the first field, got %s", data)
			}

			var decoded map[string]any
			if err := json.Unmarshal(data, &decoded); err != nil {
				t.Fatalf("expected valid JSON, got %v", err)
			}
			if decoded["type"] != "session.update" {
				t.Fatalf("expected type session.update, got %v", decoded["type"])
			}
			session, ok := decoded["session"].(map[string]any)
			if !ok {
				t.Fatalf("expected session object, got %T", decoded["session"])
			}
			assertNoNulls(t, "session", session)
			if _, ok := decoded["event_id"]; ok {
				t.Fatalf("expected event_id to be omitted")
			}
		})
	}
}

func TestEncodeSessionFields(t *testing.T) {
	cfg := validSessionConfig()
	cfg.Tools = []Tool{{Name: "ping", Parameters: json.RawMessage(`{"type":"object"}`)}}
	cfg.ToolChoice = ToolChoiceFunction("ping")

	data, err := Encode(UpdateSession{Session: cfg})
	if err != nil {
		t.Fatalf("expected encode to succeed, got %v", err)
	}

	var decoded struct {
		Session struct {
			MaxTokens     any `json:"max_response_output_tokens"`
			ToolChoice    any `json:"tool_choice"`
			Tools         []map[string]any
			TurnDetection map[string]any `json:"turn_detection"`
			Transcription map[string]any `json:"input_audio_transcription"`
		} `json:"session"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("expected valid JSON, got %v", err)
	}

	if decoded.Session.MaxTokens != "inf" {
		t.Fatalf("expected unlimited tokens as \"inf\", got %v", decoded.Session.MaxTokens)
	}
	choice, ok := decoded.Session.ToolChoice.(map[string]any)
	if !ok || choice["type"] != "function" {
		t.Fatalf("expected function tool choice, got %v", decoded.Session.ToolChoice)
	}
	if function, _ := choice["function"].(map[string]any); function["name"] != "ping" {
		t.Fatalf("expected forced function ping, got %v", choice["function"])
	}
	if len(decoded.Session.Tools) != 1 || decoded.Session.Tools[0]["type"] != "function" {
		t.Fatalf("expected one function tool, got %v", decoded.Session.Tools)
	}
	if got := decoded.Session.TurnDetection["type"]; got != "server_vad" {
		t.Fatalf("expected server_vad turn detection, got %v", got)
	}
	if got := decoded.Session.TurnDetection["prefix_padding_ms"]; got != float64(300) {
		t.Fatalf("expected prefix padding 300ms, got %v", got)
	}
	if got := decoded.Session.TurnDetection["silence_duration_ms"]; got != float64(500) {
		t.Fatalf("expected silence duration 500ms, got %v", got)
	}
	if got := decoded.Session.Transcription["model"]; got != "whisper-1" {
		t.Fatalf("expected transcription model whisper-1, got %v", got)
	}
}

func TestEncodeToolsAlwaysArray(t *testing.T) {
	data, err := Encode(UpdateSession{Session: validSessionConfig()})
	if err != nil {
		t.Fatalf("expected encode to succeed, got %v", err)
	}
	if !bytes.Contains(data, []byte(`"tools":[]`)) {
		t.Fatalf("expected empty tools array, got %s", data)
	}
}

func TestEncodeInvalidSession(t *testing.T) {
	testCases := []struct {
		name   string
		modify func(*SessionConfig)
	}{
		{name: "zero", modify: func(c *SessionConfig) { *c = SessionConfig{} }},
		{name: "missing voice", modify: func(c *SessionConfig) { c.Voice = "" }},
		{name: "unknown modality", modify: func(c *SessionConfig) { c.Modalities = []Modality{"video"} }},
		{name: "zero token limit", modify: func(c *SessionConfig) { c.MaxResponseOutputTokens = MaxTokens{} }},
		{name: "function without name", modify: func(c *SessionConfig) { c.ToolChoice = ToolChoice{Mode: ToolChoiceModeFunction} }},
		{name: "threshold out of range", modify: func(c *SessionConfig) { c.TurnDetection.Threshold = 2 }},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			cfg := validSessionConfig()
			testCase.modify(&cfg)
			if _, err := Encode(UpdateSession{Session: cfg}); !errors.Is(err, ErrInvalidSession) {
				t.Fatalf("expected ErrInvalidSession, got %v", err)
			}
		})
	}
}

func TestNewUpdateSessionCopiesConfig(t *testing.T) {
	cfg := validSessionConfig()
	cmd, err := NewUpdateSession(cfg)
	if err != nil {
		t.Fatalf("expected command, got %v", err)
	}

	cfg.Modalities[0] = ModalityAudio
	cfg.Voice = "alloy"

	if cmd.Session.Modalities[0] != ModalityText {
		t.Fatalf("expected command modalities to be unaffected, got %v", cmd.Session.Modalities)
	}
	if cmd.Session.Voice != "shimmer" {
		t.Fatalf("expected command voice to be unaffected, got %q", cmd.Session.Voice)
	}
}

func TestEncodeUserText(t *testing.T) {
	data, err := Encode(NewUserText("Hello!"))
	if err != nil {
		t.Fatalf("expected encode to succeed, got %v", err)
	}

	expected := `{"type":"conversation.item.create","item":{"type":"message","role":"user","content":[{"type":"input_text","text":"Hello!"}]}}`
	if string(data) != expected {
		t.Fatalf("expected %s, got %s", expected, data)
	}
}

func TestEncodeTriggerResponse(t *testing.T) {
	testCases := []struct {
		name     string
		cmd      Command
		expected string
	}{
		{
			name:     "no overrides",
			cmd:      NewTriggerResponse(nil),
			expected: `{"type":"response.create"}`,
		},
		{
			name:     "overrides",
			cmd:      NewTriggerResponse(&ResponseOverrides{Instructions: "Be brief", Modalities: []Modality{ModalityText}}),
			expected: `{"type":"response.create","response":{"instructions":"Be brief","modalities":["text"]}}`,
		},
		{
			name:     "empty overrides",
			cmd:      NewTriggerResponse(&ResponseOverrides{}),
			expected: `{"type":"response.create","response":{}}`,
		},
		{
			name:     "event id",
			cmd:      WithEventID(NewTriggerResponse(nil), "evt_1"),
			expected: `{"type":"response.create","event_id":"evt_1"}`,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			data, err := Encode(testCase.cmd)
			if err != nil {
				t.Fatalf("expected encode to succeed, got %v", err)
			}
			if string(data) != testCase.expected {
				t.Fatalf("expected %s, got %s", testCase.expected, data)
			}
		})
	}
}

func TestEncodeInputAudioCommands(t *testing.T) {
	testCases := []struct {
		name     string
		cmd      Command
		expected string
	}{
		{name: "append", cmd: AppendInputAudio{Audio: "QQA="}, expected: `{"type":"input_audio_buffer.append","audio":"QQA="}`},
		{name: "commit", cmd: CommitInputAudio{}, expected: `{"type":"input_audio_buffer.commit"}`},
		{name: "clear", cmd: ClearInputAudio{}, expected: `{"type":"input_audio_buffer.clear"}`},
		{name: "cancel", cmd: CancelResponse{}, expected: `{"type":"response.cancel"}`},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			data, err := Encode(testCase.cmd)
			if err != nil {
				t.Fatalf("expected encode to succeed, got %v", err)
			}
			if string(data) != testCase.expected {
				t.Fatalf("expected %s, got %s", testCase.expected, data)
			}
		})
	}
}

func TestEncodeInvalidCommands(t *testing.T) {
	testCases := []struct {
		name string
		cmd  Command
	}{
		{name: "nil", cmd: nil},
		{name: "empty audio", cmd: AppendInputAudio{}},
		{name: "no content", cmd: NewCreateConversationItem(RoleUser)},
		{name: "unknown role", cmd: NewCreateConversationItem("robot", InputText("hi"))},
		{name: "audio block without audio", cmd: NewCreateConversationItem(RoleUser, InputAudio(""))},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			if _, err := Encode(testCase.cmd); !errors.Is(err, ErrInvalidCommand) {
				t.Fatalf("expected ErrInvalidCommand, got %v", err)
			}
		})
	}
}

func TestNewToolReflectsParameters(t *testing.T) {
	tool, err := NewTool[struct {
		City string `json:"city"`
		Days int    `json:"days,omitempty"`
	}]("forecast", "Weather forecast")
	if err != nil {
		t.Fatalf("expected tool to be created, got %v", err)
	}

	var schema map[string]any
	if err := json.Unmarshal(tool.Parameters, &schema); err != nil {
		t.Fatalf("expected parameters to be JSON, got %v", err)
	}
	if schema["type"] != "object" {
		t.Fatalf("expected object schema, got %v", schema["type"])
	}
	if _, ok := schema["$schema"]; ok {
		t.Fatalf("expected $schema to be stripped")
	}
	properties, _ := schema["properties"].(map[string]any)
	if _, ok := properties["city"]; !ok {
		t.Fatalf("expected city property, got %v", properties)
	}
}

func TestDefaultSessionConfigIsValid(t *testing.T) {
	if err := DefaultSessionConfig().Validate(); err != nil {
		t.Fatalf("expected default config to be valid, got %v", err)
	}
}
