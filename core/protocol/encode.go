package protocol

import (
	"encoding/json"
	"fmt"
)

type sessionUpdateEnvelope struct {
	Type    string      `json:"type"`
	EventID string      `json:"event_id,omitempty"`
	Session sessionWire `json:"session"`
}

type sessionWire struct {
	InputAudioFormat        AudioFormat       `json:"input_audio_format"`
	InputAudioTranscription transcriptionWire `json:"input_audio_transcription"`
	Instructions            string            `json:"instructions"`
	MaxResponseOutputTokens MaxTokens         `json:"max_response_output_tokens"`
	Modalities              []Modality        `json:"modalities"`
	OutputAudioFormat       AudioFormat       `json:"output_audio_format"`
	Temperature             float64           `json:"temperature"`
	Tools                   []toolWire        `json:"tools"`
	ToolChoice              ToolChoice        `json:"tool_choice"`
	TurnDetection           turnDetectionWire `json:"turn_detection"`
	Voice                   string            `json:"voice"`
}

type transcriptionWire struct {
	Model string `json:"model"`
}

type toolWire struct {
	Type        string          `json:"type"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

type turnDetectionWire struct {
	Type              string  `json:"type"`
	PrefixPaddingMs   int64   `json:"prefix_padding_ms"`
	SilenceDurationMs int64   `json:"silence_duration_ms"`
	Threshold         float64 `json:"threshold"`
}

type conversationItemEnvelope struct {
	Type    string   `json:"type"`
	EventID string   `json:"event_id,omitempty"`
	Item    itemWire `json:"item"`
}

type itemWire struct {
	Type    string        `json:"type"`
	Role    Role          `json:"role"`
	Content []contentWire `json:"content"`
}

type contentWire struct {
	Type  ContentType `json:"type"`
	Text  *string     `json:"text,omitempty"`
	Audio string      `json:"audio,omitempty"`
}

type responseCreateEnvelope struct {
	Type     string        `json:"type"`
	EventID  string        `json:"event_id,omitempty"`
	Response *responseWire `json:"response,omitempty"`
}

type responseWire struct {
	Instructions string     `json:"instructions,omitempty"`
	Modalities   []Modality `json:"modalities,omitempty"`
}

type audioAppendEnvelope struct {
	Type    string `json:"type"`
	EventID string `json:"event_id,omitempty"`
	Audio   string `json:"audio"`
}

type bareEnvelope struct {
	Type    string `json:"type"`
	EventID string `json:"event_id,omitempty"`
}

// Encode serializes cmd into its wire envelope. The "type" discriminator is
// always the first field and optional fields that are not set are omitted.
func Encode(cmd Command) ([]byte, error) {
	var envelope any
	switch c := cmd.(type) {
	case UpdateSession:
		if err := c.Session.Validate(); err != nil {
			return nil, err
		}
		envelope = sessionUpdateEnvelope{
			Type:    c.Type(),
			EventID: c.ID(),
			Session: toSessionWire(c.Session),
		}

	case CreateConversationItem:
		if err := validateItem(c); err != nil {
			return nil, err
		}
		content := make([]contentWire, 0, len(c.Content))
		for _, part := range c.Content {
			block := contentWire{Type: part.Type, Audio: part.Audio}
			if part.Type != ContentTypeInputAudio {
				block.Text = &part.Text
			}
			content = append(content, block)
		}
		envelope = conversationItemEnvelope{
			Type:    c.Type(),
			EventID: c.ID(),
			Item:    itemWire{Type: "message", Role: c.Role, Content: content},
		}

	case TriggerResponse:
		env := responseCreateEnvelope{Type: c.Type(), EventID: c.ID()}
		if c.Response != nil {
			if err := validateModalities(c.Response.Modalities); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrInvalidCommand, err)
			}
			env.Response = &responseWire{
				Instructions: c.Response.Instructions,
				Modalities:   c.Response.Modalities,
			}
		}
		envelope = env

	case AppendInputAudio:
		if c.Audio == "" {
			return nil, fmt.Errorf("%w: empty audio", ErrInvalidCommand)
		}
		envelope = audioAppendEnvelope{Type: c.Type(), EventID: c.ID(), Audio: c.Audio}

	case CancelResponse, CommitInputAudio, ClearInputAudio:
		envelope = bareEnvelope{Type: c.Type(), EventID: c.ID()}

	case nil:
		return nil, fmt.Errorf("%w: nil command", ErrInvalidCommand)

	default:
		return nil, fmt.Errorf("%w: unsupported command %T", ErrInvalidCommand, cmd)
	}

	data, err := json.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", cmd.Type(), err)
	}
	return data, nil
}

func toSessionWire(cfg SessionConfig) sessionWire {
	tools := make([]toolWire, 0, len(cfg.Tools))
	for _, tool := range cfg.Tools {
		tools = append(tools, toolWire{
			Type:        "function",
			Name:        tool.Name,
			Description: tool.Description,
			Parameters:  tool.Parameters,
		})
	}

	return sessionWire{
		InputAudioFormat:        cfg.InputAudioFormat,
		InputAudioTranscription: transcriptionWire{Model: cfg.InputAudioTranscription.Model},
		Instructions:            cfg.Instructions,
		MaxResponseOutputTokens: cfg.MaxResponseOutputTokens,
		Modalities:              cfg.Modalities,
		OutputAudioFormat:       cfg.OutputAudioFormat,
		Temperature:             cfg.Temperature,
		Tools:                   tools,
		ToolChoice:              cfg.ToolChoice,
		TurnDetection: turnDetectionWire{
			Type:              "server_vad",
			PrefixPaddingMs:   cfg.TurnDetection.PrefixPadding.Milliseconds(),
			SilenceDurationMs: cfg.TurnDetection.SilenceDuration.Milliseconds(),
			Threshold:         cfg.TurnDetection.Threshold,
		},
		Voice: cfg.Voice,
	}
}

func validateItem(c CreateConversationItem) error {
	switch c.Role {
	case RoleUser, RoleAssistant, RoleSystem:
	default:
		return fmt.Errorf("%w: invalid role %q", ErrInvalidCommand, c.Role)
	}
	if len(c.Content) == 0 {
		return fmt.Errorf("%w: conversation item without content", ErrInvalidCommand)
	}
	for _, part := range c.Content {
		switch part.Type {
		case ContentTypeInputText, ContentTypeText:
		case ContentTypeInputAudio:
			if part.Audio == "" {
				return fmt.Errorf("%w: input audio block without audio", ErrInvalidCommand)
			}
		default:
			return fmt.Errorf("%w: invalid content type %q", ErrInvalidCommand, part.Type)
		}
	}
	return nil
}
