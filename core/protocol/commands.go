package protocol

import (
	"fmt"

	"github.com/jinzhu/copier"
)

const (
	TypeSessionUpdate          = "session.update"
	TypeConversationItemCreate = "conversation.item.create"
	TypeResponseCreate         = "response.create"
	TypeResponseCancel         = "response.cancel"
	TypeInputAudioAppend       = "input_audio_buffer.append"
	TypeInputAudioCommit       = "input_audio_buffer.commit"
	TypeInputAudioClear        = "input_audio_buffer.clear"

	TypeError              = "error"
	TypeResponseAudioDelta = "response.audio.delta"
	TypeSessionCreated     = "session.created"
)

// Command is an outbound client event. The set is closed, only the command
// types of this package implement it.
type Command interface {
	// Type returns the wire discriminator of the command.
	Type() string
	// ID returns the optional client event id.
	ID() string

	command()
}

// EventID is embedded in every command and carries the optional client
// event id.
type EventID struct {
	EventID string
}

func (e EventID) ID() string { return e.EventID }

func (EventID) command() {}

// UpdateSession replaces the server side session configuration.
type UpdateSession struct {
	EventID
	Session SessionConfig
}

// NewUpdateSession copies cfg so later changes by the caller do not leak into
// the command.
func NewUpdateSession(cfg SessionConfig) (UpdateSession, error) {
	var session SessionConfig
	if err := copier.CopyWithOption(&session, &cfg, copier.Option{DeepCopy: true}); err != nil {
		return UpdateSession{}, fmt.Errorf("failed to copy session config: %w", err)
	}
	return UpdateSession{Session: session}, nil
}

func (UpdateSession) Type() string { return TypeSessionUpdate }

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

type ContentType string

const (
	ContentTypeInputText  ContentType = "input_text"
	ContentTypeInputAudio ContentType = "input_audio"
	ContentTypeText       ContentType = "text"
)

// ContentPart is one block of a conversation item. Text is used by text
// blocks, Audio (base64 PCM16) by input audio blocks.
type ContentPart struct {
	Type  ContentType
	Text  string
	Audio string
}

func InputText(text string) ContentPart {
	return ContentPart{Type: ContentTypeInputText, Text: text}
}

func InputAudio(base64Audio string) ContentPart {
	return ContentPart{Type: ContentTypeInputAudio, Audio: base64Audio}
}

// CreateConversationItem adds a message to the conversation.
type CreateConversationItem struct {
	EventID
	Role    Role
	Content []ContentPart
}

func NewCreateConversationItem(role Role, content ...ContentPart) CreateConversationItem {
	return CreateConversationItem{Role: role, Content: append([]ContentPart(nil), content...)}
}

// NewUserText creates a user message with a single text block.
func NewUserText(text string) CreateConversationItem {
	return NewCreateConversationItem(RoleUser, InputText(text))
}

func (CreateConversationItem) Type() string { return TypeConversationItemCreate }

// TriggerResponse asks the provider to generate a response. A nil Response
// uses the session settings.
type TriggerResponse struct {
	EventID
	Response *ResponseOverrides
}

func NewTriggerResponse(overrides *ResponseOverrides) TriggerResponse {
	if overrides == nil {
		return TriggerResponse{}
	}
	copied := ResponseOverrides{
		Instructions: overrides.Instructions,
		Modalities:   append([]Modality(nil), overrides.Modalities...),
	}
	return TriggerResponse{Response: &copied}
}

func (TriggerResponse) Type() string { return TypeResponseCreate }

// CancelResponse cancels the in-progress response.
type CancelResponse struct{ EventID }

func (CancelResponse) Type() string { return TypeResponseCancel }

// AppendInputAudio appends base64 encoded audio to the input buffer.
type AppendInputAudio struct {
	EventID
	Audio string
}

func (AppendInputAudio) Type() string { return TypeInputAudioAppend }

// CommitInputAudio commits the input buffer as a user message.
type CommitInputAudio struct{ EventID }

func (CommitInputAudio) Type() string { return TypeInputAudioCommit }

// ClearInputAudio discards the input buffer.
type ClearInputAudio struct{ EventID }

func (ClearInputAudio) Type() string { return TypeInputAudioClear }

// WithEventID returns a copy of cmd carrying id.
func WithEventID(cmd Command, id string) Command {
	switch c := cmd.(type) {
	case UpdateSession:
		c.EventID.EventID = id
		return c
	case CreateConversationItem:
		c.EventID.EventID = id
		return c
	case TriggerResponse:
		c.EventID.EventID = id
		return c
	case CancelResponse:
		c.EventID.EventID = id
		return c
	case AppendInputAudio:
		c.EventID.EventID = id
		return c
	case CommitInputAudio:
		c.EventID.EventID = id
		return c
	case ClearInputAudio:
		c.EventID.EventID = id
		return c
	}
	return cmd
}
