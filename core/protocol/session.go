package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

type AudioFormat string

const (
	AudioFormatPCM16    AudioFormat = "pcm16"
	AudioFormatG711ULaw AudioFormat = "g711_ulaw"
	AudioFormatG711ALaw AudioFormat = "g711_alaw"
)

func (f AudioFormat) valid() bool {
	switch f {
	case AudioFormatPCM16, AudioFormatG711ULaw, AudioFormatG711ALaw:
		return true
	}
	return false
}

type Modality string

const (
	ModalityText  Modality = "text"
	ModalityAudio Modality = "audio"
)

// SessionConfig is the full server-side session state. Every update replaces
// the previous one, there is no partial merging.
type SessionConfig struct {
	InputAudioFormat        AudioFormat
	InputAudioTranscription Transcription
	Instructions            string
	MaxResponseOutputTokens MaxTokens
	Modalities              []Modality
	OutputAudioFormat       AudioFormat
	Temperature             float64
	Tools                   []Tool
	ToolChoice              ToolChoice
	TurnDetection           TurnDetection
	Voice                   string
}

type Transcription struct {
	Model string
}

// TurnDetection configures server side voice activity detection.
type TurnDetection struct {
	PrefixPadding   time.Duration
	SilenceDuration time.Duration
	Threshold       float64
}

// Validate reports every missing or out of range field of the configuration.
func (c SessionConfig) Validate() error {
	var errs []error
	if !c.InputAudioFormat.valid() {
		errs = append(errs, fmt.Errorf("invalid input audio format %q", c.InputAudioFormat))
	}
	if !c.OutputAudioFormat.valid() {
		errs = append(errs, fmt.Errorf("invalid output audio format %q", c.OutputAudioFormat))
	}
	if c.InputAudioTranscription.Model == "" {
		errs = append(errs, errors.New("missing input audio transcription model"))
	}
	if err := c.MaxResponseOutputTokens.validate(); err != nil {
		errs = append(errs, err)
	}
	if len(c.Modalities) == 0 {
		errs = append(errs, errors.New("missing modalities"))
	}
	if err := validateModalities(c.Modalities); err != nil {
		errs = append(errs, err)
	}
	if c.Temperature < 0 {
		errs = append(errs, fmt.Errorf("invalid temperature %v", c.Temperature))
	}
	for _, tool := range c.Tools {
		if tool.Name == "" {
			errs = append(errs, errors.New("tool without a name"))
		}
	}
	if err := c.ToolChoice.validate(); err != nil {
		errs = append(errs, err)
	}
	if c.TurnDetection.PrefixPadding < 0 || c.TurnDetection.SilenceDuration < 0 {
		errs = append(errs, errors.New("negative turn detection duration"))
	}
	if c.TurnDetection.Threshold < 0 || c.TurnDetection.Threshold > 1 {
		errs = append(errs, fmt.Errorf("turn detection threshold %v outside [0, 1]", c.TurnDetection.Threshold))
	}
	if c.Voice == "" {
		errs = append(errs, errors.New("missing voice"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidSession, errors.Join(errs...))
	}
	return nil
}

func validateModalities(modalities []Modality) error {
	for _, modality := range modalities {
		if modality != ModalityText && modality != ModalityAudio {
			return fmt.Errorf("invalid modality %q", modality)
		}
	}
	return nil
}

// MaxTokens is either a literal token limit or unlimited.
type MaxTokens struct {
	Limit     int
	Unlimited bool
}

func TokenLimit(limit int) MaxTokens {
	return MaxTokens{Limit: limit}
}

func UnlimitedTokens() MaxTokens {
	return MaxTokens{Unlimited: true}
}

func (m MaxTokens) validate() error {
	if m.Unlimited {
		if m.Limit != 0 {
			return errors.New("max tokens cannot be both limited and unlimited")
		}
		return nil
	}
	if m.Limit <= 0 {
		return fmt.Errorf("invalid max tokens %d", m.Limit)
	}
	return nil
}

func (m MaxTokens) MarshalJSON() ([]byte, error) {
	if m.Unlimited {
		return json.Marshal("inf")
	}
	return json.Marshal(m.Limit)
}

type ToolChoiceMode string

const (
	ToolChoiceModeNone     ToolChoiceMode = "none"
	ToolChoiceModeAuto     ToolChoiceMode = "auto"
	ToolChoiceModeRequired ToolChoiceMode = "required"
	ToolChoiceModeFunction ToolChoiceMode = "function"
)

// ToolChoice controls which (if any) tool is called by the model. Function is
// only used with ToolChoiceModeFunction.
type ToolChoice struct {
	Mode     ToolChoiceMode
	Function string
}

// ToolChoiceNone makes the model generate a message instead of calling tools.
func ToolChoiceNone() ToolChoice { return ToolChoice{Mode: ToolChoiceModeNone} }

// ToolChoiceAuto lets the model pick between a message and tool calls.
func ToolChoiceAuto() ToolChoice { return ToolChoice{Mode: ToolChoiceModeAuto} }

// ToolChoiceRequired makes the model call one or more tools.
func ToolChoiceRequired() ToolChoice { return ToolChoice{Mode: ToolChoiceModeRequired} }

// ToolChoiceFunction forces the model to call the named tool.
func ToolChoiceFunction(name string) ToolChoice {
	return ToolChoice{Mode: ToolChoiceModeFunction, Function: name}
}

func (c ToolChoice) validate() error {
	switch c.Mode {
	case ToolChoiceModeNone, ToolChoiceModeAuto, ToolChoiceModeRequired:
		return nil
	case ToolChoiceModeFunction:
		if c.Function == "" {
			return errors.New("tool choice function name missing")
		}
		return nil
	}
	return fmt.Errorf("invalid tool choice %q", c.Mode)
}

func (c ToolChoice) MarshalJSON() ([]byte, error) {
	if c.Mode != ToolChoiceModeFunction {
		return json.Marshal(string(c.Mode))
	}

	type function struct {
		Name string `json:"name"`
	}
	return json.Marshal(struct {
		Type     string   `json:"type"`
		Function function `json:"function"`
	}{
		Type:     string(ToolChoiceModeFunction),
		Function: function{Name: c.Function},
	})
}

// ResponseOverrides replaces session settings for a single response.
type ResponseOverrides struct {
	Instructions string
	Modalities   []Modality
}

// DefaultSessionConfig returns a speech-to-speech configuration with server
// side turn detection.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		InputAudioFormat:        AudioFormatPCM16,
		InputAudioTranscription: Transcription{Model: "whisper-1"},
		Instructions:            "You are a helpful, witty, and friendly assistant. Keep your answers short.",
		MaxResponseOutputTokens: TokenLimit(4096),
		Modalities:              []Modality{ModalityText, ModalityAudio},
		OutputAudioFormat:       AudioFormatPCM16,
		Temperature:             0.7,
		Tools:                   []Tool{},
		ToolChoice:              ToolChoiceAuto(),
		TurnDetection: TurnDetection{
			PrefixPadding:   200 * time.Millisecond,
			SilenceDuration: 500 * time.Millisecond,
			Threshold:       0.5,
		},
		Voice: "alloy",
	}
}
