package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/google/uuid"
)

type CreateImageRequest struct {
	Prompt         string `json:"prompt"`
	Model          string `json:"model,omitempty"`
	N              int    `json:"n,omitempty"`
	Quality        string `json:"quality,omitempty"`
	ResponseFormat string `json:"response_format,omitempty"`
	Size           string `json:"size,omitempty"`
	Style          string `json:"style,omitempty"`
	User           string `json:"user,omitempty"`
}

type CreateImageResponse struct {
	Created int64          `json:"created"`
	Data    []ImageDetails `json:"data"`
}

type ImageDetails struct {
	B64JSON       string `json:"b64_json,omitempty"`
	URL           string `json:"url,omitempty"`
	RevisedPrompt string `json:"revised_prompt,omitempty"`
}

func (s *Service) CreateImage(ctx context.Context, request CreateImageRequest) (*CreateImageResponse, error) {
	var response CreateImageResponse
	if err := s.doJSON(ctx, "images/generations", request, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// TranscriptionRequest uploads audio for transcription. FileName decides how
// the provider detects the audio format.
type TranscriptionRequest struct {
	File           []byte
	FileName       string
	Model          string
	Language       string
	Prompt         string
	ResponseFormat string
	Temperature    *float64
}

type TranscriptionResponse struct {
	Text     string              `json:"text"`
	Language string              `json:"language,omitempty"`
	Duration float64             `json:"duration,omitempty"`
	Words    []TranscriptionWord `json:"words,omitempty"`
}

type TranscriptionWord struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

const defaultTranscriptionFileName = "audio.m4a"

// CreateTranscription transcribes audio. With the "text" response format the
// plain response body becomes the transcription text.
func (s *Service) CreateTranscription(ctx context.Context, request TranscriptionRequest) (*TranscriptionResponse, error) {
	body, contentType, err := encodeTranscriptionForm(request)
	if err != nil {
		return nil, err
	}

	resp, err := s.do(ctx, http.MethodPost, "audio/transcriptions", body, contentType)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if request.ResponseFormat == "text" {
		text, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read transcription: %w", err)
		}
		return &TranscriptionResponse{Text: string(text)}, nil
	}

	var response TranscriptionResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode transcription: %w", err)
	}
	return &response, nil
}

func encodeTranscriptionForm(request TranscriptionRequest) (io.Reader, string, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	if err := form.SetBoundary(uuid.NewString()); err != nil {
		return nil, "", fmt.Errorf("failed to set form boundary: %w", err)
	}

	fileName := request.FileName
	if fileName == "" {
		fileName = defaultTranscriptionFileName
	}
	file, err := form.CreateFormFile("file", fileName)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := file.Write(request.File); err != nil {
		return nil, "", fmt.Errorf("failed to write form file: %w", err)
	}

	fields := [][2]string{
		{"model", request.Model},
		{"language", request.Language},
		{"prompt", request.Prompt},
		{"response_format", request.ResponseFormat},
	}
	if request.Temperature != nil {
		fields = append(fields, [2]string{"temperature", strconv.FormatFloat(*request.Temperature, 'f', -1, 64)})
	}
	for _, field := range fields {
		if field[1] == "" {
			continue
		}
		if err := form.WriteField(field[0], field[1]); err != nil {
			return nil, "", fmt.Errorf("failed to write form field %s: %w", field[0], err)
		}
	}

	if err := form.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close form: %w", err)
	}
	return &body, form.FormDataContentType(), nil
}

type SpeechRequest struct {
	Input          string   `json:"input"`
	Model          string   `json:"model"`
	Voice          string   `json:"voice"`
	ResponseFormat string   `json:"response_format,omitempty"`
	Speed          *float64 `json:"speed,omitempty"`
}

// CreateSpeech returns the encoded audio of the spoken input.
func (s *Service) CreateSpeech(ctx context.Context, request SpeechRequest) ([]byte, error) {
	body, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := s.do(ctx, http.MethodPost, "audio/speech", bytes.NewReader(body), "application/json")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	speech, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read speech: %w", err)
	}
	return speech, nil
}
