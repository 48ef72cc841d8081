package openai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"net/http"
	"strings"

	"github.com/koscakluka/aiproxy-core/core/protocol"
)

const (
	chunkPrefix = "data:"
	streamDone  = "[DONE]"
)

type ChatRole string

const (
	ChatRoleSystem    ChatRole = "system"
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
	ChatRoleTool      ChatRole = "tool"
)

type ChatMessage struct {
	Role       ChatRole   `json:"role"`
	Content    string     `json:"content"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
}

// ChatCompletionRequest describes a chat completion. Tools reuse the realtime
// tool definitions.
type ChatCompletionRequest struct {
	Model       string
	Messages    []ChatMessage
	Temperature *float64
	MaxTokens   int
	Tools       []protocol.Tool
	ToolChoice  *protocol.ToolChoice
}

type ToolCall struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"`
	Function ToolCallFunction `json:"function"`
}

type ToolCallFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type ChatCompletionResponse struct {
	ID      string       `json:"id"`
	Model   string       `json:"model"`
	Choices []ChatChoice `json:"choices"`
	Usage   *Usage       `json:"usage,omitempty"`
}

type ChatChoice struct {
	Index        int         `json:"index"`
	Message      ChatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

// ChatCompletionChunk is one streamed delta. The last chunk carries Usage and
// no choices.
type ChatCompletionChunk struct {
	ID      string            `json:"id"`
	Model   string            `json:"model"`
	Choices []ChatChunkChoice `json:"choices"`
	Usage   *Usage            `json:"usage,omitempty"`
}

type ChatChunkChoice struct {
	Index        int       `json:"index"`
	Delta        ChatDelta `json:"delta"`
	FinishReason *string   `json:"finish_reason"`
}

type ChatDelta struct {
	Role      ChatRole        `json:"role,omitempty"`
	Content   string          `json:"content,omitempty"`
	ToolCalls []ToolCallDelta `json:"tool_calls,omitempty"`
}

type ToolCallDelta struct {
	Index    int              `json:"index"`
	ID       string           `json:"id,omitempty"`
	Type     string           `json:"type,omitempty"`
	Function ToolCallFunction `json:"function"`
}

type chatRequestBody struct {
	Model         string               `json:"model"`
	Messages      []ChatMessage        `json:"messages"`
	Temperature   *float64             `json:"temperature,omitempty"`
	MaxTokens     int                  `json:"max_completion_tokens,omitempty"`
	Tools         []chatTool           `json:"tools,omitempty"`
	ToolChoice    *protocol.ToolChoice `json:"tool_choice,omitempty"`
	Stream        bool                 `json:"stream,omitempty"`
	StreamOptions *chatStreamOptions   `json:"stream_options,omitempty"`
}

type chatStreamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

type chatTool struct {
	Type     string           `json:"type"`
	Function chatToolFunction `json:"function"`
}

type chatToolFunction struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

func toChatRequestBody(request ChatCompletionRequest) chatRequestBody {
	body := chatRequestBody{
		Model:       request.Model,
		Messages:    request.Messages,
		Temperature: request.Temperature,
		MaxTokens:   request.MaxTokens,
		ToolChoice:  request.ToolChoice,
	}
	for _, tool := range request.Tools {
		body.Tools = append(body.Tools, chatTool{
			Type: "function",
			Function: chatToolFunction{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.Parameters,
			},
		})
	}
	return body
}

// ChatCompletion requests a complete, non-streamed chat completion.
func (s *Service) ChatCompletion(ctx context.Context, request ChatCompletionRequest) (*ChatCompletionResponse, error) {
	var response ChatCompletionResponse
	if err := s.doJSON(ctx, "chat/completions", toChatRequestBody(request), &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// StreamingChatCompletion streams completion chunks as they arrive. The
// request is sent when iteration starts; stopping the iteration closes the
// response.
func (s *Service) StreamingChatCompletion(ctx context.Context, request ChatCompletionRequest) iter.Seq2[ChatCompletionChunk, error] {
	return func(yield func(ChatCompletionChunk, error) bool) {
		body := toChatRequestBody(request)
		body.Stream = true
		body.StreamOptions = &chatStreamOptions{IncludeUsage: true}

		requestBody, err := json.Marshal(body)
		if err != nil {
			yield(ChatCompletionChunk{}, fmt.Errorf("failed to marshal request: %w", err))
			return
		}

		resp, err := s.do(ctx, http.MethodPost, "chat/completions", bytes.NewReader(requestBody), "application/json")
		if err != nil {
			yield(ChatCompletionChunk{}, err)
			return
		}
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if !strings.HasPrefix(line, chunkPrefix) {
				continue
			}
			data := strings.TrimSpace(strings.TrimPrefix(line, chunkPrefix))
			if data == streamDone {
				return
			}

			var chunk ChatCompletionChunk
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				if !yield(ChatCompletionChunk{}, fmt.Errorf("failed to unmarshal chunk: %w", err)) {
					return
				}
				continue
			}
			if !yield(chunk, nil) {
				return
			}
		}

		if err := scanner.Err(); err != nil {
			yield(ChatCompletionChunk{}, fmt.Errorf("failed to read streamed response: %w", err))
		}
	}
}
