// Package openai adapts the OpenAI Chat Completions API to the llm.Backend
// interface, trimming the goa-ai model.Client adapter (tool calls, streaming)
// down to the single (system, user) -> text shape the orchestration core
// needs.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/meridianai/taskforge/llm"
)

// ChatClient captures the subset of the go-openai client the adapter calls.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Options configures the adapter's request defaults.
type Options struct {
	Model       string
	Temperature float32
	MaxTokens   int
}

// Client implements llm.Backend via the OpenAI Chat Completions API.
type Client struct {
	chat  ChatClient
	model string
	temp  float32
	maxTok int
}

// New builds a Client from an explicit ChatClient, so callers can inject a
// mock in tests.
func New(chat ChatClient, opts Options) (*Client, error) {
	if chat == nil {
		return nil, errors.New("openai: chat client is required")
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		return nil, errors.New("openai: model is required")
	}
	return &Client{chat: chat, model: model, temp: opts.Temperature, maxTok: opts.MaxTokens}, nil
}

// NewFromAPIKey constructs a Client using the default go-openai HTTP client.
func NewFromAPIKey(apiKey string, opts Options) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("openai: api key is required")
	}
	return New(openai.NewClient(apiKey), opts)
}

// Chat implements llm.Backend.
func (c *Client) Chat(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: systemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: userPrompt,
	})
	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temp,
		MaxTokens:   c.maxTok,
	}
	resp, err := c.chat.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", &llm.BackendError{Provider: "openai", Err: err}
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", &llm.BackendError{Provider: "openai", Err: fmt.Errorf("response contained no message content")}
	}
	return resp.Choices[0].Message.Content, nil
}
