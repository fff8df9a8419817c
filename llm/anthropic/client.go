// Package anthropic adapts the Anthropic Claude Messages API to the
// llm.Backend interface, trimming the goa-ai model.Client adapter
// (tool calls, streaming, thinking blocks) down to the single
// (system, user) -> text shape the orchestration core needs.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/meridianai/taskforge/llm"
)

// MessagesClient captures the subset of the Anthropic SDK client the adapter
// calls, so tests can substitute a fake in place of *sdk.MessageService.
type MessagesClient interface {
	New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
}

// Options configures the adapter's request defaults.
type Options struct {
	// Model is the Claude model identifier, e.g. string(sdk.ModelClaudeSonnet4_5_20250929).
	Model string
	// MaxTokens caps the completion length. Required; Anthropic rejects zero.
	MaxTokens int
	// Temperature is sent when > 0; omitted otherwise so the API default applies.
	Temperature float64
}

// Client implements llm.Backend on top of Anthropic Claude Messages.
type Client struct {
	msg   MessagesClient
	model string
	maxTok int
	temp  float64
}

// New builds a Client from an explicit Messages client, so callers can inject
// a mock in tests.
func New(msg MessagesClient, opts Options) (*Client, error) {
	if msg == nil {
		return nil, errors.New("anthropic: messages client is required")
	}
	if opts.Model == "" {
		return nil, errors.New("anthropic: model identifier is required")
	}
	if opts.MaxTokens <= 0 {
		return nil, errors.New("anthropic: max tokens must be positive")
	}
	return &Client{msg: msg, model: opts.Model, maxTok: opts.MaxTokens, temp: opts.Temperature}, nil
}

// NewFromAPIKey builds a Client using the default Anthropic HTTP client,
// reading ANTHROPIC_API_KEY-style defaults from the SDK's own option set.
func NewFromAPIKey(apiKey string, opts Options) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("anthropic: api key is required")
	}
	ac := sdk.NewClient(option.WithAPIKey(apiKey))
	return New(&ac.Messages, opts)
}

// Chat implements llm.Backend.
func (c *Client) Chat(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	params := sdk.MessageNewParams{
		MaxTokens: int64(c.maxTok),
		Model:     sdk.Model(c.model),
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(userPrompt)),
		},
	}
	if systemPrompt != "" {
		params.System = []sdk.TextBlockParam{{Text: systemPrompt}}
	}
	if c.temp > 0 {
		params.Temperature = sdk.Float(c.temp)
	}
	msg, err := c.msg.New(ctx, params)
	if err != nil {
		return "", &llm.BackendError{Provider: "anthropic", Err: err}
	}
	return extractText(msg)
}

func extractText(msg *sdk.Message) (string, error) {
	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" && block.Text != "" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", &llm.BackendError{Provider: "anthropic", Err: fmt.Errorf("response contained no text block")}
	}
	return sb.String(), nil
}
