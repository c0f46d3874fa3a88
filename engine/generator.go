package engine

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
)

const (
	defaultModel     = "claude-sonnet-4-20250514"
	defaultMaxTokens = 1024
)

// Message is one prior conversation turn.
type Message struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// GenerateRequest carries everything the model needs for one response.
type GenerateRequest struct {
	System      string
	History     []Message
	UserMessage string
	Model       string
	MaxTokens   int64
}

// GenerateResponse is the model's reply.
type GenerateResponse struct {
	Text         string
	InputTokens  int
	OutputTokens int
}

// Generator produces a persona response from a framed request. The
// engine depends on this interface so tests can substitute a stub.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
}

// AnthropicGenerator calls the Anthropic Messages API.
type AnthropicGenerator struct {
	client *anthropic.Client
}

// NewAnthropicGenerator wraps an Anthropic client.
func NewAnthropicGenerator(client *anthropic.Client) *AnthropicGenerator {
	return &AnthropicGenerator{client: client}
}

// Generate sends the framed conversation and concatenates the text
// blocks of the reply.
func (g *AnthropicGenerator) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	messages := make([]anthropic.MessageParam, 0, len(req.History)+1)
	for _, m := range req.History {
		switch m.Role {
		case "assistant":
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(req.UserMessage)))

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: req.MaxTokens,
		Messages:  messages,
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	resp, err := g.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic API error: %w", err)
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	return &GenerateResponse{
		Text:         text,
		InputTokens:  int(resp.Usage.InputTokens),
		OutputTokens: int(resp.Usage.OutputTokens),
	}, nil
}
