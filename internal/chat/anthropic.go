package chat

import (
	"context"
	"fmt"
	"strings"

	"gemtutor/internal/logging"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
)

// DefaultAnthropicModel is used when no model is configured.
const DefaultAnthropicModel = "claude-sonnet-4-20250514"

const anthropicMaxTokens = 4096

// AnthropicClient implements Client using the Anthropic Messages API.
// Conversations keep a client-side transcript.
type AnthropicClient struct {
	client anthropic.Client
	model  string
}

// NewAnthropicClient creates an Anthropic backend.
func NewAnthropicClient(s Settings) (*AnthropicClient, error) {
	if s.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	opts := []anthropicoption.RequestOption{anthropicoption.WithAPIKey(s.APIKey)}
	if s.BaseURL != "" {
		opts = append(opts, anthropicoption.WithBaseURL(s.BaseURL))
	}
	if s.Timeout > 0 {
		opts = append(opts, anthropicoption.WithRequestTimeout(s.Timeout))
	}

	model := s.Model
	if model == "" {
		model = DefaultAnthropicModel
	}
	return &AnthropicClient{client: anthropic.NewClient(opts...), model: model}, nil
}

func (c *AnthropicClient) Name() string { return "anthropic:" + c.model }

func (c *AnthropicClient) StartConversation(ctx context.Context, systemInstruction string) (Conversation, error) {
	return newTranscriptConversation(systemInstruction, func(ctx context.Context, system string, history []Message) (string, error) {
		return c.complete(ctx, c.model, system, history)
	}), nil
}

// Generate asks for JSON in the prompt; the Messages API has no JSON mode.
func (c *AnthropicClient) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	model := opts.Model
	if model == "" {
		model = c.model
	}
	if opts.JSON {
		prompt = prompt + "\n\n" + jsonInstruction(opts.Schema)
	}
	return c.complete(ctx, model, "", []Message{{Role: RoleUser, Text: prompt}})
}

func (c *AnthropicClient) complete(ctx context.Context, model, system string, history []Message) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		Messages:  buildAnthropicMessages(history),
		MaxTokens: anthropicMaxTokens,
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	logging.APIDebug("Anthropic message: model=%s messages=%d", model, len(history))
	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("Anthropic message failed: %w", err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", ErrEmptyResponse
	}
	return sb.String(), nil
}

func buildAnthropicMessages(history []Message) []anthropic.MessageParam {
	params := make([]anthropic.MessageParam, 0, len(history))
	for _, m := range history {
		block := anthropic.NewTextBlock(m.Text)
		switch m.Role {
		case RoleModel:
			params = append(params, anthropic.NewAssistantMessage(block))
		default:
			params = append(params, anthropic.NewUserMessage(block))
		}
	}
	return params
}
