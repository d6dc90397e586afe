package chat

import (
	"context"
	"fmt"

	"gemtutor/internal/logging"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// DefaultOpenAIModel is used when no model is configured.
const DefaultOpenAIModel = "gpt-4o-mini"

// OpenAIClient implements Client for OpenAI-compatible chat completion APIs.
// The API is stateless, so conversations keep a client-side transcript.
type OpenAIClient struct {
	client openai.Client
	model  string
}

// NewOpenAIClient creates an OpenAI-compatible backend.
func NewOpenAIClient(s Settings) (*OpenAIClient, error) {
	if s.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	opts := []option.RequestOption{option.WithAPIKey(s.APIKey)}
	if s.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(s.BaseURL))
	}
	if s.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(s.Timeout))
	}

	model := s.Model
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAIClient{client: openai.NewClient(opts...), model: model}, nil
}

func (c *OpenAIClient) Name() string { return "openai:" + c.model }

func (c *OpenAIClient) StartConversation(ctx context.Context, systemInstruction string) (Conversation, error) {
	return newTranscriptConversation(systemInstruction, func(ctx context.Context, system string, history []Message) (string, error) {
		return c.complete(ctx, c.model, buildOpenAIMessages(system, history), false)
	}), nil
}

func (c *OpenAIClient) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	model := opts.Model
	if model == "" {
		model = c.model
	}
	if opts.JSON {
		prompt = prompt + "\n\n" + jsonInstruction(opts.Schema)
	}
	msgs := buildOpenAIMessages("", []Message{{Role: RoleUser, Text: prompt}})
	return c.complete(ctx, model, msgs, opts.JSON)
}

func (c *OpenAIClient) complete(ctx context.Context, model string, msgs []openai.ChatCompletionMessageParamUnion, jsonMode bool) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: msgs,
	}
	if jsonMode {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	logging.APIDebug("OpenAI completion: model=%s messages=%d json=%v", model, len(msgs), jsonMode)
	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("OpenAI completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}

// buildOpenAIMessages converts a system prompt and history to API params.
func buildOpenAIMessages(system string, history []Message) []openai.ChatCompletionMessageParamUnion {
	var params []openai.ChatCompletionMessageParamUnion
	if system != "" {
		params = append(params, openai.SystemMessage(system))
	}
	for _, m := range history {
		switch m.Role {
		case RoleModel:
			params = append(params, openai.AssistantMessage(m.Text))
		default:
			params = append(params, openai.UserMessage(m.Text))
		}
	}
	return params
}
