package chat

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"gemtutor/internal/logging"

	"google.golang.org/genai"
)

// =============================================================================
// GOOGLE GENAI CHAT BACKEND
// =============================================================================

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.0-flash"

// GeminiClient talks to the Gemini API through the genai SDK.
// Conversations are server-side chats created with Chats.Create.
type GeminiClient struct {
	client *genai.Client
	model  string
}

// NewGeminiClient creates a Gemini backend.
func NewGeminiClient(ctx context.Context, s Settings) (*GeminiClient, error) {
	if s.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	model := s.Model
	if model == "" {
		model = DefaultGeminiModel
	}

	cc := &genai.ClientConfig{
		APIKey:  s.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if s.Timeout > 0 {
		cc.HTTPClient = &http.Client{Timeout: s.Timeout}
	}
	if s.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: s.BaseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GeminiClient{client: client, model: model}, nil
}

// Name returns the backend name.
func (c *GeminiClient) Name() string {
	return fmt.Sprintf("gemini:%s", c.model)
}

// StartConversation opens a server-side chat with the system instruction.
func (c *GeminiClient) StartConversation(ctx context.Context, systemInstruction string) (Conversation, error) {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
	}
	chat, err := c.client.Chats.Create(ctx, c.model, cfg, nil)
	if err != nil {
		return nil, fmt.Errorf("GenAI chat create failed: %w", err)
	}
	logging.APIDebug("Gemini chat opened: model=%s system_len=%d", c.model, len(systemInstruction))
	return &geminiConversation{chat: chat}, nil
}

// Generate performs a one-shot GenerateContent call.
func (c *GeminiClient) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	model := opts.Model
	if model == "" {
		model = c.model
	}

	var cfg *genai.GenerateContentConfig
	if opts.JSON {
		cfg = &genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
			ResponseSchema:   toGenAISchema(opts.Schema),
		}
	}

	timer := logging.StartTimer(logging.CategoryAPI, "gemini generate")
	resp, err := c.client.Models.GenerateContent(ctx, model, genai.Text(prompt), cfg)
	timer.StopWithThreshold(30 * time.Second)
	if err != nil {
		return "", fmt.Errorf("GenAI generate failed: %w", err)
	}
	return responseText(resp)
}

type geminiConversation struct {
	chat *genai.Chat
}

func (g *geminiConversation) Send(ctx context.Context, text string) (string, error) {
	resp, err := g.chat.SendMessage(ctx, genai.Part{Text: text})
	if err != nil {
		return "", fmt.Errorf("GenAI send failed: %w", err)
	}
	return responseText(resp)
}

func (g *geminiConversation) History() []Message {
	return messagesFromContents(g.chat.History(false))
}

// toGenAISchema maps a flat object schema to the SDK type.
func toGenAISchema(s *Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	props := make(map[string]*genai.Schema, len(s.Properties))
	for name, ft := range s.Properties {
		props[name] = &genai.Schema{Type: genaiType(ft)}
	}
	return &genai.Schema{
		Type:       genai.TypeObject,
		Properties: props,
		Required:   s.Required,
	}
}

func genaiType(ft FieldType) genai.Type {
	switch ft {
	case FieldInteger:
		return genai.TypeInteger
	case FieldNumber:
		return genai.TypeNumber
	case FieldBoolean:
		return genai.TypeBoolean
	default:
		return genai.TypeString
	}
}

// responseText concatenates the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		if resp != nil && resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return "", fmt.Errorf("prompt blocked: %s", resp.PromptFeedback.BlockReason)
		}
		return "", ErrEmptyResponse
	}
	cand := resp.Candidates[0]
	if cand.Content == nil {
		return "", ErrEmptyResponse
	}
	var sb strings.Builder
	for _, part := range cand.Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		sb.WriteString(part.Text)
	}
	return sb.String(), nil
}

func messagesFromContents(contents []*genai.Content) []Message {
	out := make([]Message, 0, len(contents))
	for _, c := range contents {
		if c == nil {
			continue
		}
		var sb strings.Builder
		for _, part := range c.Parts {
			if part != nil && !part.Thought {
				sb.WriteString(part.Text)
			}
		}
		role := RoleUser
		if c.Role == string(genai.RoleModel) {
			role = RoleModel
		}
		out = append(out, Message{Role: role, Text: sb.String()})
	}
	return out
}
