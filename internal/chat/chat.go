// Package chat defines the remote chat capability the tutor consumes and
// provides backends for Gemini, OpenAI-compatible and Anthropic services.
//
// Three operations are exposed: open a conversation with a system
// instruction, send a turn on that conversation, and generate one-shot
// content (optionally constrained to JSON).
package chat

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Message is one turn of conversation history.
type Message struct {
	Role Role
	Text string
}

// Conversation is a remote chat with implicit server- or client-side history.
// It is not safe for concurrent Send calls.
type Conversation interface {
	// Send delivers one user turn and returns the model's reply verbatim.
	Send(ctx context.Context, text string) (string, error)
	// History returns the exchanged messages, oldest first.
	History() []Message
}

// Client is a remote LLM service.
type Client interface {
	// StartConversation opens a new conversation primed with a system instruction.
	StartConversation(ctx context.Context, systemInstruction string) (Conversation, error)
	// Generate performs a one-shot completion outside any conversation.
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
	// Name identifies the backend and model, e.g. "gemini:gemini-2.0-flash".
	Name() string
}

// FieldType is the JSON type of a schema property.
type FieldType string

const (
	FieldString  FieldType = "string"
	FieldInteger FieldType = "integer"
	FieldNumber  FieldType = "number"
	FieldBoolean FieldType = "boolean"
)

// Schema describes a flat JSON object expected from Generate.
type Schema struct {
	Properties map[string]FieldType
	Required   []string
}

// GenerateOptions tunes a one-shot Generate call.
type GenerateOptions struct {
	Model  string  // overrides the client's default model
	JSON   bool    // constrain output to a JSON object
	Schema *Schema // optional object schema when JSON is set
}

// Settings selects and configures a backend.
type Settings struct {
	Provider string
	APIKey   string
	Model    string
	BaseURL  string
	Timeout  time.Duration
}

var (
	// ErrUnknownProvider is returned by NewClient for an unsupported provider.
	ErrUnknownProvider = errors.New("unknown chat provider")
	// ErrMissingAPIKey is returned when no credential was supplied.
	ErrMissingAPIKey = errors.New("API key is required")
	// ErrEmptyResponse is returned when the service produced no text.
	ErrEmptyResponse = errors.New("empty response from model")
)

// jsonInstruction renders an in-prompt JSON directive for backends without
// native schema support.
func jsonInstruction(s *Schema) string {
	if s == nil || len(s.Properties) == 0 {
		return "Respond with a single JSON object and nothing else."
	}
	names := make([]string, 0, len(s.Properties))
	for name := range s.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	fields := make([]string, 0, len(names))
	for _, name := range names {
		fields = append(fields, fmt.Sprintf("%q: %s", name, s.Properties[name]))
	}
	return "Respond with a single JSON object and nothing else, matching: { " + strings.Join(fields, ", ") + " }"
}
