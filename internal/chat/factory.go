package chat

import (
	"context"
	"fmt"

	"gemtutor/internal/logging"
)

// NewClient builds the backend named by s.Provider.
func NewClient(ctx context.Context, s Settings) (Client, error) {
	var (
		c   Client
		err error
	)
	switch s.Provider {
	case "gemini", "":
		c, err = NewGeminiClient(ctx, s)
	case "openai":
		c, err = NewOpenAIClient(s)
	case "anthropic":
		c, err = NewAnthropicClient(s)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, s.Provider)
	}
	if err != nil {
		return nil, err
	}
	logging.API("Chat client ready: %s", c.Name())
	return c, nil
}
