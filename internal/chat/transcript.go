package chat

import (
	"context"
	"sync"
)

// Transcript is a client-side conversation history for backends whose APIs
// are stateless.
type Transcript struct {
	mu       sync.RWMutex
	messages []Message
}

// Append adds messages to the end of the transcript.
func (t *Transcript) Append(msgs ...Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = append(t.messages, msgs...)
}

// Messages returns a copy of the transcript.
func (t *Transcript) Messages() []Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Message, len(t.messages))
	copy(out, t.messages)
	return out
}

// Len returns the number of messages.
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.messages)
}

// completeFunc performs one stateless completion over the full history.
type completeFunc func(ctx context.Context, system string, history []Message) (string, error)

// transcriptConversation replays its transcript on every Send.
type transcriptConversation struct {
	system     string
	complete   completeFunc
	transcript Transcript
}

func newTranscriptConversation(system string, complete completeFunc) *transcriptConversation {
	return &transcriptConversation{system: system, complete: complete}
}

// Send records the exchange only when the service answered, so a failed
// turn can simply be retried.
func (c *transcriptConversation) Send(ctx context.Context, text string) (string, error) {
	user := Message{Role: RoleUser, Text: text}
	history := append(c.transcript.Messages(), user)

	reply, err := c.complete(ctx, c.system, history)
	if err != nil {
		return "", err
	}
	c.transcript.Append(user, Message{Role: RoleModel, Text: reply})
	return reply, nil
}

func (c *transcriptConversation) History() []Message {
	return c.transcript.Messages()
}
