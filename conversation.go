package chatstream

import (
	"context"
	"time"
)

// Conversation is the persisted history of one chat.
type Conversation struct {
	ID        string
	Messages  []Message
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Append adds msg to the conversation and bumps UpdatedAt.
func (c *Conversation) Append(msg Message) {
	c.Messages = append(c.Messages, msg)
	c.UpdatedAt = msg.Timestamp
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = time.Now()
	}
}

// ConversationSummary is a lightweight listing entry.
type ConversationSummary struct {
	ID        string
	Messages  int
	UpdatedAt time.Time
}

// HistoryStore persists conversations between runs.
// Load returns an error wrapping ErrNotFound for unknown ids.
type HistoryStore interface {
	Load(ctx context.Context, id string) (Conversation, error)
	Save(ctx context.Context, c Conversation) error
	List(ctx context.Context) ([]ConversationSummary, error)
}
