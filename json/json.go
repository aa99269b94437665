// Package json persists conversations as versioned JSON documents.
package json

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pratikoai/chatstream"
)

// envelope is the v1 wire format for a persisted conversation.
type envelope struct {
	Version   int          `json:"version"`
	ID        string       `json:"id"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
	Messages  []messageDTO `json:"messages"`
}

// messageDTO is the JSON representation of a Message.
type messageDTO struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// MarshalConversation serializes a Conversation to JSON in v1 envelope format.
func MarshalConversation(c chatstream.Conversation) ([]byte, error) {
	env := envelope{
		Version:   1,
		ID:        c.ID,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
		Messages:  make([]messageDTO, len(c.Messages)),
	}
	for i, m := range c.Messages {
		if !m.Role.Valid() {
			return nil, fmt.Errorf("message %d: unknown role %q", i, m.Role)
		}
		env.Messages[i] = messageDTO{Role: string(m.Role), Content: m.Content, Timestamp: m.Timestamp}
	}
	return json.MarshalIndent(env, "", "  ")
}

// UnmarshalConversation deserializes a Conversation from JSON in v1 envelope
// format.
func UnmarshalConversation(data []byte) (chatstream.Conversation, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return chatstream.Conversation{}, fmt.Errorf("unmarshal envelope: %w", err)
	}
	if env.Version != 1 {
		return chatstream.Conversation{}, fmt.Errorf("unsupported version: %d", env.Version)
	}
	msgs := make([]chatstream.Message, len(env.Messages))
	for i, dto := range env.Messages {
		role := chatstream.Role(dto.Role)
		if !role.Valid() {
			return chatstream.Conversation{}, fmt.Errorf("message %d: unknown role %q", i, dto.Role)
		}
		msgs[i] = chatstream.Message{Role: role, Content: dto.Content, Timestamp: dto.Timestamp}
	}
	return chatstream.Conversation{
		ID:        env.ID,
		CreatedAt: env.CreatedAt,
		UpdatedAt: env.UpdatedAt,
		Messages:  msgs,
	}, nil
}

// Save writes a Conversation to a JSON file, creating parent directories as
// needed. The file is replaced atomically.
func Save(path string, c chatstream.Conversation) error {
	data, err := MarshalConversation(c)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create directories: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// Load reads a Conversation from a JSON file.
func Load(path string) (chatstream.Conversation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return chatstream.Conversation{}, fmt.Errorf("read file: %w", err)
	}
	return UnmarshalConversation(data)
}
