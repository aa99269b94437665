package mock

import (
	"context"

	"github.com/pratikoai/chatstream"
)

// Interface compliance check.
var _ chatstream.HistoryStore = (*HistoryStore)(nil)

// HistoryStore is a test double for chatstream.HistoryStore.
// Set the function fields for the methods you need.
type HistoryStore struct {
	LoadFn func(ctx context.Context, id string) (chatstream.Conversation, error)
	SaveFn func(ctx context.Context, c chatstream.Conversation) error
	ListFn func(ctx context.Context) ([]chatstream.ConversationSummary, error)
}

// Load delegates to LoadFn.
func (s *HistoryStore) Load(ctx context.Context, id string) (chatstream.Conversation, error) {
	return s.LoadFn(ctx, id)
}

// Save delegates to SaveFn.
func (s *HistoryStore) Save(ctx context.Context, c chatstream.Conversation) error {
	return s.SaveFn(ctx, c)
}

// List delegates to ListFn.
func (s *HistoryStore) List(ctx context.Context) ([]chatstream.ConversationSummary, error) {
	return s.ListFn(ctx)
}
