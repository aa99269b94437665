package json

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/pratikoai/chatstream"
)

const fileExt = ".json"

// Interface compliance check.
var _ chatstream.HistoryStore = (*Store)(nil)

// Store implements [chatstream.HistoryStore] with one file per conversation
// under a directory.
type Store struct {
	dir string
	mu  sync.Mutex
}

// NewStore returns a Store rooted at dir. The directory is created on the
// first Save.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Load returns the conversation with the given id, or an error wrapping
// [chatstream.ErrNotFound].
func (s *Store) Load(ctx context.Context, id string) (chatstream.Conversation, error) {
	path, err := s.path(id)
	if err != nil {
		return chatstream.Conversation{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return chatstream.Conversation{}, fmt.Errorf("json: conversation %q: %w", id, chatstream.ErrNotFound)
	}
	if err != nil {
		return chatstream.Conversation{}, fmt.Errorf("json: conversation %q: %w", id, err)
	}
	return c, nil
}

// Save writes c, replacing any earlier version.
func (s *Store) Save(ctx context.Context, c chatstream.Conversation) error {
	path, err := s.path(c.ID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := Save(path, c); err != nil {
		return fmt.Errorf("json: conversation %q: %w", c.ID, err)
	}
	return nil
}

// List returns a summary of every stored conversation, most recently updated
// first. Unreadable files are skipped.
func (s *Store) List(ctx context.Context) ([]chatstream.ConversationSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("json: list: %w", err)
	}
	var out []chatstream.ConversationSummary
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != fileExt {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c, err := Load(filepath.Join(s.dir, e.Name()))
		if err != nil {
			continue
		}
		out = append(out, chatstream.ConversationSummary{
			ID:        c.ID,
			Messages:  len(c.Messages),
			UpdatedAt: c.UpdatedAt,
		})
	}
	slices.SortFunc(out, func(a, b chatstream.ConversationSummary) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (s *Store) path(id string) (string, error) {
	if id == "" || id != filepath.Base(id) || strings.HasPrefix(id, ".") {
		return "", fmt.Errorf("json: invalid conversation id %q: %w", id, chatstream.ErrValidation)
	}
	return filepath.Join(s.dir, id+fileExt), nil
}
