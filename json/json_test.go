package json_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pratikoai/chatstream"
	chatjson "github.com/pratikoai/chatstream/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	created = time.Date(2026, 2, 18, 12, 0, 0, 0, time.UTC)
	updated = time.Date(2026, 2, 18, 12, 5, 0, 0, time.UTC)
)

func conversation(id string, updatedAt time.Time) chatstream.Conversation {
	return chatstream.Conversation{
		ID:        id,
		CreatedAt: created,
		UpdatedAt: updatedAt,
		Messages: []chatstream.Message{
			{Role: chatstream.RoleUser, Content: "Say hello", Timestamp: created},
			{Role: chatstream.RoleAssistant, Content: "Hello world!", Timestamp: updatedAt},
		},
	}
}

func TestMarshalConversation_RoundTrip(t *testing.T) {
	t.Parallel()
	c := conversation("conv-1", updated)

	data, err := chatjson.MarshalConversation(c)
	require.NoError(t, err)
	got, err := chatjson.UnmarshalConversation(data)
	require.NoError(t, err)
	assert.Equal(t, c, got)
}

func TestMarshalConversation_V1Envelope(t *testing.T) {
	t.Parallel()
	data, err := chatjson.MarshalConversation(conversation("conv-1", updated))
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.InDelta(t, 1, raw["version"], 0)
	assert.Equal(t, "conv-1", raw["id"])
	assert.Equal(t, "2026-02-18T12:00:00Z", raw["created_at"])
	msgs, ok := raw["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 2)
	assert.Equal(t, "assistant", msgs[1].(map[string]any)["role"])
}

func TestMarshalConversation_UnknownRole(t *testing.T) {
	t.Parallel()
	c := chatstream.Conversation{ID: "x", Messages: []chatstream.Message{{Role: "robot"}}}
	_, err := chatjson.MarshalConversation(c)
	assert.ErrorContains(t, err, "unknown role")
}

func TestUnmarshalConversation_Errors(t *testing.T) {
	t.Parallel()

	t.Run("unsupported version", func(t *testing.T) {
		t.Parallel()
		_, err := chatjson.UnmarshalConversation([]byte(`{"version":2,"id":"x"}`))
		assert.ErrorContains(t, err, "unsupported version: 2")
	})

	t.Run("unknown role", func(t *testing.T) {
		t.Parallel()
		_, err := chatjson.UnmarshalConversation([]byte(`{"version":1,"messages":[{"role":"robot"}]}`))
		assert.ErrorContains(t, err, "unknown role")
	})

	t.Run("invalid json", func(t *testing.T) {
		t.Parallel()
		_, err := chatjson.UnmarshalConversation([]byte(`{`))
		assert.ErrorContains(t, err, "unmarshal envelope")
	})
}

func TestSave_CreatesParentDirectories(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "a", "b", "conv.json")
	require.NoError(t, chatjson.Save(path, conversation("conv", updated)))

	got, err := chatjson.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "conv", got.ID)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestStore_SaveLoad(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := chatjson.NewStore(t.TempDir())

	c := conversation("conv-1", updated)
	require.NoError(t, store.Save(ctx, c))
	got, err := store.Load(ctx, "conv-1")
	require.NoError(t, err)
	assert.Equal(t, c, got)

	c.Append(chatstream.Message{Role: chatstream.RoleUser, Content: "Again", Timestamp: updated.Add(time.Minute)})
	require.NoError(t, store.Save(ctx, c))
	got, err = store.Load(ctx, "conv-1")
	require.NoError(t, err)
	assert.Len(t, got.Messages, 3)
	assert.Equal(t, updated.Add(time.Minute), got.UpdatedAt)
}

func TestStore_Load_NotFound(t *testing.T) {
	t.Parallel()
	store := chatjson.NewStore(t.TempDir())
	_, err := store.Load(context.Background(), "missing")
	assert.ErrorIs(t, err, chatstream.ErrNotFound)
}

func TestStore_InvalidID(t *testing.T) {
	t.Parallel()
	store := chatjson.NewStore(t.TempDir())
	for _, id := range []string{"", "../escape", "a/b", ".hidden"} {
		_, err := store.Load(context.Background(), id)
		assert.ErrorIs(t, err, chatstream.ErrValidation, id)
		err = store.Save(context.Background(), chatstream.Conversation{ID: id})
		assert.ErrorIs(t, err, chatstream.ErrValidation, id)
	}
}

func TestStore_List(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dir := t.TempDir()
	store := chatjson.NewStore(dir)

	require.NoError(t, store.Save(ctx, conversation("old", updated)))
	require.NoError(t, store.Save(ctx, conversation("new", updated.Add(time.Hour))))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600))

	got, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []chatstream.ConversationSummary{
		{ID: "new", Messages: 2, UpdatedAt: updated.Add(time.Hour)},
		{ID: "old", Messages: 2, UpdatedAt: updated},
	}, got)
}

func TestStore_List_MissingDirectory(t *testing.T) {
	t.Parallel()
	store := chatjson.NewStore(filepath.Join(t.TempDir(), "nope"))
	got, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}
