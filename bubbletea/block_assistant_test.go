package bubbletea_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pratikoai/chatstream"
	bt "github.com/pratikoai/chatstream/bubbletea"
)

func TestAssistantBlock(t *testing.T) {
	t.Parallel()

	styles := bt.NewStyles(chatstream.DefaultTheme())

	t.Run("streaming shows cursor", func(t *testing.T) {
		t.Parallel()
		b := bt.NewAssistantBlock(styles)
		b.SetContent("Hello wor")
		view := b.View(80)
		assert.Contains(t, view, "Assistant")
		assert.Contains(t, view, "Hello wor")
		assert.Contains(t, view, "▍")
		assert.Equal(t, bt.BlockStreaming, b.Status())
	})

	t.Run("content is replaced not appended", func(t *testing.T) {
		t.Parallel()
		b := bt.NewAssistantBlock(styles)
		b.SetContent("Hello wor")
		b.SetContent("Hello world!")
		assert.Equal(t, "Hello world!", b.Content())
	})

	t.Run("completed drops cursor", func(t *testing.T) {
		t.Parallel()
		b := bt.NewAssistantBlock(styles)
		b.SetContent("Hello wor")
		b.Finish("Hello world!", bt.BlockCompleted)
		view := b.View(80)
		assert.Contains(t, view, "Hello world!")
		assert.NotContains(t, view, "▍")
	})

	t.Run("cancelled keeps partial content", func(t *testing.T) {
		t.Parallel()
		b := bt.NewAssistantBlock(styles)
		b.Finish("Hel", bt.BlockCancelled)
		view := b.View(80)
		assert.Contains(t, view, "Hel")
		assert.Contains(t, view, "[cancelled]")
	})

	t.Run("first finish wins", func(t *testing.T) {
		t.Parallel()
		b := bt.NewAssistantBlock(styles)
		b.Finish("done", bt.BlockCompleted)
		b.Finish("other", bt.BlockCancelled)
		assert.Equal(t, "done", b.Content())
		assert.Equal(t, bt.BlockCompleted, b.Status())
	})

	t.Run("history block is finished", func(t *testing.T) {
		t.Parallel()
		b := bt.NewFinishedAssistantBlock("stored", styles)
		assert.Equal(t, bt.BlockCompleted, b.Status())
		assert.NotContains(t, b.View(80), "▍")
	})
}
