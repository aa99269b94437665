package bubbletea_test

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pratikoai/chatstream"
	bt "github.com/pratikoai/chatstream/bubbletea"
)

// streamerFunc adapts a function to bt.Streamer.
type streamerFunc func(ctx context.Context, messageID string, history []chatstream.Message, opts ...chatstream.StartOption) error

func (f streamerFunc) Start(ctx context.Context, messageID string, history []chatstream.Message, opts ...chatstream.StartOption) error {
	return f(ctx, messageID, history, opts...)
}

// nopStreamer returns immediately without notifying.
var nopStreamer = streamerFunc(func(context.Context, string, []chatstream.Message, ...chatstream.StartOption) error {
	return nil
})

// fixedID returns an id generator that always yields id.
func fixedID(id string) bt.Option {
	return bt.WithIDFunc(func() string { return id })
}

// initModel creates a model and sends a WindowSizeMsg to initialize the viewport.
func initModel(t *testing.T, s bt.Streamer, opts ...bt.Option) bt.Model {
	t.Helper()
	return initModelWithConv(t, s, &chatstream.Conversation{ID: "conv"}, opts...)
}

func initModelWithConv(t *testing.T, s bt.Streamer, conv *chatstream.Conversation, opts ...bt.Option) bt.Model {
	t.Helper()
	m := bt.New(s, conv, chatstream.DefaultTheme(), opts...)
	return updateModel(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})
}

// updateModel sends a message and returns the updated Model.
func updateModel(t *testing.T, m bt.Model, msg tea.Msg) bt.Model {
	t.Helper()
	updated, _ := m.Update(msg)
	model, ok := updated.(bt.Model)
	require.True(t, ok)
	return model
}

// submit types text, presses Enter and returns the model and the stream cmd.
func submit(t *testing.T, m bt.Model, text string) (bt.Model, tea.Cmd) {
	t.Helper()
	m.Input.SetValue(text)
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	model, ok := updated.(bt.Model)
	require.True(t, ok)
	return model, cmd
}

func TestSink(t *testing.T) {
	t.Parallel()

	t.Run("drops notifications while detached", func(t *testing.T) {
		t.Parallel()
		sink := bt.NewSink()
		assert.NotPanics(t, func() {
			sink.Started("m1")
			sink.ContentUpdated("m1", "Hi")
			sink.Completed("m1", "Hi")
		})
	})

	t.Run("forwards notifications as messages", func(t *testing.T) {
		t.Parallel()
		sink := bt.NewSink()
		var got []tea.Msg
		sink.Attach(func(msg tea.Msg) { got = append(got, msg) })

		failure := &chatstream.Error{Kind: chatstream.ErrorTimeout}
		sink.Started("m1")
		sink.ContentUpdated("m1", "Hel")
		sink.Completed("m1", "Hello")
		sink.Cancelled("m2", "part")
		sink.Failed("m3", failure)

		assert.Equal(t, []tea.Msg{
			bt.StartedMsg{MessageID: "m1"},
			bt.ContentUpdatedMsg{MessageID: "m1", Content: "Hel"},
			bt.CompletedMsg{MessageID: "m1", Content: "Hello"},
			bt.CancelledMsg{MessageID: "m2", Content: "part"},
			bt.FailedMsg{MessageID: "m3", Err: failure},
		}, got)

		sink.Attach(nil)
		sink.Started("m4")
		assert.Len(t, got, 5)
	})
}
