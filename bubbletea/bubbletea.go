// Package bubbletea provides a Bubble Tea chat TUI driven by a streaming
// session controller.
package bubbletea

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/pratikoai/chatstream"
)

// Streamer runs one streaming session. *chatstream.Controller satisfies it.
// Start blocks until the session reaches a terminal outcome; notifications
// arrive through the Observer the streamer was built with.
type Streamer interface {
	Start(ctx context.Context, messageID string, history []chatstream.Message, opts ...chatstream.StartOption) error
}

// Run creates and runs the Bubble Tea TUI program. It blocks until the program
// exits. The sink is attached to the program so controller notifications
// reach the model. When ctx is cancelled, the program quits.
func Run(ctx context.Context, m Model, sink *Sink) error {
	p := tea.NewProgram(m, tea.WithAltScreen())
	sink.Attach(p.Send)
	defer sink.Attach(nil)

	stop := context.AfterFunc(ctx, p.Quit)
	defer stop()

	_, err := p.Run()
	return err
}

// StartedMsg reports that a session has begun.
type StartedMsg struct {
	MessageID string
}

// ContentUpdatedMsg carries the full reconciled content so far.
type ContentUpdatedMsg struct {
	MessageID string
	Content   string
}

// CompletedMsg carries the final content of a completed session.
type CompletedMsg struct {
	MessageID string
	Content   string
}

// CancelledMsg carries the partial content of a cancelled session.
type CancelledMsg struct {
	MessageID string
	Content   string
}

// FailedMsg reports a timed-out or failed session.
type FailedMsg struct {
	MessageID string
	Err       *chatstream.Error
}

// StreamDoneMsg signals that Streamer.Start has returned.
type StreamDoneMsg struct {
	MessageID string
	Err       error
}

// SavedMsg reports the result of persisting the conversation.
type SavedMsg struct {
	Err error
}

// Interface compliance checks.
var (
	_ chatstream.Observer      = (*Sink)(nil)
	_ chatstream.StartObserver = (*Sink)(nil)
)

// Sink is a [chatstream.Observer] that forwards notifications to a Bubble Tea
// program as messages. Notifications are dropped while no program is attached.
type Sink struct {
	mu   sync.Mutex
	send func(tea.Msg)
}

// NewSink returns a Sink with no program attached.
func NewSink() *Sink {
	return &Sink{}
}

// Attach sets the function used to deliver messages, typically
// (*tea.Program).Send. A nil send detaches.
func (s *Sink) Attach(send func(tea.Msg)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.send = send
}

func (s *Sink) emit(msg tea.Msg) {
	s.mu.Lock()
	send := s.send
	s.mu.Unlock()
	if send != nil {
		send(msg)
	}
}

func (s *Sink) Started(messageID string) {
	s.emit(StartedMsg{MessageID: messageID})
}

func (s *Sink) ContentUpdated(messageID, content string) {
	s.emit(ContentUpdatedMsg{MessageID: messageID, Content: content})
}

func (s *Sink) Completed(messageID, content string) {
	s.emit(CompletedMsg{MessageID: messageID, Content: content})
}

func (s *Sink) Cancelled(messageID, content string) {
	s.emit(CancelledMsg{MessageID: messageID, Content: content})
}

func (s *Sink) Failed(messageID string, err *chatstream.Error) {
	s.emit(FailedMsg{MessageID: messageID, Err: err})
}
