package bubbletea

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/pratikoai/chatstream"
)

// BypassCommand retries the last turn past a bypassable usage limit.
const BypassCommand = "/bypass"

var _ tea.Model = Model{}

// Model is the Bubble Tea model for the chat TUI.
type Model struct {
	// Input is the text input component. Exported for test access.
	Input textinput.Model
	// Viewport is the scrollable output area. Exported for test access.
	Viewport viewport.Model

	streamer Streamer
	store    chatstream.HistoryStore
	newID    func() string
	conv     *chatstream.Conversation
	styles   Styles

	blocks []MessageBlock
	active *AssistantBlock

	messageID  string
	running    bool
	finished   bool // terminal notification seen for messageID
	cancel     context.CancelFunc
	err        error
	usageLimit *chatstream.UsageLimit
	ready      bool
}

// Option configures a [Model].
type Option func(*Model)

// WithStore persists the conversation after every finished turn.
func WithStore(store chatstream.HistoryStore) Option {
	return func(m *Model) { m.store = store }
}

// WithIDFunc sets the generator for per-session message ids.
func WithIDFunc(fn func() string) Option {
	return func(m *Model) { m.newID = fn }
}

// New creates a TUI Model that streams replies for conv through streamer.
func New(streamer Streamer, conv *chatstream.Conversation, theme chatstream.Theme, opts ...Option) Model {
	ti := textinput.New()
	ti.Placeholder = "Type a message..."
	ti.Prompt = ""
	ti.Focus()
	ti.CharLimit = 0

	m := Model{
		Input:    ti,
		streamer: streamer,
		newID:    uuid.NewString,
		conv:     conv,
		styles:   NewStyles(theme),
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// Running returns whether a session is in flight.
func (m Model) Running() bool { return m.running }

// Err returns the last error shown in the status line, if any.
func (m Model) Err() error { return m.err }

// UsageLimit returns the details of the last usage-limit rejection, if any.
func (m Model) UsageLimit() *chatstream.UsageLimit { return m.usageLimit }

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m = m.handleWindowSize(msg)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case StartedMsg:
		// A retried session restarts under the same id after a failure.
		if msg.MessageID == m.messageID && m.running && m.finished {
			m.finished = false
			m.active = NewAssistantBlock(m.styles)
			m.blocks = append(m.blocks, m.active)
			m = m.refresh()
		}
		return m, nil

	case ContentUpdatedMsg:
		if msg.MessageID != m.messageID || m.active == nil {
			return m, nil
		}
		m.active.SetContent(msg.Content)
		m = m.refresh()
		return m, nil

	case CompletedMsg:
		if !m.current(msg.MessageID) {
			return m, nil
		}
		m.active.Finish(msg.Content, BlockCompleted)
		m.usageLimit = nil
		return m.finishTurn(msg.Content)

	case CancelledMsg:
		if !m.current(msg.MessageID) {
			return m, nil
		}
		m.active.Finish(msg.Content, BlockCancelled)
		return m.finishTurn(msg.Content)

	case FailedMsg:
		if !m.current(msg.MessageID) {
			return m, nil
		}
		m.active.Finish(m.active.Content(), BlockFailed)
		m.finished = true
		m.usageLimit = nil
		if msg.Err != nil {
			m.blocks = append(m.blocks, NewErrorBlock(msg.Err, m.styles))
			m.usageLimit = msg.Err.UsageLimit
		}
		m = m.refresh()
		return m, nil

	case StreamDoneMsg:
		if msg.MessageID != m.messageID {
			return m, nil
		}
		// Start can fail before any notification, e.g. on validation.
		if !m.finished && msg.Err != nil && !errors.Is(msg.Err, chatstream.ErrCancelled) {
			m.err = msg.Err
		}
		m.running = false
		m.cancel = nil
		m.active = nil
		cmd := m.Input.Focus()
		return m, cmd

	case SavedMsg:
		if msg.Err != nil {
			m.err = msg.Err
		}
		return m, nil
	}

	// Viewport always receives messages for scrolling (keyboard and mouse).
	var cmd tea.Cmd
	m.Viewport, cmd = m.Viewport.Update(msg)
	cmds = append(cmds, cmd)

	if !m.running {
		m.Input, cmd = m.Input.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	var b strings.Builder
	b.WriteString(m.Viewport.View())
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(m.Input.View())
	return b.String()
}

func (m Model) current(messageID string) bool {
	return messageID == m.messageID && m.active != nil && !m.finished
}

// finishTurn records the assistant reply in the conversation and persists it.
func (m Model) finishTurn(content string) (tea.Model, tea.Cmd) {
	m.finished = true
	if content != "" {
		m.conv.Append(chatstream.AssistantMessage(content))
	}
	m = m.refresh()
	return m, m.save()
}

func (m Model) save() tea.Cmd {
	if m.store == nil {
		return nil
	}
	snapshot := *m.conv
	snapshot.Messages = slices.Clone(m.conv.Messages)
	store := m.store
	return func() tea.Msg {
		return SavedMsg{Err: store.Save(context.Background(), snapshot)}
	}
}

func (m Model) handleWindowSize(msg tea.WindowSizeMsg) Model {
	inputH := 1
	statusHeight := 1
	borderHeight := 2 // newlines between sections
	vpHeight := max(msg.Height-inputH-statusHeight-borderHeight, 1)

	if !m.ready {
		m.Viewport = viewport.New(msg.Width, vpHeight)
		m = m.renderHistory()
		m.ready = true
	} else {
		m.Viewport.Width = msg.Width
		m.Viewport.Height = vpHeight
	}
	m.Viewport.SetContent(m.renderContent())
	m.Viewport.GotoBottom()

	m.Input.Width = msg.Width
	return m
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		if m.running {
			// Cancelling the Start context ends the session without
			// blocking the update loop.
			if m.cancel != nil {
				m.cancel()
			}
			return m, nil
		}
		return m, tea.Quit

	case tea.KeyEnter:
		if m.running {
			return m, nil
		}
		text := strings.TrimSpace(m.Input.Value())
		if text == "" {
			return m, nil
		}
		return m.submitInput(text)
	}

	// When idle, pass keys to both input (for typing) and viewport
	// (for scrolling). Only forward non-character keys to viewport to avoid
	// conflicts (e.g. 'j'/'k' are viewport scroll AND text characters).
	if !m.running {
		var cmd tea.Cmd
		var cmds []tea.Cmd

		if msg.Type != tea.KeyRunes {
			m.Viewport, cmd = m.Viewport.Update(msg)
			cmds = append(cmds, cmd)
		}

		m.Input, cmd = m.Input.Update(msg)
		cmds = append(cmds, cmd)

		return m, tea.Batch(cmds...)
	}

	return m, nil
}

func (m Model) submitInput(text string) (tea.Model, tea.Cmd) {
	m.Input.SetValue("")
	m.err = nil

	if text == BypassCommand {
		if m.usageLimit == nil || !m.usageLimit.CanBypass {
			m.err = errors.New("no bypassable usage limit to retry")
			return m, nil
		}
		return m.startStream(chatstream.WithBypassUsageLimit(true))
	}

	m.usageLimit = nil
	m.conv.Append(chatstream.UserMessage(text))
	m.blocks = append(m.blocks, NewUserMessageBlock(text, m.styles))
	return m.startStream()
}

// startStream begins a session for the current history. The user message
// being answered is already the last entry in m.conv.
func (m Model) startStream(opts ...chatstream.StartOption) (tea.Model, tea.Cmd) {
	ctx, cancel := context.WithCancel(context.Background())
	id := m.newID()
	history := slices.Clone(m.conv.Messages)

	m.messageID = id
	m.cancel = cancel
	m.running = true
	m.finished = false
	m.active = NewAssistantBlock(m.styles)
	m.blocks = append(m.blocks, m.active)
	m = m.refresh()
	m.Input.Blur()

	streamer := m.streamer
	return m, func() tea.Msg {
		defer cancel()
		err := streamer.Start(ctx, id, history, opts...)
		return StreamDoneMsg{MessageID: id, Err: err}
	}
}

// renderHistory creates blocks from the stored conversation.
func (m Model) renderHistory() Model {
	for _, msg := range m.conv.Messages {
		switch msg.Role {
		case chatstream.RoleUser:
			m.blocks = append(m.blocks, NewUserMessageBlock(msg.Content, m.styles))
		case chatstream.RoleAssistant:
			m.blocks = append(m.blocks, NewFinishedAssistantBlock(msg.Content, m.styles))
		}
	}
	return m
}

func (m Model) refresh() Model {
	m.Viewport.SetContent(m.renderContent())
	m.Viewport.GotoBottom()
	return m
}

func (m Model) renderContent() string {
	if len(m.blocks) == 0 {
		return ""
	}
	var b strings.Builder
	for i, block := range m.blocks {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(block.View(m.Viewport.Width))
	}
	return b.String()
}

func (m Model) statusLine() string {
	switch {
	case m.err != nil:
		return m.styles.Error.Render(fmt.Sprintf("Error: %v", m.err))
	case m.running:
		return m.styles.Muted.Render("Streaming... Ctrl+C to cancel")
	case m.usageLimit != nil && m.usageLimit.CanBypass:
		return m.styles.Warning.Render("Usage limit reached. Type " + BypassCommand + " to send anyway")
	}
	return m.styles.Muted.Render("Enter to send, Ctrl+C to quit")
}
