package bubbletea

import "strings"

var _ MessageBlock = (*AssistantBlock)(nil)

// BlockStatus is the lifecycle state of an assistant reply.
type BlockStatus int

const (
	BlockStreaming BlockStatus = iota
	BlockCompleted
	BlockCancelled
	BlockFailed
)

const cursor = "▍"

// AssistantBlock renders an assistant reply. While streaming, the content is
// replaced wholesale on every update since the controller reports the full
// reconciled text, not deltas.
type AssistantBlock struct {
	content string
	status  BlockStatus
	styles  Styles
}

// NewAssistantBlock creates a block in the streaming state.
func NewAssistantBlock(styles Styles) *AssistantBlock {
	return &AssistantBlock{styles: styles}
}

// NewFinishedAssistantBlock creates a completed block, used when replaying
// stored history.
func NewFinishedAssistantBlock(content string, styles Styles) *AssistantBlock {
	return &AssistantBlock{content: content, status: BlockCompleted, styles: styles}
}

// SetContent replaces the streamed content.
func (b *AssistantBlock) SetContent(content string) {
	b.content = content
}

// Finish sets the final content and status. Finishing twice keeps the first.
func (b *AssistantBlock) Finish(content string, status BlockStatus) {
	if b.status != BlockStreaming {
		return
	}
	b.content = content
	b.status = status
}

// Content returns the current text.
func (b *AssistantBlock) Content() string { return b.content }

// Status returns the lifecycle state.
func (b *AssistantBlock) Status() BlockStatus { return b.status }

func (b *AssistantBlock) View(width int) string {
	var out strings.Builder
	out.WriteString(b.styles.Assistant.Render("Assistant"))
	out.WriteString("\n")

	body := b.content
	switch b.status {
	case BlockStreaming:
		body += b.styles.Accent.Render(cursor)
	case BlockCancelled:
		if body != "" {
			body += " "
		}
		body += b.styles.Warning.Render("[cancelled]")
	}
	out.WriteString(wrap(body, width))
	return out.String()
}
