package bubbletea

// RenderContent exports renderContent for testing.
func RenderContent(m Model) string {
	return m.renderContent()
}

// MessageID returns the id of the current or last session.
func MessageID(m Model) string {
	return m.messageID
}
