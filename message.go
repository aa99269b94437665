package chatstream

import "time"

// Message is a single turn of conversation history sent to the backend.
type Message struct {
	Role      Role
	Content   string
	Timestamp time.Time
}

// UserMessage returns a user Message stamped with the current time.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content, Timestamp: time.Now()}
}

// AssistantMessage returns an assistant Message stamped with the current time.
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content, Timestamp: time.Now()}
}
