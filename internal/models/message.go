package models

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one conversational turn in the transcript.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
	// Failed marks an assistant turn that reports a failed question instead of an answer.
	Failed    bool      `json:"failed,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Valid reports whether the message carries both a known role and content.
func (m Message) Valid() bool {
	switch m.Role {
	case RoleUser, RoleAssistant:
	default:
		return false
	}
	return m.Content != ""
}
