package model

import (
	"time"

	"github.com/google/uuid"
)

// MessageRole is the author of a chat message.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Valid reports whether the role is one of the allowed values.
func (r MessageRole) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// ChatSession owns an ordered sequence of messages. Deleting a session
// cascades to its messages; adding a message refreshes UpdatedAt.
type ChatSession struct {
	ID           int64     `json:"id"`
	RID          uuid.UUID `json:"rid"`
	Name         string    `json:"name"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count,omitempty"`
}

// ChatMessage is a single message within a session. Metadata carries the
// sources list attached to assistant answers.
type ChatMessage struct {
	ID        int64       `json:"id"`
	SessionID int64       `json:"session_id"`
	Role      MessageRole `json:"role"`
	Content   string      `json:"content"`
	Metadata  Metadata    `json:"metadata,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}
