package chat

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Sender types recorded on a Message
const (
	SenderUser = "user"
	SenderAI   = "ai"
)

// TempIDPrefix marks client-generated message ids that have not been
// confirmed by the server. Temporary messages are replaced wholesale,
// never mutated in place.
const TempIDPrefix = "temp-"

// Tool usage statuses
const (
	ToolStatusPending   = "pending"
	ToolStatusRunning   = "running"
	ToolStatusCompleted = "completed"
	ToolStatusFailed    = "failed"
)

// ToolUsage is the server's durable record of one tool invocation
// attached to a message
type ToolUsage struct {
	ID              string `json:"id"`
	ToolName        string `json:"tool_name"`
	Status          string `json:"status"`
	Input           string `json:"input,omitempty"`
	Output          string `json:"output,omitempty"`
	Error           string `json:"error,omitempty"`
	ExecutionTimeMs int64  `json:"execution_time_ms,omitempty"`
	InsertPosition  *int   `json:"insert_position,omitempty"`
}

// Message is one entry in a conversation transcript
type Message struct {
	ID         string      `json:"id"`
	Content    string      `json:"content"`
	SenderType string      `json:"sender_type"`
	SenderID   string      `json:"sender_id"`
	CreatedAt  time.Time   `json:"created_at"`
	ToolUsages []ToolUsage `json:"tool_usages,omitempty"`
}

// NewTemporaryUserMessage creates a locally-echoed user message with a
// temporary id
func NewTemporaryUserMessage(senderID, content string) Message {
	return Message{
		ID:         TempIDPrefix + uuid.NewString(),
		Content:    strings.TrimSpace(content),
		SenderType: SenderUser,
		SenderID:   senderID,
		CreatedAt:  time.Now(),
	}
}

func (m Message) IsUser() bool {
	return m.SenderType == SenderUser
}

func (m Message) IsAI() bool {
	return m.SenderType == SenderAI
}

// IsTemporary reports whether this message is a client-generated echo
// awaiting server confirmation
func (m Message) IsTemporary() bool {
	return strings.HasPrefix(m.ID, TempIDPrefix)
}

func (m Message) IsEmpty() bool {
	return strings.TrimSpace(m.Content) == ""
}

func (m Message) HasToolUsages() bool {
	return len(m.ToolUsages) > 0
}
