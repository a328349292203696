package chat

import "time"

// Role identifies the author of a turn.
type Role string

const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

// PlaceholderText is shown in the bot message awaiting a reply.
const PlaceholderText = "..."

// Message is a single immutable turn within a conversation.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

