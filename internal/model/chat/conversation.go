package chat

import (
	"strings"
	"time"
)

// Conversation is an ordered run of messages started at Date.
type Conversation struct {
	ID       string    `json:"id"`
	Date     time.Time `json:"date"`
	Messages []Message `json:"messages"`
}

// LastActivity returns the timestamp of the last message, or the creation
// date when the conversation is empty.
func (c Conversation) LastActivity() time.Time {
	if n := len(c.Messages); n > 0 {
		return c.Messages[n-1].Timestamp
	}
	return c.Date
}

// Transcript renders messages as newline-joined "<role>: <text>" lines.
func Transcript(messages []Message) string {
	lines := make([]string, 0, len(messages))
	for _, msg := range messages {
		lines = append(lines, string(msg.Role)+": "+msg.Text)
	}
	return strings.Join(lines, "\n")
}
