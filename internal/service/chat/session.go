package chat

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wellbeingchat/backend/internal/apperr"
	"github.com/wellbeingchat/backend/internal/model/chat"
	"github.com/wellbeingchat/backend/internal/model/mood"
)

const (
	// DefaultContinuityWindow is how long an idle conversation stays resumable.
	DefaultContinuityWindow = 2 * time.Hour

	GreetingText = "Hello! I'm Wellbeing Chat. How are you feeling today? You can share anything that's on your mind."
	ApologyText  = "Sorry, I encountered an error. Please try again."
)

var (
	ErrResponsePending = fmt.Errorf("%w: a response is already pending", apperr.ErrConflict)
	ErrNoPendingTurn   = errors.New("no pending turn to complete")
)

// ResumeOrStart picks the most recently created conversation (the last one
// in the collection) and resumes it
// when its last activity lies within window of now. Otherwise it starts a new
// conversation seeded with the greeting and appends it to the collection.
// The returned collection is the input when resuming.
func ResumeOrStart(conversations []chat.Conversation, now time.Time, window time.Duration, newID func() string) (string, []chat.Message, []chat.Conversation) {
	if latest, ok := mostRecent(conversations); ok {
		if now.Sub(latest.LastActivity()) < window {
			return latest.ID, latest.Messages, conversations
		}
	}

	created := chat.Conversation{
		ID:   newID(),
		Date: now,
		Messages: []chat.Message{
			{ID: newID(), Role: chat.RoleBot, Text: GreetingText, Timestamp: now},
		},
	}

	updated := make([]chat.Conversation, 0, len(conversations)+1)
	updated = append(updated, conversations...)
	updated = append(updated, created)
	return created.ID, append([]chat.Message(nil), created.Messages...), updated
}

func mostRecent(conversations []chat.Conversation) (chat.Conversation, bool) {
	if len(conversations) == 0 {
		return chat.Conversation{}, false
	}
	return conversations[len(conversations)-1], true
}

// Persist writes messages into the conversation with activeID, inserting a
// new record dated now when absent. The pending placeholder named by
// pendingID is never written.
func Persist(conversations []chat.Conversation, activeID string, messages []chat.Message, pendingID string, now time.Time) []chat.Conversation {
	durable := make([]chat.Message, 0, len(messages))
	for _, msg := range messages {
		if pendingID == "" || msg.ID != pendingID {
			durable = append(durable, msg)
		}
	}

	updated := make([]chat.Conversation, 0, len(conversations)+1)
	found := false
	for _, conv := range conversations {
		if conv.ID == activeID {
			conv.Messages = durable
			found = true
		}
		updated = append(updated, conv)
	}
	if !found {
		updated = append(updated, chat.Conversation{ID: activeID, Date: now, Messages: durable})
	}
	return updated
}

// Thread is the in-memory message list of the active conversation.
type Thread struct {
	ConversationID string
	Messages       []chat.Message

	pendingID string
}

// Pending reports whether a reply is awaited.
func (t *Thread) Pending() bool {
	return t.pendingID != ""
}

// PendingID returns the placeholder message ID, empty when nothing is pending.
func (t *Thread) PendingID() string {
	return t.pendingID
}

// LastActivity is the timestamp of the last message.
func (t *Thread) LastActivity() time.Time {
	if n := len(t.Messages); n > 0 {
		return t.Messages[n-1].Timestamp
	}
	return time.Time{}
}

// AppendUserTurn appends the user's message and a placeholder bot message.
func (t *Thread) AppendUserTurn(text string, now time.Time, newID func() string) (chat.Message, chat.Message, error) {
	if t.Pending() {
		return chat.Message{}, chat.Message{}, ErrResponsePending
	}
	if strings.TrimSpace(text) == "" {
		return chat.Message{}, chat.Message{}, apperr.Validation("message text is required")
	}

	user := chat.Message{ID: newID(), Role: chat.RoleUser, Text: text, Timestamp: now}
	placeholder := chat.Message{ID: newID(), Role: chat.RoleBot, Text: chat.PlaceholderText, Timestamp: now}

	t.Messages = append(t.Messages, user, placeholder)
	t.pendingID = placeholder.ID
	return user, placeholder, nil
}

// CompleteBotTurn replaces the placeholder with the reply, or with the
// apology when failure is non-nil. The failure is returned wrapped as a
// gateway error alongside the apology message.
func (t *Thread) CompleteBotTurn(reply string, failure error, now time.Time, newID func() string) (chat.Message, error) {
	if !t.Pending() {
		return chat.Message{}, ErrNoPendingTurn
	}

	idx := t.indexOf(t.pendingID)
	if idx < 0 {
		missing := t.pendingID
		t.pendingID = ""
		return chat.Message{}, fmt.Errorf("placeholder %s missing: %w", missing, ErrNoPendingTurn)
	}

	text := reply
	if failure != nil {
		text = ApologyText
	}
	msg := chat.Message{ID: newID(), Role: chat.RoleBot, Text: text, Timestamp: now}
	t.Messages[idx] = msg
	t.pendingID = ""

	if failure != nil {
		if errors.Is(failure, apperr.ErrGateway) {
			return msg, failure
		}
		return msg, apperr.Gateway("response", failure)
	}
	return msg, nil
}

// Acknowledge appends a bot message. While a reply is pending it is inserted
// before the placeholder so the placeholder stays last.
func (t *Thread) Acknowledge(text string, now time.Time, newID func() string) chat.Message {
	msg := chat.Message{ID: newID(), Role: chat.RoleBot, Text: text, Timestamp: now}
	if idx := t.indexOf(t.pendingID); t.Pending() && idx >= 0 {
		t.Messages = append(t.Messages[:idx], append([]chat.Message{msg}, t.Messages[idx:]...)...)
		return msg
	}
	t.Messages = append(t.Messages, msg)
	return msg
}

func (t *Thread) indexOf(id string) int {
	if id == "" {
		return -1
	}
	for i := len(t.Messages) - 1; i >= 0; i-- {
		if t.Messages[i].ID == id {
			return i
		}
	}
	return -1
}

// MoodAcknowledgement is the bot's reply to a mood selection.
func MoodAcknowledgement(m mood.Mood) string {
	return fmt.Sprintf("Thanks for sharing that you're feeling %s. What's on your mind?", strings.ToLower(string(m)))
}
