package chat_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/wellbeingchat/backend/internal/apperr"
	"github.com/wellbeingchat/backend/internal/model/chat"
	chatsvc "github.com/wellbeingchat/backend/internal/service/chat"
)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func TestResumeOrStartStartsAfterWindow(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	existing := []chat.Conversation{{
		ID:   "old",
		Date: now.Add(-5 * time.Hour),
		Messages: []chat.Message{
			{ID: "m1", Role: chat.RoleBot, Text: "hi", Timestamp: now.Add(-5 * time.Hour)},
			{ID: "m2", Role: chat.RoleUser, Text: "hello", Timestamp: now.Add(-2*time.Hour - time.Minute)},
		},
	}}

	activeID, messages, updated := chatsvc.ResumeOrStart(existing, now, chatsvc.DefaultContinuityWindow, sequentialIDs())
	if activeID == "old" {
		t.Fatal("expected a new conversation")
	}
	if len(messages) != 1 {
		t.Fatalf("unexpected seeded messages: got %d want 1", len(messages))
	}
	if messages[0].Role != chat.RoleBot || messages[0].Text != chatsvc.GreetingText {
		t.Fatalf("unexpected greeting: %+v", messages[0])
	}
	if len(updated) != 2 || updated[1].ID != activeID {
		t.Fatalf("new conversation not appended: %+v", updated)
	}
}

func TestResumeOrStartEmptyConversationUsesCreationDate(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	existing := []chat.Conversation{{ID: "empty", Date: now.Add(-3 * time.Hour)}}

	activeID, _, _ := chatsvc.ResumeOrStart(existing, now, chatsvc.DefaultContinuityWindow, sequentialIDs())
	if activeID == "empty" {
		t.Fatal("expected stale empty conversation to be replaced")
	}
}

func TestResumeOrStartResumesWithinWindow(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	messages := []chat.Message{
		{ID: "m1", Role: chat.RoleBot, Text: "hi", Timestamp: now.Add(-3 * time.Hour)},
		{ID: "m2", Role: chat.RoleUser, Text: "still here", Timestamp: now.Add(-90 * time.Minute)},
	}
	existing := []chat.Conversation{
		{ID: "first", Date: now.Add(-24 * time.Hour)},
		{ID: "latest", Date: now.Add(-3 * time.Hour), Messages: messages},
	}

	activeID, got, updated := chatsvc.ResumeOrStart(existing, now, chatsvc.DefaultContinuityWindow, sequentialIDs())
	if activeID != "latest" {
		t.Fatalf("unexpected active id: got %s want latest", activeID)
	}
	if len(got) != len(messages) {
		t.Fatalf("unexpected message count: got %d want %d", len(got), len(messages))
	}
	for i := range messages {
		if got[i] != messages[i] {
			t.Fatalf("message %d modified: got %+v want %+v", i, got[i], messages[i])
		}
	}
	if len(updated) != len(existing) {
		t.Fatalf("collection should be unchanged: got %d", len(updated))
	}
}

func TestAppendThenCompleteKeepsLength(t *testing.T) {
	now := time.Now()
	ids := sequentialIDs()
	thread := &chatsvc.Thread{ConversationID: "c1", Messages: []chat.Message{{ID: "g", Role: chat.RoleBot, Text: "hi"}}}

	_, placeholder, err := thread.AppendUserTurn("I feel low", now, ids)
	if err != nil {
		t.Fatalf("AppendUserTurn err: %v", err)
	}
	if placeholder.Text != chat.PlaceholderText {
		t.Fatalf("unexpected placeholder text: %s", placeholder.Text)
	}
	afterAppend := len(thread.Messages)

	reply, err := thread.CompleteBotTurn("I'm here for you.", nil, now, ids)
	if err != nil {
		t.Fatalf("CompleteBotTurn err: %v", err)
	}
	if len(thread.Messages) != afterAppend {
		t.Fatalf("length changed: got %d want %d", len(thread.Messages), afterAppend)
	}
	if last := thread.Messages[len(thread.Messages)-1]; last != reply || last.Text != "I'm here for you." {
		t.Fatalf("placeholder not replaced: %+v", last)
	}
	if thread.Pending() {
		t.Fatal("thread should not be pending")
	}
}

func TestCompleteBotTurnFailureUsesApology(t *testing.T) {
	now := time.Now()
	ids := sequentialIDs()
	thread := &chatsvc.Thread{ConversationID: "c1"}

	if _, _, err := thread.AppendUserTurn("hello", now, ids); err != nil {
		t.Fatalf("AppendUserTurn err: %v", err)
	}
	reply, err := thread.CompleteBotTurn("", errors.New("boom"), now, ids)
	if !errors.Is(err, apperr.ErrGateway) {
		t.Fatalf("expected gateway error, got %v", err)
	}
	if reply.Text != chatsvc.ApologyText {
		t.Fatalf("unexpected reply: %s", reply.Text)
	}
	if len(thread.Messages) != 2 {
		t.Fatalf("unexpected message count: %d", len(thread.Messages))
	}
}

func TestAppendUserTurnRejectsWhilePending(t *testing.T) {
	now := time.Now()
	ids := sequentialIDs()
	thread := &chatsvc.Thread{ConversationID: "c1"}

	if _, _, err := thread.AppendUserTurn("first", now, ids); err != nil {
		t.Fatalf("AppendUserTurn err: %v", err)
	}
	if _, _, err := thread.AppendUserTurn("second", now, ids); !errors.Is(err, chatsvc.ErrResponsePending) {
		t.Fatalf("expected ErrResponsePending, got %v", err)
	}

	placeholders := 0
	for _, msg := range thread.Messages {
		if msg.ID == thread.PendingID() {
			placeholders++
		}
	}
	if placeholders != 1 {
		t.Fatalf("unexpected placeholders: got %d want 1", placeholders)
	}
}

func TestAppendUserTurnRejectsBlankText(t *testing.T) {
	thread := &chatsvc.Thread{}
	if _, _, err := thread.AppendUserTurn("   ", time.Now(), sequentialIDs()); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAcknowledgeKeepsPlaceholderLast(t *testing.T) {
	now := time.Now()
	ids := sequentialIDs()
	thread := &chatsvc.Thread{}
	if _, _, err := thread.AppendUserTurn("hello", now, ids); err != nil {
		t.Fatalf("AppendUserTurn err: %v", err)
	}

	thread.Acknowledge("noted", now, ids)
	if thread.Messages[len(thread.Messages)-1].ID != thread.PendingID() {
		t.Fatalf("placeholder should stay last: %+v", thread.Messages)
	}
	if thread.Messages[1].Text != "noted" {
		t.Fatalf("acknowledgement misplaced: %+v", thread.Messages)
	}
}

func TestPersistStripsPlaceholderAndInserts(t *testing.T) {
	now := time.Now()
	messages := []chat.Message{
		{ID: "u", Role: chat.RoleUser, Text: "hello"},
		{ID: "p", Role: chat.RoleBot, Text: chat.PlaceholderText},
	}

	updated := chatsvc.Persist(nil, "new", messages, "p", now)
	if len(updated) != 1 || updated[0].ID != "new" {
		t.Fatalf("conversation not inserted: %+v", updated)
	}
	if len(updated[0].Messages) != 1 || updated[0].Messages[0].ID != "u" {
		t.Fatalf("placeholder persisted: %+v", updated[0].Messages)
	}

	updated = chatsvc.Persist(updated, "new", append(messages[:1:1], chat.Message{ID: "b", Role: chat.RoleBot, Text: "hi"}), "", now)
	if len(updated) != 1 || len(updated[0].Messages) != 2 {
		t.Fatalf("conversation not updated in place: %+v", updated)
	}
}

func TestMoodAcknowledgement(t *testing.T) {
	got := chatsvc.MoodAcknowledgement("Anxious")
	want := "Thanks for sharing that you're feeling anxious. What's on your mind?"
	if got != want {
		t.Fatalf("unexpected acknowledgement: got %q want %q", got, want)
	}
}

func TestPersistKeepsReplyThatLooksLikePlaceholder(t *testing.T) {
	now := time.Now()
	ids := sequentialIDs()
	thread := &chatsvc.Thread{ConversationID: "c1"}

	if _, _, err := thread.AppendUserTurn("hello", now, ids); err != nil {
		t.Fatalf("AppendUserTurn err: %v", err)
	}
	if _, err := thread.CompleteBotTurn(chat.PlaceholderText, nil, now, ids); err != nil {
		t.Fatalf("CompleteBotTurn err: %v", err)
	}

	updated := chatsvc.Persist(nil, thread.ConversationID, thread.Messages, thread.PendingID(), now)
	if len(updated[0].Messages) != 2 || updated[0].Messages[1].Text != chat.PlaceholderText {
		t.Fatalf("settled reply was dropped: %+v", updated[0].Messages)
	}
}
