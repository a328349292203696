package chat

import (
	"testing"
	"time"
)

func TestLastActivityFallsBackToDate(t *testing.T) {
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	conv := Conversation{ID: "c1", Date: created}
	if got := conv.LastActivity(); !got.Equal(created) {
		t.Fatalf("got %s want %s", got, created)
	}

	last := created.Add(30 * time.Minute)
	conv.Messages = []Message{
		{ID: "m1", Role: RoleBot, Text: "hi", Timestamp: created},
		{ID: "m2", Role: RoleUser, Text: "hello", Timestamp: last},
	}
	if got := conv.LastActivity(); !got.Equal(last) {
		t.Fatalf("got %s want %s", got, last)
	}
}

func TestTranscriptFormat(t *testing.T) {
	got := Transcript([]Message{
		{Role: RoleBot, Text: "How are you?"},
		{Role: RoleUser, Text: "Tired."},
	})
	want := "bot: How are you?\nuser: Tired."
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}
