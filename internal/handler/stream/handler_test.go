package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/wellbeingchat/backend/internal/model/profile"
	"github.com/wellbeingchat/backend/internal/service/ai"
	authService "github.com/wellbeingchat/backend/internal/service/auth"
	chatservice "github.com/wellbeingchat/backend/internal/service/chat"
	"github.com/wellbeingchat/backend/internal/store"
)

type stubGateway struct {
	result ai.ResponseResult
	err    error
}

func (s stubGateway) GenerateResponse(context.Context, ai.ResponseRequest) (ai.ResponseResult, error) {
	return s.result, s.err
}

func readEvents(t *testing.T, body string) []StreamResponse {
	t.Helper()
	var events []StreamResponse
	scanner := bufio.NewScanner(strings.NewReader(body))
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var ev StreamResponse
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev); err != nil {
			t.Fatalf("decode event: %v", err)
		}
		events = append(events, ev)
	}
	return events
}

func eventNames(events []StreamResponse) string {
	names := make([]string, 0, len(events))
	for _, ev := range events {
		names = append(names, ev.Event)
	}
	return strings.Join(names, ",")
}

var session = authService.Session{Token: "t", ProfileID: "ada", Username: "ada"}

func TestStreamTurnEvents(t *testing.T) {
	chatSvc := chatservice.NewService(store.NewMemoryStore(), stubGateway{result: ai.ResponseResult{ChatbotResponse: "I hear you."}}, chatservice.Config{})
	handler := New(chatSvc)

	rec := httptest.NewRecorder()
	if err := handler.HandleStreamRequest(context.Background(), rec, session, "long day"); err != nil {
		t.Fatalf("HandleStreamRequest err: %v", err)
	}

	events := readEvents(t, rec.Body.String())
	if got := eventNames(events); got != "start,message,end" {
		t.Fatalf("unexpected events: %s", got)
	}
	reply, _ := events[1].Data.(map[string]any)
	if reply["text"] != "I hear you." {
		t.Fatalf("unexpected reply: %v", events[1].Data)
	}
	if rec.Header().Get("Content-Type") != "text/event-stream" {
		t.Fatalf("unexpected content type: %s", rec.Header().Get("Content-Type"))
	}
}

func TestStreamTurnGatewayFailure(t *testing.T) {
	chatSvc := chatservice.NewService(store.NewMemoryStore(), stubGateway{err: errors.New("down")}, chatservice.Config{})
	handler := New(chatSvc)

	rec := httptest.NewRecorder()
	if err := handler.HandleStreamRequest(context.Background(), rec, session, "hello"); err != nil {
		t.Fatalf("HandleStreamRequest err: %v", err)
	}

	events := readEvents(t, rec.Body.String())
	if got := eventNames(events); got != "start,message,error,end" {
		t.Fatalf("unexpected events: %s", got)
	}
	if events[2].Error != chatservice.ApologyText {
		t.Fatalf("unexpected error notice: %s", events[2].Error)
	}
}

func TestStreamTurnSafetyEvent(t *testing.T) {
	st := store.NewMemoryStore()
	contacts := []profile.EmergencyContact{{ID: "c1", Name: "Sam", Phone: "555"}}
	if err := st.Save(context.Background(), "ada", store.KeyEmergencyContacts, contacts); err != nil {
		t.Fatalf("Save err: %v", err)
	}
	chatSvc := chatservice.NewService(st, stubGateway{result: ai.ResponseResult{ChatbotResponse: "Please stay safe.", IsTriggering: true}}, chatservice.Config{})
	handler := New(chatSvc)

	rec := httptest.NewRecorder()
	if err := handler.HandleStreamRequest(context.Background(), rec, session, "I want to disappear"); err != nil {
		t.Fatalf("HandleStreamRequest err: %v", err)
	}
	if got := eventNames(readEvents(t, rec.Body.String())); got != "start,message,safety,end" {
		t.Fatalf("unexpected events: %s", got)
	}
}

func TestStreamRequiresMessage(t *testing.T) {
	chatSvc := chatservice.NewService(store.NewMemoryStore(), nil, chatservice.Config{})
	handler := New(chatSvc)

	req := httptest.NewRequest(http.MethodGet, "/chat/stream", nil)
	req = req.WithContext(authService.WithSession(req.Context(), session))
	rec := httptest.NewRecorder()
	handler.handleStream(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
