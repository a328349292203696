package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/wellbeingchat/backend/internal/clock"
	"github.com/wellbeingchat/backend/internal/model/resource"
	"github.com/wellbeingchat/backend/internal/notify"
	authService "github.com/wellbeingchat/backend/internal/service/auth"
	chatService "github.com/wellbeingchat/backend/internal/service/chat"
	moodService "github.com/wellbeingchat/backend/internal/service/mood"
	profileService "github.com/wellbeingchat/backend/internal/service/profile"
	"github.com/wellbeingchat/backend/internal/service/reminder"
	wellbeingService "github.com/wellbeingchat/backend/internal/service/wellbeing"
	"github.com/wellbeingchat/backend/internal/store"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	st := store.NewMemoryStore()
	items, err := resource.Seed()
	if err != nil {
		t.Fatalf("seed err: %v", err)
	}

	authSvc := authService.NewService(st)
	chatSvc := chatService.NewService(st, nil, chatService.Config{})
	authSvc.OnClose(chatSvc.Close)
	notifySvc := notify.NewService(st, notify.NewHub(), notify.Config{})
	fake := clock.NewFake(time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC))
	scheduler := reminder.NewScheduler(notifySvc, reminder.Config{Clock: fake, Location: time.UTC})
	t.Cleanup(scheduler.Stop)

	return NewRouter(Services{
		Auth:      authSvc,
		Chat:      chatSvc,
		Mood:      moodService.NewService(st, nil, moodService.Config{Location: time.UTC}),
		Profile:   profileService.NewService(st, scheduler),
		Notify:    notifySvc,
		Wellbeing: wellbeingService.NewService(st, notifySvc, wellbeingService.Config{Clock: fake, Location: time.UTC}),
		Resources: resource.NewMemoryStore(items),
		Store:     st,
	})
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	r := newTestRouter(t)

	for _, path := range []string{"/api/chat", "/api/moods/", "/api/contacts/", "/api/wellbeing/", "/api/me"} {
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, path, nil))
		if resp.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", path, resp.Code)
		}
	}
}

func TestHealthzPingsStore(t *testing.T) {
	r := newTestRouter(t)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
}

func TestResourcesArePublic(t *testing.T) {
	r := newTestRouter(t)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/resources", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
}

func TestLoginOpensScopedSession(t *testing.T) {
	r := newTestRouter(t)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/login", bytes.NewBufferString(`{"username":"Ada","password":"pw"}`)))
	if resp.Code != http.StatusCreated {
		t.Fatalf("login: expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var session authService.Session
	if err := json.Unmarshal(resp.Body.Bytes(), &session); err != nil {
		t.Fatalf("decode err: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/chat", nil)
	req.Header.Set("Authorization", "Bearer "+session.Token)
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("open chat: expected 200, got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/logout", nil)
	req.Header.Set("Authorization", "Bearer "+session.Token)
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusNoContent {
		t.Fatalf("logout: expected 204, got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/chat", nil)
	req.Header.Set("Authorization", "Bearer "+session.Token)
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("after logout: expected 401, got %d", resp.Code)
	}
}
