package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/wellbeingchat/backend/internal/service/auth"
	"github.com/wellbeingchat/backend/internal/store"
)

func TestRequireSessionRejectsMissingToken(t *testing.T) {
	authSvc := auth.NewService(store.NewMemoryStore())
	handler := RequireSession(authSvc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/chat", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRequireSessionStoresSession(t *testing.T) {
	authSvc := auth.NewService(store.NewMemoryStore())
	session, err := authSvc.Login(context.Background(), "Ada", "secret")
	if err != nil {
		t.Fatalf("Login err: %v", err)
	}

	var got auth.Session
	handler := RequireSession(authSvc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = auth.FromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/chat", nil)
	req.Header.Set("Authorization", "Bearer "+session.Token)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if got.ProfileID != "ada" {
		t.Fatalf("unexpected session: %+v", got)
	}

	got = auth.Session{}
	req = httptest.NewRequest(http.MethodGet, "/api/notifications/ws?token="+session.Token, nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if got.Token != session.Token {
		t.Fatalf("query token not accepted: %+v", got)
	}
}

func TestCORSPreflight(t *testing.T) {
	handler := CORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("preflight should not reach the handler")
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/chat", nil))
	if rec.Code != http.StatusNoContent || rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("unexpected preflight response: %d %v", rec.Code, rec.Header())
	}
}
