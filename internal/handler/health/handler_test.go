package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/wellbeingchat/backend/internal/store"
)

type downStore struct{}

func (downStore) Ping(context.Context) error { return errors.New("database is locked") }

func serve(p Pinger) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	New(p).RegisterRoutes(r)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	return resp
}

func TestHealthy(t *testing.T) {
	resp := serve(store.NewMemoryStore())
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
}

func TestStoreUnreachableIsDegraded(t *testing.T) {
	resp := serve(downStore{})
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.Code)
	}
	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode err: %v", err)
	}
	if body.Status != "degraded" || body.Checks["store"] != "unreachable" {
		t.Fatalf("unexpected body: %+v", body)
	}
}
