package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveGatewayCountsByStatus(t *testing.T) {
	m := New()
	m.ObserveGateway("response", time.Now(), nil)
	m.ObserveGateway("response", time.Now(), errors.New("boom"))
	m.ObserveGateway("response", time.Now(), nil)

	if got := testutil.ToFloat64(m.GatewayRequestsTotal.WithLabelValues("response", "ok")); got != 2 {
		t.Fatalf("expected 2 ok calls, got %v", got)
	}
	if got := testutil.ToFloat64(m.GatewayRequestsTotal.WithLabelValues("response", "error")); got != 1 {
		t.Fatalf("expected 1 failed call, got %v", got)
	}
}

func TestReminderGauge(t *testing.T) {
	m := New()
	m.Reminder("armed", 1)
	m.Reminder("armed", 1)
	m.Reminder("canceled", -1)

	if got := testutil.ToFloat64(m.RemindersArmed); got != 1 {
		t.Fatalf("expected 1 armed reminder, got %v", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveGateway("response", time.Now(), nil)
	m.ChatTurn("reply")
	m.Reminder("fired", 0)
}

func TestHandlerExposesRegistry(t *testing.T) {
	m := New()
	m.ChatTurn("reply")

	resp := httptest.NewRecorder()
	m.Handler().ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "wellbeing_chat_turns_total") {
		t.Fatalf("expected chat turn metric in output")
	}
}
