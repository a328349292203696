// Package metrics provides Prometheus metrics for the companion backend.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	GatewayRequestsTotal   *prometheus.CounterVec
	GatewayRequestDuration *prometheus.HistogramVec

	ChatTurnsTotal     *prometheus.CounterVec
	MoodEntriesTotal   *prometheus.CounterVec
	SafetyAlertsTotal  prometheus.Counter
	RemindersTotal     *prometheus.CounterVec
	RemindersArmed     prometheus.Gauge
	NotificationsTotal *prometheus.CounterVec
}

// New creates a private registry and registers every collector on it.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		GatewayRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wellbeing_gateway_requests_total",
				Help: "Total number of AI gateway calls",
			},
			[]string{"gateway", "status"},
		),
		GatewayRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "wellbeing_gateway_request_duration_seconds",
				Help:    "Duration of AI gateway calls in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"gateway"},
		),
		ChatTurnsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wellbeing_chat_turns_total",
				Help: "Chat turns by outcome",
			},
			[]string{"outcome"},
		),
		MoodEntriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wellbeing_mood_entries_total",
				Help: "Recorded mood entries by mood",
			},
			[]string{"mood"},
		),
		SafetyAlertsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "wellbeing_safety_alerts_total",
			Help: "Replies flagged as safety concerns with contacts available",
		}),
		RemindersTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wellbeing_reminders_total",
				Help: "Reminder lifecycle events",
			},
			[]string{"event"},
		),
		RemindersArmed: factory.NewGauge(prometheus.GaugeOpts{
			Name: "wellbeing_reminders_armed",
			Help: "Currently armed reminders",
		}),
		NotificationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wellbeing_notifications_total",
				Help: "Notifications fired by delivery outcome",
			},
			[]string{"outcome"},
		),
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveGateway records one gateway call.
func (m *Metrics) ObserveGateway(gateway string, started time.Time, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.GatewayRequestsTotal.WithLabelValues(gateway, status).Inc()
	m.GatewayRequestDuration.WithLabelValues(gateway).Observe(time.Since(started).Seconds())
}

// ChatTurn records a settled chat turn ("reply", "error", "dropped").
func (m *Metrics) ChatTurn(outcome string) {
	if m == nil {
		return
	}
	m.ChatTurnsTotal.WithLabelValues(outcome).Inc()
}

// SafetyAlert records a surfaced safety prompt.
func (m *Metrics) SafetyAlert() {
	if m == nil {
		return
	}
	m.SafetyAlertsTotal.Inc()
}

// MoodRecorded records a mood entry.
func (m *Metrics) MoodRecorded(mood string) {
	if m == nil {
		return
	}
	m.MoodEntriesTotal.WithLabelValues(mood).Inc()
}

// Reminder records a reminder lifecycle event and adjusts the armed gauge.
func (m *Metrics) Reminder(event string, armedDelta float64) {
	if m == nil {
		return
	}
	m.RemindersTotal.WithLabelValues(event).Inc()
	if armedDelta != 0 {
		m.RemindersArmed.Add(armedDelta)
	}
}

// Notification records a fired notification ("delivered", "no_client", "suppressed").
func (m *Metrics) Notification(outcome string) {
	if m == nil {
		return
	}
	m.NotificationsTotal.WithLabelValues(outcome).Inc()
}
