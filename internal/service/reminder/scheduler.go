// Package reminder arms daily medication reminders.
//
// Timer handles are process-local. They live in an in-memory registry keyed
// by prescription and are never written to the store, so a restart silently
// drops every armed reminder.
package reminder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/wellbeingchat/backend/internal/apperr"
	"github.com/wellbeingchat/backend/internal/clock"
	"github.com/wellbeingchat/backend/internal/metrics"
	"github.com/wellbeingchat/backend/internal/model/profile"
	"github.com/wellbeingchat/backend/internal/notify"
)

// NotificationTitle is the title of every reminder notification.
const NotificationTitle = "Medication Reminder"

// Handle identifies one armed timer. Every re-arm issues a new handle.
type Handle string

// Notifier is the notification surface the scheduler needs.
type Notifier interface {
	Permission(ctx context.Context, profileID string) (notify.Permission, error)
	Request(ctx context.Context, profileID string) (notify.Permission, error)
	Fire(ctx context.Context, profileID string, n notify.Notification) error
}

// Armed describes the currently armed timer of a prescription.
type Armed struct {
	Handle Handle    `json:"reminderId"`
	At     time.Time `json:"nextAt"`
}

type key struct {
	profileID      string
	prescriptionID string
}

type entry struct {
	handle       Handle
	timer        clock.Timer
	at           time.Time
	hour, minute int
	prescription profile.Prescription
}

// Config tunes the scheduler.
type Config struct {
	Clock    clock.Clock
	Location *time.Location
	Icon     string
	Metrics  *metrics.Metrics
}

// Scheduler owns the registry of armed reminders.
type Scheduler struct {
	clock    clock.Clock
	notifier Notifier
	loc      *time.Location
	icon     string
	metrics  *metrics.Metrics

	mu    sync.Mutex
	armed map[key]*entry
}

// NewScheduler creates an empty scheduler.
func NewScheduler(notifier Notifier, cfg Config) *Scheduler {
	c := cfg.Clock
	if c == nil {
		c = clock.Real{}
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{
		clock:    c,
		notifier: notifier,
		loc:      loc,
		icon:     cfg.Icon,
		metrics:  cfg.Metrics,
		armed:    make(map[key]*entry),
	}
}

// Arm schedules the next daily reminder for p, replacing any armed one.
// Notification permission must be granted; an undetermined permission is
// requested first.
func (s *Scheduler) Arm(ctx context.Context, profileID string, p profile.Prescription) (Handle, error) {
	if p.Time == "" {
		return "", apperr.Validation("reminder time is required")
	}
	if !profile.ValidClockTime(p.Time) {
		return "", apperr.Validation("reminder time %q is not HH:MM", p.Time)
	}
	if err := s.ensurePermission(ctx, profileID); err != nil {
		return "", err
	}

	var hour, minute int
	if _, err := fmt.Sscanf(p.Time, "%d:%d", &hour, &minute); err != nil {
		return "", apperr.Validation("reminder time %q is not HH:MM", p.Time)
	}

	k := key{profileID: profileID, prescriptionID: p.ID}
	at := profile.NextOccurrence(s.clock.Now(), hour, minute, s.loc)

	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.armed[k]; ok {
		prev.timer.Stop()
		delete(s.armed, k)
		s.metrics.Reminder("replaced", -1)
	}

	e := s.scheduleLocked(k, p, hour, minute, at)
	s.metrics.Reminder("armed", 1)
	log.Info().
		Str("component", "reminder").
		Str("profile", profileID).
		Str("prescription", p.ID).
		Time("at", at).
		Msg("reminder armed")
	return e.handle, nil
}

// Cancel disarms the reminder of a prescription when handle is the one
// currently armed. An empty handle matches whatever is armed. A stale handle,
// including one whose timer already fired, leaves the registry untouched and
// yields apperr.ErrStaleHandle, which callers treat as a no-op.
func (s *Scheduler) Cancel(profileID, prescriptionID string, handle Handle) error {
	k := key{profileID: profileID, prescriptionID: prescriptionID}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.armed[k]
	if !ok || (handle != "" && e.handle != handle) {
		return apperr.ErrStaleHandle
	}
	e.timer.Stop()
	delete(s.armed, k)
	s.metrics.Reminder("canceled", -1)
	log.Info().Str("component", "reminder").Str("profile", profileID).Str("prescription", prescriptionID).Msg("reminder canceled")
	return nil
}

// Active returns the armed timer of a prescription.
func (s *Scheduler) Active(profileID, prescriptionID string) (Armed, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.armed[key{profileID: profileID, prescriptionID: prescriptionID}]
	if !ok {
		return Armed{}, false
	}
	return Armed{Handle: e.handle, At: e.at}, true
}

// Stop disarms every reminder.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, e := range s.armed {
		e.timer.Stop()
		delete(s.armed, k)
		s.metrics.Reminder("stopped", -1)
	}
}

func (s *Scheduler) ensurePermission(ctx context.Context, profileID string) error {
	state, err := s.notifier.Permission(ctx, profileID)
	if err != nil {
		return err
	}
	switch state {
	case notify.Granted:
		return nil
	case notify.Denied:
		return fmt.Errorf("notifications are blocked: %w", apperr.ErrPermissionDenied)
	}

	state, err = s.notifier.Request(ctx, profileID)
	if err != nil {
		return err
	}
	if state != notify.Granted {
		return fmt.Errorf("notification permission %s: %w", state, apperr.ErrPermissionDenied)
	}
	return nil
}

func (s *Scheduler) scheduleLocked(k key, p profile.Prescription, hour, minute int, at time.Time) *entry {
	handle := Handle(uuid.NewString())
	e := &entry{
		handle:       handle,
		at:           at,
		hour:         hour,
		minute:       minute,
		prescription: p,
	}
	delay := at.Sub(s.clock.Now())
	if delay < 0 {
		delay = 0
	}
	e.timer = s.clock.AfterFunc(delay, func() { s.fire(k, handle) })
	s.armed[k] = e
	return e
}

func (s *Scheduler) fire(k key, handle Handle) {
	s.mu.Lock()
	e, ok := s.armed[k]
	if !ok || e.handle != handle {
		s.mu.Unlock()
		return
	}

	// 同一时刻的下一天，按日历计算以跨越夏令时。
	y, m, d := e.at.In(s.loc).Date()
	next := time.Date(y, m, d+1, e.hour, e.minute, 0, 0, s.loc)
	rearmed := s.scheduleLocked(k, e.prescription, e.hour, e.minute, next)
	s.mu.Unlock()

	s.metrics.Reminder("fired", 0)
	log.Info().
		Str("component", "reminder").
		Str("profile", k.profileID).
		Str("prescription", k.prescriptionID).
		Time("next", rearmed.at).
		Msg("reminder fired")

	n := notify.Notification{
		Title: NotificationTitle,
		Body:  fmt.Sprintf("It's time to take your %s (%s).", e.prescription.Name, e.prescription.Dosage),
		Icon:  s.icon,
	}
	if err := s.notifier.Fire(context.Background(), k.profileID, n); err != nil {
		log.Warn().Err(err).Str("component", "reminder").Str("profile", k.profileID).Msg("reminder notification not shown")
	}
}
