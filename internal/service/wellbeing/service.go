// Package wellbeing tracks the daily focus task and its 30-minute timer.
package wellbeing

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wellbeingchat/backend/internal/apperr"
	"github.com/wellbeingchat/backend/internal/clock"
	"github.com/wellbeingchat/backend/internal/notify"
	"github.com/wellbeingchat/backend/internal/store"
)

// TaskDuration is the length of one focus session.
const TaskDuration = 30 * time.Minute

// Notifier shows the completion notification.
type Notifier interface {
	Fire(ctx context.Context, profileID string, n notify.Notification) error
}

// TaskStatus is a plan entry as seen today.
type TaskStatus struct {
	Task
	Today     bool `json:"today"`
	Completed bool `json:"completed"`
}

// TimerState is the visible state of the focus timer.
type TimerState struct {
	Day              string `json:"day"`
	Running          bool   `json:"running"`
	RemainingSeconds int    `json:"remainingSeconds"`
}

// Overview is the wellbeing page state.
type Overview struct {
	Date  string       `json:"date"`
	Today string       `json:"today"`
	Tasks []TaskStatus `json:"tasks"`
	Timer *TimerState  `json:"timer,omitempty"`
}

type focusTimer struct {
	day       string
	remaining time.Duration
	startedAt time.Time
	running   bool
	timer     clock.Timer
	gen       int
}

// Config tunes the service.
type Config struct {
	Clock    clock.Clock
	Location *time.Location
	Icon     string
}

// Service owns completion state and one timer per profile.
type Service struct {
	store    store.Store
	notifier Notifier
	clock    clock.Clock
	loc      *time.Location
	icon     string

	mu     sync.Mutex
	timers map[string]*focusTimer
	gen    int
}

// NewService creates the wellbeing service.
func NewService(st store.Store, notifier Notifier, cfg Config) *Service {
	c := cfg.Clock
	if c == nil {
		c = clock.Real{}
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		store:    st,
		notifier: notifier,
		clock:    c,
		loc:      loc,
		icon:     cfg.Icon,
		timers:   make(map[string]*focusTimer),
	}
}

// Overview returns the plan with today's completion and timer state.
func (s *Service) Overview(ctx context.Context, profileID string) (Overview, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now().In(s.loc)
	completed, err := s.completedLocked(ctx, profileID)
	if err != nil {
		return Overview{}, err
	}

	out := Overview{Date: now.Format("2006-01-02"), Today: now.Weekday().String()}
	for _, task := range Plan() {
		out.Tasks = append(out.Tasks, TaskStatus{
			Task:      task,
			Today:     task.Day == out.Today,
			Completed: completed[CompletionKey(now, task.Day)],
		})
	}
	if t, ok := s.timers[profileID]; ok {
		state := s.stateLocked(t)
		out.Timer = &state
	}
	return out, nil
}

// SetCompleted marks day's task done or not. Only today's task may change.
func (s *Service) SetCompleted(ctx context.Context, profileID, day string, done bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now().In(s.loc)
	if !strings.EqualFold(day, now.Weekday().String()) {
		return apperr.Validation("only today's task can be updated")
	}
	return s.markLocked(ctx, profileID, now, done)
}

// Start starts or resumes the focus timer for day's task.
func (s *Service) Start(ctx context.Context, profileID, day string) (TimerState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now().In(s.loc)
	today := now.Weekday().String()
	if !strings.EqualFold(day, today) {
		return TimerState{}, apperr.Validation("only today's task can be timed")
	}

	t, ok := s.timers[profileID]
	if ok && t.day != today {
		return TimerState{}, apperr.Validation("another task is active, complete or reset its timer first")
	}

	completed, err := s.completedLocked(ctx, profileID)
	if err != nil {
		return TimerState{}, err
	}
	if completed[CompletionKey(now, today)] {
		return TimerState{}, apperr.Validation("today's task is already complete")
	}

	if !ok {
		t = &focusTimer{day: today, remaining: TaskDuration}
		s.timers[profileID] = t
	}
	if !t.running {
		s.gen++
		gen := s.gen
		t.gen = gen
		t.running = true
		t.startedAt = s.clock.Now()
		t.timer = s.clock.AfterFunc(t.remaining, func() { s.expire(profileID, gen) })
	}
	return s.stateLocked(t), nil
}

// Pause stops the timer, keeping the remaining time.
func (s *Service) Pause(_ context.Context, profileID string) (TimerState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.timers[profileID]
	if !ok {
		return TimerState{}, apperr.Validation("no timer is active")
	}
	if t.running {
		t.timer.Stop()
		t.remaining -= s.clock.Now().Sub(t.startedAt)
		if t.remaining < 0 {
			t.remaining = 0
		}
		t.running = false
	}
	return s.stateLocked(t), nil
}

// Reset discards the timer.
func (s *Service) Reset(_ context.Context, profileID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.timers[profileID]; ok {
		if t.running {
			t.timer.Stop()
		}
		delete(s.timers, profileID)
	}
}

func (s *Service) expire(profileID string, gen int) {
	s.mu.Lock()
	t, ok := s.timers[profileID]
	if !ok || !t.running || t.gen != gen {
		s.mu.Unlock()
		return
	}
	delete(s.timers, profileID)

	ctx := context.Background()
	err := s.markLocked(ctx, profileID, s.clock.Now().In(s.loc), true)
	s.mu.Unlock()

	if err != nil {
		log.Error().Err(err).Str("component", "wellbeing").Str("profile", profileID).Msg("failed to record completed task")
		return
	}

	n := notify.Notification{
		Title: "Task Complete!",
		Body:  "Great job on completing your wellbeing task for the day!",
		Icon:  s.icon,
	}
	if err := s.notifier.Fire(ctx, profileID, n); err != nil {
		log.Warn().Err(err).Str("component", "wellbeing").Str("profile", profileID).Msg("completion notification not shown")
	}
}

func (s *Service) completedLocked(ctx context.Context, profileID string) (map[string]bool, error) {
	completed := map[string]bool{}
	if _, err := s.store.Load(ctx, profileID, store.KeyCompletedTasks, &completed); err != nil {
		return nil, err
	}
	if completed == nil {
		completed = map[string]bool{}
	}
	return completed, nil
}

func (s *Service) markLocked(ctx context.Context, profileID string, now time.Time, done bool) error {
	completed, err := s.completedLocked(ctx, profileID)
	if err != nil {
		return err
	}
	completed[CompletionKey(now, now.Weekday().String())] = done
	return s.store.Save(ctx, profileID, store.KeyCompletedTasks, completed)
}

func (s *Service) stateLocked(t *focusTimer) TimerState {
	remaining := t.remaining
	if t.running {
		remaining -= s.clock.Now().Sub(t.startedAt)
	}
	if remaining < 0 {
		remaining = 0
	}
	return TimerState{Day: t.day, Running: t.running, RemainingSeconds: int(remaining / time.Second)}
}
