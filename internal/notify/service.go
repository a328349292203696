package notify

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wellbeingchat/backend/internal/apperr"
	"github.com/wellbeingchat/backend/internal/metrics"
	"github.com/wellbeingchat/backend/internal/store"
)

// Permission is the notification permission of a profile.
type Permission string

const (
	Granted      Permission = "granted"
	Denied       Permission = "denied"
	Undetermined Permission = "undetermined"
)

// ParsePermission accepts the three states; "default" is read as undetermined.
func ParsePermission(raw string) (Permission, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(Granted):
		return Granted, true
	case string(Denied):
		return Denied, true
	case string(Undetermined), "default":
		return Undetermined, true
	default:
		return "", false
	}
}

// Notification is what a client displays.
type Notification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Icon  string `json:"icon,omitempty"`
}

// Service owns permission state and delivery.
type Service struct {
	store         store.Store
	hub           *Hub
	metrics       *metrics.Metrics
	icon          string
	promptTimeout time.Duration

	mu      sync.Mutex
	waiters map[string][]chan Permission
}

// Config tunes delivery.
type Config struct {
	Icon string
	// PromptTimeout is how long Request waits for a connected client to
	// answer a permission prompt. Zero returns immediately.
	PromptTimeout time.Duration
	Metrics       *metrics.Metrics
}

// NewService creates the notification surface on hub.
func NewService(st store.Store, hub *Hub, cfg Config) *Service {
	return &Service{
		store:         st,
		hub:           hub,
		metrics:       cfg.Metrics,
		icon:          cfg.Icon,
		promptTimeout: cfg.PromptTimeout,
		waiters:       make(map[string][]chan Permission),
	}
}

// Hub exposes the client hub to the socket handler.
func (s *Service) Hub() *Hub {
	return s.hub
}

// Permission returns the stored state, undetermined when never set.
func (s *Service) Permission(ctx context.Context, profileID string) (Permission, error) {
	var p Permission
	found, err := s.store.Load(ctx, profileID, store.KeyNotificationPermission, &p)
	if err != nil {
		return "", err
	}
	if !found || p == "" {
		return Undetermined, nil
	}
	return p, nil
}

// SetPermission stores a client's answer and wakes pending requests.
func (s *Service) SetPermission(ctx context.Context, profileID string, p Permission) error {
	if _, ok := ParsePermission(string(p)); !ok {
		return apperr.Validation("invalid permission %q", p)
	}
	if err := s.store.Save(ctx, profileID, store.KeyNotificationPermission, p); err != nil {
		return err
	}

	s.mu.Lock()
	waiters := s.waiters[profileID]
	delete(s.waiters, profileID)
	s.mu.Unlock()

	for _, ch := range waiters {
		ch <- p
	}
	log.Info().Str("component", "notify").Str("profile", profileID).Str("permission", string(p)).Msg("permission updated")
	return nil
}

// Request asks connected clients for permission when it is undetermined and
// waits up to the prompt timeout for an answer. It returns the resulting state.
func (s *Service) Request(ctx context.Context, profileID string) (Permission, error) {
	current, err := s.Permission(ctx, profileID)
	if err != nil || current != Undetermined {
		return current, err
	}

	ch := make(chan Permission, 1)
	s.mu.Lock()
	s.waiters[profileID] = append(s.waiters[profileID], ch)
	s.mu.Unlock()
	defer s.dropWaiter(profileID, ch)

	if s.hub.Broadcast(profileID, Event{Type: EventPermissionRequest}) == 0 || s.promptTimeout <= 0 {
		return Undetermined, nil
	}

	timer := time.NewTimer(s.promptTimeout)
	defer timer.Stop()

	select {
	case p := <-ch:
		return p, nil
	case <-timer.C:
		return Undetermined, nil
	case <-ctx.Done():
		return Undetermined, ctx.Err()
	}
}

// Fire pushes n to every client of profileID. It requires a granted permission.
func (s *Service) Fire(ctx context.Context, profileID string, n Notification) error {
	p, err := s.Permission(ctx, profileID)
	if err != nil {
		return err
	}
	if p != Granted {
		s.metrics.Notification("suppressed")
		return fmt.Errorf("notification permission is %s: %w", p, apperr.ErrPermissionDenied)
	}

	if n.Icon == "" {
		n.Icon = s.icon
	}
	if s.hub.Broadcast(profileID, Event{Type: EventNotification, Data: n}) == 0 {
		s.metrics.Notification("no_client")
		log.Info().Str("component", "notify").Str("profile", profileID).Str("title", n.Title).Msg("no client connected for notification")
		return nil
	}
	s.metrics.Notification("delivered")
	return nil
}

func (s *Service) dropWaiter(profileID string, ch chan Permission) {
	s.mu.Lock()
	defer s.mu.Unlock()
	waiters := s.waiters[profileID]
	for i, w := range waiters {
		if w == ch {
			s.waiters[profileID] = append(waiters[:i], waiters[i+1:]...)
			break
		}
	}
	if len(s.waiters[profileID]) == 0 {
		delete(s.waiters, profileID)
	}
}
