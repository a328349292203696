// Package auth manages explicit profile sessions. Login is simulated: any
// non-empty username and password opens a session on the profile named by
// the username.
package auth

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/wellbeingchat/backend/internal/apperr"
	"github.com/wellbeingchat/backend/internal/model/profile"
	"github.com/wellbeingchat/backend/internal/store"
)

// ErrSessionNotFound is returned for unknown or closed session tokens.
var ErrSessionNotFound = fmt.Errorf("%w: session not found", apperr.ErrUnauthenticated)

// Session is the context object handed to every profile-scoped operation.
type Session struct {
	Token     string    `json:"token"`
	ProfileID string    `json:"profileId"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
}

// CloseHook runs after a session is closed.
type CloseHook func(Session)

// Service tracks live sessions.
type Service struct {
	store store.Store
	now   func() time.Time

	mu       sync.RWMutex
	sessions map[string]Session
	hooks    []CloseHook
}

// NewService creates an auth service persisting the user record in st.
func NewService(st store.Store) *Service {
	return &Service{
		store:    st,
		now:      time.Now,
		sessions: make(map[string]Session),
	}
}

// OnClose registers a hook run on logout.
func (s *Service) OnClose(hook CloseHook) {
	s.mu.Lock()
	s.hooks = append(s.hooks, hook)
	s.mu.Unlock()
}

// Login opens a session for username.
func (s *Service) Login(ctx context.Context, username, password string) (Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || strings.TrimSpace(password) == "" {
		return Session{}, apperr.Validation("username and password are required")
	}

	session := Session{
		Token:     uuid.NewString(),
		ProfileID: ProfileID(username),
		Username:  username,
		CreatedAt: s.now().UTC(),
	}

	if err := s.store.Save(ctx, session.ProfileID, store.KeyUser, profile.User{Username: username}); err != nil {
		return Session{}, err
	}

	s.mu.Lock()
	s.sessions[session.Token] = session
	s.mu.Unlock()

	log.Info().Str("component", "auth").Str("profile", session.ProfileID).Msg("session opened")
	return session, nil
}

// Resolve returns the live session for token.
func (s *Service) Resolve(token string) (Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[token]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	return session, nil
}

// Active reports whether token still names a live session.
func (s *Service) Active(token string) bool {
	_, err := s.Resolve(token)
	return err == nil
}

// Logout closes the session and clears the stored user record.
func (s *Service) Logout(ctx context.Context, token string) error {
	s.mu.Lock()
	session, ok := s.sessions[token]
	if ok {
		delete(s.sessions, token)
	}
	hooks := append([]CloseHook(nil), s.hooks...)
	s.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}

	for _, hook := range hooks {
		hook(session)
	}

	if err := s.store.Delete(ctx, session.ProfileID, store.KeyUser); err != nil {
		return err
	}
	log.Info().Str("component", "auth").Str("profile", session.ProfileID).Msg("session closed")
	return nil
}

// CurrentUser returns the stored user record of a profile, if any.
func (s *Service) CurrentUser(ctx context.Context, profileID string) (*profile.User, error) {
	var user *profile.User
	if _, err := s.store.Load(ctx, profileID, store.KeyUser, &user); err != nil {
		return nil, err
	}
	return user, nil
}

// ProfileID derives the storage scope from a username.
func ProfileID(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

type contextKey struct{}

// WithSession stores session in ctx.
func WithSession(ctx context.Context, session Session) context.Context {
	return context.WithValue(ctx, contextKey{}, session)
}

// FromContext extracts the session stored by WithSession.
func FromContext(ctx context.Context) (Session, bool) {
	session, ok := ctx.Value(contextKey{}).(Session)
	return session, ok
}
