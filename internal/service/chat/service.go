package chat

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/wellbeingchat/backend/internal/apperr"
	"github.com/wellbeingchat/backend/internal/metrics"
	"github.com/wellbeingchat/backend/internal/model/chat"
	"github.com/wellbeingchat/backend/internal/model/mood"
	"github.com/wellbeingchat/backend/internal/model/profile"
	"github.com/wellbeingchat/backend/internal/service/ai"
	"github.com/wellbeingchat/backend/internal/service/auth"
	"github.com/wellbeingchat/backend/internal/store"
)

// ErrSessionClosed is returned when the owning session went away before a
// reply arrived. The reply is discarded.
var ErrSessionClosed = fmt.Errorf("%w: session closed before the reply arrived", apperr.ErrConflict)

// ResponseGateway produces the bot reply for a user turn.
type ResponseGateway interface {
	GenerateResponse(ctx context.Context, req ai.ResponseRequest) (ai.ResponseResult, error)
}

// Snapshot is the visible state of the active conversation.
type Snapshot struct {
	ConversationID string         `json:"conversationId"`
	Messages       []chat.Message `json:"messages"`
	Pending        bool           `json:"pending"`
}

// SafetyAlert asks the caller to offer contacting the listed people.
type SafetyAlert struct {
	Contacts []profile.EmergencyContact `json:"contacts"`
}

// TurnResult is the outcome of one user turn.
type TurnResult struct {
	ConversationID string       `json:"conversationId"`
	UserMessage    chat.Message `json:"userMessage"`
	Reply          chat.Message `json:"reply"`
	Safety         *SafetyAlert `json:"safety,omitempty"`
}

// Turn is a user turn whose reply is still pending.
type Turn struct {
	Session     auth.Session
	Placeholder chat.Message
	UserMessage chat.Message

	conversationID string
	history        string
	text           string
	thread         *Thread
}

// Config tunes the session manager.
type Config struct {
	ContinuityWindow time.Duration
	// HistoryLimit caps the messages sent as conversation history. Zero sends all.
	HistoryLimit int
	Metrics      *metrics.Metrics
	Now          func() time.Time
}

// Service owns the active conversation of every open session.
type Service struct {
	store   store.Store
	gateway ResponseGateway
	metrics *metrics.Metrics

	window       time.Duration
	historyLimit int
	now          func() time.Time
	newID        func() string

	mu      sync.Mutex
	threads map[string]*Thread
}

// NewService creates the session manager. gateway may be nil, in which case
// every turn settles with the apology message.
func NewService(st store.Store, gateway ResponseGateway, cfg Config) *Service {
	window := cfg.ContinuityWindow
	if window <= 0 {
		window = DefaultContinuityWindow
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		store:        st,
		gateway:      gateway,
		metrics:      cfg.Metrics,
		window:       window,
		historyLimit: cfg.HistoryLimit,
		now:          now,
		newID:        uuid.NewString,
		threads:      make(map[string]*Thread),
	}
}

// Open resumes or starts the conversation of session.
func (s *Service) Open(ctx context.Context, session auth.Session) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	thread, err := s.threadLocked(ctx, session)
	if err != nil {
		return Snapshot{}, err
	}
	return snapshotOf(thread), nil
}

// Close drops the in-memory conversation of a session. Replies still in
// flight for it are discarded when they arrive.
func (s *Service) Close(session auth.Session) {
	s.mu.Lock()
	delete(s.threads, session.Token)
	s.mu.Unlock()
}

// Send runs a full turn: it appends the user message, waits for the gateway
// and settles the placeholder. On a gateway failure the result still carries
// the apology reply and the returned error wraps apperr.ErrGateway.
func (s *Service) Send(ctx context.Context, session auth.Session, text string) (TurnResult, error) {
	turn, err := s.BeginTurn(ctx, session, text)
	if err != nil {
		return TurnResult{}, err
	}
	return s.FinishTurn(ctx, turn)
}

// BeginTurn appends the user message and the placeholder and persists them.
func (s *Service) BeginTurn(ctx context.Context, session auth.Session, text string) (*Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	thread, err := s.threadLocked(ctx, session)
	if err != nil {
		return nil, err
	}

	history := chat.Transcript(s.limitHistory(thread.Messages))
	user, placeholder, err := thread.AppendUserTurn(text, s.now(), s.newID)
	if err != nil {
		return nil, err
	}

	if err := s.persistLocked(ctx, session.ProfileID, thread); err != nil {
		return nil, err
	}

	return &Turn{
		Session:        session,
		Placeholder:    placeholder,
		UserMessage:    user,
		conversationID: thread.ConversationID,
		history:        history,
		text:           text,
		thread:         thread,
	}, nil
}

// FinishTurn calls the response gateway and settles the placeholder. The
// gateway call is detached from ctx cancellation.
func (s *Service) FinishTurn(ctx context.Context, turn *Turn) (TurnResult, error) {
	callCtx := context.WithoutCancel(ctx)
	result, gwErr := s.generate(callCtx, ai.ResponseRequest{
		UserInput:           turn.text,
		ConversationHistory: turn.history,
	})
	if gwErr == nil && result.ChatbotResponse == "" {
		gwErr = apperr.Gateway("response", errors.New("empty reply"))
	}

	s.mu.Lock()
	if current, ok := s.threads[turn.Session.Token]; !ok || current != turn.thread {
		s.mu.Unlock()
		s.metrics.ChatTurn("dropped")
		log.Info().Str("component", "chat").Str("profile", turn.Session.ProfileID).Msg("reply dropped for closed session")
		return TurnResult{}, ErrSessionClosed
	}

	reply, turnErr := turn.thread.CompleteBotTurn(result.ChatbotResponse, gwErr, s.now(), s.newID)
	if turnErr != nil && !errors.Is(turnErr, apperr.ErrGateway) {
		s.mu.Unlock()
		return TurnResult{}, turnErr
	}
	persistErr := s.persistLocked(callCtx, turn.Session.ProfileID, turn.thread)
	s.mu.Unlock()

	if persistErr != nil {
		return TurnResult{}, persistErr
	}

	out := TurnResult{
		ConversationID: turn.conversationID,
		UserMessage:    turn.UserMessage,
		Reply:          reply,
	}

	if turnErr != nil {
		s.metrics.ChatTurn("error")
		log.Warn().Err(turnErr).Str("component", "chat").Str("profile", turn.Session.ProfileID).Msg("response gateway failed")
		return out, turnErr
	}

	s.metrics.ChatTurn("reply")
	if result.IsTriggering {
		alert, err := s.safetyAlert(callCtx, turn.Session.ProfileID)
		if err != nil {
			return out, err
		}
		out.Safety = alert
	}
	return out, nil
}

// AcknowledgeMood appends the bot's acknowledgement of a mood selection.
func (s *Service) AcknowledgeMood(ctx context.Context, session auth.Session, m mood.Mood) (chat.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	thread, err := s.threadLocked(ctx, session)
	if err != nil {
		return chat.Message{}, err
	}

	msg := thread.Acknowledge(MoodAcknowledgement(m), s.now(), s.newID)
	if err := s.persistLocked(ctx, session.ProfileID, thread); err != nil {
		return chat.Message{}, err
	}
	return msg, nil
}

// History lists past conversations newest first, skipping those holding
// nothing but the greeting.
func (s *Service) History(ctx context.Context, profileID string) ([]chat.Conversation, error) {
	s.mu.Lock()
	conversations, err := store.LoadList[chat.Conversation](ctx, s.store, profileID, store.KeyConversations)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	visible := make([]chat.Conversation, 0, len(conversations))
	for _, conv := range conversations {
		if len(conv.Messages) > 1 {
			visible = append(visible, conv)
		}
	}
	sort.SliceStable(visible, func(i, j int) bool {
		return visible[i].Date.After(visible[j].Date)
	})
	return visible, nil
}

func (s *Service) generate(ctx context.Context, req ai.ResponseRequest) (ai.ResponseResult, error) {
	if s.gateway == nil {
		return ai.ResponseResult{}, apperr.Gateway("response", errors.New("ai service not configured"))
	}
	return s.gateway.GenerateResponse(ctx, req)
}

func (s *Service) safetyAlert(ctx context.Context, profileID string) (*SafetyAlert, error) {
	contacts, err := store.LoadList[profile.EmergencyContact](ctx, s.store, profileID, store.KeyEmergencyContacts)
	if err != nil {
		return nil, err
	}
	if len(contacts) == 0 {
		return nil, nil
	}
	s.metrics.SafetyAlert()
	return &SafetyAlert{Contacts: contacts}, nil
}

// threadLocked returns the session's thread. A cached thread idle past the
// continuity window is dropped and the conversation is resolved again, unless
// a reply is still pending on it.
func (s *Service) threadLocked(ctx context.Context, session auth.Session) (*Thread, error) {
	if thread, ok := s.threads[session.Token]; ok {
		if thread.Pending() || s.now().Sub(thread.LastActivity()) < s.window {
			return thread, nil
		}
		delete(s.threads, session.Token)
	}
	if session.Token == "" {
		return nil, auth.ErrSessionNotFound
	}

	conversations, err := store.LoadList[chat.Conversation](ctx, s.store, session.ProfileID, store.KeyConversations)
	if err != nil {
		return nil, err
	}

	activeID, messages, updated := ResumeOrStart(conversations, s.now(), s.window, s.newID)
	if len(updated) != len(conversations) {
		if err := s.store.Save(ctx, session.ProfileID, store.KeyConversations, updated); err != nil {
			return nil, fmt.Errorf("save new conversation: %w", err)
		}
	}

	thread := &Thread{
		ConversationID: activeID,
		Messages:       append([]chat.Message(nil), messages...),
	}
	s.threads[session.Token] = thread
	return thread, nil
}

func (s *Service) persistLocked(ctx context.Context, profileID string, thread *Thread) error {
	conversations, err := store.LoadList[chat.Conversation](ctx, s.store, profileID, store.KeyConversations)
	if err != nil {
		return err
	}
	updated := Persist(conversations, thread.ConversationID, thread.Messages, thread.PendingID(), s.now())
	if err := s.store.Save(ctx, profileID, store.KeyConversations, updated); err != nil {
		return fmt.Errorf("persist conversation: %w", err)
	}
	return nil
}

func (s *Service) limitHistory(messages []chat.Message) []chat.Message {
	if s.historyLimit <= 0 || len(messages) <= s.historyLimit {
		return messages
	}
	return messages[len(messages)-s.historyLimit:]
}

func snapshotOf(thread *Thread) Snapshot {
	return Snapshot{
		ConversationID: thread.ConversationID,
		Messages:       append([]chat.Message(nil), thread.Messages...),
		Pending:        thread.Pending(),
	}
}
