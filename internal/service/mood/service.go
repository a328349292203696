// Package mood records mood selections and summarises them per day and week.
package mood

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/wellbeingchat/backend/internal/apperr"
	"github.com/wellbeingchat/backend/internal/metrics"
	"github.com/wellbeingchat/backend/internal/model/chat"
	"github.com/wellbeingchat/backend/internal/model/mood"
	"github.com/wellbeingchat/backend/internal/service/ai"
	"github.com/wellbeingchat/backend/internal/store"
)

// RecommendationHistory is the number of trailing messages sent along with
// the latest mood.
const RecommendationHistory = 10

// RecommendationGateway turns a mood and transcript into suggestions.
type RecommendationGateway interface {
	Recommend(ctx context.Context, req ai.RecommendationRequest) ([]string, error)
}

// Config tunes calendar handling.
type Config struct {
	Location  *time.Location
	WeekStart time.Weekday
	Metrics   *metrics.Metrics
	Now       func() time.Time
}

// Service is the per-profile mood log.
type Service struct {
	store   store.Store
	gateway RecommendationGateway
	metrics *metrics.Metrics

	loc       *time.Location
	weekStart time.Weekday
	now       func() time.Time

	mu sync.Mutex
}

// NewService creates the mood log. gateway may be nil.
func NewService(st store.Store, gateway RecommendationGateway, cfg Config) *Service {
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		store:     st,
		gateway:   gateway,
		metrics:   cfg.Metrics,
		loc:       loc,
		weekStart: cfg.WeekStart,
		now:       now,
	}
}

// Record appends a new entry. Repeated selections on one day are all kept.
func (s *Service) Record(ctx context.Context, profileID string, m mood.Mood) (mood.Entry, error) {
	if m.Ordinal() == 0 {
		return mood.Entry{}, apperr.Validation("unknown mood %q", m)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := store.LoadList[mood.Entry](ctx, s.store, profileID, store.KeyMoodHistory)
	if err != nil {
		return mood.Entry{}, err
	}

	entry := mood.Entry{ID: uuid.NewString(), Mood: m, Timestamp: s.now()}
	entries = append(entries, entry)
	if err := s.store.Save(ctx, profileID, store.KeyMoodHistory, entries); err != nil {
		return mood.Entry{}, err
	}

	s.metrics.MoodRecorded(string(m))
	log.Debug().Str("component", "mood").Str("profile", profileID).Str("mood", string(m)).Msg("mood recorded")
	return entry, nil
}

// Entries returns every recorded entry in insertion order.
func (s *Service) Entries(ctx context.Context, profileID string) ([]mood.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return store.LoadList[mood.Entry](ctx, s.store, profileID, store.KeyMoodHistory)
}

// DaySummary is the average of one calendar day.
type DaySummary struct {
	Date    string  `json:"date"`
	Tracked bool    `json:"tracked"`
	Average float64 `json:"average,omitempty"`
	Mood    string  `json:"mood"`
}

// Day summarises the given calendar day.
func (s *Service) Day(ctx context.Context, profileID string, date time.Time) (DaySummary, error) {
	entries, err := s.Entries(ctx, profileID)
	if err != nil {
		return DaySummary{}, err
	}

	summary := DaySummary{Date: date.In(s.loc).Format("2006-01-02"), Mood: mood.NotTracked}
	if avg, ok := AverageForDay(entries, date, s.loc); ok {
		summary.Tracked = true
		summary.Average = avg
		if label, ok := mood.FromAverage(avg); ok {
			summary.Mood = string(label)
		}
	}
	return summary, nil
}

// ParseDay reads a yyyy-mm-dd date in the configured zone.
func (s *Service) ParseDay(raw string) (time.Time, error) {
	day, err := time.ParseInLocation("2006-01-02", raw, s.loc)
	if err != nil {
		return time.Time{}, apperr.Validation("invalid date %q", raw)
	}
	return day, nil
}

// Weekly returns the series for the current calendar week.
func (s *Service) Weekly(ctx context.Context, profileID string) ([]DayPoint, error) {
	entries, err := s.Entries(ctx, profileID)
	if err != nil {
		return nil, err
	}
	return WeeklySeries(entries, s.now(), s.weekStart, s.loc), nil
}

// Recommend asks the recommendation gateway for suggestions based on the
// latest mood and the trailing messages of all conversations.
func (s *Service) Recommend(ctx context.Context, profileID string) ([]string, error) {
	if s.gateway == nil {
		return nil, apperr.Gateway("recommendation", errors.New("ai service not configured"))
	}

	s.mu.Lock()
	entries, err := store.LoadList[mood.Entry](ctx, s.store, profileID, store.KeyMoodHistory)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	conversations, err := store.LoadList[chat.Conversation](ctx, s.store, profileID, store.KeyConversations)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	current := mood.Neutral
	if latest, ok := Latest(entries); ok {
		current = latest.Mood
	}

	return s.gateway.Recommend(ctx, ai.RecommendationRequest{
		Mood:                string(current),
		ConversationHistory: chat.Transcript(RecentMessages(conversations, RecommendationHistory)),
	})
}

// RecentMessages flattens all conversations in order and keeps the last n messages.
func RecentMessages(conversations []chat.Conversation, n int) []chat.Message {
	var all []chat.Message
	for _, conv := range conversations {
		all = append(all, conv.Messages...)
	}
	if len(all) > n {
		all = all[len(all)-n:]
	}
	return all
}
