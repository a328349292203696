// Package store provides the per-profile persisted key-value substrate.
//
// Every component reads the full value for a key, computes a new value and
// writes the whole value back. Callers serialise their own read-modify-write
// cycles; the store offers no transactional isolation between keys.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Keys used by the services.
const (
	KeyConversations          = "conversations"
	KeyMoodHistory            = "moodHistory"
	KeyPrescriptions          = "prescriptions"
	KeyEmergencyContacts      = "emergencyContacts"
	KeyUser                   = "user"
	KeyCompletedTasks         = "completedTasks"
	KeyNotificationPermission = "notificationPermission"
)

// ErrProfileRequired is returned when a key is addressed without a profile scope.
var ErrProfileRequired = errors.New("profile id is required")

// Store persists JSON-serialisable values per profile.
type Store interface {
	// Load decodes the value stored under key into dst. It reports false
	// when the key is absent, which is not an error.
	Load(ctx context.Context, profileID, key string, dst any) (bool, error)
	Save(ctx context.Context, profileID, key string, value any) error
	Delete(ctx context.Context, profileID, key string) error
	Ping(ctx context.Context) error
	Close() error
}

// LoadList returns the slice stored under key, or an empty slice when absent.
func LoadList[T any](ctx context.Context, s Store, profileID, key string) ([]T, error) {
	var items []T
	if _, err := s.Load(ctx, profileID, key, &items); err != nil {
		return nil, err
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

func encode(value any) ([]byte, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encode value: %w", err)
	}
	return data, nil
}

func decode(data []byte, dst any) error {
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode value: %w", err)
	}
	return nil
}

func checkScope(profileID, key string) error {
	if profileID == "" {
		return ErrProfileRequired
	}
	if key == "" {
		return errors.New("key is required")
	}
	return nil
}
