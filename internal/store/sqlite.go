package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"github.com/wellbeingchat/backend/internal/retry"
)

// SQLiteStore implements Store on a single kv table.
type SQLiteStore struct {
	db    *sql.DB
	retry retry.Config
}

// NewSQLite opens (creating if needed) the database at dbPath.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &SQLiteStore{
		db: db,
		retry: retry.Config{
			MaxAttempts:  retry.DefaultConfig.MaxAttempts,
			InitialDelay: retry.DefaultConfig.InitialDelay,
			MaxDelay:     retry.DefaultConfig.MaxDelay,
			ShouldRetry:  IsSQLiteConflictError,
		},
	}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	log.Info().Str("component", "store").Str("path", dbPath).Msg("sqlite store ready")
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS kv (
		profile_id TEXT NOT NULL,
		key TEXT NOT NULL,
		value TEXT NOT NULL,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (profile_id, key)
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context, profileID, key string, dst any) (bool, error) {
	if err := checkScope(profileID, key); err != nil {
		return false, err
	}

	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE profile_id = ? AND key = ?`, profileID, key).Scan(&raw)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load %s: %w", key, err)
	}
	if err := decode([]byte(raw), dst); err != nil {
		return false, err
	}
	return true, nil
}

func (s *SQLiteStore) Save(ctx context.Context, profileID, key string, value any) error {
	if err := checkScope(profileID, key); err != nil {
		return err
	}
	raw, err := encode(value)
	if err != nil {
		return err
	}

	query := `
	INSERT INTO kv (profile_id, key, value, updated_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(profile_id, key) DO UPDATE SET
		value = excluded.value,
		updated_at = excluded.updated_at`

	return retry.Do(ctx, s.retry, func() error {
		if _, err := s.db.ExecContext(ctx, query, profileID, key, string(raw), time.Now().Unix()); err != nil {
			return fmt.Errorf("save %s: %w", key, err)
		}
		return nil
	})
}

func (s *SQLiteStore) Delete(ctx context.Context, profileID, key string) error {
	if err := checkScope(profileID, key); err != nil {
		return err
	}
	return retry.Do(ctx, s.retry, func() error {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE profile_id = ? AND key = ?`, profileID, key); err != nil {
			return fmt.Errorf("delete %s: %w", key, err)
		}
		return nil
	})
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
