// ============================================================================
// meinDOLMETSCHER - Lokaler Sprachübersetzer
// ============================================================================
//
// Package:     conversation
// Description: SQLite persistence for conversation history
// Author:      Mike Stoffels
// Created:     2026-10-17
// License:     MIT
// ============================================================================

package conversation

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/msto63/dolmetscher/internal/language"
	"github.com/msto63/dolmetscher/pkg/core/apperr"
)

// Store persists messages
type Store interface {
	Save(ctx context.Context, m Message) error
	Recent(ctx context.Context, limit int) ([]Message, error)
	DeleteAll(ctx context.Context) (int64, error)
	Count(ctx context.Context) (int, error)
	Close() error
}

// SQLiteConfig holds configuration for the SQLite store
type SQLiteConfig struct {
	Path string
}

// DefaultSQLiteConfig returns default configuration
func DefaultSQLiteConfig() SQLiteConfig {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return SQLiteConfig{
		Path: filepath.Join(home, ".local", "share", "dolmetscher", "history.db"),
	}
}

// SQLiteStore implements Store using SQLite
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteStore opens (and creates if needed) the history database
func NewSQLiteStore(cfg SQLiteConfig) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_synchronous=NORMAL")
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeStorageFailed, "failed to open database")
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, apperr.Wrap(err, apperr.CodeStorageFailed, "failed to initialize schema")
	}
	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS messages (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		original TEXT NOT NULL,
		translated TEXT NOT NULL,
		source_language TEXT NOT NULL,
		target_language TEXT NOT NULL,
		confidence REAL NOT NULL DEFAULT 0,
		direction TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_messages_created ON messages(created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Save inserts a message; saving the same ID twice is a no-op
func (s *SQLiteStore) Save(ctx context.Context, m Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO messages
			(id, original, translated, source_language, target_language, confidence, direction, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.Original, m.Translated, string(m.SourceLanguage), string(m.TargetLanguage),
		m.Confidence, string(m.Direction), m.Timestamp.UnixNano(),
	)
	if err != nil {
		return apperr.Wrap(err, apperr.CodeStorageFailed, "failed to save message").WithDetail("id", m.ID)
	}
	return nil
}

// Recent returns up to limit of the newest messages in chronological order.
// A limit <= 0 returns everything.
func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, original, translated, source_language, target_language, confidence, direction, created_at
		FROM (SELECT * FROM messages ORDER BY seq DESC LIMIT ?)
		ORDER BY seq ASC`, limit)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeStorageFailed, "failed to query messages")
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var (
			m        Message
			src, dst string
			dir      string
			created  int64
		)
		if err := rows.Scan(&m.ID, &m.Original, &m.Translated, &src, &dst, &m.Confidence, &dir, &created); err != nil {
			return nil, apperr.Wrap(err, apperr.CodeStorageFailed, "failed to scan message")
		}
		m.SourceLanguage = language.Code(src)
		m.TargetLanguage = language.Code(dst)
		m.Direction = Direction(dir)
		m.Timestamp = time.Unix(0, created)
		out = append(out, m)
	}
	return out, rows.Err()
}

// DeleteAll removes every message and returns how many were removed
func (s *SQLiteStore) DeleteAll(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM messages`)
	if err != nil {
		return 0, apperr.Wrap(err, apperr.CodeStorageFailed, "failed to delete messages")
	}
	return res.RowsAffected()
}

// Count returns the number of stored messages
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages`).Scan(&n); err != nil {
		return 0, apperr.Wrap(err, apperr.CodeStorageFailed, "failed to count messages")
	}
	return n, nil
}

// Ping checks the database connection
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
