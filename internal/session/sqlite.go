// ABOUTME: SQLite implementation of the session Store using modernc.org/sqlite
// ABOUTME: Single-instance durable driver with automatic schema creation

package session

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite. It survives restarts but is
// not shared between instances, so it suits single-process deployments.
type SQLiteStore struct {
	db     *sql.DB
	ttl    time.Duration
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite session store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string, ttl time.Duration) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "session")

	if ttl <= 0 {
		ttl = defaultTTL
	}

	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		ttl:    ttl,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite session store initialized", "path", path)
	return s, nil
}

// createSchema creates the sessions table if it doesn't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS sessions (
			user_id    INTEGER PRIMARY KEY,
			stage      TEXT NOT NULL,
			date       TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			expires_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_sessions_expires ON sessions(expires_at);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("executing schema: %w", err)
	}
	return nil
}

// Get implements Store.
// Returns (nil, nil) if the session is not found. Expired rows are treated
// as absent and removed opportunistically.
func (s *SQLiteStore) Get(ctx context.Context, userID int64) (*Session, error) {
	query := `
		SELECT user_id, stage, date, created_at, updated_at, expires_at
		FROM sessions
		WHERE user_id = ?
	`

	var sess Session
	var stage, createdAtStr, updatedAtStr, expiresAtStr string

	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&sess.UserID,
		&stage,
		&sess.Date,
		&createdAtStr,
		&updatedAtStr,
		&expiresAtStr,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying session: %w", err)
	}

	expiresAt, err := time.Parse(time.RFC3339, expiresAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing expires_at: %w", err)
	}
	if time.Now().After(expiresAt) {
		if err := s.Delete(ctx, userID); err != nil {
			s.logger.Warn("failed to remove expired session", "user_id", userID, "error", err)
		}
		return nil, nil
	}

	sess.Stage = Stage(stage)

	sess.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}

	sess.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}

	return &sess, nil
}

// Set implements Store.
// Upserts the session row and pushes the expiry deadline forward.
func (s *SQLiteStore) Set(ctx context.Context, sess *Session) error {
	now := time.Now()
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = now
	}
	sess.UpdatedAt = now

	query := `
		INSERT INTO sessions (user_id, stage, date, created_at, updated_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			stage = excluded.stage,
			date = excluded.date,
			updated_at = excluded.updated_at,
			expires_at = excluded.expires_at
	`

	_, err := s.db.ExecContext(ctx, query,
		sess.UserID,
		string(sess.Stage),
		sess.Date,
		sess.CreatedAt.UTC().Format(time.RFC3339),
		sess.UpdatedAt.UTC().Format(time.RFC3339),
		now.Add(s.ttl).UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upserting session: %w", err)
	}

	return nil
}

// Delete implements Store. Deleting a missing session is not an error.
func (s *SQLiteStore) Delete(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// Ping implements Store.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
