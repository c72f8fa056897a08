package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/lysyi3m/tube-relay/app/feed"

	_ "modernc.org/sqlite"
)

var _ CursorStore = (*SQLiteStore)(nil)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("state database path is required")
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create state directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open state database: %w", err)
	}
	// A single connection keeps writes serialized.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to state database: %w", err)
	}

	version, dirty, err := RunMigrations(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	slog.Debug("State database ready", "path", path, "schema_version", version, "dirty", dirty)

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Load(ctx context.Context) Cursors {
	rows, err := s.db.QueryContext(ctx, `SELECT channel_id, video_id FROM cursors`)
	if err != nil {
		slog.Warn("Failed to read cursors from database, starting with empty cursors", "error", err)
		return Cursors{}
	}
	defer rows.Close()

	cursors := Cursors{}
	for rows.Next() {
		var channelID, videoID string
		if err := rows.Scan(&channelID, &videoID); err != nil {
			slog.Warn("Failed to scan cursor row, starting with empty cursors", "error", err)
			return Cursors{}
		}
		cursors[feed.ChannelID(channelID)] = feed.VideoID(videoID)
	}

	if err := rows.Err(); err != nil {
		slog.Warn("Failed to iterate cursor rows, starting with empty cursors", "error", err)
		return Cursors{}
	}

	return cursors
}

func (s *SQLiteStore) Save(ctx context.Context, cursors Cursors) error {
	if err := s.replaceAll(ctx, cursors); err != nil {
		return &PersistenceError{Backend: BackendSQLite, Err: err}
	}
	return nil
}

func (s *SQLiteStore) replaceAll(ctx context.Context, cursors Cursors) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM cursors`); err != nil {
		return fmt.Errorf("failed to clear cursors: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO cursors (channel_id, video_id, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for channelID, videoID := range cursors {
		if videoID == "" {
			continue
		}
		if _, err := stmt.ExecContext(ctx, string(channelID), string(videoID)); err != nil {
			return fmt.Errorf("failed to store cursor for %s: %w", channelID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit cursors: %w", err)
	}

	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
