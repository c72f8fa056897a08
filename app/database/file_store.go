package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/lysyi3m/tube-relay/app/feed"
)

var _ CursorStore = (*FileStore)(nil)

// FileStore keeps the cursors in a single JSON object keyed by channel id,
// indented by four spaces.
type FileStore struct {
	path string
}

func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("state file path is required")
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create state directory: %w", err)
		}
	}

	return &FileStore{path: path}, nil
}

func (s *FileStore) Load(ctx context.Context) Cursors {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("Failed to read state file, starting with empty cursors", "path", s.path, "error", err)
		}
		return Cursors{}
	}

	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		slog.Warn("State file is corrupted, starting with empty cursors", "path", s.path, "error", err)
		return Cursors{}
	}

	cursors := make(Cursors, len(raw))
	for channelID, videoID := range raw {
		if videoID == "" {
			continue
		}
		cursors[feed.ChannelID(channelID)] = feed.VideoID(videoID)
	}

	return cursors
}

func (s *FileStore) Save(ctx context.Context, cursors Cursors) error {
	data, err := json.MarshalIndent(cursors, "", "    ")
	if err != nil {
		return &PersistenceError{Backend: BackendFile, Err: err}
	}

	if err := s.writeAtomic(data); err != nil {
		return &PersistenceError{Backend: BackendFile, Err: err}
	}

	return nil
}

func (s *FileStore) Close() error {
	return nil
}

// writeAtomic writes to a temp file in the target directory and renames it
// over the state file, so readers see either the old or the new mapping.
func (s *FileStore) writeAtomic(data []byte) error {
	dir := filepath.Dir(s.path)

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to set file mode: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to replace state file: %w", err)
	}

	return nil
}
