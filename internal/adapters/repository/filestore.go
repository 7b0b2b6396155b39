package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/tailor/internal/domain/model"
	"github.com/okian/tailor/pkg/logger"
	"github.com/okian/tailor/pkg/metrics"
)

const jsonIndent = "    "

// FileStore keeps one JSON file per user named measurements_<user>.json.
type FileStore struct {
	dir    string
	mode   os.FileMode
	logger logger.Logger
}

// NewFileStore creates dir if needed and returns a store rooted there.
func NewFileStore(dir string, opts ...FileOption) (*FileStore, error) {
	s := &FileStore{dir: dir, mode: 0o644}
	for _, opt := range opts {
		opt(s)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return s, nil
}

// Path returns the history file for user.
func (s *FileStore) Path(user string) string {
	return filepath.Join(s.dir, "measurements_"+user+".json")
}

// Load reads user's history. A missing file is an empty history.
func (s *FileStore) Load(ctx context.Context, user string) ([]model.Record, error) {
	if !validUser(user) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidUser, user)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	defer func() { metrics.RecordRepositoryLoadLatency(backendFile, metrics.SinceMs(start)) }()

	data, err := os.ReadFile(s.Path(user))
	if errors.Is(err, fs.ErrNotExist) {
		return []model.Record{}, nil
	}
	if err != nil {
		return nil, err
	}
	var records []model.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorrupt, s.Path(user), err)
	}
	if records == nil {
		records = []model.Record{}
	}
	return records, nil
}

// Write replaces user's history file atomically via a temp file and rename.
func (s *FileStore) Write(ctx context.Context, user string, records []model.Record) error {
	if !validUser(user) {
		return fmt.Errorf("%w: %q", ErrInvalidUser, user)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()
	defer func() { metrics.RecordRepositoryWriteLatency(backendFile, metrics.SinceMs(start)) }()

	if records == nil {
		records = []model.Record{}
	}
	data, err := json.MarshalIndent(records, "", jsonIndent)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, ".measurements-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Chmod(tmpName, s.mode); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmpName, s.Path(user)); err != nil {
		cleanup()
		return err
	}

	if s.logger != nil {
		s.logger.Debug(ctx, "history written",
			logger.String("path", s.Path(user)),
			logger.Int("records", len(records)),
		)
	}
	return nil
}
