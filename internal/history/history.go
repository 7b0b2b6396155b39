// Package history keeps per-user measurement histories and persists each
// history whole on every save.
//
// Histories are append-only. A user's history is loaded from the Persister
// the first time that user is touched, so saves after a restart extend the
// stored history instead of replacing it.
package history

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/tailor/internal/domain/measurement"
	"github.com/okian/tailor/internal/domain/model"
	"github.com/okian/tailor/pkg/logger"
	"github.com/okian/tailor/pkg/metrics"
)

// DefaultUser names the history used when no user is given.
const DefaultUser = "Guest"

// NormalizeUser trims name and falls back to DefaultUser.
func NormalizeUser(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return DefaultUser
	}
	return name
}

// Persister reads and replaces a user's full history.
type Persister interface {
	// Load returns the stored history, or an empty slice if none exists.
	Load(ctx context.Context, user string) ([]model.Record, error)
	// Write replaces the stored history with records.
	Write(ctx context.Context, user string, records []model.Record) error
}

type userHistory struct {
	mu      sync.Mutex
	loaded  bool
	records []model.Record
	last    time.Time
}

// Store serializes saves per user; different users proceed in parallel.
type Store struct {
	persister Persister
	now       func() time.Time
	logger    logger.Logger

	mu      sync.Mutex
	users   map[string]*userHistory
	records atomic.Int64
}

// Option applies a configuration option to the Store.
type Option func(*Store)

// WithClock overrides the time source used to stamp records.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the store.
func WithLogger(l logger.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewStore creates a Store writing through p.
func NewStore(p Persister, opts ...Option) *Store {
	s := &Store{
		persister: p,
		now:       time.Now,
		users:     make(map[string]*userHistory),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) entry(user string) *userHistory {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.users[user]
	if !ok {
		h = &userHistory{}
		s.users[user] = h
		metrics.UpdateUsersTracked(len(s.users))
	}
	return h
}

func (s *Store) lookup(user string) (*userHistory, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.users[user]
	return h, ok
}

// load must be called with h.mu held.
func (s *Store) load(ctx context.Context, user string, h *userHistory) error {
	if h.loaded {
		return nil
	}
	records, err := s.persister.Load(ctx, user)
	if err != nil {
		return fmt.Errorf("%w: load %q: %w", ErrIO, user, err)
	}
	h.records = records
	metrics.UpdateRecordsTotal(int(s.records.Add(int64(len(records)))))
	if n := len(records); n > 0 {
		if t, err := records[n-1].Time(); err == nil {
			h.last = t
		}
	}
	h.loaded = true
	return nil
}

// Save appends set to user's history stamped with the current time and
// writes the whole history. On write failure the append is undone and the
// error wraps ErrIO.
func (s *Store) Save(ctx context.Context, user string, set measurement.Set) (model.Record, error) {
	if err := ctx.Err(); err != nil {
		return model.Record{}, err
	}

	h := s.entry(user)
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := s.load(ctx, user, h); err != nil {
		metrics.RecordSave(metrics.OutcomeError)
		return model.Record{}, err
	}

	now := s.now()
	// Clamp so the history stays ordered when the wall clock steps back.
	if now.Before(h.last) {
		now = h.last
	}
	rec := model.NewRecord(now, set)

	prev := h.records
	next := make([]model.Record, len(prev), len(prev)+1)
	copy(next, prev)
	next = append(next, rec)

	if err := s.persister.Write(ctx, user, next); err != nil {
		metrics.RecordSave(metrics.OutcomeError)
		metrics.RecordErrorByComponent("history", "write")
		if s.logger != nil {
			s.logger.Error(ctx, "history write failed",
				logger.String("user", user),
				logger.Int("records", len(next)),
				logger.Error(err),
			)
		}
		return model.Record{}, fmt.Errorf("%w: write %q: %w", ErrIO, user, err)
	}

	h.records = next
	h.last = now
	metrics.RecordSave(metrics.OutcomeSuccess)
	metrics.UpdateRecordsTotal(int(s.records.Add(1)))
	return rec, nil
}

// History returns a copy of user's history, oldest first. Reading a user
// that has never been saved to in this process goes straight to the
// Persister and is not tracked.
func (s *Store) History(ctx context.Context, user string) ([]model.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	h, ok := s.lookup(user)
	if !ok {
		records, err := s.persister.Load(ctx, user)
		if err != nil {
			return nil, fmt.Errorf("%w: load %q: %w", ErrIO, user, err)
		}
		return records, nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := s.load(ctx, user, h); err != nil {
		return nil, err
	}
	out := make([]model.Record, len(h.records))
	copy(out, h.records)
	return out, nil
}

// Users returns the number of users saved to since the store was created.
func (s *Store) Users() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}
