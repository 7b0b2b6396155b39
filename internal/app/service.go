// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/tailor/internal/domain/dedupe"
	"github.com/okian/tailor/internal/domain/model"
	"github.com/okian/tailor/internal/history"
	"github.com/okian/tailor/pkg/logger"
	"github.com/okian/tailor/pkg/metrics"
)

// Service implements the API dependencies for the measurement system.
type Service struct {
	mu sync.RWMutex

	// Collaborators
	detector  Detector
	source    FrameSource
	persister history.Persister

	// Core components
	history  *history.Store
	deduper  dedupe.Deduper
	sessions map[string]*Session
	def      *Session

	// Configuration
	dedupeSize    int
	maxSessions   int
	sessionTTL    time.Duration
	autoCalibrate bool
	clock         func() time.Time

	// State
	started bool
	stopCh  chan struct{}

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithDetector sets the pose detector.
func WithDetector(d Detector) Option {
	return func(s *Service) {
		if d != nil {
			s.detector = d
		}
	}
}

// WithFrameSource sets the local frame source used when requests carry no image.
func WithFrameSource(src FrameSource) Option {
	return func(s *Service) {
		if src != nil {
			s.source = src
		}
	}
}

// WithPersister sets where histories are stored.
func WithPersister(p history.Persister) Option {
	return func(s *Service) {
		if p != nil {
			s.persister = p
		}
	}
}

// WithDedupeSize sets the size of the save idempotency cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithMaxSessions caps the number of concurrently open sessions.
func WithMaxSessions(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxSessions = n
		}
	}
}

// WithSessionTTL expires sessions idle for longer than ttl. Zero disables expiry.
func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl >= 0 {
			s.sessionTTL = ttl
		}
	}
}

// WithAutoCalibrate controls auto-calibration for new sessions.
func WithAutoCalibrate(enabled bool) Option {
	return func(s *Service) {
		s.autoCalibrate = enabled
	}
}

// WithClock overrides the time source used for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.clock = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		dedupeSize:    10_000,
		maxSessions:   64,
		sessionTTL:    30 * time.Minute,
		autoCalibrate: true,
		clock:         time.Now,
		sessions:      make(map[string]*Session),
		stopCh:        make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.detector == nil {
		return fmt.Errorf("%w: detector", ErrMissingDependency)
	}
	if s.persister == nil {
		return fmt.Errorf("%w: persister", ErrMissingDependency)
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting measurement service...")

	s.history = history.NewStore(s.persister,
		history.WithClock(s.clock),
		history.WithLogger(s.logger),
	)
	s.deduper = dedupe.NewInMemoryDeduper(
		dedupe.WithMaxSize(s.dedupeSize),
	)
	s.def = s.newSession("")
	s.stopCh = make(chan struct{})

	if s.sessionTTL > 0 {
		go s.expireLoop(s.stopCh)
	}

	s.started = true
	s.logger.Info(ctx, "measurement service started",
		logger.Bool("autoCalibrate", s.autoCalibrate),
		logger.Bool("frameSource", s.source != nil),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Int("maxSessions", s.maxSessions),
	)

	return nil
}

// Stop gracefully shuts down the service and releases collaborators that
// hold resources.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping measurement service...")

	select {
	case <-s.stopCh:
	default:
		close(s.stopCh)
	}

	if c, ok := s.source.(io.Closer); ok {
		if err := c.Close(); err != nil {
			s.logger.Warn(context.Background(), "frame source close failed", logger.Error(err))
		}
	}
	if c, ok := s.persister.(io.Closer); ok {
		if err := c.Close(); err != nil {
			s.logger.Warn(context.Background(), "persister close failed", logger.Error(err))
		}
	}

	s.sessions = make(map[string]*Session)
	metrics.UpdateActiveSessions(0)
	s.started = false
	s.logger.Info(context.Background(), "measurement service stopped")
}

func (s *Service) newSession(id string) *Session {
	return NewSession(s.detector, s.history,
		WithSessionID(id),
		WithSessionAutoCalibrate(s.autoCalibrate),
		WithSessionLogger(s.logger),
	)
}

// DefaultSession returns the session used when a request names none.
func (s *Service) DefaultSession() (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrServiceNotStarted
	}
	return s.def, nil
}

// NewSession opens an independent session and returns its id.
func (s *Service) NewSession(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return "", ErrServiceNotStarted
	}
	if len(s.sessions) >= s.maxSessions {
		return "", fmt.Errorf("%w: limit %d", ErrTooManySessions, s.maxSessions)
	}

	id := uuid.NewString()
	s.sessions[id] = s.newSession(id)
	metrics.UpdateActiveSessions(len(s.sessions))
	s.logger.Debug(ctx, "session opened", logger.String("session", id))
	return id, nil
}

// Session returns the session for id. An empty id selects the default session.
func (s *Service) Session(id string) (*Session, error) {
	if id == "" {
		return s.DefaultSession()
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrServiceNotStarted
	}
	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return sess, nil
}

// CloseSession discards the session for id.
func (s *Service) CloseSession(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	delete(s.sessions, id)
	metrics.UpdateActiveSessions(len(s.sessions))
	s.logger.Debug(ctx, "session closed", logger.String("session", id))
	return nil
}

// expireLoop closes sessions idle for longer than the TTL.
func (s *Service) expireLoop(stop <-chan struct{}) {
	interval := s.sessionTTL / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.expireIdle(time.Now())
		}
	}
}

func (s *Service) expireIdle(now time.Time) int {
	s.mu.RLock()
	snapshot := make(map[string]*Session, len(s.sessions))
	for id, sess := range s.sessions {
		snapshot[id] = sess
	}
	s.mu.RUnlock()

	var stale []string
	for id, sess := range snapshot {
		if now.Sub(sess.LastUsed()) > s.sessionTTL {
			stale = append(stale, id)
		}
	}
	if len(stale) == 0 {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, id := range stale {
		// Skip sessions closed or replaced since the snapshot.
		if sess, ok := s.sessions[id]; ok && sess == snapshot[id] {
			delete(s.sessions, id)
			n++
		}
	}
	if n > 0 {
		metrics.UpdateActiveSessions(len(s.sessions))
		s.logger.Info(context.Background(), "expired idle sessions", logger.Int("count", n))
	}
	return n
}

// CaptureFrame reads one frame from the configured source.
func (s *Service) CaptureFrame(ctx context.Context) (model.Frame, error) {
	if s.source == nil {
		metrics.RecordFrameFailure()
		return nil, fmt.Errorf("%w: no frame source configured", model.ErrNoFrame)
	}
	frame, err := s.source.Next(ctx)
	if err != nil {
		return nil, err
	}
	return frame, nil
}

// History returns user's saved records, oldest first.
func (s *Service) History(ctx context.Context, user string) ([]model.Record, error) {
	s.mu.RLock()
	store := s.history
	s.mu.RUnlock()
	if store == nil {
		return nil, ErrServiceNotStarted
	}
	return store.History(ctx, history.NormalizeUser(user))
}

// Claim records a save request id as in flight if it is new and returns
// its earlier state. Before Start every id is new.
func (s *Service) Claim(ctx context.Context, id string) dedupe.State {
	d := s.keys()
	if d == nil {
		return dedupe.StateNew
	}
	state := d.Claim(ctx, id)
	if state == dedupe.StateDone {
		metrics.RecordSaveDuplicate()
	}
	return state
}

// Commit marks a save request id as saved.
func (s *Service) Commit(ctx context.Context, id string) {
	if d := s.keys(); d != nil {
		d.Commit(ctx, id)
	}
}

// Unrecord removes a request id so a failed save can be retried.
func (s *Service) Unrecord(ctx context.Context, id string) {
	if d := s.keys(); d != nil {
		d.Unrecord(ctx, id)
	}
}

// Size returns the current number of remembered save request ids.
func (s *Service) Size() int64 {
	d := s.keys()
	if d == nil {
		return 0
	}
	return d.Size()
}

func (s *Service) keys() dedupe.Deduper {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.deduper
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":       s.started,
		"autoCalibrate": s.autoCalibrate,
		"frameSource":   s.source != nil,
		"dedupeSize":    s.dedupeSize,
		"maxSessions":   s.maxSessions,
	}

	if s.started {
		cal := s.def.Calibration()
		_, hasCurrent := s.def.Current()
		stats["sessions"] = len(s.sessions)
		stats["users"] = s.history.Users()
		stats["dedupeEntries"] = s.deduper.Size()
		stats["calibrated"] = cal.Calibrated
		stats["scaleFactor"] = cal.ScaleFactor
		stats["hasMeasurement"] = hasCurrent

		metrics.UpdateActiveSessions(len(s.sessions))
	}

	return stats
}
