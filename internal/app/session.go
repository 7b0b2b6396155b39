package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/tailor/internal/domain/calibration"
	"github.com/okian/tailor/internal/domain/landmark"
	"github.com/okian/tailor/internal/domain/measurement"
	"github.com/okian/tailor/internal/domain/model"
	"github.com/okian/tailor/internal/history"
	"github.com/okian/tailor/pkg/logger"
	"github.com/okian/tailor/pkg/metrics"
)

// Detector locates body landmarks in a frame. A nil set means no body.
type Detector interface {
	Detect(ctx context.Context, frame model.Frame) (*landmark.Set, error)
}

// FrameSource yields frames from a video device.
type FrameSource interface {
	Next(ctx context.Context) (model.Frame, error)
}

// HistoryStore appends and reads per-user histories.
type HistoryStore interface {
	Save(ctx context.Context, user string, set measurement.Set) (model.Record, error)
	History(ctx context.Context, user string) ([]model.Record, error)
}

// Session owns one user's calibration and current measurement. Pipeline
// operations on a session are serialized; a failed operation leaves the
// session unchanged.
type Session struct {
	id            string
	detector      Detector
	store         HistoryStore
	autoCalibrate bool
	logger        logger.Logger
	now           func() time.Time

	mu         sync.Mutex
	cal        calibration.State
	current    measurement.Set
	hasCurrent bool

	// lastUsed is read without mu so idle expiry never waits on a
	// session blocked in detection.
	lastUsed atomic.Int64
}

// SessionOption applies a configuration option to a Session.
type SessionOption func(*Session)

// WithSessionID labels the session.
func WithSessionID(id string) SessionOption {
	return func(s *Session) {
		s.id = id
	}
}

// WithSessionAutoCalibrate controls whether Measure calibrates an
// uncalibrated session from the frame being measured.
func WithSessionAutoCalibrate(enabled bool) SessionOption {
	return func(s *Session) {
		s.autoCalibrate = enabled
	}
}

// WithSessionLogger sets a custom logger for the session.
func WithSessionLogger(l logger.Logger) SessionOption {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewSession creates an uncalibrated session.
func NewSession(detector Detector, store HistoryStore, opts ...SessionOption) *Session {
	s := &Session{
		detector:      detector,
		store:         store,
		autoCalibrate: true,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.touch()
	return s
}

// ID returns the session identifier; empty for the default session.
func (s *Session) ID() string {
	return s.id
}

// Calibrate derives the scale factor from frame and replaces the session's
// calibration.
func (s *Session) Calibrate(ctx context.Context, frame model.Frame) (calibration.State, error) {
	if err := ctx.Err(); err != nil {
		return calibration.State{}, err
	}
	if frame == nil {
		metrics.RecordCalibration(metrics.OutcomeNoFrame)
		return calibration.State{}, model.ErrNoFrame
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	return s.calibrateLocked(ctx, frame)
}

func (s *Session) calibrateLocked(ctx context.Context, frame model.Frame) (calibration.State, error) {
	cal, err := calibration.Calibrate(frame.Width())
	if err != nil {
		metrics.RecordCalibration(metrics.OutcomeInvalidInput)
		return calibration.State{}, err
	}
	s.cal = cal
	metrics.RecordCalibration(metrics.OutcomeSuccess)
	s.log(ctx, "calibrated",
		logger.Int("frame_width", frame.Width()),
		logger.Float64("scale_factor", cal.ScaleFactor),
	)
	return cal, nil
}

// Measure detects landmarks in frame and computes a measurement set. On
// success the set becomes the session's current measurement.
func (s *Session) Measure(ctx context.Context, frame model.Frame) (measurement.Set, error) {
	if err := ctx.Err(); err != nil {
		return measurement.Set{}, err
	}
	if frame == nil {
		metrics.RecordMeasurement(metrics.OutcomeNoFrame)
		return measurement.Set{}, model.ErrNoFrame
	}

	start := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	cal := s.cal
	autoCalibrated := false
	if !cal.Valid() && s.autoCalibrate {
		c, err := calibration.Calibrate(frame.Width())
		if err != nil {
			metrics.RecordMeasurement(metrics.OutcomeInvalidInput)
			return measurement.Set{}, err
		}
		cal = c
		autoCalibrated = true
	}
	if !cal.Valid() {
		metrics.RecordMeasurement(metrics.OutcomeNotCalibrated)
		return measurement.Set{}, measurement.ErrNotCalibrated
	}

	set, err := s.detector.Detect(ctx, frame)
	if err != nil {
		metrics.RecordMeasurement(metrics.OutcomeError)
		return measurement.Set{}, fmt.Errorf("detect: %w", err)
	}
	px, err := landmark.Extract(set, frame.Width(), frame.Height())
	if err != nil {
		metrics.RecordMeasurement(metrics.OutcomeInvalidInput)
		return measurement.Set{}, err
	}

	out, err := measurement.Compute(px, cal)
	if err != nil {
		outcome := metrics.OutcomeError
		switch {
		case px == nil:
			outcome = metrics.OutcomeNoBody
		case errors.Is(err, measurement.ErrMissingLandmarks):
			outcome = metrics.OutcomeMissingLandmarks
		}
		metrics.RecordMeasurement(outcome)
		return measurement.Set{}, err
	}

	// Commit only after the whole pipeline succeeded.
	if autoCalibrated {
		s.cal = cal
		metrics.RecordCalibration(metrics.OutcomeSuccess)
	}
	s.current = out
	s.hasCurrent = true
	metrics.RecordMeasurement(metrics.OutcomeSuccess)
	metrics.RecordMeasurementLatency(metrics.SinceMs(start))
	s.log(ctx, "measured",
		logger.Bool("auto_calibrated", autoCalibrated),
		logger.Any("measurements", out),
	)
	return out, nil
}

// Save appends set to user's history. An empty user saves as the guest.
func (s *Session) Save(ctx context.Context, user string, set measurement.Set) (model.Record, error) {
	s.touch()

	user = history.NormalizeUser(user)
	rec, err := s.store.Save(ctx, user, set)
	if err != nil {
		return model.Record{}, err
	}
	s.log(ctx, "measurements saved",
		logger.String("user", user),
		logger.String("timestamp", rec.Timestamp),
	)
	return rec, nil
}

// SaveCurrent saves the session's current measurement for user.
func (s *Session) SaveCurrent(ctx context.Context, user string) (model.Record, error) {
	set, ok := s.Current()
	if !ok {
		metrics.RecordSave(metrics.OutcomeError)
		return model.Record{}, ErrNoMeasurement
	}
	return s.Save(ctx, user, set)
}

// Current returns the last successful measurement, if any.
func (s *Session) Current() (measurement.Set, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, s.hasCurrent
}

// Calibration returns the session's calibration state.
func (s *Session) Calibration() calibration.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cal
}

// LastUsed reports when the session last ran an operation.
func (s *Session) LastUsed() time.Time {
	return time.Unix(0, s.lastUsed.Load())
}

func (s *Session) touch() {
	s.lastUsed.Store(s.now().UnixNano())
}

func (s *Session) log(ctx context.Context, msg string, fields ...logger.Field) {
	if s.logger == nil {
		return
	}
	if s.id != "" {
		fields = append(fields, logger.String("session", s.id))
	}
	s.logger.Debug(ctx, msg, fields...)
}
