// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/okian/tailor/internal/adapters/detector"
	"github.com/okian/tailor/internal/adapters/repository"
	service "github.com/okian/tailor/internal/app"
	"github.com/okian/tailor/internal/domain/calibration"
	"github.com/okian/tailor/internal/domain/dedupe"
	"github.com/okian/tailor/internal/domain/landmark"
	"github.com/okian/tailor/internal/domain/measurement"
	"github.com/okian/tailor/internal/domain/model"
	"github.com/okian/tailor/internal/history"
)

// SessionHeader selects a non-default session.
const SessionHeader = "X-Session-ID"

const maxBodyBytes = 16 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	dedupe.Deduper

	Session(id string) (*service.Session, error)
	NewSession(ctx context.Context) (string, error)
	CloseSession(ctx context.Context, id string) error

	// CaptureFrame reads from the local camera when a request carries no image.
	CaptureFrame(ctx context.Context) (model.Frame, error)
	History(ctx context.Context, user string) ([]model.Record, error)
}

// ImageDecoder turns an uploaded base64 image into a frame.
type ImageDecoder func(b64 string) (model.Frame, error)

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	calibrateHandler *CalibrateHandler
	measureHandler   *MeasureHandler
	saveHandler      *SaveHandler
	historyHandler   *HistoryHandler
	sessionsHandler  *SessionsHandler
}

// ServerOption applies a configuration option to the Server.
type ServerOption func(*frames)

// WithImageDecoder enables uploaded images on /calibrate and /measure.
func WithImageDecoder(decode ImageDecoder) ServerOption {
	return func(f *frames) {
		f.decode = decode
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...ServerOption) *Server {
	f := &frames{deps: deps}
	for _, opt := range opts {
		opt(f)
	}
	v := validator.New()
	return &Server{
		healthHandler:    NewHealthHandler(),
		statsHandler:     NewStatsHandler(statsProvider),
		calibrateHandler: NewCalibrateHandler(deps, f),
		measureHandler:   NewMeasureHandler(deps, f),
		saveHandler:      NewSaveHandler(deps, v),
		historyHandler:   NewHistoryHandler(deps),
		sessionsHandler:  NewSessionsHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/status", MetricsMiddleware(s.statsHandler.HandleStats, "status"))
	mux.HandleFunc("/calibrate", MetricsMiddleware(s.calibrateHandler.HandleCalibrate, "calibrate"))
	mux.HandleFunc("/measure", MetricsMiddleware(s.measureHandler.HandleMeasure, "measure"))
	mux.HandleFunc("/save", MetricsMiddleware(s.saveHandler.HandleSave, "save"))
	mux.HandleFunc("/history/", MetricsMiddleware(s.historyHandler.HandleGetHistory, "history"))
	mux.HandleFunc("/sessions", MetricsMiddleware(s.sessionsHandler.HandleCreate, "sessions"))
	mux.HandleFunc("/sessions/", MetricsMiddleware(s.sessionsHandler.HandleDelete, "sessions"))
}

// frameRequest is the optional body of /calibrate and /measure.
type frameRequest struct {
	Image string `json:"image"`
}

// frames resolves the frame for a request: the uploaded image if present,
// otherwise the next frame from the local source.
type frames struct {
	deps   Dependencies
	decode ImageDecoder
}

func (f *frames) acquire(ctx context.Context, req frameRequest) (model.Frame, error) {
	if req.Image == "" {
		return f.deps.CaptureFrame(ctx)
	}
	if f.decode == nil {
		return nil, fmt.Errorf("%w: image uploads are not supported", ErrBadRequest)
	}
	frame, err := f.decode(req.Image)
	if err != nil {
		return nil, errors.Join(ErrBadRequest, err)
	}
	return frame, nil
}

// decodeBody reads an optional JSON body into v. An empty body is allowed.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func sessionFor(deps Dependencies, r *http.Request) (*service.Session, error) {
	return deps.Session(r.Header.Get(SessionHeader))
}

type failureResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, failureResponse{Success: false, Code: code, Message: msg})
}

// writeFailure maps pipeline errors to status codes.
func writeFailure(w http.ResponseWriter, err error) {
	status, code := classify(err)
	writeError(w, status, code, err)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest), errors.Is(err, repository.ErrInvalidUser):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, ErrSaveInFlight):
		return http.StatusConflict, "save_in_progress"
	case errors.Is(err, calibration.ErrInvalidInput), errors.Is(err, landmark.ErrInvalidDimensions):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, service.ErrSessionNotFound), errors.Is(err, ErrNotFound):
		return http.StatusNotFound, "session_not_found"
	case errors.Is(err, measurement.ErrNotCalibrated):
		return http.StatusConflict, "not_calibrated"
	case errors.Is(err, service.ErrNoMeasurement):
		return http.StatusConflict, "no_measurement"
	case errors.Is(err, measurement.ErrMissingLandmarks):
		return http.StatusUnprocessableEntity, "missing_landmarks"
	case errors.Is(err, service.ErrTooManySessions):
		return http.StatusTooManyRequests, "too_many_sessions"
	case errors.Is(err, model.ErrNoFrame):
		return http.StatusServiceUnavailable, "no_frame"
	case errors.Is(err, detector.ErrDetector):
		return http.StatusServiceUnavailable, "detector_unavailable"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "cancelled"
	case errors.Is(err, ErrUnavailable), errors.Is(err, service.ErrServiceNotStarted):
		return http.StatusServiceUnavailable, "unavailable"
	case errors.Is(err, history.ErrIO):
		return http.StatusInternalServerError, "io_error"
	default:
		return http.StatusInternalServerError, "internal"
	}
}
