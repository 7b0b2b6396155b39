package api

import (
	"net/http"

	"github.com/okian/tailor/internal/domain/measurement"
)

type calibrateResponse struct {
	Success     bool    `json:"success"`
	ScaleFactor float64 `json:"scale_factor"`
}

type measureResponse struct {
	Success      bool            `json:"success"`
	Measurements measurement.Set `json:"measurements"`
}

// CalibrateHandler handles POST /calibrate.
type CalibrateHandler struct {
	deps   Dependencies
	frames *frames
}

// NewCalibrateHandler creates a new calibrate handler.
func NewCalibrateHandler(deps Dependencies, f *frames) *CalibrateHandler {
	return &CalibrateHandler{deps: deps, frames: f}
}

// HandleCalibrate derives the session scale from an uploaded image or the
// next camera frame.
func (h *CalibrateHandler) HandleCalibrate(w http.ResponseWriter, r *http.Request) {
	const op = "api.calibrate"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	ctx := r.Context()

	var req frameRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	sess, err := sessionFor(h.deps, r)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	frame, err := h.frames.acquire(ctx, req)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	defer func() { _ = frame.Close() }()

	state, err := sess.Calibrate(ctx, frame)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, calibrateResponse{Success: true, ScaleFactor: state.ScaleFactor})
}

// MeasureHandler handles POST /measure.
type MeasureHandler struct {
	deps   Dependencies
	frames *frames
}

// NewMeasureHandler creates a new measure handler.
func NewMeasureHandler(deps Dependencies, f *frames) *MeasureHandler {
	return &MeasureHandler{deps: deps, frames: f}
}

// HandleMeasure runs detection and measurement on one frame.
func (h *MeasureHandler) HandleMeasure(w http.ResponseWriter, r *http.Request) {
	const op = "api.measure"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	ctx := r.Context()

	var req frameRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	sess, err := sessionFor(h.deps, r)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	frame, err := h.frames.acquire(ctx, req)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	defer func() { _ = frame.Close() }()

	set, err := sess.Measure(ctx, frame)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, measureResponse{Success: true, Measurements: set})
}
