package api

import (
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/okian/tailor/internal/domain/dedupe"
	"github.com/okian/tailor/internal/domain/measurement"
	"github.com/okian/tailor/internal/domain/model"
	"github.com/okian/tailor/internal/history"
)

// saveRequest saves either the supplied measurements or, when omitted, the
// session's last measurement. RequestID makes retries idempotent: a retry
// is reported as a duplicate only once the first save has committed.
type saveRequest struct {
	User         string           `json:"user" validate:"max=128,excludesall=/\\"`
	RequestID    string           `json:"request_id,omitempty" validate:"max=128"`
	Measurements *measurement.Set `json:"measurements,omitempty"`
}

type saveResponse struct {
	Success   bool          `json:"success"`
	Duplicate bool          `json:"duplicate,omitempty"`
	Record    *model.Record `json:"record,omitempty"`
}

// SaveHandler handles POST /save.
type SaveHandler struct {
	deps     Dependencies
	validate *validator.Validate
}

// NewSaveHandler creates a new save handler.
func NewSaveHandler(deps Dependencies, v *validator.Validate) *SaveHandler {
	return &SaveHandler{deps: deps, validate: v}
}

// HandleSave appends a measurement set to the user's history.
func (h *SaveHandler) HandleSave(w http.ResponseWriter, r *http.Request) {
	const op = "api.save"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	ctx := r.Context()

	var req saveRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := h.validate.StructCtx(ctx, req); err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	if u := history.NormalizeUser(req.User); u == "." || u == ".." {
		writeFailure(w, WrapKind(op, ErrBadRequest, fmt.Errorf("user %q is reserved", u)))
		return
	}
	sess, err := sessionFor(h.deps, r)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}

	if req.RequestID != "" {
		switch h.deps.Claim(ctx, req.RequestID) {
		case dedupe.StateDone:
			writeJSON(w, http.StatusOK, saveResponse{Success: true, Duplicate: true})
			return
		case dedupe.StateInFlight:
			writeFailure(w, NewKind(op, ErrSaveInFlight))
			return
		}
	}

	var rec model.Record
	if req.Measurements != nil {
		rec, err = sess.Save(ctx, req.User, *req.Measurements)
	} else {
		rec, err = sess.SaveCurrent(ctx, req.User)
	}
	if err != nil {
		if req.RequestID != "" {
			h.deps.Unrecord(ctx, req.RequestID)
		}
		writeFailure(w, Wrap(op, err))
		return
	}
	if req.RequestID != "" {
		h.deps.Commit(ctx, req.RequestID)
	}
	writeJSON(w, http.StatusOK, saveResponse{Success: true, Record: &rec})
}
