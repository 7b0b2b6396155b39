package api

import (
	"net/http"
	"strings"

	"github.com/okian/tailor/internal/domain/model"
	"github.com/okian/tailor/internal/history"
)

type historyResponse struct {
	Success bool           `json:"success"`
	User    string         `json:"user"`
	Records []model.Record `json:"records"`
}

// HistoryHandler handles GET /history/{user}.
type HistoryHandler struct {
	deps Dependencies
}

// NewHistoryHandler creates a new history handler.
func NewHistoryHandler(deps Dependencies) *HistoryHandler {
	return &HistoryHandler{deps: deps}
}

// HandleGetHistory returns the user's records oldest first. An empty path
// segment reads the guest history.
func (h *HistoryHandler) HandleGetHistory(w http.ResponseWriter, r *http.Request) {
	const op = "api.history"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	user := strings.TrimPrefix(r.URL.Path, "/history/")
	if strings.ContainsAny(user, `/\`) {
		writeFailure(w, NewKind(op, ErrBadRequest))
		return
	}
	user = history.NormalizeUser(user)
	records, err := h.deps.History(r.Context(), user)
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	if records == nil {
		records = []model.Record{}
	}
	writeJSON(w, http.StatusOK, historyResponse{Success: true, User: user, Records: records})
}
