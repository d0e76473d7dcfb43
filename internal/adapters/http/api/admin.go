// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
)

// AdminDependencies defines the interface for administrative operations.
type AdminDependencies interface {
	Rebuild(ctx context.Context) (int64, error)
}

// AdminHandler handles administrative requests.
type AdminHandler struct {
	deps AdminDependencies
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(deps AdminDependencies) *AdminHandler {
	return &AdminHandler{deps: deps}
}

type rebuildResponse struct {
	Rows int64 `json:"rows"`
}

// HandleRebuild handles POST /admin/rebuild requests. The rebuild replays
// the durable score log into the ranking index and reports how many rows
// were replayed. A rebuild that is already running yields 409.
func (h *AdminHandler) HandleRebuild(w http.ResponseWriter, r *http.Request) {
	const op = "api.rebuild"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	rows, err := h.deps.Rebuild(r.Context())
	if err != nil {
		status, code := classify(err)
		if status == http.StatusInternalServerError && isConflict(err) {
			status, code = http.StatusConflict, "rebuild_in_progress"
		}
		writeError(w, status, code, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, rebuildResponse{Rows: rows})
}
