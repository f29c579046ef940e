package events

import (
	"net/http"

	"github.com/victor-muriuki/pos-api/internal/common"
)

// Handler exposes the recent event log for diagnostics.
type Handler struct {
	Store *MemoryStore
}

// Recent returns the newest events, newest first.
func (h Handler) Recent(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "event store not configured", nil)
		return
	}
	limit := common.PositiveAtoiDefault(r.URL.Query().Get("limit"), 50)
	common.JSON(w, http.StatusOK, map[string]any{"data": h.Store.Recent(limit)})
}
