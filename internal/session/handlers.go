package session

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/victor-muriuki/pos-api/internal/common"
)

var validate = validator.New()

// Handler exposes the active-session lifecycle over HTTP. The token itself is
// issued by the backend; this surface only holds it for the running terminal.
type Handler struct {
	Holder *Holder
}

type setSessionRequest struct {
	Token    string `json:"token" validate:"required"`
	Operator string `json:"operator" validate:"omitempty,max=120"`
}

// Current reports whether a session is active and for whom.
func (h Handler) Current(w http.ResponseWriter, r *http.Request) {
	s := h.Holder.Current()
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{
		"active":   s.Active(),
		"operator": s.Operator,
	}})
}

// Set replaces the active session; subscribers observe the change through the
// event bus.
func (h Handler) Set(w http.ResponseWriter, r *http.Request) {
	var req setSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body", nil)
		return
	}
	if err := validate.Struct(req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "token is required", nil)
		return
	}
	h.Holder.Set(r.Context(), Session{Token: req.Token, Operator: req.Operator})
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{
		"active":   true,
		"operator": req.Operator,
	}})
}

// Delete clears the active session.
func (h Handler) Delete(w http.ResponseWriter, r *http.Request) {
	h.Holder.Clear(r.Context())
	w.WriteHeader(http.StatusNoContent)
}
