package checkout

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/victor-muriuki/pos-api/internal/cart"
	"github.com/victor-muriuki/pos-api/internal/common"
)

var validate = validator.New()

// Handler exposes the commit lifecycle over HTTP.
type Handler struct {
	Svc *Committer
}

type commitRequest struct {
	PaymentMethod string `json:"paymentMethod" validate:"required"`
	CustomerName  string `json:"customerName" validate:"omitempty,max=120"`
}

// Commit settles the cart as a sale.
func (h *Handler) Commit(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "checkout service not configured", nil)
		return
	}
	cartID := chi.URLParam(r, "id")
	var payload commitRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if err := validate.Struct(payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "paymentMethod is required", nil)
		return
	}
	method, err := ParsePaymentMethod(payload.PaymentMethod)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "unknown payment method", nil)
		return
	}
	snap, err := h.Svc.Commit(r.Context(), cartID, CommitInput{
		PaymentMethod: method,
		CustomerName:  payload.CustomerName,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": snap})
}

// State reports the commit state for a cart.
func (h *Handler) State(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "checkout service not configured", nil)
		return
	}
	state := h.Svc.StateOf(chi.URLParam(r, "id"))
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{"state": state}})
}

// Acknowledge returns a cart from a terminal commit state to idle.
func (h *Handler) Acknowledge(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "checkout service not configured", nil)
		return
	}
	h.Svc.Acknowledge(chi.URLParam(r, "id"))
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{"state": StateIdle}})
}

// Snapshot returns a retained transaction snapshot.
func (h *Handler) Snapshot(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "checkout service not configured", nil)
		return
	}
	snap, err := h.Svc.SnapshotOf(chi.URLParam(r, "txID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": snap})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var stock *InsufficientStockError
	var rejected *ServerRejectedError
	switch {
	case errors.Is(err, cart.ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "cart not found", nil)
	case errors.Is(err, ErrEmptyCart):
		common.JSONError(w, http.StatusUnprocessableEntity, "EMPTY_CART", "cart is empty", nil)
	case errors.As(err, &stock):
		common.JSONError(w, http.StatusUnprocessableEntity, "INSUFFICIENT_STOCK", stock.Error(), map[string]any{
			"itemId":    stock.ItemID,
			"name":      stock.Name,
			"requested": stock.Requested,
			"available": stock.Available,
		})
	case errors.As(err, &rejected):
		common.JSONError(w, http.StatusUnprocessableEntity, "SERVER_REJECTED", rejected.Message, nil)
	case errors.Is(err, ErrNetworkFailure):
		common.JSONError(w, http.StatusBadGateway, "NETWORK_FAILURE", "could not reach the sales backend, cart preserved", nil)
	case errors.Is(err, ErrCommitInFlight):
		common.JSONError(w, http.StatusConflict, "COMMIT_IN_FLIGHT", "a commit is already in progress", nil)
	case errors.Is(err, ErrSnapshotNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "transaction snapshot not found", nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "commit failed", nil)
	}
}
