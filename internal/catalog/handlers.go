package catalog

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/victor-muriuki/pos-api/internal/common"
)

// Handler exposes catalog lookups to the UI shell.
type Handler struct {
	Svc *Service
}

// List returns all catalog items.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return
	}
	items, err := h.Svc.List(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusBadGateway, "CATALOG_ERROR", "unable to load catalog", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": items})
}

// ByBarcode resolves a scanned barcode to a catalog item.
func (h *Handler) ByBarcode(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return
	}
	code := chi.URLParam(r, "code")
	item, err := h.Svc.ByBarcode(r.Context(), code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "item not found for barcode", nil)
			return
		}
		common.JSONError(w, http.StatusBadGateway, "CATALOG_ERROR", "unable to look up barcode", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": item})
}
