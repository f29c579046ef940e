package document

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/victor-muriuki/pos-api/internal/cart"
	"github.com/victor-muriuki/pos-api/internal/checkout"
	"github.com/victor-muriuki/pos-api/internal/common"
)

var validate = validator.New()

// Handler exposes receipt and quotation rendering over HTTP.
type Handler struct {
	Svc *Service
}

// Receipt renders a settled transaction, as text or PDF depending on the
// format query parameter.
func (h *Handler) Receipt(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "document service not configured", nil)
		return
	}
	txID := chi.URLParam(r, "txID")
	if r.URL.Query().Get("format") == "pdf" {
		out, err := h.Svc.ReceiptPDF(txID)
		if err != nil {
			h.writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="receipt.pdf"`)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(out)
		return
	}
	text, err := h.Svc.ReceiptText(txID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{"receipt": text}})
}

// Print returns the receipt text and schedules its snapshot's discard.
func (h *Handler) Print(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "document service not configured", nil)
		return
	}
	text, err := h.Svc.Print(chi.URLParam(r, "txID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{
		"receipt":      text,
		"clearAfterMs": h.Svc.clearDelay().Milliseconds(),
	}})
}

type quotationRequest struct {
	CustomerName    string           `json:"customerName" validate:"omitempty,max=120"`
	VATPercent      *decimal.Decimal `json:"vatPercent"`
	DiscountPercent *decimal.Decimal `json:"discountPercent"`
}

type sendQuotationRequest struct {
	quotationRequest
	Email string `json:"email" validate:"required,email"`
}

// Quotation prices the cart and returns the offer, as JSON or PDF.
func (h *Handler) Quotation(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "document service not configured", nil)
		return
	}
	cartID := chi.URLParam(r, "id")
	var payload quotationRequest
	// An empty body prices at the default rates.
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if err := validate.Struct(payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	in := QuotationInput{
		CustomerName:    payload.CustomerName,
		VATPercent:      payload.VATPercent,
		DiscountPercent: payload.DiscountPercent,
	}
	if r.URL.Query().Get("format") == "pdf" {
		out, err := h.Svc.QuotationPDF(cartID, in)
		if err != nil {
			h.writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="quotation.pdf"`)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(out)
		return
	}
	q, err := h.Svc.Quotation(cartID, in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{
		"companyName":  q.CompanyName,
		"customerName": q.CustomerName,
		"date":         q.Date,
		"currency":     q.Currency,
		"lines":        q.Lines,
		"subtotal":     q.Summary.Subtotal,
		"vat":          q.Summary.VAT,
		"discount":     q.Summary.Discount,
		"total":        q.Summary.Total,
		"text":         RenderQuotationText(q),
	}})
}

// SendQuotation emails the cart's quotation through the backend collaborator.
func (h *Handler) SendQuotation(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "document service not configured", nil)
		return
	}
	cartID := chi.URLParam(r, "id")
	var payload sendQuotationRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if err := validate.Struct(payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "a valid email is required", nil)
		return
	}
	err := h.Svc.SendQuotation(r.Context(), cartID, payload.Email, QuotationInput{
		CustomerName:    payload.CustomerName,
		VATPercent:      payload.VATPercent,
		DiscountPercent: payload.DiscountPercent,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{"message": "quotation sent"}})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, checkout.ErrSnapshotNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "transaction snapshot not found", nil)
	case errors.Is(err, cart.ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "cart not found", nil)
	case errors.Is(err, checkout.ErrNetworkFailure):
		common.JSONError(w, http.StatusBadGateway, "NETWORK_FAILURE", "could not reach the backend", nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "document operation failed", nil)
	}
}
