package document

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/victor-muriuki/pos-api/internal/cart"
	"github.com/victor-muriuki/pos-api/internal/checkout"
	"github.com/victor-muriuki/pos-api/internal/events"
	"github.com/victor-muriuki/pos-api/internal/obs"
	"github.com/victor-muriuki/pos-api/internal/pricing"
)

// defaultClearDelay keeps a printed receipt on screen briefly before its
// snapshot is dropped.
const defaultClearDelay = time.Second

// QuotationItem is one line of the send-quotation payload.
type QuotationItem struct {
	Name         string          `json:"name"`
	Quantity     int             `json:"quantity"`
	SellingPrice decimal.Decimal `json:"sellingPrice"`
}

// QuotationSender dispatches a quotation to a customer email through the
// backend collaborator.
type QuotationSender interface {
	Send(ctx context.Context, email string, items []QuotationItem) error
}

// QuotationInput carries the per-request quotation knobs. Nil percentages
// fall back to the default rates.
type QuotationInput struct {
	CustomerName    string
	VATPercent      *decimal.Decimal
	DiscountPercent *decimal.Decimal
}

// Service renders receipts and quotations from committed snapshots and live
// carts.
type Service struct {
	Shop       ShopInfo
	Currency   string
	Carts      *cart.Service
	Committer  *checkout.Committer
	Sender     QuotationSender
	Events     *events.Bus
	ClearDelay time.Duration
	Now        func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) clearDelay() time.Duration {
	if s.ClearDelay > 0 {
		return s.ClearDelay
	}
	return defaultClearDelay
}

// ReceiptText renders the retained snapshot as till-receipt text.
func (s *Service) ReceiptText(transactionID string) (string, error) {
	snap, err := s.Committer.SnapshotOf(transactionID)
	if err != nil {
		return "", err
	}
	s.countRender("receipt", "text")
	return RenderReceiptText(s.Shop, snap), nil
}

// ReceiptPDF renders the retained snapshot as a PDF.
func (s *Service) ReceiptPDF(transactionID string) ([]byte, error) {
	snap, err := s.Committer.SnapshotOf(transactionID)
	if err != nil {
		return nil, err
	}
	out, err := ReceiptPDF(s.Shop, snap)
	if err != nil {
		return nil, err
	}
	s.countRender("receipt", "pdf")
	return out, nil
}

// Print returns the receipt text and schedules the snapshot's discard. The
// discard is timer-driven so a print dialog that never resolves cannot pin
// the snapshot forever.
func (s *Service) Print(transactionID string) (string, error) {
	text, err := s.ReceiptText(transactionID)
	if err != nil {
		return "", err
	}
	s.Committer.DiscardAfter(transactionID, s.clearDelay())
	return text, nil
}

// Quotation prices the cart at the requested rates. The cart is left
// untouched.
func (s *Service) Quotation(cartID string, in QuotationInput) (Quotation, error) {
	view, err := s.Carts.Get(cartID)
	if err != nil {
		return Quotation{}, err
	}
	rates := pricing.DefaultQuotationRates()
	if in.VATPercent != nil {
		rates.VATRate = pricing.RateFromPercent(*in.VATPercent)
	}
	if in.DiscountPercent != nil {
		rates.DiscountRate = pricing.RateFromPercent(*in.DiscountPercent)
	}
	return BuildQuotation(view, rates, s.Shop.Name, in.CustomerName, s.Currency, s.now()), nil
}

// QuotationPDF prices the cart and renders the offer as a PDF.
func (s *Service) QuotationPDF(cartID string, in QuotationInput) ([]byte, error) {
	q, err := s.Quotation(cartID, in)
	if err != nil {
		return nil, err
	}
	out, err := QuotationPDF(q)
	if err != nil {
		return nil, err
	}
	s.countRender("quotation", "pdf")
	return out, nil
}

// SendQuotation dispatches the cart's quotation lines to the given email via
// the backend collaborator.
func (s *Service) SendQuotation(ctx context.Context, cartID, email string, in QuotationInput) error {
	if s.Sender == nil {
		return fmt.Errorf("document: no quotation sender configured")
	}
	q, err := s.Quotation(cartID, in)
	if err != nil {
		return err
	}
	items := make([]QuotationItem, 0, len(q.Lines))
	for _, l := range q.Lines {
		items = append(items, QuotationItem{Name: l.Name, Quantity: l.Qty, SellingPrice: l.UnitPrice})
	}
	if err := s.Sender.Send(ctx, email, items); err != nil {
		s.countQuotation("error")
		return err
	}
	s.countQuotation("sent")
	if s.Events != nil {
		_, _ = s.Events.Emit(ctx, events.TopicQuotationSent, cartID, map[string]any{
			"cartId": cartID,
			"email":  email,
			"total":  q.Summary.Total,
		})
	}
	return nil
}

func (s *Service) countRender(kind, format string) {
	if obs.DocumentRenderTotal == nil {
		return
	}
	obs.DocumentRenderTotal.WithLabelValues(kind, format).Inc()
}

func (s *Service) countQuotation(result string) {
	if obs.QuotationTotal == nil {
		return
	}
	obs.QuotationTotal.WithLabelValues(result).Inc()
}
