package document

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/victor-muriuki/pos-api/internal/cart"
	"github.com/victor-muriuki/pos-api/internal/checkout"
	"github.com/victor-muriuki/pos-api/internal/pricing"
)

// Quotation is a priced offer built from a live cart. Unlike a sale it
// carries VAT and discount and leaves the cart untouched.
type Quotation struct {
	CompanyName  string
	CustomerName string
	Date         time.Time
	Currency     string
	Lines        []checkout.SnapshotLine
	Rates        pricing.RateConfig
	Summary      pricing.Summary
}

// BuildQuotation prices the cart at the given rates.
func BuildQuotation(view cart.View, rates pricing.RateConfig, company, customer, currency string, at time.Time) Quotation {
	lines := make([]checkout.SnapshotLine, 0, len(view.Lines))
	for _, l := range view.Lines {
		lines = append(lines, checkout.SnapshotLine{
			ItemID:    l.Item.ID,
			Name:      l.Item.Name,
			Qty:       l.Qty,
			UnitPrice: l.Item.SellingPrice,
			Total:     l.Total(),
		})
	}
	return Quotation{
		CompanyName:  company,
		CustomerName: strings.TrimSpace(customer),
		Date:         at,
		Currency:     currency,
		Lines:        lines,
		Rates:        rates,
		Summary:      pricing.Compute(view.PricingItems(), rates),
	}
}

// RenderQuotationText lays out the quotation as plain text mirroring the PDF
// structure.
func RenderQuotationText(q Quotation) string {
	var b strings.Builder
	b.WriteString(q.CompanyName + " - Quotation\n")
	b.WriteString("Customer: " + orNA(q.CustomerName) + "\n")
	b.WriteString("Date: " + q.Date.Format("02/01/2006") + "\n\n")
	for _, l := range q.Lines {
		b.WriteString(strings.Join([]string{
			l.Name,
			"x" + strconv.Itoa(l.Qty),
			"@ " + pricing.FormatAmount(q.Currency, l.UnitPrice),
			"= " + pricing.FormatAmount(q.Currency, l.Total),
		}, " ") + "\n")
	}
	b.WriteString("\n")
	b.WriteString("Subtotal: " + pricing.FormatAmount(q.Currency, q.Summary.Subtotal) + "\n")
	b.WriteString("VAT (" + percentLabel(q.Rates.VATRate) + "%): " + pricing.FormatAmount(q.Currency, q.Summary.VAT) + "\n")
	b.WriteString("Discount (" + percentLabel(q.Rates.DiscountRate) + "%): -" + pricing.FormatAmount(q.Currency, q.Summary.Discount) + "\n")
	b.WriteString("Total: " + pricing.FormatAmount(q.Currency, q.Summary.Total) + "\n")
	return b.String()
}

// percentLabel renders a fractional rate as a whole-number percentage label.
func percentLabel(rate decimal.Decimal) string {
	return rate.Mul(decimal.NewFromInt(100)).Round(0).String()
}
