package document

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"

	"github.com/victor-muriuki/pos-api/internal/checkout"
	"github.com/victor-muriuki/pos-api/internal/pricing"
)

// QuotationPDF renders the quotation as an A4 PDF: title, customer and date
// header, an item table, then the subtotal/VAT/discount/total block.
func QuotationPDF(q Quotation) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 8, fmt.Sprintf("%s - Quotation", q.CompanyName), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 6, "Customer: "+orNA(q.CustomerName), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, "Date: "+q.Date.Format("02/01/2006"), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(90, 7, "Item", "1", 0, "L", false, 0, "")
	pdf.CellFormat(20, 7, "Qty", "1", 0, "R", false, 0, "")
	pdf.CellFormat(40, 7, "Unit Price", "1", 0, "R", false, 0, "")
	pdf.CellFormat(40, 7, "Total", "1", 1, "R", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	for _, l := range q.Lines {
		pdf.CellFormat(90, 7, l.Name, "1", 0, "L", false, 0, "")
		pdf.CellFormat(20, 7, fmt.Sprintf("%d", l.Qty), "1", 0, "R", false, 0, "")
		pdf.CellFormat(40, 7, l.UnitPrice.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(40, 7, l.Total.StringFixed(2), "1", 1, "R", false, 0, "")
	}
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 6, "Subtotal: "+pricing.FormatAmount(q.Currency, q.Summary.Subtotal), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("VAT (%s%%): %s", percentLabel(q.Rates.VATRate), pricing.FormatAmount(q.Currency, q.Summary.VAT)), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Discount (%s%%): -%s", percentLabel(q.Rates.DiscountRate), pricing.FormatAmount(q.Currency, q.Summary.Discount)), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, "Total: "+pricing.FormatAmount(q.Currency, q.Summary.Total), "", 1, "L", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("document: render quotation pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// ReceiptPDF renders the till receipt on a narrow page in a monospace face so
// the text layout carries over unchanged.
func ReceiptPDF(shop ShopInfo, snap checkout.Snapshot) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A6", "")
	pdf.AddPage()
	pdf.SetFont("Courier", "", 9)
	for _, line := range splitLines(RenderReceiptText(shop, snap)) {
		pdf.CellFormat(0, 4, line, "", 1, "L", false, 0, "")
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("document: render receipt pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func splitLines(s string) []string {
	lines := strings.Split(s, "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	return lines
}
