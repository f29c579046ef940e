package document

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/victor-muriuki/pos-api/internal/checkout"
)

// receiptWidth is the character width of the thermal-style receipt.
const receiptWidth = 32

// ShopInfo is the identity block printed at the top of every receipt.
type ShopInfo struct {
	Name    string
	Address string
	Email   string
	Footer  []string
}

// DefaultFooter returns the standard receipt sign-off lines.
func DefaultFooter() []string {
	return []string{
		"Thank you for your business!",
		"Goods once sold are not returnable.",
	}
}

// RenderReceiptText lays out a settled sale as a fixed-width till receipt:
// shop header, QTY/ITEM/AMT columns, dashed rules, totals, customer block and
// footer.
func RenderReceiptText(shop ShopInfo, snap checkout.Snapshot) string {
	var b strings.Builder
	rule := strings.Repeat("-", receiptWidth)

	writeCentered(&b, strings.ToUpper(shop.Name))
	writeCentered(&b, shop.Address)
	if shop.Email != "" {
		writeCentered(&b, "Email: "+shop.Email)
	}
	writeCentered(&b, snap.Timestamp.Format("02/01/2006")+" | "+snap.Timestamp.Format("15:04"))
	b.WriteString(rule + "\n")

	b.WriteString(fmt.Sprintf("%-4s%-20s%8s\n", "QTY", "ITEM", "AMT"))
	for _, l := range snap.Lines {
		b.WriteString(fmt.Sprintf("%-4d%-20s%8s\n", l.Qty, clip(l.Name, 20), l.Total.StringFixed(2)))
	}
	b.WriteString(rule + "\n")

	writeSplit(&b, "Subtotal", snap.Subtotal.StringFixed(2))
	if !snap.VAT.IsZero() {
		writeSplit(&b, "VAT", snap.VAT.StringFixed(2))
	}
	if !snap.Discount.IsZero() {
		writeSplit(&b, "Discount", "-"+snap.Discount.StringFixed(2))
	}
	writeSplit(&b, "Total", snap.Total.StringFixed(2))
	b.WriteString(rule + "\n")

	b.WriteString("Customer: " + orNA(snap.CustomerName) + "\n")
	b.WriteString("Payment: " + orNA(string(snap.PaymentMethod)) + "\n")
	b.WriteString(rule + "\n")

	for _, line := range shop.Footer {
		writeCentered(&b, line)
	}
	return b.String()
}

func writeCentered(b *strings.Builder, s string) {
	if s == "" {
		return
	}
	s = clip(s, receiptWidth)
	pad := (receiptWidth - utf8.RuneCountInString(s)) / 2
	if pad > 0 {
		b.WriteString(strings.Repeat(" ", pad))
	}
	b.WriteString(s + "\n")
}

func writeSplit(b *strings.Builder, left, right string) {
	gap := receiptWidth - len(left) - len(right)
	if gap < 1 {
		gap = 1
	}
	b.WriteString(left + strings.Repeat(" ", gap) + right + "\n")
}

// clip truncates to max characters, never splitting a multi-byte rune.
func clip(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}
