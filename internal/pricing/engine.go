package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Item describes a line item used for pricing calculation.
type Item struct {
	Qty       int
	UnitPrice decimal.Decimal
}

// RateConfig carries the fractional VAT and discount rates applied to a cart.
// A zero value applies no tax and no discount, which is what the sale-commit
// workflow uses; quotations default to DefaultQuotationRates.
type RateConfig struct {
	VATRate      decimal.Decimal
	DiscountRate decimal.Decimal
}

// DefaultQuotationRates returns the rates the quotation workflow starts from:
// 16% VAT and a 10% discount.
func DefaultQuotationRates() RateConfig {
	return RateConfig{
		VATRate:      decimal.NewFromFloat(0.16),
		DiscountRate: decimal.NewFromFloat(0.10),
	}
}

// RateFromPercent converts a user-entered whole-number percentage (16 == 16%)
// into the fractional form stored in RateConfig.
func RateFromPercent(percent decimal.Decimal) decimal.Decimal {
	return percent.Div(decimal.NewFromInt(100))
}

// Summary aggregates computed pricing components. All amounts retain full
// precision; rounding happens only at presentation time.
type Summary struct {
	Subtotal decimal.Decimal
	VAT      decimal.Decimal
	Discount decimal.Decimal
	Total    decimal.Decimal
}

// Subtotal sums qty times unit price over the provided items.
func Subtotal(items []Item) decimal.Decimal {
	subtotal := decimal.Zero
	for _, it := range items {
		if it.Qty <= 0 {
			continue
		}
		subtotal = subtotal.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Qty))))
	}
	return subtotal
}

// VAT computes the tax amount for a subtotal at the given fractional rate.
func VAT(subtotal, vatRate decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(vatRate)
}

// Discount computes the discount amount for a subtotal at the given fractional rate.
func Discount(subtotal, discountRate decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(discountRate)
}

// Total combines the components: subtotal + vat - discount.
func Total(subtotal, vat, discount decimal.Decimal) decimal.Decimal {
	return subtotal.Add(vat).Sub(discount)
}

// Compute calculates the full summary for the provided items and rates.
func Compute(items []Item, rates RateConfig) Summary {
	subtotal := Subtotal(items)
	vat := VAT(subtotal, rates.VATRate)
	discount := Discount(subtotal, rates.DiscountRate)
	return Summary{
		Subtotal: subtotal,
		VAT:      vat,
		Discount: discount,
		Total:    Total(subtotal, vat, discount),
	}
}

// FormatAmount renders a monetary value with exactly two fraction digits and
// the configured currency label, e.g. "KES 260.00".
func FormatAmount(currency string, amount decimal.Decimal) string {
	if currency == "" {
		return amount.StringFixed(2)
	}
	return fmt.Sprintf("%s %s", currency, amount.StringFixed(2))
}
