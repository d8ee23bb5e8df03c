// Package pricing derives order totals from cart lines and the selection.
// Nothing here is cached: callers recompute on every read.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/compunet/storefront/internal/cart"
)

const (
	// DefaultCurrency prefixes rendered amounts.
	DefaultCurrency = "S/"
	displayPlaces   = 2
)

// DefaultTaxRate is the IGV rate applied to the selected subtotal.
func DefaultTaxRate() decimal.Decimal {
	return decimal.New(18, -2)
}

// Totals holds full-precision amounts.
type Totals struct {
	SelectedSubtotal decimal.Decimal
	Tax              decimal.Decimal
	GrandTotal       decimal.Decimal
}

// Compute prices the selected lines at the default tax rate.
func Compute(lines []cart.LineItem, selection cart.Selection) Totals {
	return ComputeWithRate(lines, selection, DefaultTaxRate())
}

// ComputeWithRate prices the lines whose id is in selection.
func ComputeWithRate(lines []cart.LineItem, selection cart.Selection, rate decimal.Decimal) Totals {
	subtotal := decimal.Zero
	for _, line := range lines {
		if selection.Has(line.ID) {
			subtotal = subtotal.Add(line.Subtotal())
		}
	}
	return fromSubtotal(subtotal, rate)
}

// ComputeLines prices every line given, as for a checkout snapshot.
func ComputeLines(lines []cart.LineItem, rate decimal.Decimal) Totals {
	subtotal := decimal.Zero
	for _, line := range lines {
		subtotal = subtotal.Add(line.Subtotal())
	}
	return fromSubtotal(subtotal, rate)
}

func fromSubtotal(subtotal, rate decimal.Decimal) Totals {
	tax := subtotal.Mul(rate)
	return Totals{
		SelectedSubtotal: subtotal,
		Tax:              tax,
		GrandTotal:       subtotal.Add(tax),
	}
}

// Display is the presentation form of Totals, rounded to two decimals.
type Display struct {
	Currency         string `json:"currency"`
	SelectedSubtotal string `json:"selectedSubtotal"`
	Tax              string `json:"tax"`
	GrandTotal       string `json:"grandTotal"`
}

// Display rounds for presentation only.
func (t Totals) Display(currency string) Display {
	if currency == "" {
		currency = DefaultCurrency
	}
	return Display{
		Currency:         currency,
		SelectedSubtotal: Format(t.SelectedSubtotal),
		Tax:              Format(t.Tax),
		GrandTotal:       Format(t.GrandTotal),
	}
}

// Format renders an amount with two decimal places.
func Format(amount decimal.Decimal) string {
	return amount.StringFixed(displayPlaces)
}

// Label renders an amount with the currency symbol, e.g. "S/ 354.00".
func Label(currency string, amount decimal.Decimal) string {
	if currency == "" {
		currency = DefaultCurrency
	}
	return currency + " " + Format(amount)
}
