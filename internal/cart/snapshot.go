package cart

import (
	"github.com/shopspring/decimal"

	"github.com/compunet/storefront/pkg/types"
)

// Snapshot is a point-in-time copy of the cart. Mutating the store afterwards
// does not affect it.
type Snapshot struct {
	Lines     []LineItem
	Selection Selection
}

// SelectedLines returns the selected lines in cart order.
func (s Snapshot) SelectedLines() []LineItem {
	out := make([]LineItem, 0, len(s.Selection))
	for _, line := range s.Lines {
		if s.Selection.Has(line.ID) {
			out = append(out, line)
		}
	}
	return out
}

// SelectedIDs lists selected product ids in cart order.
func (s Snapshot) SelectedIDs() []types.ProductID {
	ids := make([]types.ProductID, 0, len(s.Selection))
	for _, line := range s.Lines {
		if s.Selection.Has(line.ID) {
			ids = append(ids, line.ID)
		}
	}
	return ids
}

// Count is the total number of units across all lines.
func (s Snapshot) Count() int {
	total := 0
	for _, line := range s.Lines {
		total += line.Quantity
	}
	return total
}

// Total sums every line regardless of selection.
func (s Snapshot) Total() decimal.Decimal {
	total := decimal.Zero
	for _, line := range s.Lines {
		total = total.Add(line.Subtotal())
	}
	return total
}

// AllSelected is true when the cart is non-empty and every line is selected.
func (s Snapshot) AllSelected() bool {
	return len(s.Lines) > 0 && len(s.SelectedIDs()) == len(s.Lines)
}

// PartiallySelected is true when some, but not all, lines are selected.
func (s Snapshot) PartiallySelected() bool {
	n := len(s.SelectedIDs())
	return n > 0 && n < len(s.Lines)
}
