// Package pricing contains pure monetary computations. All arithmetic is done
// in exact decimal so totals never accumulate binary floating point drift.
package pricing

import "github.com/shopspring/decimal"

// Line is the minimal input needed to price a single order line.
type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

// LineTotal returns unitPrice multiplied by quantity.
func LineTotal(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}

// Total sums the line totals in line order. Summation order is fixed so the
// result is deterministic for a given line sequence.
func Total(lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(LineTotal(l.UnitPrice, l.Quantity))
	}
	return total
}
