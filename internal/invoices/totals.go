package invoices

import "github.com/goliatone/go-contractor/internal/domain"

// Totals is the computed money summary of an invoice.
type Totals struct {
	Subtotal int64
	Discount int64
	TaxTotal int64
	Total    int64
}

// ComputeTotals prices each line and derives the invoice totals. Line
// amounts are written back onto the lines. The discount is capped at the
// subtotal and reduces the taxable base in proportion to the taxable share
// of the subtotal.
func ComputeTotals(lines []*Line, discount int64, taxRateBps int) Totals {
	var subtotal, taxable int64
	for _, line := range lines {
		if line == nil {
			continue
		}
		line.Amount = domain.LineAmount(line.Quantity, line.UnitPrice)
		subtotal += line.Amount
		if line.Taxable {
			taxable += line.Amount
		}
	}

	if discount < 0 {
		discount = 0
	}
	if discount > subtotal {
		discount = subtotal
	}

	base := taxable - domain.Proportion(discount, taxable, subtotal)
	if base < 0 {
		base = 0
	}
	tax := domain.ApplyBasisPoints(base, taxRateBps)

	return Totals{
		Subtotal: subtotal,
		Discount: discount,
		TaxTotal: tax,
		Total:    subtotal - discount + tax,
	}
}

func applyTotals(invoice *Invoice) {
	totals := ComputeTotals(invoice.Lines, invoice.Discount, invoice.TaxRateBps)
	invoice.Subtotal = totals.Subtotal
	invoice.Discount = totals.Discount
	invoice.TaxTotal = totals.TaxTotal
	invoice.Total = totals.Total
}
