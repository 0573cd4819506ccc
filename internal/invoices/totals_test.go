package invoices_test

import (
	"testing"

	"github.com/goliatone/go-contractor/internal/invoices"
)

func TestComputeTotalsAppliesDiscountToTaxableShare(t *testing.T) {
	lines := []*invoices.Line{
		{Description: "Framing labor", Quantity: 2, UnitPrice: 1500, Taxable: true},
		{Description: "Permit fee", Quantity: 1, UnitPrice: 2000},
	}

	totals := invoices.ComputeTotals(lines, 1000, 825)

	if lines[0].Amount != 3000 || lines[1].Amount != 2000 {
		t.Fatalf("unexpected line amounts %d %d", lines[0].Amount, lines[1].Amount)
	}
	want := invoices.Totals{Subtotal: 5000, Discount: 1000, TaxTotal: 198, Total: 4198}
	if totals != want {
		t.Fatalf("expected %+v, got %+v", want, totals)
	}
}

func TestComputeTotalsCapsDiscountAtSubtotal(t *testing.T) {
	lines := []*invoices.Line{{Description: "Drywall", Quantity: 10, UnitPrice: 500, Taxable: true}}

	totals := invoices.ComputeTotals(lines, 9000, 1000)

	if totals.Discount != 5000 || totals.TaxTotal != 0 || totals.Total != 0 {
		t.Fatalf("expected discount capped to subtotal, got %+v", totals)
	}
}

func TestComputeTotalsRoundsHalfAwayFromZero(t *testing.T) {
	lines := []*invoices.Line{{Description: "Trim", Quantity: 1.5, UnitPrice: 333, Taxable: true}}

	totals := invoices.ComputeTotals(lines, 0, 1000)

	if lines[0].Amount != 500 {
		t.Fatalf("expected 499.5 to round to 500, got %d", lines[0].Amount)
	}
	if totals.TaxTotal != 50 || totals.Total != 550 {
		t.Fatalf("unexpected totals %+v", totals)
	}
}

func TestComputeTotalsIgnoresNegativeDiscount(t *testing.T) {
	lines := []*invoices.Line{{Description: "Concrete", Quantity: 1, UnitPrice: 10000}}

	totals := invoices.ComputeTotals(lines, -50, 0)

	if totals.Discount != 0 || totals.Total != 10000 {
		t.Fatalf("unexpected totals %+v", totals)
	}
}

func TestFormatNumber(t *testing.T) {
	cases := map[string]string{
		invoices.FormatNumber("acme", 2024, 7):   "ACME-2024-0007",
		invoices.FormatNumber("", 2025, 1):       "INV-2025-0001",
		invoices.FormatNumber("INV", 2024, 12345): "INV-2024-12345",
	}
	for got, want := range cases {
		if got != want {
			t.Fatalf("expected %s, got %s", want, got)
		}
	}
}
