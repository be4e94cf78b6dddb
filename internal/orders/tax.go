package orders

import "github.com/shopspring/decimal"

var (
	hundred    = decimal.NewFromInt(100)
	twoHundred = decimal.NewFromInt(200)
)

type TaxBreakdown struct {
	Taxable  decimal.Decimal
	CGST     decimal.Decimal
	SGST     decimal.Decimal
	TaxTotal decimal.Decimal
	Total    decimal.Decimal
}

// ComputeTax splits ratePercent of (subtotal - discount) into two halves,
// each rounded to 2 dp on its own. TaxTotal is the sum of the rounded halves.
func ComputeTax(subtotal, discount, ratePercent decimal.Decimal) TaxBreakdown {
	taxable := subtotal.Sub(discount)
	if taxable.IsNegative() {
		taxable = decimal.Zero
	}
	half := taxable.Mul(ratePercent).Div(twoHundred).Round(2)
	cgst, sgst := half, half
	tax := cgst.Add(sgst)
	return TaxBreakdown{
		Taxable:  taxable,
		CGST:     cgst,
		SGST:     sgst,
		TaxTotal: tax,
		Total:    taxable.Add(tax).Round(2),
	}
}
