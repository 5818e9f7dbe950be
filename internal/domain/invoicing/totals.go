package invoicing

import (
	"github.com/shopspring/decimal"
)

// DefaultTaxRate is the standard VAT rate applied to taxable codes
var DefaultTaxRate = decimal.NewFromFloat(0.14)

// DefaultTaxableCodes are the ledger tax types that attract DefaultTaxRate.
// Codes 6 and 7 (zero-rated, exempt) and unknown codes attract 0%.
var DefaultTaxableCodes = []int64{1, 2, 3, 4, 5}

// TaxPolicy maps a line's tax code to a rate
type TaxPolicy struct {
	rate    decimal.Decimal
	taxable map[int64]struct{}
}

// NewTaxPolicy creates a policy charging rate on the given codes
func NewTaxPolicy(rate decimal.Decimal, taxableCodes []int64) TaxPolicy {
	taxable := make(map[int64]struct{}, len(taxableCodes))
	for _, c := range taxableCodes {
		taxable[c] = struct{}{}
	}
	return TaxPolicy{rate: rate, taxable: taxable}
}

// DefaultTaxPolicy returns the 14% policy on codes 1-5
func DefaultTaxPolicy() TaxPolicy {
	return NewTaxPolicy(DefaultTaxRate, DefaultTaxableCodes)
}

// RateFor returns the rate for a tax code
func (p TaxPolicy) RateFor(code Code) decimal.Decimal {
	if _, ok := p.taxable[int64(code)]; ok {
		return p.rate
	}
	return decimal.Zero
}

// Totals are the computed amounts of an invoice, each rounded to 2 dp
type Totals struct {
	TaxExclusive decimal.Decimal `json:"totalTaxExclusive"`
	Tax          decimal.Decimal `json:"totalTax"`
	TaxInclusive decimal.Decimal `json:"totalTaxInclusive"`
}

// CalculateTotals sums quantity x unit price and applies the policy per line.
// The three results are rounded independently from their unrounded sums, so
// TaxInclusive may differ by a cent from TaxExclusive + Tax after rounding.
func CalculateTotals(lines []LineItem, policy TaxPolicy) Totals {
	exclusive := decimal.Zero
	tax := decimal.Zero

	for _, line := range lines {
		lineTotal := line.Quantity.Decimal.Mul(line.UnitPrice.Decimal)
		exclusive = exclusive.Add(lineTotal)
		tax = tax.Add(lineTotal.Mul(policy.RateFor(line.TaxCode)))
	}

	return Totals{
		TaxExclusive: exclusive.Round(2),
		Tax:          tax.Round(2),
		TaxInclusive: exclusive.Add(tax).Round(2),
	}
}
