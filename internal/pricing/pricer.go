package pricing

// pricer.go applies a run's pricing snapshot to normalized records.

import (
	"github.com/shopspring/decimal"

	"github.com/stonelake/gemfeed/internal/catalog"
)

// Pricer prices FeedRecords against one run's immutable snapshot of the
// current exchange rate and the markup table for the run's stone type.
type Pricer struct {
	rate  decimal.Decimal
	table *Table
	unit  decimal.Decimal
}

// NewPricer builds a Pricer. unit is the display rounding granularity in
// minor currency units (100 rounds to even hundreds).
func NewPricer(rate catalog.ExchangeRate, table *Table, unit int64) *Pricer {
	return &Pricer{
		rate:  rate.Rate,
		table: table,
		unit:  decimal.NewFromInt(unit),
	}
}

// Result carries the three derived pricing values for one record. All three
// are null when any pricing input was unavailable.
type Result struct {
	Converted decimal.NullDecimal
	Marked    decimal.NullDecimal
	Final     decimal.NullDecimal
}

// Price derives the converted, marked-up, and rounded prices for rec.
//
// The effective source price is totalPrice when present, otherwise
// pricePerCarat x carat when both are present. A price is only a price when
// it is positive: zero and negative values (the feed ships accounting
// negatives for credits) are pricing-unavailable, same as absent. An
// unavailable price, a missing carat, or a non-positive multiplier (no
// matching interval) makes the result null; the record still persists,
// visibly unpriced. A non-null Final is therefore always a non-negative
// multiple of the rounding unit.
func (p *Pricer) Price(rec catalog.FeedRecord) Result {
	total, ok := effectivePrice(rec)
	if !ok || total.Sign() <= 0 {
		return Result{}
	}

	converted := total.Mul(p.rate)
	res := Result{
		Converted: decimal.NullDecimal{Decimal: converted, Valid: true},
	}

	if !rec.Carat.Valid {
		return res
	}
	mult := p.table.Multiplier(rec.Carat.Decimal)
	if mult.Sign() <= 0 {
		return res
	}

	marked := converted.Mul(mult)
	final := marked.Div(p.unit).Round(0).Mul(p.unit)

	res.Marked = decimal.NullDecimal{Decimal: marked, Valid: true}
	res.Final = decimal.NullDecimal{Decimal: final, Valid: true}
	return res
}

// effectivePrice resolves the record's source-currency total price.
func effectivePrice(rec catalog.FeedRecord) (decimal.Decimal, bool) {
	if rec.TotalPrice.Valid {
		return rec.TotalPrice.Decimal, true
	}
	if rec.PricePerCarat.Valid && rec.Carat.Valid {
		return rec.PricePerCarat.Decimal.Mul(rec.Carat.Decimal), true
	}
	return decimal.Decimal{}, false
}
