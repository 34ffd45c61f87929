// Package pricing converts source-currency feed prices into priced catalog
// values: exchange-rate conversion, carat-interval markup, and rounding to
// the store's display granularity.
//
// Rates and intervals are loaded once per run into an immutable snapshot, so
// every entry produced by a run is priced consistently even if an admin
// edits the tables mid-run.
package pricing

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/stonelake/gemfeed/internal/catalog"
)

// Table answers carat-to-multiplier lookups for one stone type.
//
// Boundary rule: every interval's lower bound is inclusive; the upper bound
// is exclusive except for the interval with the greatest maxCarat, which is
// inclusive. Administrators must enter boundaries that form a covering
// partition under this rule; the table performs no gap repair. A carat value
// falling into a gap yields a zero multiplier, which callers must treat as
// "pricing unavailable", never as a literal zero price.
type Table struct {
	intervals []catalog.MarkupInterval
}

// NewTable builds a lookup table from a type's intervals, sorting them by
// MinCarat. The slice is copied; the snapshot must not alias admin data.
func NewTable(intervals []catalog.MarkupInterval) *Table {
	sorted := make([]catalog.MarkupInterval, len(intervals))
	copy(sorted, intervals)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].MinCarat.LessThan(sorted[j].MinCarat)
	})
	return &Table{intervals: sorted}
}

// Multiplier returns the multiplier of the unique interval containing carat,
// or zero when no interval matches (carat outside all intervals, inside a
// configuration gap, or not positive).
func (t *Table) Multiplier(carat decimal.Decimal) decimal.Decimal {
	if len(t.intervals) == 0 || carat.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}

	last := len(t.intervals) - 1
	for i, iv := range t.intervals {
		if iv.Contains(carat, i == last) {
			return iv.Multiplier
		}
	}
	return decimal.Zero
}

// MaxCarat returns the upper bound of the last interval, the top of the
// covered range. Zero when the table is empty.
func (t *Table) MaxCarat() decimal.Decimal {
	if len(t.intervals) == 0 {
		return decimal.Zero
	}
	return t.intervals[len(t.intervals)-1].MaxCarat
}

// Validate reports configuration defects under the boundary rule: overlaps,
// and gaps where a non-terminal interval's exclusive upper bound is not met
// by the next interval's inclusive lower bound. Defects are an operational
// concern — runs proceed and affected carats price to null — but they are
// surfaced here so monitoring can flag them.
func (t *Table) Validate() []string {
	var problems []string

	for i := 0; i < len(t.intervals)-1; i++ {
		cur, next := t.intervals[i], t.intervals[i+1]
		switch {
		case next.MinCarat.LessThan(cur.MaxCarat):
			problems = append(problems, fmt.Sprintf(
				"intervals [%s,%s) and [%s,%s) overlap",
				cur.MinCarat, cur.MaxCarat, next.MinCarat, next.MaxCarat))
		case next.MinCarat.GreaterThan(cur.MaxCarat):
			problems = append(problems, fmt.Sprintf(
				"gap between %s and %s: carats in between price to null",
				cur.MaxCarat, next.MinCarat))
		}
	}

	for _, iv := range t.intervals {
		if iv.MaxCarat.LessThanOrEqual(iv.MinCarat) {
			problems = append(problems, fmt.Sprintf(
				"interval [%s,%s) is empty or inverted", iv.MinCarat, iv.MaxCarat))
		}
	}

	return problems
}
