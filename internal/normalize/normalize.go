// Package normalize coerces mapped feed rows into typed FeedRecords.
//
// Coercion is deliberately forgiving at the cell level and strict at the row
// level: an unparseable numeric cell becomes a null field (the row survives),
// but a row without a supplier item id is rejected outright. Rows missing
// carat or both price fields are kept — they fail pricing downstream and
// persist with null prices, which keeps partial feed quality visible instead
// of silently shrinking the catalog.
package normalize

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/stonelake/gemfeed/internal/catalog"
	"github.com/stonelake/gemfeed/internal/mapper"
)

// numericRegex validates a cleaned cell before handing it to the decimal
// parser. Matches integers, decimals, and scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// Row builds a FeedRecord from one data row using the positional field
// mapping produced by the mapper.
//
// A *catalog.RowError is returned when the row's field count does not match
// the header or when itemId is missing; both are per-row failures the caller
// counts as skipped.
func Row(row []string, fields []mapper.Field, line int) (catalog.FeedRecord, error) {
	var rec catalog.FeedRecord

	if len(row) != len(fields) {
		return rec, &catalog.RowError{
			Line:   line,
			Reason: "field count mismatch against header",
		}
	}

	for i, raw := range row {
		cell := strings.TrimSpace(raw)
		if cell == "" {
			continue
		}
		apply(&rec, fields[i], cell)
	}

	if rec.ItemID == "" {
		return rec, &catalog.RowError{Line: line, Reason: "missing item id"}
	}

	return rec, nil
}

// apply writes one cell into the record field named by f. Unknown canonical
// names (fallback-derived columns for new vendor fields) are ignored until a
// field is added for them.
func apply(rec *catalog.FeedRecord, f mapper.Field, cell string) {
	switch f {
	case mapper.FieldItemID:
		rec.ItemID = cell
	case mapper.FieldShape:
		rec.Shape = cell
	case mapper.FieldCarat:
		rec.Carat = Numeric(cell)
	case mapper.FieldColor:
		rec.Color = cell
	case mapper.FieldClarity:
		rec.Clarity = cell
	case mapper.FieldCut:
		rec.Cut = cell
	case mapper.FieldPolish:
		rec.Polish = cell
	case mapper.FieldSymmetry:
		rec.Symmetry = cell
	case mapper.FieldFluorescence:
		rec.Fluorescence = cell
	case mapper.FieldLab:
		rec.Lab = cell
	case mapper.FieldCertificateNum:
		rec.CertificateNum = cell
	case mapper.FieldLength:
		rec.Length = Numeric(cell)
	case mapper.FieldWidth:
		rec.Width = Numeric(cell)
	case mapper.FieldDepth:
		rec.Depth = Numeric(cell)
	case mapper.FieldDepthPercent:
		rec.DepthPercent = Numeric(cell)
	case mapper.FieldTablePercent:
		rec.TablePercent = Numeric(cell)
	case mapper.FieldGirdle:
		rec.Girdle = cell
	case mapper.FieldCulet:
		rec.Culet = cell
	case mapper.FieldFancyColor:
		rec.FancyColor = cell
	case mapper.FieldFancyIntensity:
		rec.FancyIntensity = cell
	case mapper.FieldFancyOvertone:
		rec.FancyOvertone = cell
	case mapper.FieldImageURL:
		rec.ImageURL = cell
	case mapper.FieldVideoURL:
		rec.VideoURL = cell
	case mapper.FieldCertificateURL:
		rec.CertificateURL = cell
	case mapper.FieldCountry:
		rec.Country = cell
	case mapper.FieldAvailability:
		rec.Availability = cell
	case mapper.FieldPricePerCarat:
		rec.PricePerCarat = Numeric(cell)
	case mapper.FieldTotalPrice:
		rec.TotalPrice = Numeric(cell)
	case mapper.FieldPercentOffList:
		rec.PercentOffList = Numeric(cell)
	case mapper.FieldPairStock:
		rec.PairStock = cell
	case mapper.FieldPairPrice:
		rec.PairPrice = Numeric(cell)
	case mapper.FieldPairPricePerCarat:
		rec.PairPricePerCarat = Numeric(cell)
	}
}

// Numeric parses a feed cell into a nullable decimal. It tolerates currency
// symbols, thousands separators, and accounting-style negatives ("(12.50)"),
// and returns an invalid NullDecimal for anything unparseable. Absent and
// zero stay distinct: "" is null, "0" is zero.
func Numeric(s string) decimal.NullDecimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.NullDecimal{}
	}

	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, "€", "")
	s = strings.ReplaceAll(s, "£", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	if neg {
		s = "-" + s
	}

	if !numericRegex.MatchString(s) {
		return decimal.NullDecimal{}
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}
	}

	return decimal.NullDecimal{Decimal: d, Valid: true}
}
