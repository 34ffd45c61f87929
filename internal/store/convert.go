package store

// convert.go bridges shopspring decimals and pgtype values at the database
// boundary. Domain code stays on decimal; only the store and loader touch
// pgtype.

import (
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// NumericFromDecimal converts a nullable decimal to pgtype.Numeric.
// Null decimals become SQL NULL.
func NumericFromDecimal(d decimal.NullDecimal) pgtype.Numeric {
	if !d.Valid {
		return pgtype.Numeric{}
	}

	var n pgtype.Numeric
	if err := n.Scan(d.Decimal.String()); err != nil {
		// Decimal's string form is always a valid numeric literal.
		return pgtype.Numeric{}
	}
	return n
}

// DecimalFromNumeric converts a non-null pgtype.Numeric to a decimal.
func DecimalFromNumeric(n pgtype.Numeric) (decimal.Decimal, error) {
	if !n.Valid {
		return decimal.Decimal{}, fmt.Errorf("numeric is null")
	}

	v, err := n.Value()
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("numeric value: %w", err)
	}

	s, ok := v.(string)
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("numeric value is %T, want string", v)
	}

	return decimal.NewFromString(strings.TrimSpace(s))
}

// TextOrNull converts a string to pgtype.Text, mapping empty to SQL NULL.
func TextOrNull(s string) pgtype.Text {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}
