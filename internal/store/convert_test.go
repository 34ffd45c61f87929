package store

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestNumericFromDecimal(t *testing.T) {
	tests := []struct {
		name      string
		input     decimal.NullDecimal
		wantValid bool
		wantValue string
	}{
		{
			name:      "null decimal becomes SQL NULL",
			input:     decimal.NullDecimal{},
			wantValid: false,
		},
		{
			name:      "zero survives as zero",
			input:     decimal.NullDecimal{Decimal: decimal.Zero, Valid: true},
			wantValid: true,
			wantValue: "0",
		},
		{
			name:      "decimal value round-trips",
			input:     decimal.NullDecimal{Decimal: decimal.RequireFromString("1234.56"), Valid: true},
			wantValid: true,
			wantValue: "1234.56",
		},
		{
			name:      "negative value",
			input:     decimal.NullDecimal{Decimal: decimal.RequireFromString("-0.01"), Valid: true},
			wantValid: true,
			wantValue: "-0.01",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := NumericFromDecimal(tt.input)
			if n.Valid != tt.wantValid {
				t.Fatalf("Valid = %v, want %v", n.Valid, tt.wantValid)
			}
			if !tt.wantValid {
				return
			}

			back, err := DecimalFromNumeric(n)
			if err != nil {
				t.Fatalf("DecimalFromNumeric error: %v", err)
			}
			if !back.Equal(decimal.RequireFromString(tt.wantValue)) {
				t.Errorf("round-trip = %s, want %s", back, tt.wantValue)
			}
		})
	}
}

func TestDecimalFromNumericNull(t *testing.T) {
	n := NumericFromDecimal(decimal.NullDecimal{})
	if _, err := DecimalFromNumeric(n); err == nil {
		t.Error("expected error converting a null numeric")
	}
}

func TestTextOrNull(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantValid bool
		want      string
	}{
		{name: "empty is null", input: "", wantValid: false},
		{name: "whitespace only is null", input: "   ", wantValid: false},
		{name: "value kept", input: "Round", wantValid: true, want: "Round"},
		{name: "value trimmed", input: "  VS1 ", wantValid: true, want: "VS1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TextOrNull(tt.input)
			if got.Valid != tt.wantValid {
				t.Fatalf("Valid = %v, want %v", got.Valid, tt.wantValid)
			}
			if tt.wantValid && got.String != tt.want {
				t.Errorf("String = %q, want %q", got.String, tt.want)
			}
		})
	}
}
