package catalog

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseStoneType(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    StoneType
		wantErr bool
	}{
		{name: "natural", input: "natural", want: TypeNatural},
		{name: "lab", input: "lab", want: TypeLab},
		{name: "case folded", input: "Natural", want: TypeNatural},
		{name: "trimmed", input: " lab ", want: TypeLab},
		{name: "empty", input: "", wantErr: true},
		{name: "unknown", input: "moissanite", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStoneType(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseStoneType(%q) succeeded, want error", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseStoneType(%q) error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseStoneType(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestJobStatusTerminal(t *testing.T) {
	terminal := map[JobStatus]bool{
		JobPending:    false,
		JobInProgress: false,
		JobCompleted:  true,
		JobFailed:     true,
	}
	for status, want := range terminal {
		if got := status.Terminal(); got != want {
			t.Errorf("%s.Terminal() = %v, want %v", status, got, want)
		}
	}
}

func TestCountsAdd(t *testing.T) {
	c := Counts{Created: 1, Updated: 2, Skipped: 3}
	c.Add(Counts{Created: 10, Updated: 20, Skipped: 30})

	if c.Created != 11 || c.Updated != 22 || c.Skipped != 33 {
		t.Errorf("Add() = %+v", c)
	}
}

func TestMarkupIntervalContains(t *testing.T) {
	iv := MarkupInterval{
		MinCarat: decimal.RequireFromString("1"),
		MaxCarat: decimal.RequireFromString("2"),
	}

	tests := []struct {
		name  string
		carat string
		last  bool
		want  bool
	}{
		{name: "below lower bound", carat: "0.99", want: false},
		{name: "lower bound inclusive", carat: "1", want: true},
		{name: "interior", carat: "1.5", want: true},
		{name: "upper bound exclusive", carat: "2", want: false},
		{name: "upper bound inclusive when last", carat: "2", last: true, want: true},
		{name: "above upper bound even when last", carat: "2.01", last: true, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := iv.Contains(decimal.RequireFromString(tt.carat), tt.last)
			if got != tt.want {
				t.Errorf("Contains(%s, last=%v) = %v, want %v", tt.carat, tt.last, got, tt.want)
			}
		})
	}
}
