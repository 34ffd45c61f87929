// Package catalog defines the domain model for the gemstone feed import
// pipeline: the raw feed record, the persisted priced catalog entry, the
// pricing reference data (exchange rates and markup intervals), and the
// import job that tracks one run of the pipeline.
//
// All optional numerics use decimal.NullDecimal so that "absent" and "zero"
// are never conflated. Feed vendors routinely ship partial rows; a stone with
// no price must stay visible with a null price, not vanish or show 0.
package catalog

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StoneType distinguishes independently priced product families.
// Each type has its own markup intervals and its own import runs.
type StoneType string

const (
	TypeNatural StoneType = "natural"
	TypeLab     StoneType = "lab"
)

// ParseStoneType validates a user-supplied type string.
func ParseStoneType(s string) (StoneType, error) {
	switch t := StoneType(strings.ToLower(strings.TrimSpace(s))); t {
	case TypeNatural, TypeLab:
		return t, nil
	default:
		return "", fmt.Errorf("unknown stone type %q", s)
	}
}

// FeedRecord is one parsed row of the supplier feed, keyed by the
// supplier-assigned ItemID. It is built once per row by the normalizer,
// never mutated, and discarded after pricing.
type FeedRecord struct {
	ItemID string

	// Physical and grading attributes.
	Shape           string
	Carat           decimal.NullDecimal
	Color           string
	Clarity         string
	Cut             string
	Polish          string
	Symmetry        string
	Fluorescence    string
	Lab             string
	CertificateNum  string
	Length          decimal.NullDecimal
	Width           decimal.NullDecimal
	Depth           decimal.NullDecimal
	DepthPercent    decimal.NullDecimal
	TablePercent    decimal.NullDecimal
	Girdle          string
	Culet           string
	FancyColor      string
	FancyIntensity  string
	FancyOvertone   string
	ImageURL        string
	VideoURL        string
	CertificateURL  string
	Country         string
	Availability    string

	// Raw pricing in the source currency.
	PricePerCarat  decimal.NullDecimal
	TotalPrice     decimal.NullDecimal
	PercentOffList decimal.NullDecimal

	// Matched-pair fields, present only for stones sold as pairs.
	PairStock         string
	PairPrice         decimal.NullDecimal
	PairPricePerCarat decimal.NullDecimal
}

// CatalogEntry is the persisted, priced representation of one feed record.
// One logical entry per ItemID survives across runs; the loader upserts.
type CatalogEntry struct {
	FeedRecord

	// Derived pricing in the target currency. All three are null when the
	// pricing inputs (carat, price, rate, or interval) were unavailable.
	TotalPriceConverted decimal.NullDecimal
	PriceWithMarkup     decimal.NullDecimal
	FinalPrice          decimal.NullDecimal

	Type        StoneType
	ImportJobID uuid.UUID
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// MarkupInterval maps a carat range to a price multiplier for one stone type.
// For a given type the intervals are sorted by MinCarat and must cover
// [0, max] with no gaps and no overlaps under the boundary rule implemented
// by pricing.Table: lower bound inclusive, upper bound exclusive except for
// the interval with the greatest MaxCarat.
type MarkupInterval struct {
	ID         int64
	Type       StoneType
	MinCarat   decimal.Decimal
	MaxCarat   decimal.Decimal
	Multiplier decimal.Decimal
}

// Contains reports whether carat falls inside the interval under the stated
// boundary rule. last marks the interval with the greatest MaxCarat, whose
// upper bound is inclusive.
func (m MarkupInterval) Contains(carat decimal.Decimal, last bool) bool {
	if carat.LessThan(m.MinCarat) {
		return false
	}
	if last {
		return carat.LessThanOrEqual(m.MaxCarat)
	}
	return carat.LessThan(m.MaxCarat)
}

// ExchangeRate is one conversion rate between two currencies. The row with
// ValidUntil == nil is the current rate for its pair; at most one such row
// exists per pair at any time.
type ExchangeRate struct {
	ID           int64
	FromCurrency string
	ToCurrency   string
	Rate         decimal.Decimal
	ValidFrom    time.Time
	ValidUntil   *time.Time
}

// JobStatus is the finite lifecycle state of an import job.
type JobStatus string

const (
	JobPending    JobStatus = "PENDING"
	JobInProgress JobStatus = "IN_PROGRESS"
	JobCompleted  JobStatus = "COMPLETED"
	JobFailed     JobStatus = "FAILED"
)

// Terminal reports whether the status admits no further transitions.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// ImportJob tracks one run of the pipeline for one stone type.
// Created PENDING before any network call, moved to IN_PROGRESS immediately
// before the fetch, and finished in COMPLETED or FAILED. Once terminal it is
// never mutated again.
type ImportJob struct {
	ID          uuid.UUID
	Type        StoneType
	Status      JobStatus
	StartedAt   time.Time
	CompletedAt *time.Time

	TotalRecords     int
	ProcessedRecords int
	CreatedRecords   int
	UpdatedRecords   int
	SkippedRecords   int

	ErrorMessage *string
}

// Counts is the per-batch tally reported by the loader and aggregated into
// the ImportJob. Created + Updated + Skipped equals the number of candidates
// handed to the loader.
type Counts struct {
	Created int
	Updated int
	Skipped int
}

// Add accumulates another tally into c.
func (c *Counts) Add(o Counts) {
	c.Created += o.Created
	c.Updated += o.Updated
	c.Skipped += o.Skipped
}
