package catalog

// errors.go defines the error taxonomy for the import pipeline.
//
// Two classes of failure exist and are handled differently:
//
//   - Run-fatal errors (fetch, archive, missing exchange rate, loader
//     invariant violations) abort the run and mark the ImportJob FAILED.
//   - Per-row errors (field-count mismatch, missing item id, unavailable
//     markup) are recovered locally: the row is skipped or persisted with
//     null pricing, counted, and the run continues.
//
// Nothing in the core retries; retry policy belongs to whatever scheduler
// invokes a run.

import (
	"errors"
	"fmt"
)

// Run-fatal sentinel errors.
var (
	// ErrFetchTimeout is returned when the feed request exceeds its deadline.
	ErrFetchTimeout = errors.New("feed fetch timed out")

	// ErrArchiveCorrupt is returned when the feed payload cannot be opened
	// as an archive or contains zero entries.
	ErrArchiveCorrupt = errors.New("feed archive corrupt or empty")

	// ErrNoDataFile is returned when the archive holds no entry with the
	// expected data-file extension.
	ErrNoDataFile = errors.New("no data file in feed archive")

	// ErrNoExchangeRate is returned when no current rate (valid_until IS NULL)
	// exists for the requested currency pair. Checked once per run, before
	// any row is processed.
	ErrNoExchangeRate = errors.New("no current exchange rate for currency pair")

	// ErrRunActive is returned when a run is requested for a stone type that
	// already has one in progress. The request fails immediately; it is
	// never queued.
	ErrRunActive = errors.New("an import for this type is already in progress")
)

// FetchError is returned for network failures and non-2xx feed responses.
// Body holds at most an excerpt of the response body.
type FetchError struct {
	Status int
	Body   string
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("feed fetch failed: %v", e.Err)
	}
	return fmt.Sprintf("feed fetch failed: status %d: %s", e.Status, e.Body)
}

func (e *FetchError) Unwrap() error { return e.Err }

// InvariantError is a loader invariant violation: the flattened parameter
// count does not match rows x fieldsPerRow. It indicates a programming
// defect (row builder drifted from the column list), not bad data, and is
// always run-fatal.
type InvariantError struct {
	Rows         int
	FieldsPerRow int
	Params       int
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("loader invariant violation: %d params for %d rows x %d fields (want %d)",
		e.Params, e.Rows, e.FieldsPerRow, e.Rows*e.FieldsPerRow)
}

// RowError is a non-fatal per-row problem. The row is counted as skipped and
// the run continues.
type RowError struct {
	Line   int
	Reason string
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Line, e.Reason)
}
