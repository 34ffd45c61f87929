// Package importer owns the import run lifecycle: it sequences fetch,
// extraction, parsing, normalization, pricing, and loading for one stone
// type, and tracks the run's progress and outcome in the job store.
//
// State machine: PENDING -> IN_PROGRESS -> {COMPLETED | FAILED}. The PENDING
// row is persisted before any network call so a crashed process still leaves
// a visible record. Per-row problems are counted and skipped; run-level
// failures mark the job FAILED with the error captured, and completed_at is
// set either way.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/stonelake/gemfeed/internal/catalog"
	"github.com/stonelake/gemfeed/internal/config"
	"github.com/stonelake/gemfeed/internal/feed"
	"github.com/stonelake/gemfeed/internal/logging"
	"github.com/stonelake/gemfeed/internal/mapper"
	"github.com/stonelake/gemfeed/internal/normalize"
	"github.com/stonelake/gemfeed/internal/observability"
	"github.com/stonelake/gemfeed/internal/pricing"
)

// JobStore is the persistence surface the runner needs: job lifecycle plus
// the run's pricing reference data.
type JobStore interface {
	CreateJob(ctx context.Context, job *catalog.ImportJob) error
	MarkJobInProgress(ctx context.Context, id uuid.UUID) error
	CompleteJob(ctx context.Context, job *catalog.ImportJob) error
	FailJob(ctx context.Context, job *catalog.ImportJob, cause error) error
	HasActiveJob(ctx context.Context, t catalog.StoneType) (bool, error)
	CurrentRate(ctx context.Context, from, to string) (catalog.ExchangeRate, error)
	MarkupIntervals(ctx context.Context, t catalog.StoneType) ([]catalog.MarkupInterval, error)
}

// Fetcher retrieves the compressed feed dump for one stone type.
type Fetcher interface {
	Fetch(ctx context.Context, t catalog.StoneType) ([]byte, int64, error)
}

// Loader persists batches of priced entries.
type Loader interface {
	Load(ctx context.Context, entries []catalog.CatalogEntry) (catalog.Counts, error)
}

// Runner executes import runs.
type Runner struct {
	store   JobStore
	fetcher Fetcher
	loader  Loader
	cfg     config.ImportConfig
	locks   *runLock
}

// New creates a Runner.
func New(store JobStore, fetcher Fetcher, loader Loader, cfg config.ImportConfig) *Runner {
	return &Runner{
		store:   store,
		fetcher: fetcher,
		loader:  loader,
		cfg:     cfg,
		locks:   newRunLock(),
	}
}

// ActiveTypes returns the stone types with a run in flight in this process,
// for the health endpoint.
func (r *Runner) ActiveTypes() []string {
	return r.locks.ActiveTypes()
}

// Run executes one import for the given stone type and returns the terminal
// job. A run already active for the same type — in this process or recorded
// in the job store — fails immediately with catalog.ErrRunActive; it is
// never queued.
func (r *Runner) Run(ctx context.Context, t catalog.StoneType) (catalog.ImportJob, error) {
	job, err := r.begin(ctx, t)
	if err != nil {
		return catalog.ImportJob{}, err
	}
	defer r.locks.Release(string(t))

	return r.finish(ctx, job)
}

// Start begins an import and returns its PENDING job immediately; the
// pipeline continues in the background with its own context. Used by the
// trigger endpoint, where the request context dies with the response.
func (r *Runner) Start(ctx context.Context, t catalog.StoneType) (catalog.ImportJob, error) {
	job, err := r.begin(ctx, t)
	if err != nil {
		return catalog.ImportJob{}, err
	}

	go func() {
		defer r.locks.Release(string(t))
		_, _ = r.finish(context.Background(), job)
	}()

	return *job, nil
}

// begin claims the per-type slot and persists the PENDING job. On success
// the caller owns the lock for string(t).
func (r *Runner) begin(ctx context.Context, t catalog.StoneType) (*catalog.ImportJob, error) {
	if !r.locks.TryAcquire(string(t)) {
		return nil, fmt.Errorf("%w: %s", catalog.ErrRunActive, t)
	}

	ok := false
	defer func() {
		if !ok {
			r.locks.Release(string(t))
		}
	}()

	active, err := r.store.HasActiveJob(ctx, t)
	if err != nil {
		return nil, err
	}
	if active {
		return nil, fmt.Errorf("%w: %s", catalog.ErrRunActive, t)
	}

	job := &catalog.ImportJob{
		ID:        uuid.New(),
		Type:      t,
		Status:    catalog.JobPending,
		StartedAt: time.Now().UTC(),
	}
	if err := r.store.CreateJob(ctx, job); err != nil {
		return nil, err
	}

	ok = true
	return job, nil
}

// finish drives the pipeline for an already-created job and records its
// terminal state.
func (r *Runner) finish(ctx context.Context, job *catalog.ImportJob) (catalog.ImportJob, error) {
	t := job.Type
	log := logging.WithFields(ctx, "job_id", job.ID.String(), "type", string(t))
	log.Info("import run starting")

	runErr := r.execute(ctx, job, log)

	observability.RowsProcessed.WithLabelValues(string(t)).Add(float64(job.ProcessedRecords))
	observability.RowsSkipped.WithLabelValues(string(t)).Add(float64(job.SkippedRecords))
	observability.LastRunTimestamp.WithLabelValues(string(t)).SetToCurrentTime()

	if runErr != nil {
		log.Error("import run failed", "error", runErr)
		if failErr := r.store.FailJob(ctx, job, runErr); failErr != nil {
			log.Error("failed to record job failure", "error", failErr)
		}
		observability.JobsFinished.WithLabelValues(string(t), string(catalog.JobFailed)).Inc()
		return *job, runErr
	}

	if err := r.store.CompleteJob(ctx, job); err != nil {
		return *job, err
	}
	observability.JobsFinished.WithLabelValues(string(t), string(catalog.JobCompleted)).Inc()

	log.Info("import run completed",
		"total", job.TotalRecords,
		"processed", job.ProcessedRecords,
		"created", job.CreatedRecords,
		"updated", job.UpdatedRecords,
		"skipped", job.SkippedRecords,
	)
	return *job, nil
}

// execute performs the pipeline stages, mutating job tallies as it goes.
// Any returned error is run-fatal.
func (r *Runner) execute(ctx context.Context, job *catalog.ImportJob, log *slog.Logger) error {
	// Pricing preconditions come first: a missing rate must fail the run
	// before a single row is touched, and there is no point paying for a
	// feed download that cannot be priced.
	rate, err := r.store.CurrentRate(ctx, r.cfg.SourceCurrency, r.cfg.TargetCurrency)
	if err != nil {
		return err
	}

	intervals, err := r.store.MarkupIntervals(ctx, job.Type)
	if err != nil {
		return err
	}
	table := pricing.NewTable(intervals)
	for _, problem := range table.Validate() {
		log.Warn("markup configuration defect", "problem", problem)
	}

	pricer := pricing.NewPricer(rate, table, r.cfg.RoundingUnit)

	if err := r.store.MarkJobInProgress(ctx, job.ID); err != nil {
		return err
	}

	payload, size, err := r.fetcher.Fetch(ctx, job.Type)
	if err != nil {
		return err
	}
	log.Info("feed fetched", "bytes", size)

	text, err := feed.Extract(payload)
	if err != nil {
		return err
	}

	rows := feed.NewTable(text).Rows()

	header, _, err := rows.Next()
	if errors.Is(err, io.EOF) {
		log.Warn("feed contained no rows")
		return nil
	}
	if err != nil {
		return fmt.Errorf("parse header: %w", err)
	}
	fields := mapper.Map(header)

	batch := make([]catalog.CatalogEntry, 0, r.cfg.BatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		counts, err := r.loader.Load(ctx, batch)
		if err != nil {
			return err
		}
		job.CreatedRecords += counts.Created
		job.UpdatedRecords += counts.Updated
		job.SkippedRecords += counts.Skipped
		job.ProcessedRecords += counts.Created + counts.Updated + counts.Skipped
		batch = batch[:0]
		return nil
	}

	for {
		row, line, err := rows.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// The reader cannot recover its position after a structural
			// parse failure, so this is run-fatal rather than a row skip.
			return fmt.Errorf("parse row %d: %w", line, err)
		}

		if isEmptyRow(row) {
			continue
		}
		job.TotalRecords++

		rec, err := normalize.Row(row, fields, line)
		if err != nil {
			job.SkippedRecords++
			job.ProcessedRecords++
			log.Debug("row skipped", "error", err)
			continue
		}

		res := pricer.Price(rec)
		batch = append(batch, catalog.CatalogEntry{
			FeedRecord:          rec,
			TotalPriceConverted: res.Converted,
			PriceWithMarkup:     res.Marked,
			FinalPrice:          res.Final,
			Type:                job.Type,
			ImportJobID:         job.ID,
		})

		if len(batch) >= r.cfg.BatchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}

	return flush()
}

// isEmptyRow reports whether every cell is blank. Vendors pad exports with
// trailing blank lines; these are not records and are not counted.
func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
