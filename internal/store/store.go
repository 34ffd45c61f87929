// Package store is the persistence layer: import jobs, exchange rates,
// markup intervals, and catalog aggregate queries over PostgreSQL via pgx.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stonelake/gemfeed/internal/catalog"
	"github.com/stonelake/gemfeed/internal/config"
)

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Store bundles the queries the pipeline and the query API need.
type Store struct {
	db DBTX
}

// New creates a Store over a pool or transaction.
func New(db DBTX) *Store {
	return &Store{db: db}
}

// DB exposes the underlying connection for components that issue their own
// statements, like the batch loader.
func (s *Store) DB() DBTX {
	return s.db
}

// NewPool connects a pgx pool using the database configuration and verifies
// the connection.
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	return pool, nil
}

/* ----------------------------------------
	Import jobs
---------------------------------------- */

// ErrJobNotFound is returned by job lookups with no matching row.
var ErrJobNotFound = errors.New("import job not found")

// CreateJob persists a new PENDING job. Called before any network activity
// so a crashed run still leaves a visible record.
func (s *Store) CreateJob(ctx context.Context, job *catalog.ImportJob) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO import_jobs (id, type, status, started_at,
			total_records, processed_records, created_records, updated_records, skipped_records)
		VALUES ($1, $2, $3, $4, 0, 0, 0, 0, 0)
	`, job.ID, string(job.Type), string(job.Status), job.StartedAt)
	if err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

// MarkJobInProgress transitions a job to IN_PROGRESS.
func (s *Store) MarkJobInProgress(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE import_jobs SET status = $2 WHERE id = $1 AND status = $3
	`, id, string(catalog.JobInProgress), string(catalog.JobPending))
	if err != nil {
		return fmt.Errorf("mark job in progress: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("mark job in progress: %w", ErrJobNotFound)
	}
	return nil
}

// CompleteJob finishes a job as COMPLETED with its final tallies.
func (s *Store) CompleteJob(ctx context.Context, job *catalog.ImportJob) error {
	now := time.Now().UTC()
	job.Status = catalog.JobCompleted
	job.CompletedAt = &now

	_, err := s.db.Exec(ctx, `
		UPDATE import_jobs
		SET status = $2, completed_at = $3,
			total_records = $4, processed_records = $5,
			created_records = $6, updated_records = $7, skipped_records = $8
		WHERE id = $1
	`, job.ID, string(job.Status), now,
		job.TotalRecords, job.ProcessedRecords,
		job.CreatedRecords, job.UpdatedRecords, job.SkippedRecords)
	if err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	return nil
}

// FailJob finishes a job as FAILED, capturing the error message.
// completed_at is set regardless of outcome.
func (s *Store) FailJob(ctx context.Context, job *catalog.ImportJob, cause error) error {
	now := time.Now().UTC()
	msg := cause.Error()
	job.Status = catalog.JobFailed
	job.CompletedAt = &now
	job.ErrorMessage = &msg

	_, err := s.db.Exec(ctx, `
		UPDATE import_jobs
		SET status = $2, completed_at = $3, error_message = $4,
			total_records = $5, processed_records = $6,
			created_records = $7, updated_records = $8, skipped_records = $9
		WHERE id = $1
	`, job.ID, string(job.Status), now, msg,
		job.TotalRecords, job.ProcessedRecords,
		job.CreatedRecords, job.UpdatedRecords, job.SkippedRecords)
	if err != nil {
		return fmt.Errorf("fail job: %w", err)
	}
	return nil
}

const jobColumns = `id, type, status, started_at, completed_at,
	total_records, processed_records, created_records, updated_records, skipped_records,
	error_message`

// GetJob fetches a job by id.
func (s *Store) GetJob(ctx context.Context, id uuid.UUID) (catalog.ImportJob, error) {
	row := s.db.QueryRow(ctx, `SELECT `+jobColumns+` FROM import_jobs WHERE id = $1`, id)
	return scanJob(row)
}

// LatestJob fetches the most recently started job for a stone type.
func (s *Store) LatestJob(ctx context.Context, t catalog.StoneType) (catalog.ImportJob, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+jobColumns+` FROM import_jobs
		WHERE type = $1
		ORDER BY started_at DESC
		LIMIT 1
	`, string(t))
	return scanJob(row)
}

// pendingGrace bounds how long a PENDING job still counts as active. A
// healthy run moves to IN_PROGRESS within seconds of creation; a PENDING row
// older than this belongs to a process that died before its first transition
// and must not block the type forever.
const pendingGrace = 15 * time.Minute

// HasActiveJob reports whether an IN_PROGRESS job, or a recent PENDING job,
// exists for the stone type. Backs the per-type mutual exclusion check
// across processes.
func (s *Store) HasActiveJob(ctx context.Context, t catalog.StoneType) (bool, error) {
	var active bool
	err := s.db.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM import_jobs
			WHERE type = $1
			AND (status = $2 OR (status = $3 AND started_at > $4))
		)
	`, string(t), string(catalog.JobInProgress), string(catalog.JobPending),
		time.Now().UTC().Add(-pendingGrace)).Scan(&active)
	if err != nil {
		return false, fmt.Errorf("check active job: %w", err)
	}
	return active, nil
}

func scanJob(row pgx.Row) (catalog.ImportJob, error) {
	var job catalog.ImportJob
	var typ, status string
	var completedAt pgtype.Timestamptz
	var errMsg pgtype.Text

	err := row.Scan(&job.ID, &typ, &status, &job.StartedAt, &completedAt,
		&job.TotalRecords, &job.ProcessedRecords,
		&job.CreatedRecords, &job.UpdatedRecords, &job.SkippedRecords,
		&errMsg)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return job, ErrJobNotFound
		}
		return job, fmt.Errorf("scan job: %w", err)
	}

	job.Type = catalog.StoneType(typ)
	job.Status = catalog.JobStatus(status)
	if completedAt.Valid {
		t := completedAt.Time
		job.CompletedAt = &t
	}
	if errMsg.Valid {
		m := errMsg.String
		job.ErrorMessage = &m
	}
	return job, nil
}

/* ----------------------------------------
	Pricing reference data
---------------------------------------- */

// CurrentRate fetches the current exchange rate for a currency pair: the row
// with valid_until IS NULL, most recently valid first. Absence is the
// run-fatal catalog.ErrNoExchangeRate precondition.
func (s *Store) CurrentRate(ctx context.Context, from, to string) (catalog.ExchangeRate, error) {
	var rate catalog.ExchangeRate
	var rateNum pgtype.Numeric

	err := s.db.QueryRow(ctx, `
		SELECT id, from_currency, to_currency, rate, valid_from
		FROM exchange_rates
		WHERE from_currency = $1 AND to_currency = $2 AND valid_until IS NULL
		ORDER BY valid_from DESC
		LIMIT 1
	`, from, to).Scan(&rate.ID, &rate.FromCurrency, &rate.ToCurrency, &rateNum, &rate.ValidFrom)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return rate, fmt.Errorf("%w: %s->%s", catalog.ErrNoExchangeRate, from, to)
		}
		return rate, fmt.Errorf("current rate: %w", err)
	}

	rate.Rate, err = DecimalFromNumeric(rateNum)
	if err != nil {
		return rate, fmt.Errorf("current rate: %w", err)
	}
	return rate, nil
}

// MarkupIntervals fetches a stone type's intervals ordered by min_carat.
// The result is the run's immutable snapshot; callers must not share it
// with anything that mutates.
func (s *Store) MarkupIntervals(ctx context.Context, t catalog.StoneType) ([]catalog.MarkupInterval, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, type, min_carat, max_carat, multiplier
		FROM markup_intervals
		WHERE type = $1
		ORDER BY min_carat
	`, string(t))
	if err != nil {
		return nil, fmt.Errorf("markup intervals: %w", err)
	}
	defer rows.Close()

	var intervals []catalog.MarkupInterval
	for rows.Next() {
		var iv catalog.MarkupInterval
		var typ string
		var minN, maxN, multN pgtype.Numeric

		if err := rows.Scan(&iv.ID, &typ, &minN, &maxN, &multN); err != nil {
			return nil, fmt.Errorf("markup intervals: %w", err)
		}
		iv.Type = catalog.StoneType(typ)
		if iv.MinCarat, err = DecimalFromNumeric(minN); err != nil {
			return nil, fmt.Errorf("markup intervals: %w", err)
		}
		if iv.MaxCarat, err = DecimalFromNumeric(maxN); err != nil {
			return nil, fmt.Errorf("markup intervals: %w", err)
		}
		if iv.Multiplier, err = DecimalFromNumeric(multN); err != nil {
			return nil, fmt.Errorf("markup intervals: %w", err)
		}
		intervals = append(intervals, iv)
	}
	return intervals, rows.Err()
}

/* ----------------------------------------
	Catalog aggregates
---------------------------------------- */

// CatalogStats is the aggregate view consumed by external monitoring.
type CatalogStats struct {
	Type        catalog.StoneType `json:"type"`
	Total       int64             `json:"total"`
	Priced      int64             `json:"priced"`
	Unpriced    int64             `json:"unpriced"`
	LastUpdated *time.Time        `json:"lastUpdated,omitempty"`
}

// Stats aggregates entry counts for a stone type, distinguishing entries
// with a non-null final price from visibly unpriced ones.
func (s *Store) Stats(ctx context.Context, t catalog.StoneType) (CatalogStats, error) {
	stats := CatalogStats{Type: t}
	var lastUpdated pgtype.Timestamptz

	err := s.db.QueryRow(ctx, `
		SELECT COUNT(*),
			COUNT(final_price),
			MAX(updated_at)
		FROM catalog_entries
		WHERE type = $1
	`, string(t)).Scan(&stats.Total, &stats.Priced, &lastUpdated)
	if err != nil {
		return stats, fmt.Errorf("catalog stats: %w", err)
	}

	stats.Unpriced = stats.Total - stats.Priced
	if lastUpdated.Valid {
		u := lastUpdated.Time
		stats.LastUpdated = &u
	}
	return stats, nil
}
