// Package loader persists priced catalog entries with batched upserts keyed
// by the supplier item id: insert when absent, otherwise update every field
// and updated_at while preserving the original created_at.
//
// Each batch is one multi-row INSERT ... ON CONFLICT with a fixed field
// count per row. Before any write the loader asserts that the flattened
// parameter count equals rows x fieldsPerRow; a mismatch means the row
// builder drifted from the column list and aborts the run as a
// *catalog.InvariantError rather than loading shifted data.
package loader

import (
	"context"
	"fmt"
	"strings"

	"github.com/stonelake/gemfeed/internal/catalog"
	"github.com/stonelake/gemfeed/internal/store"
)

// DefaultBatchSize bounds entries per upsert statement when the config
// leaves it unset.
const DefaultBatchSize = 500

// columns lists the catalog_entries columns written per row, in the order
// entryArgs produces values. entryArgs must stay in lockstep with this list;
// the arity assertion exists to catch it when it does not.
var columns = []string{
	"item_id",
	"type",
	"import_job_id",
	"shape",
	"carat",
	"color",
	"clarity",
	"cut",
	"polish",
	"symmetry",
	"fluorescence",
	"lab",
	"certificate_number",
	"length_mm",
	"width_mm",
	"depth_mm",
	"depth_percent",
	"table_percent",
	"girdle",
	"culet",
	"fancy_color",
	"fancy_intensity",
	"fancy_overtone",
	"image_url",
	"video_url",
	"certificate_url",
	"country",
	"availability",
	"price_per_carat",
	"total_price",
	"percent_off_list",
	"pair_stock",
	"pair_price",
	"pair_price_per_carat",
	"total_price_converted",
	"price_with_markup",
	"final_price",
}

// Loader writes priced entries to the catalog store.
type Loader struct {
	db        store.DBTX
	batchSize int
}

// New creates a Loader issuing batches of at most batchSize rows.
func New(db store.DBTX, batchSize int) *Loader {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Loader{db: db, batchSize: batchSize}
}

// Load upserts all entries in batches and returns the aggregated tally.
// Entries without an item id are skipped (a defensive re-check; the
// normalizer already rejects such rows). Created+Updated+Skipped equals
// len(entries).
func (l *Loader) Load(ctx context.Context, entries []catalog.CatalogEntry) (catalog.Counts, error) {
	var counts catalog.Counts

	valid := make([]catalog.CatalogEntry, 0, len(entries))
	for _, e := range entries {
		if strings.TrimSpace(e.ItemID) == "" {
			counts.Skipped++
			continue
		}
		valid = append(valid, e)
	}

	for start := 0; start < len(valid); start += l.batchSize {
		end := start + l.batchSize
		if end > len(valid) {
			end = len(valid)
		}

		batchCounts, err := l.upsertBatch(ctx, valid[start:end])
		if err != nil {
			return counts, err
		}
		counts.Add(batchCounts)
	}

	return counts, nil
}

// upsertBatch issues one multi-row upsert and counts creations vs updates
// via RETURNING (xmax = 0): a zero xmax marks a freshly inserted row.
func (l *Loader) upsertBatch(ctx context.Context, batch []catalog.CatalogEntry) (catalog.Counts, error) {
	var counts catalog.Counts

	sql, args, err := buildUpsert(batch)
	if err != nil {
		return counts, err
	}

	rows, err := l.db.Query(ctx, sql, args...)
	if err != nil {
		return counts, fmt.Errorf("upsert batch of %d: %w", len(batch), err)
	}
	defer rows.Close()

	for rows.Next() {
		var created bool
		if err := rows.Scan(&created); err != nil {
			return counts, fmt.Errorf("scan upsert result: %w", err)
		}
		if created {
			counts.Created++
		} else {
			counts.Updated++
		}
	}

	return counts, rows.Err()
}

// buildUpsert renders the statement and flattened parameters for one batch,
// asserting the arity invariant before anything reaches the database.
func buildUpsert(batch []catalog.CatalogEntry) (string, []any, error) {
	fields := len(columns)
	args := make([]any, 0, len(batch)*fields)

	var values strings.Builder
	for i, e := range batch {
		if i > 0 {
			values.WriteString(", ")
		}
		values.WriteString("(")
		for j := 0; j < fields; j++ {
			if j > 0 {
				values.WriteString(", ")
			}
			fmt.Fprintf(&values, "$%d", i*fields+j+1)
		}
		values.WriteString(", now(), now())")

		args = append(args, entryArgs(e)...)
	}

	if len(args) != len(batch)*fields {
		return "", nil, &catalog.InvariantError{
			Rows:         len(batch),
			FieldsPerRow: fields,
			Params:       len(args),
		}
	}

	var updates strings.Builder
	for _, col := range columns[1:] { // item_id is the conflict key
		fmt.Fprintf(&updates, "%s = EXCLUDED.%s, ", col, col)
	}
	updates.WriteString("updated_at = now()")

	sql := fmt.Sprintf(`
		INSERT INTO catalog_entries (%s, created_at, updated_at)
		VALUES %s
		ON CONFLICT (item_id) DO UPDATE SET %s
		RETURNING (xmax = 0) AS created
	`, strings.Join(columns, ", "), values.String(), updates.String())

	return sql, args, nil
}

// entryArgs flattens one entry into parameter values matching columns.
func entryArgs(e catalog.CatalogEntry) []any {
	return []any{
		e.ItemID,
		string(e.Type),
		e.ImportJobID,
		store.TextOrNull(e.Shape),
		store.NumericFromDecimal(e.Carat),
		store.TextOrNull(e.Color),
		store.TextOrNull(e.Clarity),
		store.TextOrNull(e.Cut),
		store.TextOrNull(e.Polish),
		store.TextOrNull(e.Symmetry),
		store.TextOrNull(e.Fluorescence),
		store.TextOrNull(e.Lab),
		store.TextOrNull(e.CertificateNum),
		store.NumericFromDecimal(e.Length),
		store.NumericFromDecimal(e.Width),
		store.NumericFromDecimal(e.Depth),
		store.NumericFromDecimal(e.DepthPercent),
		store.NumericFromDecimal(e.TablePercent),
		store.TextOrNull(e.Girdle),
		store.TextOrNull(e.Culet),
		store.TextOrNull(e.FancyColor),
		store.TextOrNull(e.FancyIntensity),
		store.TextOrNull(e.FancyOvertone),
		store.TextOrNull(e.ImageURL),
		store.TextOrNull(e.VideoURL),
		store.TextOrNull(e.CertificateURL),
		store.TextOrNull(e.Country),
		store.TextOrNull(e.Availability),
		store.NumericFromDecimal(e.PricePerCarat),
		store.NumericFromDecimal(e.TotalPrice),
		store.NumericFromDecimal(e.PercentOffList),
		store.TextOrNull(e.PairStock),
		store.NumericFromDecimal(e.PairPrice),
		store.NumericFromDecimal(e.PairPricePerCarat),
		store.NumericFromDecimal(e.TotalPriceConverted),
		store.NumericFromDecimal(e.PriceWithMarkup),
		store.NumericFromDecimal(e.FinalPrice),
	}
}
