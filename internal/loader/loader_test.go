package loader

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/stonelake/gemfeed/internal/catalog"
)

// ----------------------------------------------------------------------------
// Fakes
// ----------------------------------------------------------------------------

// fakeDB records every Query and answers each row's RETURNING (xmax = 0)
// scan with the next value from created.
type fakeDB struct {
	queries []fakeQuery
	created []bool
	err     error
}

type fakeQuery struct {
	sql  string
	args []any
}

func (f *fakeDB) Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (f *fakeDB) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	panic("not used by the loader")
}

func (f *fakeDB) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.queries = append(f.queries, fakeQuery{sql: sql, args: args})

	rows := len(args) / len(columns)
	answers := make([]bool, rows)
	for i := range answers {
		if len(f.created) > 0 {
			answers[i] = f.created[0]
			f.created = f.created[1:]
		}
	}
	return &fakeRows{answers: answers}, nil
}

// fakeRows yields one boolean per upserted row.
type fakeRows struct {
	answers []bool
	pos     int
}

func (r *fakeRows) Next() bool { return r.pos < len(r.answers) }

func (r *fakeRows) Scan(dest ...any) error {
	b, ok := dest[0].(*bool)
	if !ok {
		return fmt.Errorf("expected *bool, got %T", dest[0])
	}
	*b = r.answers[r.pos]
	r.pos++
	return nil
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return nil }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) Values() ([]any, error)                       { return nil, nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func entry(itemID string) catalog.CatalogEntry {
	return catalog.CatalogEntry{
		FeedRecord: catalog.FeedRecord{
			ItemID: itemID,
			Carat:  decimal.NullDecimal{Decimal: decimal.RequireFromString("1.5"), Valid: true},
		},
		Type: catalog.TypeNatural,
	}
}

// ----------------------------------------------------------------------------
// Load
// ----------------------------------------------------------------------------

func TestLoad(t *testing.T) {
	t.Run("counts created and updated from returned flags", func(t *testing.T) {
		db := &fakeDB{created: []bool{true, false, true}}
		l := New(db, 10)

		counts, err := l.Load(context.Background(), []catalog.CatalogEntry{
			entry("A"), entry("B"), entry("C"),
		})
		if err != nil {
			t.Fatalf("Load() error: %v", err)
		}
		if counts.Created != 2 || counts.Updated != 1 || counts.Skipped != 0 {
			t.Errorf("counts = %+v, want 2 created, 1 updated", counts)
		}
	})

	t.Run("blank item ids are skipped without touching the database", func(t *testing.T) {
		db := &fakeDB{}
		l := New(db, 10)

		counts, err := l.Load(context.Background(), []catalog.CatalogEntry{
			entry(""), entry("   "),
		})
		if err != nil {
			t.Fatalf("Load() error: %v", err)
		}
		if counts.Skipped != 2 {
			t.Errorf("Skipped = %d, want 2", counts.Skipped)
		}
		if len(db.queries) != 0 {
			t.Errorf("expected no queries, got %d", len(db.queries))
		}
	})

	t.Run("counts identity holds with mixed input", func(t *testing.T) {
		db := &fakeDB{created: []bool{true, false, false}}
		l := New(db, 10)

		entries := []catalog.CatalogEntry{
			entry("A"), entry(""), entry("B"), entry("C"),
		}
		counts, err := l.Load(context.Background(), entries)
		if err != nil {
			t.Fatalf("Load() error: %v", err)
		}
		if got := counts.Created + counts.Updated + counts.Skipped; got != len(entries) {
			t.Errorf("created+updated+skipped = %d, want %d", got, len(entries))
		}
	})

	t.Run("splits input into batches of at most batchSize", func(t *testing.T) {
		db := &fakeDB{created: []bool{true, true, true, true, true}}
		l := New(db, 2)

		entries := []catalog.CatalogEntry{
			entry("A"), entry("B"), entry("C"), entry("D"), entry("E"),
		}
		counts, err := l.Load(context.Background(), entries)
		if err != nil {
			t.Fatalf("Load() error: %v", err)
		}
		if len(db.queries) != 3 {
			t.Fatalf("got %d batches, want 3", len(db.queries))
		}
		wantRows := []int{2, 2, 1}
		for i, q := range db.queries {
			if got := len(q.args) / len(columns); got != wantRows[i] {
				t.Errorf("batch %d carried %d rows, want %d", i, got, wantRows[i])
			}
		}
		if counts.Created != 5 {
			t.Errorf("Created = %d, want 5", counts.Created)
		}
	})

	t.Run("empty input is a no-op", func(t *testing.T) {
		db := &fakeDB{}
		l := New(db, 10)

		counts, err := l.Load(context.Background(), nil)
		if err != nil {
			t.Fatalf("Load() error: %v", err)
		}
		if counts != (catalog.Counts{}) {
			t.Errorf("counts = %+v, want zero", counts)
		}
	})
}

// ----------------------------------------------------------------------------
// buildUpsert
// ----------------------------------------------------------------------------

func TestBuildUpsert(t *testing.T) {
	t.Run("parameter count matches rows times columns", func(t *testing.T) {
		batch := []catalog.CatalogEntry{entry("A"), entry("B")}

		sql, args, err := buildUpsert(batch)
		if err != nil {
			t.Fatalf("buildUpsert() error: %v", err)
		}
		if len(args) != len(batch)*len(columns) {
			t.Errorf("len(args) = %d, want %d", len(args), len(batch)*len(columns))
		}

		// Every placeholder up to the last must appear exactly once.
		last := fmt.Sprintf("$%d", len(args))
		if !strings.Contains(sql, last) {
			t.Errorf("statement missing final placeholder %s", last)
		}
		if strings.Contains(sql, fmt.Sprintf("$%d", len(args)+1)) {
			t.Error("statement references a placeholder beyond the supplied args")
		}
	})

	t.Run("statement upserts on item_id and reports creations", func(t *testing.T) {
		sql, _, err := buildUpsert([]catalog.CatalogEntry{entry("A")})
		if err != nil {
			t.Fatalf("buildUpsert() error: %v", err)
		}
		for _, fragment := range []string{
			"INSERT INTO catalog_entries",
			"ON CONFLICT (item_id) DO UPDATE SET",
			"RETURNING (xmax = 0) AS created",
			"updated_at = now()",
		} {
			if !strings.Contains(sql, fragment) {
				t.Errorf("statement missing %q", fragment)
			}
		}
		// The conflict key itself must not be overwritten on update.
		if strings.Contains(sql, "item_id = EXCLUDED.item_id") {
			t.Error("update clause must not rewrite the conflict key")
		}
	})

	t.Run("entryArgs stays in lockstep with the column list", func(t *testing.T) {
		if got := len(entryArgs(entry("A"))); got != len(columns) {
			t.Errorf("entryArgs produced %d values for %d columns", got, len(columns))
		}
	})

	t.Run("item id leads each row's parameters", func(t *testing.T) {
		_, args, err := buildUpsert([]catalog.CatalogEntry{entry("A"), entry("B")})
		if err != nil {
			t.Fatalf("buildUpsert() error: %v", err)
		}
		if args[0] != "A" {
			t.Errorf("args[0] = %v, want A", args[0])
		}
		if args[len(columns)] != "B" {
			t.Errorf("args[%d] = %v, want B", len(columns), args[len(columns)])
		}
	})
}
