package feed

// parser.go converts the decoded export text into ordered rows of fields.
//
// The dominant historical data-loss bug in this feed is naive comma
// splitting: a URL or free-text cell containing a comma silently shifts
// every subsequent column. Parsing is therefore quote-aware throughout: a
// delimiter inside double quotes is not a separator, a doubled quote is a
// literal quote, and a newline inside quotes does not terminate the row.
// One logical row may span several physical lines.

import (
	"encoding/csv"
	"errors"
	"io"
	"strings"
)

// Table is the parsed view of one export: a header row followed by data
// rows. It keeps the decoded text so iteration can restart from the top.
type Table struct {
	text string
}

// NewTable wraps decoded export text for iteration.
func NewTable(text string) *Table {
	return &Table{text: text}
}

// Rows returns a fresh iterator positioned before the header row.
// Calling Rows again restarts from the beginning.
func (t *Table) Rows() *RowIter {
	r := csv.NewReader(strings.NewReader(t.text))
	// Field counts vary between vendor schema revisions; mismatches against
	// the header are the normalizer's call, not a parse failure.
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	return &RowIter{reader: r}
}

// Header reads and returns just the header row.
func (t *Table) Header() ([]string, error) {
	row, _, err := t.Rows().Next()
	if err != nil {
		return nil, err
	}
	return row, nil
}

// RowIter yields one logical row per call, counting logical rows from 1
// (the header). Physical line numbers are not meaningful once quoted
// newlines are in play.
type RowIter struct {
	reader *csv.Reader
	row    int
}

// Next returns the next row and its 1-based logical row number.
// io.EOF signals the end of the table.
func (it *RowIter) Next() ([]string, int, error) {
	record, err := it.reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, it.row, io.EOF
		}
		return nil, it.row + 1, err
	}
	it.row++
	return record, it.row, nil
}
