package xbrl

import (
	"encoding/json"
	"fmt"
)

// Reserved column names.
const (
	ColumnContext   = "context"
	ColumnDataCode  = "datacode"
	ColumnDataValue = "datavalue"
)

// Row is one record of a fact table. A column missing from the map is null.
type Row map[string]string

// Get returns the value stored under col and whether it is non-null.
func (r Row) Get(col string) (string, bool) {
	v, ok := r[col]
	return v, ok
}

func (r Row) clone() Row {
	out := make(Row, len(r)+2)
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Stats counts what happened while a table was built. Every warning the
// flattener logs is also reflected here so callers can act on it.
type Stats struct {
	Contexts          int      `json:"contexts"`
	SkippedContexts   int      `json:"skipped_contexts"`
	DuplicateContexts int      `json:"duplicate_contexts"`
	Facts             int      `json:"facts"`
	JoinedFacts       int      `json:"joined_facts"`
	Orphans           int      `json:"orphans"`
	OrphanRefs        []string `json:"orphan_refs,omitempty"`
	Collisions        int      `json:"collisions"`
	DroppedColumns    []string `json:"dropped_columns,omitempty"`
}

// Table is a tidy fact table: descriptive columns first, then datacode and
// datavalue, rows ordered by context.
type Table struct {
	Columns []string
	Rows    []Row
	Stats   Stats
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// HasColumn reports whether col is part of the table schema.
func (t *Table) HasColumn(col string) bool {
	for _, c := range t.Columns {
		if c == col {
			return true
		}
	}
	return false
}

// Value returns the field at row i, column col.
func (t *Table) Value(i int, col string) (string, bool) {
	if i < 0 || i >= len(t.Rows) {
		return "", false
	}
	return t.Rows[i].Get(col)
}

// FilterContext returns the rows whose context is one of ids. The schema and
// stats are carried over unchanged.
func (t *Table) FilterContext(ids ...string) *Table {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}

	out := &Table{
		Columns: append([]string(nil), t.Columns...),
		Stats:   t.Stats,
	}
	for _, row := range t.Rows {
		if want[row[ColumnContext]] {
			out.Rows = append(out.Rows, row)
		}
	}
	return out
}

// Records returns the table as a header line followed by one line per row,
// with null rendered as the empty string.
func (t *Table) Records() [][]string {
	records := make([][]string, 0, len(t.Rows)+1)
	records = append(records, append([]string(nil), t.Columns...))
	for _, row := range t.Rows {
		rec := make([]string, len(t.Columns))
		for i, col := range t.Columns {
			rec[i] = row[col]
		}
		records = append(records, rec)
	}
	return records
}

type tableJSON struct {
	Columns []string    `json:"columns"`
	Rows    [][]*string `json:"rows"`
	Stats   Stats       `json:"stats"`
}

// MarshalJSON encodes rows positionally against columns, nulls included.
func (t *Table) MarshalJSON() ([]byte, error) {
	out := tableJSON{
		Columns: t.Columns,
		Rows:    make([][]*string, len(t.Rows)),
		Stats:   t.Stats,
	}
	if out.Columns == nil {
		out.Columns = []string{}
	}
	for i, row := range t.Rows {
		cells := make([]*string, len(t.Columns))
		for j, col := range t.Columns {
			if v, ok := row[col]; ok {
				v := v
				cells[j] = &v
			}
		}
		out.Rows[i] = cells
	}
	return json.Marshal(out)
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (t *Table) UnmarshalJSON(data []byte) error {
	var in tableJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	t.Columns = in.Columns
	t.Stats = in.Stats
	t.Rows = make([]Row, len(in.Rows))
	for i, cells := range in.Rows {
		if len(cells) != len(in.Columns) {
			return fmt.Errorf("row %d has %d cells, want %d", i, len(cells), len(in.Columns))
		}
		row := make(Row, len(cells))
		for j, cell := range cells {
			if cell != nil {
				row[in.Columns[j]] = *cell
			}
		}
		t.Rows[i] = row
	}
	return nil
}
