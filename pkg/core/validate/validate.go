// Package validate checks the structural invariants of flattened fact
// tables. The checks can be called from tests, API handlers, or the
// pipeline to verify data integrity.
package validate

import (
	"fmt"
	"strings"

	"tidyxbrl/pkg/core/xbrl"
)

// Check is the outcome of one invariant.
type Check struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// Report collects the checks run against a table.
type Report struct {
	Checks []Check `json:"checks"`
}

// OK reports whether every check passed.
func (r *Report) OK() bool {
	for _, c := range r.Checks {
		if !c.Passed {
			return false
		}
	}
	return true
}

// Failures returns the failed checks.
func (r *Report) Failures() []Check {
	var out []Check
	for _, c := range r.Checks {
		if !c.Passed {
			out = append(out, c)
		}
	}
	return out
}

func (r *Report) add(name string, detail string) {
	r.Checks = append(r.Checks, Check{Name: name, Passed: detail == "", Detail: detail})
}

// CheckTable runs the schema, row and ordering checks. Row accounting only
// holds for an unfiltered table, so it is skipped when filtered is true.
func CheckTable(t *xbrl.Table, filtered bool) *Report {
	r := &Report{}
	r.add("schema", checkSchema(t))
	r.add("rows", checkRows(t))
	r.add("sort_order", checkSortOrder(t))
	if !filtered {
		r.add("fact_accounting", checkFactAccounting(t))
		r.add("row_accounting", checkRowAccounting(t))
	}
	return r
}

// =============================================================================
// SCHEMA
// =============================================================================

// The header is unique, keyed by context, and ends in datacode, datavalue.
func checkSchema(t *xbrl.Table) string {
	n := len(t.Columns)
	if n < 3 {
		return fmt.Sprintf("want at least context, datacode, datavalue; got %v", t.Columns)
	}
	if t.Columns[n-2] != xbrl.ColumnDataCode || t.Columns[n-1] != xbrl.ColumnDataValue {
		return fmt.Sprintf("header ends in %q, %q", t.Columns[n-2], t.Columns[n-1])
	}
	seen := make(map[string]bool, n)
	for _, c := range t.Columns {
		if seen[c] {
			return fmt.Sprintf("duplicate column %q", c)
		}
		seen[c] = true
	}
	if !seen[xbrl.ColumnContext] {
		return "no context column"
	}
	return ""
}

// =============================================================================
// ROWS
// =============================================================================

// Every row fills only known columns, never with the empty string, and
// always names its context.
func checkRows(t *xbrl.Table) string {
	known := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		known[c] = true
	}
	var problems []string
	for i, row := range t.Rows {
		if _, ok := row.Get(xbrl.ColumnContext); !ok {
			problems = append(problems, fmt.Sprintf("row %d has no context", i))
		}
		for col, v := range row {
			switch {
			case !known[col]:
				problems = append(problems, fmt.Sprintf("row %d has unknown column %q", i, col))
			case v == "":
				problems = append(problems, fmt.Sprintf("row %d has empty %q", i, col))
			}
		}
		if len(problems) >= 5 {
			break
		}
	}
	return strings.Join(problems, "; ")
}

func checkSortOrder(t *xbrl.Table) string {
	for i := 1; i < len(t.Rows); i++ {
		prev, cur := t.Rows[i-1][xbrl.ColumnContext], t.Rows[i][xbrl.ColumnContext]
		if cur < prev {
			return fmt.Sprintf("row %d context %q sorts before row %d context %q", i, cur, i-1, prev)
		}
	}
	return ""
}

// =============================================================================
// ACCOUNTING
// =============================================================================

// Each fact either joins a context or is an orphan.
func checkFactAccounting(t *xbrl.Table) string {
	s := t.Stats
	if s.JoinedFacts+s.Orphans != s.Facts {
		return fmt.Sprintf("joined %d + orphans %d != facts %d", s.JoinedFacts, s.Orphans, s.Facts)
	}
	return ""
}

// Every kept context contributes a row, and every joined fact occupies
// one, the first fact of a context sharing the context's own row.
func checkRowAccounting(t *xbrl.Table) string {
	s := t.Stats
	contextRows := s.Contexts - s.SkippedContexts
	lo := max(contextRows, s.JoinedFacts)
	hi := contextRows + s.JoinedFacts
	if n := t.Len(); n < lo || n > hi {
		return fmt.Sprintf("%d rows outside [%d, %d] for %d contexts and %d joined facts",
			n, lo, hi, contextRows, s.JoinedFacts)
	}
	return ""
}
