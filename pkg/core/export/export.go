// Package export writes fact tables as CSV, JSON or an aligned text table.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"tidyxbrl/pkg/core/xbrl"
)

// Formats accepted by Write.
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
	FormatText = "text"
)

// Write dispatches on format.
func Write(w io.Writer, table *xbrl.Table, format string) error {
	switch strings.ToLower(format) {
	case FormatCSV, "":
		return WriteCSV(w, table)
	case FormatJSON:
		return WriteJSON(w, table)
	case FormatText:
		return WriteText(w, table)
	}
	return fmt.Errorf("unknown format %q (want csv, json or text)", format)
}

// WriteCSV writes a header row followed by one record per row. Nulls are
// empty fields.
func WriteCSV(w io.Writer, table *xbrl.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(table.Records()); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return nil
}

// WriteJSON writes the table as {"columns","rows","stats"} with JSON null for
// nulls.
func WriteJSON(w io.Writer, table *xbrl.Table) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(table); err != nil {
		return fmt.Errorf("failed to write json: %w", err)
	}
	return nil
}

var cellReplacer = strings.NewReplacer("\t", " ", "\n", " ", "\r", " ")

// WriteText writes space-aligned columns for terminals.
func WriteText(w io.Writer, table *xbrl.Table) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, rec := range table.Records() {
		for i, v := range rec {
			rec[i] = cellReplacer.Replace(v)
		}
		if _, err := fmt.Fprintln(tw, strings.Join(rec, "\t")); err != nil {
			return fmt.Errorf("failed to write table: %w", err)
		}
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("failed to write table: %w", err)
	}
	return nil
}
