package utils

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"
)

const (
	FormatCSV = "csv"
	FormatTSV = "tsv"
)

// ExportFilename builds names like metaverse_contacts_2026-03-01.csv.
func ExportFilename(prefix, format string, now time.Time) string {
	return fmt.Sprintf("%s_%s.%s", prefix, now.UTC().Format("2006-01-02"), format)
}

// WriteCSV writes a header line followed by rows.
func WriteCSV(w io.Writer, headers []string, rows [][]string) error {
	return WriteExport(w, FormatCSV, headers, rows)
}

// WriteExport writes headers and rows comma separated, or tab separated for FormatTSV.
func WriteExport(w io.Writer, format string, headers []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if format == FormatTSV {
		cw.Comma = '\t'
	}
	if err := cw.Write(headers); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}

// FormatTimestamp renders export dates; zero times become empty cells.
func FormatTimestamp(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
