package audit

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// ParseExportFormat validates a format query value. Empty means JSON.
func ParseExportFormat(s string) (ExportFormat, error) {
	switch ExportFormat(strings.ToLower(s)) {
	case "", ExportFormatJSON:
		return ExportFormatJSON, nil
	case ExportFormatCSV:
		return ExportFormatCSV, nil
	}
	return "", fmt.Errorf("unsupported export format %q", s)
}

// ContentType returns the MIME type of the format
func (f ExportFormat) ContentType() string {
	if f == ExportFormatCSV {
		return "text/csv"
	}
	return "application/json"
}

// WriteExport writes records to w in the given format
func WriteExport(w io.Writer, format ExportFormat, records []*Record) error {
	switch format {
	case ExportFormatCSV:
		return exportCSV(w, records)
	case ExportFormatJSON:
		return exportJSON(w, records)
	}
	return fmt.Errorf("unsupported export format %q", format)
}

// exportJSON exports audit records as a JSON array
func exportJSON(w io.Writer, records []*Record) error {
	if records == nil {
		records = []*Record{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

// exportCSV exports audit records as CSV
func exportCSV(w io.Writer, records []*Record) error {
	writer := csv.NewWriter(w)

	header := []string{
		"ID",
		"CreatedAt",
		"Action",
		"Actor",
		"State",
		"Method",
		"URL",
		"Host",
		"UserAgent",
		"IP",
		"Code",
		"DurationMs",
		"Error",
		"Version",
	}

	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, r := range records {
		row := []string{
			r.ID,
			r.CreatedAt.UTC().Format(time.RFC3339),
			r.Action,
			r.Actor,
			string(r.State),
			r.Method,
			r.URL,
			r.Host,
			r.UserAgent,
			r.IP,
			strconv.Itoa(r.Code),
			strconv.FormatInt(r.Duration, 10),
			r.Error,
			r.Version,
		}

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("CSV writer error: %w", err)
	}
	return nil
}
