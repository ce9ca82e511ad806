package export

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"mercator-hq/vaultgate/pkg/audit"
)

// Columns is the column order shared by the CSV and table outputs.
var Columns = []string{
	"timestamp", "request_id", "service", "method", "upstream_host",
	"upstream_path", "status", "duration_ms", "outcome", "secret_keys", "error",
}

// CSVExporter writes records as CSV.
type CSVExporter struct {
	// IncludeHeader writes Columns as the first row.
	IncludeHeader bool
}

// NewCSVExporter creates a new CSV exporter.
func NewCSVExporter(includeHeader bool) *CSVExporter {
	return &CSVExporter{IncludeHeader: includeHeader}
}

// Export writes one row per record. Secret key names are joined with ";".
func (e *CSVExporter) Export(ctx context.Context, records []*audit.Record, w io.Writer) error {
	writer := csv.NewWriter(w)

	if e.IncludeHeader {
		if err := writer.Write(Columns); err != nil {
			return audit.NewExportError("csv", len(records), err)
		}
	}

	for _, record := range records {
		if err := ctx.Err(); err != nil {
			return audit.NewExportError("csv", len(records), err)
		}
		if err := writer.Write(Row(record)); err != nil {
			return audit.NewExportError("csv", len(records), err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return audit.NewExportError("csv", len(records), err)
	}
	return nil
}

// Row returns the record's fields in Columns order.
func Row(record *audit.Record) []string {
	status := ""
	if record.Status > 0 {
		status = strconv.Itoa(record.Status)
	}
	return []string{
		record.Timestamp.UTC().Format(time.RFC3339Nano),
		record.RequestID,
		record.Service,
		record.Method,
		record.UpstreamHost,
		record.UpstreamPath,
		status,
		strconv.FormatInt(record.DurationMS, 10),
		record.Outcome,
		strings.Join(record.SecretKeys, ";"),
		record.Error,
	}
}
