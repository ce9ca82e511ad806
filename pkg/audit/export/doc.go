// Package export writes audit records as JSON or CSV.
//
//	exporter := export.NewCSVExporter(true)
//	if err := exporter.Export(ctx, records, os.Stdout); err != nil {
//		return err
//	}
//
// The JSON output is always an array. CSV uses Columns as its header and
// joins secret key names with ";".
package export
