package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/vaultgate/pkg/audit"
	"mercator-hq/vaultgate/pkg/audit/export"
	auditstorage "mercator-hq/vaultgate/pkg/audit/storage"
	"mercator-hq/vaultgate/pkg/cli"
)

var auditFlags struct {
	db      string
	service string
	outcome string
	since   string
	until   string
	limit   int
	offset  int
	format  string
	output  string
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect the audit trail",
	Long: `Inspect the audit trail of forwarded requests.

Records carry the service, method, upstream host and path, status, duration,
outcome and the names of the secret keys a request referenced. They never
contain secret values, request bodies or query strings.

Subcommands:
  query   - List audit records with filters`,
}

var auditQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "List audit records",
	Long: `List audit records from the SQLite audit database, newest first.

Time Format:
  --since and --until take an RFC3339 timestamp or a duration before now.
  Example: --since 24h, --since 2026-01-02T00:00:00Z

Examples:
  # Last day of traffic for one service
  vaultgate audit query --service crm --since 24h

  # Failed upstream calls as CSV
  vaultgate audit query --outcome upstream_error --format csv --output errors.csv

  # Read another database
  vaultgate audit query --db /var/lib/vaultgate/audit.db --format json`,
	RunE: queryAudit,
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditQueryCmd)

	auditQueryCmd.Flags().StringVar(&auditFlags.db, "db", "", "audit database path (default: audit.sqlite.path)")
	auditQueryCmd.Flags().StringVar(&auditFlags.service, "service", "", "filter by service")
	auditQueryCmd.Flags().StringVar(&auditFlags.outcome, "outcome", "", "filter by outcome (success, service_not_found, no_secrets, secret_not_found, upstream_error, canceled)")
	auditQueryCmd.Flags().StringVar(&auditFlags.since, "since", "", "only records at or after this time (RFC3339 or duration)")
	auditQueryCmd.Flags().StringVar(&auditFlags.until, "until", "", "only records before this time (RFC3339 or duration)")
	auditQueryCmd.Flags().IntVar(&auditFlags.limit, "limit", 100, "max results")
	auditQueryCmd.Flags().IntVar(&auditFlags.offset, "offset", 0, "pagination offset")
	auditQueryCmd.Flags().StringVar(&auditFlags.format, "format", "table", "output format: table, json, csv")
	auditQueryCmd.Flags().StringVarP(&auditFlags.output, "output", "o", "", "output file (default: stdout)")
}

func queryAudit(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(auditFlags.format)
	if err != nil {
		return err
	}

	now := time.Now()
	query := &audit.Query{
		Service: auditFlags.service,
		Outcome: auditFlags.outcome,
		Limit:   auditFlags.limit,
		Offset:  auditFlags.offset,
	}
	if query.Since, err = parseTimeFlag("since", auditFlags.since, now); err != nil {
		return err
	}
	if query.Until, err = parseTimeFlag("until", auditFlags.until, now); err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	auditCfg := cfg.Audit
	auditCfg.Backend = auditstorage.BackendSQLite
	if auditFlags.db != "" {
		auditCfg.SQLite.Path = auditFlags.db
	}

	// Opening would create an empty database.
	if _, err := os.Stat(auditCfg.SQLite.Path); errors.Is(err, fs.ErrNotExist) {
		return cli.NewCommandError("audit query", fmt.Errorf("audit database not found: %s", auditCfg.SQLite.Path))
	}

	store, err := auditstorage.New(&auditCfg)
	if err != nil {
		return cli.NewCommandError("audit query", err)
	}
	defer store.Close()

	ctx := cmd.Context()
	records, err := store.Query(ctx, query)
	if err != nil {
		return cli.NewCommandError("audit query", fmt.Errorf("query failed: %w", err))
	}

	var out io.Writer = cmd.OutOrStdout()
	if auditFlags.output != "" {
		f, err := os.Create(auditFlags.output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	switch format {
	case cli.FormatJSON:
		return export.NewJSONExporter(true).Export(ctx, records, out)
	case cli.FormatCSV:
		return export.NewCSVExporter(true).Export(ctx, records, out)
	default:
		if len(records) == 0 {
			_, err := fmt.Fprintln(out, "No records found.")
			return err
		}
		return cli.NewFormatter(cli.FormatTable).FormatTo(out, recordsTable(records))
	}
}

// parseTimeFlag accepts an RFC3339 timestamp or a duration before now.
func parseTimeFlag(name, value string, now time.Time) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	if d, err := time.ParseDuration(value); err == nil {
		t := now.Add(-d)
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, cli.NewConfigError(name, fmt.Sprintf("expected RFC3339 time or duration, got %q", value))
	}
	return &t, nil
}

// recordsTable is the terminal view of records; JSON and CSV output carry
// every field.
func recordsTable(records []*audit.Record) *cli.Table {
	table := &cli.Table{Headers: []string{"time", "service", "method", "upstream", "status", "duration_ms", "outcome", "keys"}}
	for _, r := range records {
		status := "-"
		if r.Status != 0 {
			status = strconv.Itoa(r.Status)
		}
		keys := "-"
		if len(r.SecretKeys) > 0 {
			keys = strings.Join(r.SecretKeys, ",")
		}
		table.Append(
			r.Timestamp.UTC().Format(time.RFC3339),
			r.Service,
			r.Method,
			r.UpstreamHost+r.UpstreamPath,
			status,
			strconv.FormatInt(r.DurationMS, 10),
			r.Outcome,
			keys,
		)
	}
	return table
}
