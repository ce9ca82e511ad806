package main

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"mercator-hq/vaultgate/pkg/cli"
	"mercator-hq/vaultgate/pkg/secrets"
)

var validateFlags struct {
	secretsFile string
	format      string
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration and the secrets file",
	Long: `Load and validate the configuration, then parse the secrets file.

On success the services found in the secrets file are listed with the names
of their keys. Secret values are never printed.

Examples:
  # Validate the default config and its secrets file
  vaultgate validate

  # Validate another secrets file
  vaultgate validate --secrets ./config_secret.yml

  # Machine-readable output
  vaultgate validate --format json`,
	RunE: validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVar(&validateFlags.secretsFile, "secrets", "", "secrets file to validate (default: secrets.file_path)")
	validateCmd.Flags().StringVar(&validateFlags.format, "format", "table", "output format: table, json, csv")
}

func validateConfig(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(validateFlags.format)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	path := cfg.Secrets.FilePath
	if validateFlags.secretsFile != "" {
		path = validateFlags.secretsFile
	}

	snap, err := loadSecrets(cmd.Context(), path, slog.Default())
	if err != nil {
		return cli.NewCommandError("validate", err)
	}

	table := servicesTable(snap)
	out := cmd.OutOrStdout()

	if format == cli.FormatText || format == cli.FormatTable {
		fmt.Fprintln(out, "✓ Configuration valid")
		fmt.Fprintf(out, "✓ Secrets file valid: %s (%d services)\n\n", path, snap.Len())
		if snap.Len() == 0 {
			fmt.Fprintln(out, "No services defined.")
			return nil
		}
	}

	return cli.NewFormatter(format).FormatTo(out, table)
}

// loadSecrets parses the secrets file once through a Store, so failures
// carry the same *secrets.ConfigLoadError the server reports.
func loadSecrets(ctx context.Context, path string, logger *slog.Logger) (*secrets.Snapshot, error) {
	store := secrets.NewStore(path, logger)
	if err := store.Reload(ctx); err != nil {
		return nil, err
	}
	return store.Snapshot(), nil
}

// servicesTable lists each service with its key names, never its values.
func servicesTable(snap *secrets.Snapshot) *cli.Table {
	table := &cli.Table{Headers: []string{"service", "key_count", "keys"}}
	for _, name := range snap.Services() {
		t, _ := snap.Service(name)
		table.Append(name, strconv.Itoa(t.Len()), strings.Join(t.Keys(), ","))
	}
	return table
}
