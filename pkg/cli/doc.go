/*
Package cli provides command-line interface utilities for vaultgate.

The cli package includes output formatters, typed command errors and signal
handling used by the vaultgate command.

Output Formatting:

Commands build a Table and render it in the format picked by --format:

	format, err := cli.ParseOutputFormat(flagValue)
	if err != nil {
		return err
	}
	table := &cli.Table{Headers: []string{"service", "keys"}}
	table.Append("crm", "2")
	if err := cli.NewFormatter(format).FormatTo(os.Stdout, table); err != nil {
		return err
	}

Text output aligns columns, JSON output emits one object per row and CSV
output writes a header row followed by the rows.

Signal Handling:

For graceful shutdown on SIGINT/SIGTERM:

	ctx, stop := cli.SetupSignalHandler(context.Background())
	defer stop()
	// Use ctx for operations that should be cancelled on shutdown
*/
package cli
