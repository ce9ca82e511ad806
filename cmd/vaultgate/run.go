package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"mercator-hq/vaultgate/pkg/cli"
	"mercator-hq/vaultgate/pkg/config"
	"mercator-hq/vaultgate/pkg/server"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	secretsFile   string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the vaultgate proxy server",
	Long: `Start the vaultgate proxy server with the specified configuration.

The secrets file is loaded once before the server accepts connections and is
then watched for changes. A missing or invalid file is logged and the server
keeps serving the last good configuration (empty at startup).

Examples:
  # Start with default config
  vaultgate run

  # Start with custom config
  vaultgate run --config /etc/vaultgate/vaultgate.yaml

  # Override listen address and secrets file
  vaultgate run --listen 0.0.0.0:8080 --secrets ./config_secret.yml

  # Validate config and secrets without starting server
  vaultgate run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().StringVar(&runFlags.secretsFile, "secrets", "", "override secrets file path")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config and secrets file without starting server")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// Apply flag overrides
	if runFlags.listenAddress != "" {
		cfg.Proxy.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if runFlags.secretsFile != "" {
		cfg.Secrets.FilePath = runFlags.secretsFile
	}
	if err := config.Validate(cfg); err != nil {
		return cli.NewConfigError("", err.Error())
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Shutdown()

	out := cmd.OutOrStdout()

	if runFlags.dryRun {
		snap, err := loadSecrets(cmd.Context(), cfg.Secrets.FilePath, logger.Logger)
		if err != nil {
			return cli.NewCommandError("run", err)
		}
		fmt.Fprintln(out, "✓ Configuration valid")
		fmt.Fprintf(out, "✓ Secrets file valid (%d services)\n", snap.Len())
		return nil
	}

	printBanner(out, cfg)

	srv, err := server.New(cfg, server.Options{
		Version: versionInfo(),
		Logger:  logger,
	})
	if err != nil {
		return cli.NewCommandError("run", err)
	}

	ctx, stop := cli.SetupSignalHandler(cmd.Context())
	defer stop()

	if err := srv.Start(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}

	fmt.Fprintln(out, "✓ Server stopped")
	return nil
}

func printBanner(out io.Writer, cfg *config.Config) {
	scheme := "http"
	if cfg.Security.TLS.Enabled {
		scheme = "https"
	}

	fmt.Fprintf(out, "vaultgate v%s\n", Version)
	fmt.Fprintf(out, "Secrets file: %s (%s)\n", cfg.Secrets.FilePath, cfg.Secrets.WatchMode)
	fmt.Fprintf(out, "Proxy endpoint: %s://%s/api-proxy/\n", scheme, cfg.Proxy.ListenAddress)
	if cfg.Telemetry.Health.Enabled {
		fmt.Fprintf(out, "Health endpoint: %s://%s%s\n", scheme, cfg.Proxy.ListenAddress, cfg.Telemetry.Health.LivenessPath)
	}
	if cfg.Telemetry.Metrics.Enabled {
		fmt.Fprintf(out, "Metrics endpoint: %s://%s%s\n", scheme, cfg.Proxy.ListenAddress, cfg.Telemetry.Metrics.Path)
	}
	if cfg.Audit.Enabled {
		fmt.Fprintf(out, "Audit backend: %s\n", cfg.Audit.Backend)
	}
	fmt.Fprintln(out, "Press Ctrl+C to stop")
}
