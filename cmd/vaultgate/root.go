package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/vaultgate/pkg/cli"
	"mercator-hq/vaultgate/pkg/config"
	"mercator-hq/vaultgate/pkg/telemetry/logging"
)

// defaultConfigFile is read when present; vaultgate runs on defaults and
// environment overrides without it.
const defaultConfigFile = "vaultgate.yaml"

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "vaultgate",
	Short: "vaultgate - secret-injecting HTTP reverse proxy",
	Long: `vaultgate forwards HTTP requests to upstream APIs and fills secret
references in their headers from a watched secrets file.

Clients call /api-proxy/?service=<name>&url=<target> and write header values
such as "secret://apikey" or "Basic <base64 of secret://password>".
vaultgate substitutes the service's secrets, strips hop-by-hop headers and
relays the upstream response. Resolved values are never logged.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	// Global persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", defaultConfigFile, "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logging)")
}

// loadConfig loads the configuration file with environment overrides and
// installs it as the process configuration. A missing default file is not an
// error; an explicitly named one is.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path := cfgFile
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) && !cmd.Flags().Changed("config") {
		path = ""
	}

	cfg, err := config.LoadConfigWithEnvOverrides(path)
	if err != nil {
		return nil, cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	config.SetConfig(cfg)
	return cfg, nil
}

// newLogger builds the process logger from the logging configuration and
// installs it as the slog default.
func newLogger(cfg *config.Config) (*logging.Logger, error) {
	lc := cfg.Telemetry.Logging
	logger, err := logging.New(logging.Config{
		Level:         lc.Level,
		Format:        lc.Format,
		AddSource:     lc.AddSource,
		RedactSecrets: lc.RedactSecrets,
		File: logging.FileConfig{
			Path:       lc.File.Path,
			MaxSizeMB:  lc.File.MaxSizeMB,
			MaxBackups: lc.File.MaxBackups,
			MaxAgeDays: lc.File.MaxAgeDays,
			Compress:   lc.File.Compress,
		},
	})
	if err != nil {
		return nil, cli.NewConfigError("telemetry.logging", err.Error())
	}

	slog.SetDefault(logger.Logger)
	return logger, nil
}
