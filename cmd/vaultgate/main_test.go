package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

// execute runs the root command with args and returns what it printed.
// Flag variables are reset first since cobra commands are package globals.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	return buf.String(), err
}

func resetFlags() {
	cfgFile = defaultConfigFile
	verbose = false
	runFlags.listenAddress, runFlags.logLevel, runFlags.secretsFile, runFlags.dryRun = "", "", "", false
	validateFlags.secretsFile, validateFlags.format = "", "table"
	resolveFlags.service, resolveFlags.headers, resolveFlags.secretsFile, resolveFlags.format = "", nil, "", "table"
	auditFlags.db, auditFlags.service, auditFlags.outcome = "", "", ""
	auditFlags.since, auditFlags.until = "", ""
	auditFlags.limit, auditFlags.offset = 100, 0
	auditFlags.format, auditFlags.output = "table", ""
	certsFlags.certFile, certsFlags.keyFile, certsFlags.caFile, certsFlags.format = "", "", "", "table"
	clearChanged(rootCmd)
}

func clearChanged(cmd *cobra.Command) {
	unset := func(f *pflag.Flag) { f.Changed = false }
	cmd.Flags().VisitAll(unset)
	cmd.PersistentFlags().VisitAll(unset)
	for _, sub := range cmd.Commands() {
		clearChanged(sub)
	}
}

// fixture is a config file pointing at a secrets file and an audit
// database in a temp directory.
type fixture struct {
	dir     string
	config  string
	secrets string
	db      string
}

func newFixture(t *testing.T, secretsDoc string) fixture {
	t.Helper()
	dir := t.TempDir()
	f := fixture{
		dir:     dir,
		config:  filepath.Join(dir, "vaultgate.yaml"),
		secrets: filepath.Join(dir, "config_secret.yml"),
		db:      filepath.Join(dir, "audit.db"),
	}

	cfg := fmt.Sprintf(`proxy:
  listen_address: "127.0.0.1:0"
secrets:
  file_path: %q
  watch_mode: poll
audit:
  backend: sqlite
  sqlite:
    path: %q
telemetry:
  logging:
    level: error
`, f.secrets, f.db)
	require.NoError(t, os.WriteFile(f.config, []byte(cfg), 0o600))

	if secretsDoc != "" {
		require.NoError(t, os.WriteFile(f.secrets, []byte(secretsDoc), 0o600))
	}
	return f
}
