package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mercator-hq/vaultgate/pkg/audit"
	auditstorage "mercator-hq/vaultgate/pkg/audit/storage"
	"mercator-hq/vaultgate/pkg/cli"
	"mercator-hq/vaultgate/pkg/config"
	"mercator-hq/vaultgate/pkg/proxy"
	"mercator-hq/vaultgate/pkg/resolver"
	"mercator-hq/vaultgate/pkg/secrets"
)

const testSecrets = "crm:\n  apikey: XYZ\n  password: s3cr3t\nbilling:\n  token: abc\n"

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)

	assert.Contains(t, out, "vaultgate "+Version)
	assert.Contains(t, out, "Go Version: "+runtime.Version())
	assert.Equal(t, Version, versionInfo().Version)
}

func TestValidateCommand(t *testing.T) {
	f := newFixture(t, testSecrets)

	out, err := execute(t, "validate", "--config", f.config)
	require.NoError(t, err)

	assert.Contains(t, out, "✓ Configuration valid")
	assert.Contains(t, out, "(2 services)")
	assert.Contains(t, out, "apikey,password")
	assert.NotContains(t, out, "XYZ")
	assert.NotContains(t, out, "s3cr3t")
}

func TestValidateCommandCSV(t *testing.T) {
	f := newFixture(t, testSecrets)

	out, err := execute(t, "validate", "--config", f.config, "--format", "csv")
	require.NoError(t, err)

	assert.Equal(t, "service,key_count,keys\nbilling,1,token\ncrm,2,\"apikey,password\"\n", out)
}

func TestValidateCommandInvalidSecrets(t *testing.T) {
	f := newFixture(t, "crm: [broken\n")

	_, err := execute(t, "validate", "--config", f.config)
	require.Error(t, err)

	var loadErr *secrets.ConfigLoadError
	assert.True(t, errors.As(err, &loadErr), "got %v", err)
}

func TestValidateCommandMissingConfig(t *testing.T) {
	_, err := execute(t, "validate", "--config", "/nonexistent/vaultgate.yaml")
	require.Error(t, err)

	var cfgErr *cli.ConfigError
	assert.True(t, errors.As(err, &cfgErr), "got %v", err)
}

func TestRunDryRun(t *testing.T) {
	f := newFixture(t, testSecrets)

	out, err := execute(t, "run", "--config", f.config, "--dry-run")
	require.NoError(t, err)

	assert.Contains(t, out, "✓ Configuration valid")
	assert.Contains(t, out, "✓ Secrets file valid (2 services)")
}

func TestRunDryRunBadListenOverride(t *testing.T) {
	f := newFixture(t, testSecrets)

	_, err := execute(t, "run", "--config", f.config, "--dry-run", "--listen", "not-an-address")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "proxy.listen_address")
}

func TestResolveCommand(t *testing.T) {
	f := newFixture(t, testSecrets)
	basic := "Basic " + base64.StdEncoding.EncodeToString([]byte("secret://password"))

	out, err := execute(t, "resolve", "--config", f.config,
		"--service", "crm",
		"--header", "X-Api-Key: secret://apikey",
		"--header", "Authorization: "+basic,
		"--header", "Accept: application/json",
		"--format", "csv",
	)
	require.NoError(t, err)

	assert.Equal(t, "header,key,status\n"+
		"Accept,-,none\n"+
		"Authorization,password,resolved\n"+
		"X-Api-Key,apikey,resolved\n", out)
}

func TestResolveCommandMissingKey(t *testing.T) {
	f := newFixture(t, testSecrets)

	out, err := execute(t, "resolve", "--config", f.config,
		"--service", "crm",
		"--header", "X-Api-Key: secret://nope",
	)
	require.Error(t, err)

	var notFound *resolver.SecretNotFoundError
	require.True(t, errors.As(err, &notFound), "got %v", err)
	assert.Equal(t, "nope", notFound.Key)
	assert.Contains(t, out, "missing")
}

func TestResolveCommandUnknownService(t *testing.T) {
	f := newFixture(t, testSecrets)

	_, err := execute(t, "resolve", "--config", f.config, "--service", "ghost", "--header", "X: y")
	require.Error(t, err)
	assert.True(t, errors.Is(err, proxy.ErrServiceNotFound), "got %v", err)
}

func TestParseHeaders(t *testing.T) {
	h, err := parseHeaders([]string{"x-api-key: secret://apikey", "X-Multi: a", "X-Multi:b"})
	require.NoError(t, err)
	assert.Equal(t, "secret://apikey", h.Get("X-Api-Key"))
	assert.Equal(t, []string{"a", "b"}, h.Values("X-Multi"))

	_, err = parseHeaders([]string{"no colon"})
	assert.Error(t, err)
	_, err = parseHeaders([]string{": value"})
	assert.Error(t, err)
}

func TestCheckReferences(t *testing.T) {
	table := secrets.NewTable(map[string]string{"apikey": "XYZ", "empty": ""})
	h := http.Header{}
	h.Set("X-Api-Key", "secret://apikey/secret://empty")

	report, missing := checkReferences(h, table)
	require.Len(t, missing, 1)
	assert.EqualError(t, missing[0], `secret "empty" not found`)
	assert.Equal(t, [][]string{
		{"X-Api-Key", "apikey", refResolved},
		{"X-Api-Key", "empty", refMissing},
	}, report.Rows)
}

func seedAudit(t *testing.T, path string, records ...*audit.Record) {
	t.Helper()
	cfg := config.Default().Audit
	cfg.Backend = auditstorage.BackendSQLite
	cfg.SQLite.Path = path

	st, err := auditstorage.New(&cfg)
	require.NoError(t, err)
	for _, r := range records {
		require.NoError(t, st.Store(context.Background(), r))
	}
	require.NoError(t, st.Close())
}

func TestAuditQueryCommand(t *testing.T) {
	f := newFixture(t, testSecrets)
	now := time.Now().UTC().Truncate(time.Second)
	seedAudit(t, f.db,
		&audit.Record{ID: "a1", Timestamp: now.Add(-2 * time.Hour), Service: "crm", Method: "GET",
			UpstreamHost: "api.example.com", UpstreamPath: "/v1/a", Status: 200, Outcome: proxy.OutcomeSuccess,
			SecretKeys: []string{"apikey"}},
		&audit.Record{ID: "a2", Timestamp: now.Add(-time.Hour), Service: "crm", Method: "POST",
			UpstreamHost: "api.example.com", UpstreamPath: "/v1/b", Outcome: proxy.OutcomeUpstreamError,
			SecretKeys: []string{}, Error: "dial tcp: connection refused"},
		&audit.Record{ID: "a3", Timestamp: now.Add(-48 * time.Hour), Service: "billing", Method: "GET",
			UpstreamHost: "billing.example.com", UpstreamPath: "/", Status: 200, Outcome: proxy.OutcomeSuccess,
			SecretKeys: []string{"token"}},
	)

	t.Run("table", func(t *testing.T) {
		out, err := execute(t, "audit", "query", "--config", f.config, "--since", "24h")
		require.NoError(t, err)

		lines := strings.Split(strings.TrimSpace(out), "\n")
		require.Len(t, lines, 3)
		assert.True(t, strings.HasPrefix(lines[0], "TIME"))
		assert.Contains(t, lines[1], "upstream_error")
		assert.Contains(t, lines[2], "api.example.com/v1/a")
	})

	t.Run("json filtered", func(t *testing.T) {
		out, err := execute(t, "audit", "query", "--config", f.config,
			"--service", "crm", "--outcome", "success", "--format", "json")
		require.NoError(t, err)

		var got []audit.Record
		require.NoError(t, json.Unmarshal([]byte(out), &got))
		require.Len(t, got, 1)
		assert.Equal(t, "a1", got[0].ID)
	})

	t.Run("csv with db flag", func(t *testing.T) {
		out, err := execute(t, "audit", "query", "--db", f.db, "--config", f.config,
			"--service", "billing", "--format", "csv")
		require.NoError(t, err)

		lines := strings.Split(strings.TrimSpace(out), "\n")
		require.Len(t, lines, 2)
		assert.True(t, strings.HasPrefix(lines[0], "timestamp,request_id,service"))
		assert.Contains(t, lines[1], "billing.example.com")
	})

	t.Run("no records", func(t *testing.T) {
		out, err := execute(t, "audit", "query", "--config", f.config, "--service", "ghost")
		require.NoError(t, err)
		assert.Equal(t, "No records found.\n", out)
	})
}

func TestAuditQueryMissingDatabase(t *testing.T) {
	f := newFixture(t, testSecrets)

	_, err := execute(t, "audit", "query", "--config", f.config)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "audit database not found")
}

func TestAuditQueryBadFormat(t *testing.T) {
	_, err := execute(t, "audit", "query", "--format", "xml")
	require.Error(t, err)
}

func TestParseTimeFlag(t *testing.T) {
	now := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)

	got, err := parseTimeFlag("since", "", now)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = parseTimeFlag("since", "90m", now)
	require.NoError(t, err)
	assert.Equal(t, now.Add(-90*time.Minute), *got)

	got, err = parseTimeFlag("since", "2026-03-01T00:00:00Z", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), got.UTC())

	_, err = parseTimeFlag("since", "yesterday", now)
	var cfgErr *cli.ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "since", cfgErr.Field)
}
