package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of every configuration environment variable.
const EnvPrefix = "VAULTGATE_"

// LoadConfig loads configuration from a YAML file. The file is decoded on
// top of Default, so omitted fields keep their defaults. An empty path
// yields the defaults alone. The result is validated; environment variables
// are not consulted (see LoadConfigWithEnvOverrides).
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
		}
	}

	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Variables follow VAULTGATE_SECTION_FIELD
// (e.g. VAULTGATE_PROXY_LISTEN_ADDRESS) and always win over the file.
//
// Two legacy variables are honored for existing deployments: TIMEOUT=true
// selects the split upstream timeout mode and LOG_LEVEL sets the log level.
// The VAULTGATE_ variables take precedence over both.
//
// The loading sequence is:
// 1. Decode YAML from file on top of defaults
// 2. Apply legacy then VAULTGATE_ overrides
// 3. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)
	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to cfg.
// Unparseable values are ignored.
func applyEnvOverrides(cfg *Config) {
	// Legacy
	if b, ok := envBool("TIMEOUT"); ok {
		if b {
			cfg.Upstream.TimeoutMode = TimeoutModeSplit
		} else {
			cfg.Upstream.TimeoutMode = TimeoutModeUnified
		}
	}
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = strings.ToLower(val)
	}

	// Proxy overrides
	envString(EnvPrefix+"PROXY_LISTEN_ADDRESS", &cfg.Proxy.ListenAddress)
	envDuration(EnvPrefix+"PROXY_READ_TIMEOUT", &cfg.Proxy.ReadTimeout)
	envDuration(EnvPrefix+"PROXY_WRITE_TIMEOUT", &cfg.Proxy.WriteTimeout)
	envDuration(EnvPrefix+"PROXY_IDLE_TIMEOUT", &cfg.Proxy.IdleTimeout)
	envDuration(EnvPrefix+"PROXY_SHUTDOWN_TIMEOUT", &cfg.Proxy.ShutdownTimeout)
	envInt(EnvPrefix+"PROXY_MAX_HEADER_BYTES", &cfg.Proxy.MaxHeaderBytes)
	envInt64(EnvPrefix+"PROXY_MAX_BODY_BYTES", &cfg.Proxy.MaxBodyBytes)
	envBoolInto(EnvPrefix+"PROXY_CORS_ENABLED", &cfg.Proxy.CORS.Enabled)
	envList(EnvPrefix+"PROXY_CORS_ALLOWED_ORIGINS", &cfg.Proxy.CORS.AllowedOrigins)

	// Secrets overrides
	envString(EnvPrefix+"SECRETS_FILE_PATH", &cfg.Secrets.FilePath)
	envString(EnvPrefix+"SECRETS_WATCH_MODE", &cfg.Secrets.WatchMode)
	envDuration(EnvPrefix+"SECRETS_POLL_INTERVAL", &cfg.Secrets.PollInterval)
	envDuration(EnvPrefix+"SECRETS_DEBOUNCE_INTERVAL", &cfg.Secrets.DebounceInterval)

	// Upstream overrides
	envString(EnvPrefix+"UPSTREAM_TIMEOUT_MODE", &cfg.Upstream.TimeoutMode)
	envDuration(EnvPrefix+"UPSTREAM_TIMEOUT", &cfg.Upstream.Timeout)
	envDuration(EnvPrefix+"UPSTREAM_CONNECT_TIMEOUT", &cfg.Upstream.ConnectTimeout)
	envDuration(EnvPrefix+"UPSTREAM_READ_TIMEOUT", &cfg.Upstream.ReadTimeout)
	envDuration(EnvPrefix+"UPSTREAM_WRITE_TIMEOUT", &cfg.Upstream.WriteTimeout)
	envBoolInto(EnvPrefix+"UPSTREAM_INSECURE_SKIP_VERIFY", &cfg.Upstream.InsecureSkipVerify)
	envInt64(EnvPrefix+"UPSTREAM_MAX_RESPONSE_BYTES", &cfg.Upstream.MaxResponseBytes)
	envList(EnvPrefix+"UPSTREAM_EXCLUDED_HEADERS", &cfg.Upstream.ExcludedHeaders)

	// Audit overrides
	envBoolInto(EnvPrefix+"AUDIT_ENABLED", &cfg.Audit.Enabled)
	envString(EnvPrefix+"AUDIT_BACKEND", &cfg.Audit.Backend)
	envString(EnvPrefix+"AUDIT_SQLITE_PATH", &cfg.Audit.SQLite.Path)
	envString(EnvPrefix+"AUDIT_SQLITE_DRIVER", &cfg.Audit.SQLite.Driver)
	envInt(EnvPrefix+"AUDIT_RETENTION_DAYS", &cfg.Audit.Retention.Days)
	envString(EnvPrefix+"AUDIT_RETENTION_PRUNE_SCHEDULE", &cfg.Audit.Retention.PruneSchedule)

	// Telemetry overrides
	envString(EnvPrefix+"TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	envString(EnvPrefix+"TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	envString(EnvPrefix+"TELEMETRY_LOGGING_FILE_PATH", &cfg.Telemetry.Logging.File.Path)
	envBoolInto(EnvPrefix+"TELEMETRY_LOGGING_REDACT_SECRETS", &cfg.Telemetry.Logging.RedactSecrets)
	envBoolInto(EnvPrefix+"TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	envBoolInto(EnvPrefix+"TELEMETRY_TRACING_ENABLED", &cfg.Telemetry.Tracing.Enabled)
	envString(EnvPrefix+"TELEMETRY_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)
	envString(EnvPrefix+"TELEMETRY_TRACING_SAMPLER", &cfg.Telemetry.Tracing.Sampler)
	if val := os.Getenv(EnvPrefix + "TELEMETRY_TRACING_SAMPLE_RATIO"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Telemetry.Tracing.SampleRatio = f
		}
	}

	// Security overrides
	envBoolInto(EnvPrefix+"SECURITY_TLS_ENABLED", &cfg.Security.TLS.Enabled)
	envString(EnvPrefix+"SECURITY_TLS_CERT_FILE", &cfg.Security.TLS.CertFile)
	envString(EnvPrefix+"SECURITY_TLS_KEY_FILE", &cfg.Security.TLS.KeyFile)
	envString(EnvPrefix+"SECURITY_TLS_MIN_VERSION", &cfg.Security.TLS.MinVersion)
	envDuration(EnvPrefix+"SECURITY_TLS_CERT_RELOAD_INTERVAL", &cfg.Security.TLS.CertReloadInterval)
}

func envString(name string, dst *string) {
	if val := os.Getenv(name); val != "" {
		*dst = val
	}
}

func envDuration(name string, dst *time.Duration) {
	if val := os.Getenv(name); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}

func envInt(name string, dst *int) {
	if val := os.Getenv(name); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			*dst = i
		}
	}
}

func envInt64(name string, dst *int64) {
	if val := os.Getenv(name); val != "" {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			*dst = i
		}
	}
}

func envBool(name string) (bool, bool) {
	val := os.Getenv(name)
	if val == "" {
		return false, false
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, false
	}
	return b, true
}

func envBoolInto(name string, dst *bool) {
	if b, ok := envBool(name); ok {
		*dst = b
	}
}

// envList reads a comma-separated list.
func envList(name string, dst *[]string) {
	val := os.Getenv(name)
	if val == "" {
		return
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	*dst = out
}
