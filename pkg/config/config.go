package config

import "time"

// Config is the root configuration structure for vaultgate.
type Config struct {
	// Proxy contains HTTP server configuration: listen address, timeouts,
	// request limits and CORS.
	Proxy ProxyConfig `yaml:"proxy"`

	// Secrets contains the location of the secrets file and how it is watched.
	Secrets SecretsConfig `yaml:"secrets"`

	// Upstream contains the outbound client policy: timeouts, TLS
	// verification and header filtering.
	Upstream UpstreamConfig `yaml:"upstream"`

	// Audit contains configuration for the forwarded-request audit trail.
	Audit AuditConfig `yaml:"audit"`

	// Telemetry contains logging, metrics, tracing and health configuration.
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Security contains server-side TLS configuration.
	Security SecurityConfig `yaml:"security"`
}

// ProxyConfig contains configuration for the HTTP server.
type ProxyConfig struct {
	// ListenAddress is the address and port to listen on.
	// Default: "0.0.0.0:8000"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request,
	// including the body.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the
	// response. It must leave room for the upstream call.
	// Default: 60s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the keep-alive idle timeout.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes limits the size of request headers.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`

	// MaxBodyBytes limits the size of a request body relayed upstream.
	// Default: 10485760 (10MB)
	MaxBodyBytes int64 `yaml:"max_body_bytes"`

	// CORS contains Cross-Origin Resource Sharing configuration.
	CORS CORSConfig `yaml:"cors"`
}

// CORSConfig contains CORS configuration.
type CORSConfig struct {
	// Enabled controls whether the CORS middleware is installed.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// AllowedOrigins is the list of allowed origins. "*" allows any.
	// Default: ["*"]
	AllowedOrigins []string `yaml:"allowed_origins"`

	// AllowedMethods is the list of allowed methods.
	// Default: ["GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"]
	AllowedMethods []string `yaml:"allowed_methods"`

	// AllowedHeaders is the list of allowed request headers. "*" echoes
	// whatever the preflight asks for.
	// Default: ["*"]
	AllowedHeaders []string `yaml:"allowed_headers"`

	// ExposedHeaders is the list of headers exposed to the browser.
	// Default: ["X-Request-ID"]
	ExposedHeaders []string `yaml:"exposed_headers"`

	// MaxAge is the preflight cache lifetime in seconds.
	// Default: 600
	MaxAge int `yaml:"max_age"`

	// AllowCredentials sets Access-Control-Allow-Credentials.
	// Default: false
	AllowCredentials bool `yaml:"allow_credentials"`
}

// SecretsConfig contains configuration for the secrets file.
type SecretsConfig struct {
	// FilePath is the YAML file mapping service names to secret tables.
	// Default: "/app/secrets/config_secret.yml"
	FilePath string `yaml:"file_path"`

	// WatchMode selects how changes are detected.
	// Options: "fsnotify" (events plus polling), "poll"
	// Default: "fsnotify"
	WatchMode string `yaml:"watch_mode"`

	// PollInterval is how often the file is stat'ed.
	// Default: 2s
	PollInterval time.Duration `yaml:"poll_interval"`

	// DebounceInterval is the quiet period before a reload after an event.
	// Default: 100ms
	DebounceInterval time.Duration `yaml:"debounce_interval"`
}

// UpstreamConfig contains the outbound client policy.
type UpstreamConfig struct {
	// TimeoutMode selects the timeout policy.
	// Options: "unified" (one deadline for the whole exchange), "split"
	// (separate connect, read and write bounds)
	// Default: "unified"
	TimeoutMode string `yaml:"timeout_mode"`

	// Timeout is the whole-exchange deadline in unified mode.
	// Default: 5s
	Timeout time.Duration `yaml:"timeout"`

	// ConnectTimeout bounds dialing and the TLS handshake in split mode.
	// Default: 5s
	ConnectTimeout time.Duration `yaml:"connect_timeout"`

	// ReadTimeout bounds each read from the upstream in split mode.
	// Default: 15s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout bounds each write to the upstream in split mode.
	// Default: 5s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// InsecureSkipVerify disables upstream certificate verification, for
	// targets with self-signed certificates.
	// Default: false
	InsecureSkipVerify bool `yaml:"insecure_skip_verify"`

	// MaxResponseBytes caps the relayed response body. 0 means unlimited.
	// Default: 0
	MaxResponseBytes int64 `yaml:"max_response_bytes"`

	// MaxIdleConns is the idle connection pool size.
	// Default: 100
	MaxIdleConns int `yaml:"max_idle_conns"`

	// IdleConnTimeout is how long an idle upstream connection is kept.
	// Default: 90s
	IdleConnTimeout time.Duration `yaml:"idle_conn_timeout"`

	// ExcludedHeaders are extra request header names never forwarded,
	// on top of the built-in transport set.
	ExcludedHeaders []string `yaml:"excluded_headers"`
}

// AuditConfig contains configuration for the audit trail.
type AuditConfig struct {
	// Enabled controls whether forwarded requests are recorded.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Backend selects the storage backend.
	// Options: "memory", "sqlite"
	// Default: "memory"
	Backend string `yaml:"backend"`

	// SQLite contains SQLite-specific configuration.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// Recorder contains async recorder configuration.
	Recorder RecorderConfig `yaml:"recorder"`

	// Retention contains retention policy configuration.
	Retention RetentionConfig `yaml:"retention"`

	// Query contains query limits.
	Query QueryConfig `yaml:"query"`
}

// SQLiteConfig contains SQLite-specific configuration.
type SQLiteConfig struct {
	// Path is the database file.
	// Default: "data/audit.db"
	Path string `yaml:"path"`

	// Driver selects the database/sql driver.
	// Options: "modernc" (pure Go), "cgo" (mattn/go-sqlite3)
	// Default: "modernc"
	Driver string `yaml:"driver"`

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int `yaml:"max_idle_conns"`

	// WALMode enables write-ahead logging.
	// Default: true
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is how long to wait on a locked database.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// RecorderConfig contains async recorder configuration.
type RecorderConfig struct {
	// AsyncBuffer is the size of the record queue. Records are dropped, and
	// counted, when it is full.
	// Default: 1000
	AsyncBuffer int `yaml:"async_buffer"`

	// WriteTimeout bounds a single storage write.
	// Default: 5s
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// RetentionConfig contains retention policy configuration.
type RetentionConfig struct {
	// Days is how long records are kept. 0 keeps them forever.
	// Default: 30
	Days int `yaml:"days"`

	// PruneSchedule is a standard cron expression.
	// Default: "0 3 * * *"
	PruneSchedule string `yaml:"prune_schedule"`
}

// QueryConfig contains query limits.
type QueryConfig struct {
	// DefaultLimit applies when a query sets no limit.
	// Default: 100
	DefaultLimit int `yaml:"default_limit"`

	// MaxLimit caps any query.
	// Default: 10000
	MaxLimit int `yaml:"max_limit"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains distributed tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`

	// Health contains health endpoint configuration.
	Health HealthConfig `yaml:"health"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum level: "debug", "info", "warn", "error".
	// Default: "info"
	Level string `yaml:"level"`

	// Format is "json" or "text".
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`

	// RedactSecrets scrubs sensitive attributes and every loaded secret
	// value from log output.
	// Default: true
	RedactSecrets bool `yaml:"redact_secrets"`

	// File optionally mirrors logs to a rotated file.
	File LogFileConfig `yaml:"file"`
}

// LogFileConfig contains rotated log file configuration.
type LogFileConfig struct {
	// Path enables file output when set.
	Path string `yaml:"path"`

	// MaxSizeMB is the size at which the file is rotated.
	// Default: 100
	MaxSizeMB int `yaml:"max_size_mb"`

	// MaxBackups is how many rotated files are kept.
	// Default: 5
	MaxBackups int `yaml:"max_backups"`

	// MaxAgeDays is how long rotated files are kept.
	// Default: 28
	MaxAgeDays int `yaml:"max_age_days"`

	// Compress gzips rotated files.
	// Default: false
	Compress bool `yaml:"compress"`
}

// MetricsConfig contains Prometheus metrics configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics are collected and served.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path of the metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "vaultgate"
	Namespace string `yaml:"namespace"`

	// MaxServices caps the number of distinct service label values;
	// further services are reported as "other".
	// Default: 100
	MaxServices int `yaml:"max_services"`

	// RequestDurationBuckets are histogram buckets in seconds.
	// Default: [0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20]
	RequestDurationBuckets []float64 `yaml:"request_duration_buckets"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether spans are exported.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Sampler is "always", "never" or "ratio".
	// Default: "ratio"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the sampled fraction for the ratio sampler.
	// Default: 0.1
	SampleRatio float64 `yaml:"sample_ratio"`

	// Endpoint is the OTLP gRPC collector address.
	// Example: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// ServiceName is the service.name resource attribute.
	// Default: "vaultgate"
	ServiceName string `yaml:"service_name"`

	// OTLP contains exporter options.
	OTLP OTLPConfig `yaml:"otlp"`
}

// OTLPConfig contains OTLP exporter configuration.
type OTLPConfig struct {
	// Insecure disables TLS to the collector.
	// Default: true
	Insecure bool `yaml:"insecure"`

	// Timeout bounds a single export.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}

// HealthConfig contains health endpoint configuration.
type HealthConfig struct {
	// Enabled controls whether the health endpoints are served.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// LivenessPath is the liveness probe path.
	// Default: "/health"
	LivenessPath string `yaml:"liveness_path"`

	// ReadinessPath is the readiness probe path.
	// Default: "/ready"
	ReadinessPath string `yaml:"readiness_path"`

	// VersionPath is the version endpoint path.
	// Default: "/version"
	VersionPath string `yaml:"version_path"`

	// CheckTimeout bounds each readiness check.
	// Default: 2s
	CheckTimeout time.Duration `yaml:"check_timeout"`
}

// SecurityConfig contains security-related configuration.
type SecurityConfig struct {
	// TLS contains server TLS configuration.
	TLS TLSConfig `yaml:"tls"`
}

// TLSConfig contains server TLS configuration.
type TLSConfig struct {
	// Enabled serves HTTPS instead of HTTP.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// CertFile is the PEM certificate. Required when Enabled.
	CertFile string `yaml:"cert_file"`

	// KeyFile is the PEM private key. Required when Enabled.
	KeyFile string `yaml:"key_file"`

	// MinVersion is "1.2" or "1.3".
	// Default: "1.2"
	MinVersion string `yaml:"min_version"`

	// CertReloadInterval is how often the certificate and key files are
	// checked for changes. Renewed certificates are picked up without a
	// restart.
	// Default: 5m
	CertReloadInterval time.Duration `yaml:"cert_reload_interval"`
}
