package config

import "testing"

func TestDefault(t *testing.T) {
	cfg := Default()

	tests := []struct {
		name string
		got  interface{}
		want interface{}
	}{
		{"listen address", cfg.Proxy.ListenAddress, DefaultListenAddress},
		{"max body", cfg.Proxy.MaxBodyBytes, int64(DefaultMaxBodyBytes)},
		{"cors enabled", cfg.Proxy.CORS.Enabled, true},
		{"cors origins", cfg.Proxy.CORS.AllowedOrigins[0], "*"},
		{"secrets path", cfg.Secrets.FilePath, DefaultSecretsFilePath},
		{"watch mode", cfg.Secrets.WatchMode, "fsnotify"},
		{"timeout mode", cfg.Upstream.TimeoutMode, TimeoutModeUnified},
		{"unified timeout", cfg.Upstream.Timeout, DefaultUpstreamTimeout},
		{"split read", cfg.Upstream.ReadTimeout, DefaultUpstreamReadTimeout},
		{"tls verification", cfg.Upstream.InsecureSkipVerify, false},
		{"audit enabled", cfg.Audit.Enabled, true},
		{"audit backend", cfg.Audit.Backend, "memory"},
		{"sqlite driver", cfg.Audit.SQLite.Driver, "modernc"},
		{"redact secrets", cfg.Telemetry.Logging.RedactSecrets, true},
		{"metrics namespace", cfg.Telemetry.Metrics.Namespace, "vaultgate"},
		{"tracing disabled", cfg.Telemetry.Tracing.Enabled, false},
		{"otlp insecure", cfg.Telemetry.Tracing.OTLP.Insecure, true},
		{"health enabled", cfg.Telemetry.Health.Enabled, true},
		{"tls min version", cfg.Security.TLS.MinVersion, "1.2"},
		{"cert reload interval", cfg.Security.TLS.CertReloadInterval, DefaultTLSCertReloadInterval},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, tt.got)
			}
		})
	}

	if err := Validate(cfg); err != nil {
		t.Errorf("default configuration should be valid: %v", err)
	}
}

func TestApplyDefaults_Idempotent(t *testing.T) {
	cfg := Default()
	cfg.Proxy.ListenAddress = "127.0.0.1:1234"
	ApplyDefaults(cfg)
	ApplyDefaults(cfg)

	if cfg.Proxy.ListenAddress != "127.0.0.1:1234" {
		t.Errorf("ApplyDefaults overwrote a set value: %q", cfg.Proxy.ListenAddress)
	}
	if len(cfg.Proxy.CORS.AllowedMethods) != 6 {
		t.Errorf("expected 6 methods, got %v", cfg.Proxy.CORS.AllowedMethods)
	}
}

func TestApplyDefaults_DisabledCORSLeftAlone(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if len(cfg.Proxy.CORS.AllowedOrigins) != 0 {
		t.Errorf("disabled CORS should not get origins, got %v", cfg.Proxy.CORS.AllowedOrigins)
	}
}

func TestDefault_BucketsNotShared(t *testing.T) {
	a := Default()
	a.Telemetry.Metrics.RequestDurationBuckets[0] = 99
	b := Default()
	if b.Telemetry.Metrics.RequestDurationBuckets[0] == 99 {
		t.Error("default buckets slice is shared between configs")
	}
}
