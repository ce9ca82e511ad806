package tls

import (
	"crypto/tls"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mercator-hq/vaultgate/pkg/config"
)

func TestServerConfig(t *testing.T) {
	dir := t.TempDir()
	cert := filepath.Join(dir, "cert.pem")
	key := filepath.Join(dir, "key.pem")
	if err := os.WriteFile(cert, []byte("cert"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(key, []byte("key"), 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		cfg     config.TLSConfig
		want    uint16
		wantErr string
	}{
		{"default version", config.TLSConfig{CertFile: cert, KeyFile: key}, tls.VersionTLS12, ""},
		{"tls 1.3", config.TLSConfig{CertFile: cert, KeyFile: key, MinVersion: "1.3"}, tls.VersionTLS13, ""},
		{"bad version", config.TLSConfig{CertFile: cert, KeyFile: key, MinVersion: "1.0"}, 0, "unsupported TLS min version"},
		{"no cert", config.TLSConfig{KeyFile: key}, 0, "cert file not specified"},
		{"no key", config.TLSConfig{CertFile: cert}, 0, "key file not specified"},
		{"missing cert", config.TLSConfig{CertFile: filepath.Join(dir, "nope.pem"), KeyFile: key}, 0, "cert file not found"},
		{"missing key", config.TLSConfig{CertFile: cert, KeyFile: filepath.Join(dir, "nope.key")}, 0, "key file not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc, err := ServerConfig(&tt.cfg, nil)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("ServerConfig() error = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ServerConfig() error = %v", err)
			}
			if tc.MinVersion != tt.want {
				t.Errorf("MinVersion = %x, want %x", tc.MinVersion, tt.want)
			}
			if len(tc.CipherSuites) == 0 {
				t.Error("CipherSuites should be restricted")
			}
			if tc.GetCertificate != nil {
				t.Error("GetCertificate should be nil without a reloader")
			}
		})
	}
}

func TestServerConfigUsesReloader(t *testing.T) {
	p := writePair(t, t.TempDir(), "served", time.Now())
	r := NewCertificateReloader(p.CertFile, p.KeyFile, 0, nil)
	if err := r.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	tc, err := ServerConfig(&config.TLSConfig{CertFile: p.CertFile, KeyFile: p.KeyFile}, r)
	if err != nil {
		t.Fatalf("ServerConfig() error = %v", err)
	}

	cert, err := tc.GetCertificate(&tls.ClientHelloInfo{ServerName: "localhost"})
	if err != nil {
		t.Fatalf("GetCertificate() error = %v", err)
	}
	if cert != r.Certificate() {
		t.Error("GetCertificate should return the reloader's current certificate")
	}
}
