package tls

import (
	"crypto/tls"
	"fmt"
	"os"

	"mercator-hq/vaultgate/pkg/config"
)

// serverCipherSuites limits TLS 1.2 to AEAD suites with forward secrecy.
// TLS 1.3 suites are not configurable.
var serverCipherSuites = []uint16{
	tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
	tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
	tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
	tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
	tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305_SHA256,
	tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305_SHA256,
}

// ServerConfig builds the listener TLS configuration. Certificates are
// served by r, so renewed files are picked up without a restart.
func ServerConfig(cfg *config.TLSConfig, r *CertificateReloader) (*tls.Config, error) {
	if err := CheckFiles(cfg); err != nil {
		return nil, err
	}

	minVersion, err := ParseMinVersion(cfg.MinVersion)
	if err != nil {
		return nil, err
	}

	tc := &tls.Config{
		MinVersion:   minVersion,
		CipherSuites: serverCipherSuites,
	}
	if r != nil {
		tc.GetCertificate = r.GetCertificate
	}
	return tc, nil
}

// CheckFiles reports whether the certificate and key paths are set and
// exist.
func CheckFiles(cfg *config.TLSConfig) error {
	if cfg.CertFile == "" {
		return fmt.Errorf("TLS cert file not specified")
	}

	if cfg.KeyFile == "" {
		return fmt.Errorf("TLS key file not specified")
	}

	if _, err := os.Stat(cfg.CertFile); os.IsNotExist(err) {
		return fmt.Errorf("TLS cert file not found: %s", cfg.CertFile)
	}

	if _, err := os.Stat(cfg.KeyFile); os.IsNotExist(err) {
		return fmt.Errorf("TLS key file not found: %s", cfg.KeyFile)
	}

	return nil
}

// ParseMinVersion maps "1.2" and "1.3" to their crypto/tls constants.
// The empty string means 1.2.
func ParseMinVersion(v string) (uint16, error) {
	switch v {
	case "", "1.2":
		return tls.VersionTLS12, nil
	case "1.3":
		return tls.VersionTLS13, nil
	default:
		return 0, fmt.Errorf("unsupported TLS min version %q", v)
	}
}
