package tls

import (
	"crypto/tls"
	"crypto/x509"
	"strings"
	"testing"
	"time"

	"mercator-hq/vaultgate/pkg/security/tls/tlstest"
)

func TestValidateX509Certificate(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	cert := &x509.Certificate{
		NotBefore: now.Add(-24 * time.Hour),
		NotAfter:  now.Add(24 * time.Hour),
	}

	tests := []struct {
		name    string
		at      time.Time
		wantErr string
	}{
		{"valid", now, ""},
		{"not yet valid", now.Add(-48 * time.Hour), "not yet valid"},
		{"expired", now.Add(48 * time.Hour), "expired"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateX509Certificate(cert, tt.at)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("ValidateX509Certificate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("ValidateX509Certificate() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestCheckCertificateExpiration(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	days, warning := CheckCertificateExpiration(&x509.Certificate{NotAfter: now.Add(90 * 24 * time.Hour)}, now)
	if days != 90 || warning != "" {
		t.Errorf("90 days: got %d, %q", days, warning)
	}

	days, warning = CheckCertificateExpiration(&x509.Certificate{NotAfter: now.Add(10 * 24 * time.Hour)}, now)
	if days != 10 {
		t.Errorf("days = %d, want 10", days)
	}
	if !strings.Contains(warning, "expires in 10 days (on 2026-06-11)") {
		t.Errorf("warning = %q", warning)
	}
}

func TestValidateCertificateEmpty(t *testing.T) {
	if err := ValidateCertificate(nil); err == nil {
		t.Error("ValidateCertificate(nil) should fail")
	}
	if err := ValidateCertificate(&tls.Certificate{}); err == nil {
		t.Error("ValidateCertificate() should fail on an empty chain")
	}
	if err := ValidateCertificate(&tls.Certificate{Certificate: [][]byte{[]byte("junk")}}); err == nil {
		t.Error("ValidateCertificate() should fail on an unparseable leaf")
	}
}

func TestLoadKeyPairAndChain(t *testing.T) {
	now := time.Now()
	p := tlstest.WriteSelfSigned(t, t.TempDir(), "chain", now.Add(-time.Hour), now.Add(24*time.Hour))

	_, leaf, err := LoadKeyPair(p.CertFile, p.KeyFile)
	if err != nil {
		t.Fatalf("LoadKeyPair() error = %v", err)
	}

	if err := ValidateCertificateChain(leaf, p.CertPool(), now); err != nil {
		t.Errorf("ValidateCertificateChain() error = %v", err)
	}
	if err := ValidateCertificateChain(leaf, x509.NewCertPool(), now); err == nil {
		t.Error("ValidateCertificateChain() should fail against an empty pool")
	}

	info := ExtractCertificateInfo(leaf)
	if info.Subject != "chain" || info.Issuer != "chain" {
		t.Errorf("info = %+v", info)
	}
	if len(info.DNSNames) != 1 || info.DNSNames[0] != "localhost" {
		t.Errorf("DNSNames = %v", info.DNSNames)
	}
	if len(info.IPAddresses) != 1 || info.IPAddresses[0] != "127.0.0.1" {
		t.Errorf("IPAddresses = %v", info.IPAddresses)
	}
}
