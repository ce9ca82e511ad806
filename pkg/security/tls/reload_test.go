package tls

import (
	"context"
	"crypto/tls"
	"errors"
	"os"
	"testing"
	"time"

	"mercator-hq/vaultgate/pkg/security/tls/tlstest"
)

func writePair(t *testing.T, dir, cn string, mtime time.Time) tlstest.Pair {
	t.Helper()
	now := time.Now()
	p := tlstest.WriteSelfSigned(t, dir, cn, now.Add(-time.Hour), now.Add(90*24*time.Hour))
	for _, f := range []string{p.CertFile, p.KeyFile} {
		if err := os.Chtimes(f, mtime, mtime); err != nil {
			t.Fatalf("Chtimes() error = %v", err)
		}
	}
	return p
}

func subject(t *testing.T, r *CertificateReloader) string {
	t.Helper()
	leaf, err := leafCertificate(r.Certificate())
	if err != nil {
		t.Fatalf("leafCertificate() error = %v", err)
	}
	return leaf.Subject.CommonName
}

func TestCertificateReloader_Start(t *testing.T) {
	p := writePair(t, t.TempDir(), "first", time.Now())

	r := NewCertificateReloader(p.CertFile, p.KeyFile, time.Hour, nil)
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer r.Stop()

	cert, err := r.GetCertificate(&tls.ClientHelloInfo{})
	if err != nil {
		t.Fatalf("GetCertificate() error = %v", err)
	}
	if len(cert.Certificate) == 0 {
		t.Fatal("certificate chain is empty")
	}
	if got := subject(t, r); got != "first" {
		t.Errorf("subject = %q, want %q", got, "first")
	}
}

func TestCertificateReloader_StartMissingFiles(t *testing.T) {
	r := NewCertificateReloader("nonexistent.crt", "nonexistent.key", time.Second, nil)

	if err := r.Start(context.Background()); err == nil {
		t.Fatal("Start() should fail with nonexistent files")
	}
	r.Stop()

	if _, err := r.GetCertificate(nil); !errors.Is(err, ErrNoCertificate) {
		t.Errorf("GetCertificate() error = %v, want ErrNoCertificate", err)
	}
}

func TestCertificateReloader_StartExpired(t *testing.T) {
	now := time.Now()
	p := tlstest.WriteSelfSigned(t, t.TempDir(), "old", now.Add(-48*time.Hour), now.Add(-24*time.Hour))

	r := NewCertificateReloader(p.CertFile, p.KeyFile, 0, nil)
	if err := r.Start(context.Background()); err == nil {
		t.Fatal("Start() should reject an expired certificate")
	}
}

func TestCertificateReloader_ReloadIfChanged(t *testing.T) {
	dir := t.TempDir()
	base := time.Now().Add(-time.Hour).Truncate(time.Second)
	p := writePair(t, dir, "first", base)

	r := NewCertificateReloader(p.CertFile, p.KeyFile, 0, nil)
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	reloaded, err := r.ReloadIfChanged()
	if err != nil || reloaded {
		t.Fatalf("ReloadIfChanged() = %v, %v; want false, nil", reloaded, err)
	}

	writePair(t, dir, "second", base.Add(time.Minute))
	reloaded, err = r.ReloadIfChanged()
	if err != nil || !reloaded {
		t.Fatalf("ReloadIfChanged() = %v, %v; want true, nil", reloaded, err)
	}
	if got := subject(t, r); got != "second" {
		t.Errorf("subject = %q, want %q", got, "second")
	}

	// An older mtime still counts as a change.
	writePair(t, dir, "third", base.Add(-time.Minute))
	if reloaded, _ := r.ReloadIfChanged(); !reloaded {
		t.Error("ReloadIfChanged() should reload when mtime goes backwards")
	}
}

func TestCertificateReloader_KeepsPreviousOnBadReload(t *testing.T) {
	dir := t.TempDir()
	base := time.Now().Add(-time.Hour).Truncate(time.Second)
	p := writePair(t, dir, "good", base)

	r := NewCertificateReloader(p.CertFile, p.KeyFile, 0, nil)
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if err := os.WriteFile(p.CertFile, []byte("not a certificate"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(p.CertFile, base.Add(time.Minute), base.Add(time.Minute)); err != nil {
		t.Fatal(err)
	}

	if _, err := r.ReloadIfChanged(); err == nil {
		t.Fatal("ReloadIfChanged() should fail on a corrupt certificate")
	}
	if got := subject(t, r); got != "good" {
		t.Errorf("subject = %q, want previous certificate %q", got, "good")
	}
}

func TestCertificateReloader_PollsForChanges(t *testing.T) {
	dir := t.TempDir()
	base := time.Now().Add(-time.Hour).Truncate(time.Second)
	p := writePair(t, dir, "first", base)

	r := NewCertificateReloader(p.CertFile, p.KeyFile, 10*time.Millisecond, nil)
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer r.Stop()

	writePair(t, dir, "second", base.Add(time.Minute))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if subject(t, r) == "second" {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("certificate was not reloaded by the poll loop")
}

func TestCertificateReloader_StopsOnContextCancel(t *testing.T) {
	p := writePair(t, t.TempDir(), "first", time.Now())

	ctx, cancel := context.WithCancel(context.Background())
	r := NewCertificateReloader(p.CertFile, p.KeyFile, time.Hour, nil)
	if err := r.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	cancel()
	stopped := make(chan struct{})
	go func() {
		r.Stop()
		r.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop() did not return after context cancel")
	}
}
