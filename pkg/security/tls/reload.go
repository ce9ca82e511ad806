package tls

import (
	"context"
	"crypto/tls"
	"errors"
	"log/slog"
	"os"
	"sync"
	"time"
)

// ErrNoCertificate is returned by GetCertificate before the first
// successful load.
var ErrNoCertificate = errors.New("no TLS certificate loaded")

// CertificateReloader serves the listener certificate and reloads it when
// the certificate or key file changes on disk. A failed reload keeps the
// previous certificate.
type CertificateReloader struct {
	certFile string
	keyFile  string
	interval time.Duration
	logger   *slog.Logger

	mu       sync.RWMutex
	cert     *tls.Certificate
	certTime time.Time
	keyTime  time.Time

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewCertificateReloader creates a reloader for the key pair. interval is
// how often the files are checked; zero disables polling.
func NewCertificateReloader(certFile, keyFile string, interval time.Duration, logger *slog.Logger) *CertificateReloader {
	if logger == nil {
		logger = slog.Default()
	}
	return &CertificateReloader{
		certFile: certFile,
		keyFile:  keyFile,
		interval: interval,
		logger:   logger.With("component", "tls.reloader"),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start loads the key pair and begins polling for changes until ctx is
// done or Stop is called. The initial load must succeed.
func (r *CertificateReloader) Start(ctx context.Context) error {
	if err := r.Load(); err != nil {
		close(r.done)
		return err
	}

	if r.interval <= 0 {
		close(r.done)
		return nil
	}

	go r.reloadLoop(ctx)
	return nil
}

// Stop ends polling and waits for the loop to exit. It is safe to call
// more than once.
func (r *CertificateReloader) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
	<-r.done
}

func (r *CertificateReloader) reloadLoop(ctx context.Context) {
	defer close(r.done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := r.ReloadIfChanged(); err != nil {
				r.logger.Error("failed to reload certificate, keeping previous",
					"error", err,
					"cert_file", r.certFile,
					"key_file", r.keyFile,
				)
			}
		case <-r.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// ReloadIfChanged reloads the key pair when either file's modification
// time differs from the last load. It reports whether a reload happened.
func (r *CertificateReloader) ReloadIfChanged() (bool, error) {
	if !r.changed() {
		return false, nil
	}
	if err := r.Load(); err != nil {
		return false, err
	}
	r.logger.Info("certificate reloaded", "cert_file", r.certFile)
	return true, nil
}

// changed compares modification times with inequality rather than
// After, since secret mounts swap in files whose mtime can go backwards.
func (r *CertificateReloader) changed() bool {
	certInfo, err := os.Stat(r.certFile)
	if err != nil {
		return false
	}

	keyInfo, err := os.Stat(r.keyFile)
	if err != nil {
		return false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	return !certInfo.ModTime().Equal(r.certTime) || !keyInfo.ModTime().Equal(r.keyTime)
}

// Load reads and validates the key pair and makes it current.
func (r *CertificateReloader) Load() error {
	certInfo, err := os.Stat(r.certFile)
	if err != nil {
		return err
	}

	keyInfo, err := os.Stat(r.keyFile)
	if err != nil {
		return err
	}

	cert, err := tls.LoadX509KeyPair(r.certFile, r.keyFile)
	if err != nil {
		return err
	}

	if err := ValidateCertificate(&cert); err != nil {
		return err
	}

	r.mu.Lock()
	r.cert = &cert
	r.certTime = certInfo.ModTime()
	r.keyTime = keyInfo.ModTime()
	r.mu.Unlock()

	r.logCertificateInfo(&cert)
	return nil
}

// Certificate returns the current key pair, or nil before the first load.
func (r *CertificateReloader) Certificate() *tls.Certificate {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cert
}

// GetCertificate has the signature of tls.Config.GetCertificate.
func (r *CertificateReloader) GetCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	cert := r.Certificate()
	if cert == nil {
		return nil, ErrNoCertificate
	}
	return cert, nil
}

func (r *CertificateReloader) logCertificateInfo(cert *tls.Certificate) {
	leaf, err := leafCertificate(cert)
	if err != nil {
		return
	}

	daysUntilExpiry, warning := CheckCertificateExpiration(leaf, time.Now())

	if warning != "" {
		r.logger.Warn("certificate expiring soon",
			"subject", leaf.Subject.CommonName,
			"expires_in_days", daysUntilExpiry,
			"expires_at", leaf.NotAfter.Format(time.RFC3339),
		)
		return
	}

	r.logger.Info("certificate loaded",
		"subject", leaf.Subject.CommonName,
		"issuer", leaf.Issuer.CommonName,
		"expires_in_days", daysUntilExpiry,
		"expires_at", leaf.NotAfter.Format(time.RFC3339),
	)
}
