package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"go.uber.org/atomic"

	"mercator-hq/vaultgate/pkg/audit"
	"mercator-hq/vaultgate/pkg/audit/recorder"
	"mercator-hq/vaultgate/pkg/audit/retention"
	"mercator-hq/vaultgate/pkg/config"
	"mercator-hq/vaultgate/pkg/proxy"
	"mercator-hq/vaultgate/pkg/secrets"
	vgtls "mercator-hq/vaultgate/pkg/security/tls"
	"mercator-hq/vaultgate/pkg/telemetry/health"
	"mercator-hq/vaultgate/pkg/telemetry/metrics"
	"mercator-hq/vaultgate/pkg/telemetry/tracing"
)

// ErrAlreadyRunning is returned by Start on a server that was started before.
var ErrAlreadyRunning = errors.New("server is already running")

// Server is the vaultgate HTTP server. It owns the secrets store and its
// watcher, the forwarder, and the optional metrics, tracing and audit
// components.
type Server struct {
	config  *config.Config
	version health.VersionInfo
	logger  *slog.Logger

	store     *secrets.Store
	watcher   *secrets.Watcher
	forwarder *proxy.Forwarder
	checker   *health.Checker
	metrics   *metrics.Collector
	tracer    *tracing.Tracer

	auditStorage audit.Storage
	recorder     *recorder.Recorder
	scheduler    *retention.Scheduler

	certs *vgtls.CertificateReloader

	router     http.Handler
	httpServer *http.Server

	running      atomic.Bool
	mu           sync.RWMutex
	addr         net.Addr
	shutdownOnce sync.Once
	shutdownErr  error
}

// Start loads the secrets file, starts the watcher and the retention
// scheduler, then serves HTTP until ctx is done or the listener fails.
// Shutdown runs before Start returns.
func (s *Server) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	if err := s.watcher.Start(ctx); err != nil {
		return fmt.Errorf("failed to start secrets watcher: %w", err)
	}

	if s.scheduler != nil {
		if err := s.scheduler.Start(ctx); err != nil {
			_ = s.Shutdown(context.Background())
			return fmt.Errorf("failed to start audit retention: %w", err)
		}
	}

	proxyCfg := s.config.Proxy
	tlsCfg := s.config.Security.TLS

	s.httpServer = &http.Server{
		Addr:           proxyCfg.ListenAddress,
		Handler:        s.router,
		ReadTimeout:    proxyCfg.ReadTimeout,
		WriteTimeout:   proxyCfg.WriteTimeout,
		IdleTimeout:    proxyCfg.IdleTimeout,
		MaxHeaderBytes: proxyCfg.MaxHeaderBytes,
	}

	if tlsCfg.Enabled {
		if err := vgtls.CheckFiles(&tlsCfg); err != nil {
			_ = s.Shutdown(context.Background())
			return fmt.Errorf("failed to configure TLS: %w", err)
		}

		certs := vgtls.NewCertificateReloader(tlsCfg.CertFile, tlsCfg.KeyFile, tlsCfg.CertReloadInterval, s.logger)
		s.mu.Lock()
		s.certs = certs
		s.mu.Unlock()
		if err := certs.Start(ctx); err != nil {
			_ = s.Shutdown(context.Background())
			return fmt.Errorf("failed to load TLS certificate: %w", err)
		}

		tc, err := vgtls.ServerConfig(&tlsCfg, certs)
		if err != nil {
			_ = s.Shutdown(context.Background())
			return fmt.Errorf("failed to configure TLS: %w", err)
		}
		s.httpServer.TLSConfig = tc
	}

	ln, err := net.Listen("tcp", proxyCfg.ListenAddress)
	if err != nil {
		_ = s.Shutdown(context.Background())
		return fmt.Errorf("failed to listen on %s: %w", proxyCfg.ListenAddress, err)
	}

	s.mu.Lock()
	s.addr = ln.Addr()
	s.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting proxy server",
			"address", ln.Addr().String(),
			"tls_enabled", tlsCfg.Enabled,
			"secrets_file", s.store.Path(),
		)

		var err error
		if tlsCfg.Enabled {
			err = s.httpServer.ServeTLS(ln, "", "")
		} else {
			err = s.httpServer.Serve(ln)
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case err := <-errChan:
		_ = s.Shutdown(context.Background())
		return err
	}
}

// Shutdown drains in-flight requests, then stops the secrets watcher, the
// certificate reloader and the retention scheduler, flushes the audit queue and closes the audit storage
// and the tracer. It is safe to call more than once, and on a server that
// was never started.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() {
		timeout := s.config.Proxy.ShutdownTimeout
		s.logger.Info("initiating graceful shutdown", "timeout", timeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		var errs []error

		if s.httpServer != nil {
			if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
				s.logger.Error("error during server shutdown", "error", err)
				errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
			}
		}

		s.watcher.Stop()

		s.mu.RLock()
		certs := s.certs
		s.mu.RUnlock()
		if certs != nil {
			certs.Stop()
		}

		if s.scheduler != nil {
			s.scheduler.Stop()
		}

		if s.recorder != nil {
			if err := s.recorder.Close(); err != nil {
				errs = append(errs, fmt.Errorf("audit recorder close: %w", err))
			}
		}

		if s.auditStorage != nil {
			if err := s.auditStorage.Close(); err != nil {
				errs = append(errs, fmt.Errorf("audit storage close: %w", err))
			}
		}

		if err := s.tracer.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("tracer shutdown: %w", err))
		}

		s.running.Store(false)
		s.shutdownErr = errors.Join(errs...)

		s.logger.Info("proxy server stopped")
	})

	return s.shutdownErr
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	return s.running.Load()
}

// Addr returns the bound listener address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.addr
}

// Handler returns the configured HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Store returns the secrets store.
func (s *Server) Store() *secrets.Store {
	return s.store
}

// AuditStorage returns the audit storage, or nil when auditing is off.
func (s *Server) AuditStorage() audit.Storage {
	return s.auditStorage
}

// Metrics returns the metrics collector, or nil when metrics are off.
func (s *Server) Metrics() *metrics.Collector {
	return s.metrics
}
