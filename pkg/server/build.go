package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/vaultgate/pkg/audit/recorder"
	"mercator-hq/vaultgate/pkg/audit/retention"
	auditstorage "mercator-hq/vaultgate/pkg/audit/storage"
	"mercator-hq/vaultgate/pkg/config"
	"mercator-hq/vaultgate/pkg/proxy"
	"mercator-hq/vaultgate/pkg/secrets"
	"mercator-hq/vaultgate/pkg/telemetry/health"
	"mercator-hq/vaultgate/pkg/telemetry/logging"
	"mercator-hq/vaultgate/pkg/telemetry/metrics"
	"mercator-hq/vaultgate/pkg/telemetry/tracing"
)

// Options carries the optional dependencies of New.
type Options struct {
	// Version is served on the version endpoint and tagged on spans.
	Version health.VersionInfo

	// Logger is the process logger. Its redactor, when present, is kept in
	// sync with the loaded secrets. Defaults to slog.Default().
	Logger *logging.Logger

	// Registry receives the vaultgate metrics. A fresh registry with the
	// Go and process collectors is used when nil.
	Registry *prometheus.Registry

	// HTTPClient replaces the upstream client built from the upstream
	// configuration.
	HTTPClient *http.Client
}

// New assembles a server from cfg. Nothing is loaded or started until Start.
func New(cfg *config.Config, opts Options) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	logger := slog.Default()
	var redactor *logging.Redactor
	if opts.Logger != nil {
		logger = opts.Logger.Logger
		redactor = opts.Logger.Redactor()
	}

	s := &Server{
		config:  cfg,
		version: opts.Version,
		logger:  logger.With("component", "server"),
	}

	s.store = secrets.NewStore(cfg.Secrets.FilePath, logger)
	if redactor != nil {
		s.store.OnReload(redactor.ObserveReload)
	}

	var observers proxy.Observers

	if cfg.Telemetry.Metrics.Enabled {
		s.metrics = metrics.NewCollector(&cfg.Telemetry.Metrics, opts.Registry)
		s.store.OnReload(s.metrics.ObserveReload)
		observers = append(observers, s.metrics)
	}

	tracer, err := tracing.New(&cfg.Telemetry.Tracing, opts.Version.Version)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	s.tracer = tracer

	if cfg.Audit.Enabled {
		st, err := auditstorage.New(&cfg.Audit)
		if err != nil {
			_ = tracer.Shutdown(context.Background())
			return nil, fmt.Errorf("failed to open audit storage: %w", err)
		}
		s.auditStorage = st
		s.recorder = recorder.New(st, cfg.Audit.Recorder, logger)
		observers = append(observers, s.recorder)

		if s.metrics != nil {
			s.metrics.RegisterAuditSource(s.recorder)
		}

		pruner := retention.NewPruner(st, cfg.Audit.Retention, logger)
		s.scheduler = retention.NewScheduler(pruner)
	}

	fwdOpts := []proxy.Option{
		proxy.WithLogger(logger),
		proxy.WithTracer(tracer.Trace()),
	}
	if len(observers) > 0 {
		fwdOpts = append(fwdOpts, proxy.WithObserver(observers))
	}
	if opts.HTTPClient != nil {
		fwdOpts = append(fwdOpts, proxy.WithHTTPClient(opts.HTTPClient))
	}
	s.forwarder = proxy.NewForwarder(s.store, cfg.Upstream, fwdOpts...)

	s.watcher = secrets.NewWatcher(s.store, secrets.WatcherConfig{
		Mode:             cfg.Secrets.WatchMode,
		PollInterval:     cfg.Secrets.PollInterval,
		DebounceInterval: cfg.Secrets.DebounceInterval,
	}, logger)

	s.checker = health.New(cfg.Telemetry.Health.CheckTimeout)
	s.checker.Register(health.CheckSecrets, health.SecretsLoaded(s.store))
	s.checker.Register(health.CheckWatcher, health.WatcherRunning(s.watcher))

	s.router = s.setupRoutes()

	return s, nil
}
