package recorder

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/atomic"

	"mercator-hq/vaultgate/pkg/audit"
	"mercator-hq/vaultgate/pkg/config"
	"mercator-hq/vaultgate/pkg/proxy"
)

// dropLogEvery throttles the "queue full" warning.
const dropLogEvery = 1000

// Recorder turns forward events into audit records and writes them from a
// single background worker. It implements proxy.Observer and never blocks
// the request: when the queue is full the record is dropped and counted.
type Recorder struct {
	storage audit.Storage
	config  config.RecorderConfig
	logger  *slog.Logger
	now     func() time.Time

	queue chan *audit.Record
	done  chan struct{}
	wg    sync.WaitGroup

	mu     sync.RWMutex
	closed bool

	written atomic.Uint64
	dropped atomic.Uint64
	failed  atomic.Uint64
}

// New starts a recorder writing to storage.
func New(storage audit.Storage, cfg config.RecorderConfig, logger *slog.Logger) *Recorder {
	if cfg.AsyncBuffer <= 0 {
		cfg.AsyncBuffer = config.DefaultAuditRecorderAsyncBuffer
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = config.DefaultAuditRecorderWriteTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	r := &Recorder{
		storage: storage,
		config:  cfg,
		logger:  logger.With("component", "audit.recorder"),
		now:     time.Now,
		queue:   make(chan *audit.Record, cfg.AsyncBuffer),
		done:    make(chan struct{}),
	}

	r.wg.Add(1)
	go r.worker()

	r.logger.Info("audit recorder started",
		"async_buffer", cfg.AsyncBuffer,
		"write_timeout", cfg.WriteTimeout.String(),
	)
	return r
}

// ObserveForward implements proxy.Observer.
func (r *Recorder) ObserveForward(_ context.Context, ev proxy.ForwardEvent) {
	record := NewRecord(ev)
	if record.Timestamp.IsZero() {
		record.Timestamp = r.now().UTC()
	}
	if !r.enqueue(record) {
		n := r.dropped.Inc()
		if n%dropLogEvery == 1 {
			r.logger.Warn("audit queue full, dropping records",
				"request_id", record.RequestID,
				"dropped_total", n,
				"capacity", r.config.AsyncBuffer,
			)
		}
	}
}

func (r *Recorder) enqueue(record *audit.Record) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return false
	}
	select {
	case r.queue <- record:
		return true
	default:
		return false
	}
}

// Close stops accepting records, writes everything still queued and waits
// for the worker. It does not close the storage.
func (r *Recorder) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.done)
	r.mu.Unlock()

	r.wg.Wait()

	r.logger.Info("audit recorder stopped",
		"written", r.written.Load(),
		"dropped", r.dropped.Load(),
		"failed", r.failed.Load(),
	)
	return nil
}

// Written returns the number of records persisted.
func (r *Recorder) Written() uint64 { return r.written.Load() }

// Dropped returns the number of records dropped because the queue was full
// or the recorder was closed.
func (r *Recorder) Dropped() uint64 { return r.dropped.Load() }

// Failed returns the number of records the storage rejected.
func (r *Recorder) Failed() uint64 { return r.failed.Load() }

func (r *Recorder) worker() {
	defer r.wg.Done()

	for {
		select {
		case record := <-r.queue:
			r.write(record)

		case <-r.done:
			// Close holds the lock while setting closed, so nothing is
			// added to the queue from here on.
			for {
				select {
				case record := <-r.queue:
					r.write(record)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) write(record *audit.Record) {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.WriteTimeout)
	defer cancel()

	if err := r.storage.Store(ctx, record); err != nil {
		r.failed.Inc()
		r.logger.Error("failed to store audit record",
			"record_id", record.ID,
			"request_id", record.RequestID,
			"error", err,
		)
		return
	}
	r.written.Inc()
}

// NewRecord builds the audit record of a forward event. Only the target's
// host and path are kept; the query string may carry client credentials.
func NewRecord(ev proxy.ForwardEvent) *audit.Record {
	record := &audit.Record{
		ID:         uuid.NewString(),
		RequestID:  ev.RequestID,
		Timestamp:  ev.Started.UTC(),
		Service:    ev.Service,
		Method:     ev.Method,
		Status:     ev.StatusCode,
		DurationMS: ev.Duration.Milliseconds(),
		Outcome:    ev.Outcome,
		SecretKeys: append([]string{}, ev.SecretKeys...),
	}
	if ev.Target != nil {
		record.UpstreamHost = ev.Target.Host
		record.UpstreamPath = ev.Target.EscapedPath()
		if record.UpstreamPath == "" {
			record.UpstreamPath = "/"
		}
	}
	if ev.Err != nil {
		record.Error = ev.Err.Error()
	}
	return record
}
