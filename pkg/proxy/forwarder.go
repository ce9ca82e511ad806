package proxy

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"mercator-hq/vaultgate/pkg/config"
	"mercator-hq/vaultgate/pkg/proxy/types"
	"mercator-hq/vaultgate/pkg/resolver"
	"mercator-hq/vaultgate/pkg/secrets"
	"mercator-hq/vaultgate/pkg/telemetry/logging"
	"mercator-hq/vaultgate/pkg/telemetry/tracing"
)

// SnapshotSource supplies the secrets snapshot for each request.
type SnapshotSource interface {
	Snapshot() *secrets.Snapshot
}

// Forwarder resolves secret references in a request's headers and sends it
// upstream.
type Forwarder struct {
	source           SnapshotSource
	client           *http.Client
	filter           *HeaderFilter
	maxResponseBytes int64
	observer         Observer
	tracer           trace.Tracer
	logger           *slog.Logger
}

// Option configures a Forwarder.
type Option func(*Forwarder)

// WithHTTPClient replaces the client built from the upstream config.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Forwarder) {
		f.client = client
	}
}

// WithObserver registers an observer for completed forwards.
func WithObserver(obs Observer) Option {
	return func(f *Forwarder) {
		f.observer = obs
	}
}

// WithLogger sets the forwarder's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Forwarder) {
		f.logger = logger
	}
}

// WithTracer sets the tracer used for forward spans. The global tracer
// provider is used otherwise.
func WithTracer(tracer trace.Tracer) Option {
	return func(f *Forwarder) {
		f.tracer = tracer
	}
}

// NewForwarder creates a forwarder reading secrets from source.
func NewForwarder(source SnapshotSource, cfg config.UpstreamConfig, opts ...Option) *Forwarder {
	f := &Forwarder{
		source:           source,
		filter:           NewHeaderFilter(cfg.ExcludedHeaders),
		maxResponseBytes: cfg.MaxResponseBytes,
	}
	for _, opt := range opts {
		opt(f)
	}

	if f.client == nil {
		f.client = NewHTTPClient(cfg)
	}
	if f.logger == nil {
		f.logger = slog.Default()
	}
	if f.tracer == nil {
		f.tracer = otel.Tracer("mercator-hq/vaultgate/proxy")
	}
	f.logger = f.logger.With("component", "proxy.forwarder")

	return f
}

// Forward sends req upstream on behalf of service.
//
// The snapshot is read once, so a reload during the call never mixes two
// configurations. Nothing is sent when the service is unknown, has no
// secrets, or references a missing key. The outbound request carries ctx,
// so cancelling it aborts the upstream call.
func (f *Forwarder) Forward(ctx context.Context, service string, req *types.Request) (*types.Response, error) {
	ev := ForwardEvent{
		RequestID: logging.GetRequestID(ctx),
		Service:   service,
		Method:    req.Method,
		Target:    req.Target,
		Started:   time.Now(),
	}

	ctx, span := f.tracer.Start(ctx, "proxy.forward", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	tracing.SetForwardAttributes(span, service, req.Method, req.Target)

	resp, err := f.forward(ctx, service, req, &ev)

	ev.Duration = time.Since(ev.Started)
	ev.Err = err
	ev.Outcome = Outcome(err)
	if resp != nil {
		ev.StatusCode = resp.StatusCode
		tracing.SetResponseAttributes(span, resp.StatusCode)
	}
	tracing.SetOutcomeAttribute(span, ev.Outcome)
	tracing.SetError(span, err)
	tracing.SetStatus(span, err)

	if f.observer != nil {
		f.observer.ObserveForward(ctx, ev)
	}

	return resp, err
}

func (f *Forwarder) forward(ctx context.Context, service string, req *types.Request, ev *ForwardEvent) (*types.Response, error) {
	table, ok := f.source.Snapshot().Service(service)
	if !ok {
		return nil, &ServiceError{Service: service, Err: ErrServiceNotFound}
	}
	if table.Len() == 0 {
		return nil, &ServiceError{Service: service, Err: ErrNoSecretsConfigured}
	}

	headers := f.filter.Filter(req.Header)
	ev.SecretKeys = resolver.HeaderReferences(headers)

	resolved, err := resolver.ResolveHeaders(headers, table)
	if err != nil {
		return nil, err
	}

	f.logger.DebugContext(ctx, "forwarding request",
		"method", req.Method,
		"target_host", req.Target.Host,
		"target_path", req.Target.Path,
		"header_names", HeaderNames(resolved),
		"secret_keys", ev.SecretKeys,
	)

	scrub := secretValues(table, ev.SecretKeys)

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	out, err := http.NewRequestWithContext(ctx, req.Method, req.Target.String(), body)
	if err != nil {
		return nil, newUpstreamError(service, err, scrub)
	}
	out.Header = resolved
	tracing.Inject(ctx, out.Header)

	resp, err := f.client.Do(out)
	if err != nil {
		return nil, newUpstreamError(service, err, scrub)
	}
	defer resp.Body.Close()

	payload, encoding, err := f.readBody(resp)
	if err != nil {
		return nil, newUpstreamError(service, err, scrub)
	}

	header := FilterResponseHeaders(resp.Header)
	if encoding != "" {
		header.Set("Content-Encoding", encoding)
	}

	return &types.Response{
		StatusCode: resp.StatusCode,
		Header:     header,
		Body:       payload,
	}, nil
}

// readBody reads the whole upstream body, bounded by maxResponseBytes.
// Content-Encoding is not relayed, so an encoded body the transport did not
// decode itself is decoded here. When a coding cannot be decoded the body is
// returned as is, together with the encoding the caller must keep.
func (f *Forwarder) readBody(resp *http.Response) ([]byte, string, error) {
	body := bufio.NewReader(resp.Body)
	reader := io.Reader(body)

	var keep string
	codings := parseEncodings(resp.Header.Get("Content-Encoding"))
	if _, err := body.Peek(1); err == io.EOF {
		codings = nil
	}
	switch {
	case resp.Uncompressed || len(codings) == 0:
	case decodable(codings):
		decoded, closeDecoders, err := decodeBody(body, codings)
		if err != nil {
			return nil, "", err
		}
		defer closeDecoders()
		reader = decoded
	default:
		keep = resp.Header.Get("Content-Encoding")
	}

	if f.maxResponseBytes > 0 {
		reader = io.LimitReader(reader, f.maxResponseBytes+1)
	}

	payload, err := io.ReadAll(reader)
	if err != nil {
		return nil, "", fmt.Errorf("read response body: %w", err)
	}
	if f.maxResponseBytes > 0 && int64(len(payload)) > f.maxResponseBytes {
		return nil, "", fmt.Errorf("%w: limit is %d bytes", ErrResponseTooLarge, f.maxResponseBytes)
	}
	return payload, keep, nil
}

// Outcome classifies a Forward error.
func Outcome(err error) string {
	var notFound *resolver.SecretNotFoundError
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, ErrServiceNotFound):
		return OutcomeServiceNotFound
	case errors.Is(err, ErrNoSecretsConfigured):
		return OutcomeNoSecrets
	case errors.As(err, &notFound):
		return OutcomeSecretNotFound
	case errors.Is(err, context.Canceled):
		return OutcomeCanceled
	default:
		return OutcomeUpstreamError
	}
}

// secretValues lists what must never appear in an error message for this
// request: each substituted value and its Base64 form.
func secretValues(table secrets.Table, keys []string) []string {
	values := make([]string, 0, len(keys)*2)
	for _, key := range keys {
		v, ok := table.Lookup(key)
		if !ok {
			continue
		}
		values = append(values, v, base64.StdEncoding.EncodeToString([]byte(v)))
	}
	return values
}

func newUpstreamError(service string, cause error, scrub []string) *UpstreamError {
	return &UpstreamError{
		Service: service,
		Cause:   cause,
		message: secrets.Scrub(cause.Error(), scrub),
	}
}
