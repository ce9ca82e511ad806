package proxy

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mercator-hq/vaultgate/pkg/config"
	"mercator-hq/vaultgate/pkg/proxy/types"
	"mercator-hq/vaultgate/pkg/resolver"
	"mercator-hq/vaultgate/pkg/secrets"
)

type staticSource struct {
	snap *secrets.Snapshot
}

func (s staticSource) Snapshot() *secrets.Snapshot {
	return s.snap
}

func newSource(t *testing.T, doc string) staticSource {
	t.Helper()
	services, err := secrets.Parse([]byte(doc))
	require.NoError(t, err)
	return staticSource{snap: secrets.NewSnapshot(services, "test.yml", time.Now(), "digest")}
}

func testUpstreamConfig() config.UpstreamConfig {
	return config.Default().Upstream
}

// recordingUpstream captures every request that reaches it.
type recordingUpstream struct {
	mu       sync.Mutex
	requests []*http.Request
	bodies   [][]byte
	handler  http.HandlerFunc
	server   *httptest.Server
}

func newRecordingUpstream(t *testing.T, handler http.HandlerFunc) *recordingUpstream {
	t.Helper()
	u := &recordingUpstream{handler: handler}
	u.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		u.mu.Lock()
		u.requests = append(u.requests, r.Clone(context.Background()))
		u.bodies = append(u.bodies, body)
		u.mu.Unlock()
		if u.handler != nil {
			u.handler(w, r)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(u.server.Close)
	return u
}

func (u *recordingUpstream) calls() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.requests)
}

func (u *recordingUpstream) last() (*http.Request, []byte) {
	u.mu.Lock()
	defer u.mu.Unlock()
	n := len(u.requests)
	return u.requests[n-1], u.bodies[n-1]
}

func newRequest(t *testing.T, method, target string, header http.Header, body []byte) *types.Request {
	t.Helper()
	u, err := url.Parse(target)
	require.NoError(t, err)
	if header == nil {
		header = http.Header{}
	}
	return &types.Request{Method: method, Target: u, Header: header, Body: body}
}

const svcDoc = "svc1:\n  apikey: XYZ\n  password: s3cr3t\nempty: {}\nnulls:\n  apikey: ~\n"

func TestForward_ResolvesHeaders(t *testing.T) {
	up := newRecordingUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Upstream", "yes")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	fwd := NewForwarder(newSource(t, svcDoc), testUpstreamConfig())

	header := http.Header{}
	header.Set("X-Api-Key", "secret://APIKEY")
	header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte("secret://password")))
	header.Set("Accept", "application/json")

	resp, err := fwd.Forward(context.Background(), "svc1", newRequest(t, http.MethodPost, up.server.URL+"/items?x=1", header, []byte(`{"a":1}`)))
	require.NoError(t, err)

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, `{"ok":true}`, string(resp.Body))
	assert.Equal(t, "yes", resp.Header.Get("X-Upstream"))
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Empty(t, resp.Header.Get("Content-Length"))

	got, body := up.last()
	assert.Equal(t, http.MethodPost, got.Method)
	assert.Equal(t, "/items", got.URL.Path)
	assert.Equal(t, "1", got.URL.Query().Get("x"))
	assert.Equal(t, "XYZ", got.Header.Get("X-Api-Key"))
	assert.Equal(t, "Basic "+base64.StdEncoding.EncodeToString([]byte("s3cr3t")), got.Header.Get("Authorization"))
	assert.Equal(t, "application/json", got.Header.Get("Accept"))
	assert.Equal(t, `{"a":1}`, string(body))
}

func TestForward_ExcludedHeadersNeverForwarded(t *testing.T) {
	up := newRecordingUpstream(t, nil)
	cfg := testUpstreamConfig()
	cfg.ExcludedHeaders = []string{"X-Internal"}
	fwd := NewForwarder(newSource(t, svcDoc), cfg)

	header := http.Header{}
	for _, name := range []string{
		"ORIGIN", "referer", "Sec-Fetch-Mode", "sec-fetch-site", "SEC-FETCH-DEST",
		"Upgrade-Insecure-Requests", "PRAGMA", "cache-control", "Keep-Alive",
		"Proxy-Authorization", "Te", "x-internal", "X-Dropped-By-Connection",
	} {
		header[name] = []string{"v"}
	}
	header["connection"] = []string{"X-Dropped-By-Connection"}
	header.Set("X-Kept", "kept")

	_, err := fwd.Forward(context.Background(), "svc1", newRequest(t, http.MethodGet, up.server.URL, header, nil))
	require.NoError(t, err)

	got, _ := up.last()
	for name := range got.Header {
		lower := strings.ToLower(name)
		assert.NotContains(t, []string{
			"origin", "referer", "upgrade-insecure-requests", "pragma", "cache-control",
			"keep-alive", "proxy-authorization", "x-internal", "x-dropped-by-connection",
		}, lower)
		assert.False(t, strings.HasPrefix(lower, "sec-fetch-"), name)
	}
	assert.Equal(t, "kept", got.Header.Get("X-Kept"))
}

func TestForward_LookupFailuresSendNothing(t *testing.T) {
	up := newRecordingUpstream(t, nil)
	fwd := NewForwarder(newSource(t, svcDoc), testUpstreamConfig())

	tests := []struct {
		name    string
		service string
		header  http.Header
		check   func(t *testing.T, err error)
	}{
		{
			name:    "unknown service",
			service: "crm",
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrServiceNotFound)
				assert.Equal(t, OutcomeServiceNotFound, Outcome(err))
			},
		},
		{
			name:    "service without secrets",
			service: "empty",
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrNoSecretsConfigured)
			},
		},
		{
			name:    "null secret referenced",
			service: "nulls",
			header:  http.Header{"X-Api-Key": {"secret://apikey"}},
			check: func(t *testing.T, err error) {
				var notFound *resolver.SecretNotFoundError
				require.ErrorAs(t, err, &notFound)
				assert.Equal(t, "apikey", notFound.Key)
			},
		},
		{
			name:    "missing key",
			service: "svc1",
			header:  http.Header{"X-Token": {"secret://nope"}},
			check: func(t *testing.T, err error) {
				var notFound *resolver.SecretNotFoundError
				require.ErrorAs(t, err, &notFound)
				assert.Equal(t, "nope", notFound.Key)
				assert.Equal(t, OutcomeSecretNotFound, Outcome(err))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := fwd.Forward(context.Background(), tt.service, newRequest(t, http.MethodGet, up.server.URL, tt.header, nil))
			require.Error(t, err)
			assert.Nil(t, resp)
			tt.check(t, err)
		})
	}

	assert.Zero(t, up.calls(), "no request may reach the upstream")
}

// A service whose keys are all null still has secrets configured; only a
// reference to one of them fails.
func TestForward_NullSecretsWithoutReferences(t *testing.T) {
	up := newRecordingUpstream(t, nil)
	fwd := NewForwarder(newSource(t, svcDoc), testUpstreamConfig())

	resp, err := fwd.Forward(context.Background(), "nulls", newRequest(t, http.MethodGet, up.server.URL, nil, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, up.calls())
}

func TestForward_EmptyBodyIsOmitted(t *testing.T) {
	var contentLength int64 = -2
	var transferEncoding []string
	up := newRecordingUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		contentLength = r.ContentLength
		transferEncoding = r.TransferEncoding
	})
	fwd := NewForwarder(newSource(t, svcDoc), testUpstreamConfig())

	_, err := fwd.Forward(context.Background(), "svc1", newRequest(t, http.MethodPost, up.server.URL, nil, []byte{}))
	require.NoError(t, err)

	assert.Equal(t, int64(0), contentLength)
	assert.Empty(t, transferEncoding)
	_, body := up.last()
	assert.Empty(t, body)
}

func TestForward_RedirectsAreNotFollowed(t *testing.T) {
	up := newRecordingUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/start" {
			http.Redirect(w, r, "/elsewhere", http.StatusFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	fwd := NewForwarder(newSource(t, svcDoc), testUpstreamConfig())

	resp, err := fwd.Forward(context.Background(), "svc1", newRequest(t, http.MethodGet, up.server.URL+"/start", nil, nil))
	require.NoError(t, err)

	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/elsewhere", resp.Header.Get("Location"))
	assert.Equal(t, 1, up.calls())
}

func TestForward_ResponseHeaderFiltering(t *testing.T) {
	up := newRecordingUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "https://only.example")
		w.Header().Set("Connection", "close")
		w.Header().Set("X-Request-Cost", "3")
		_, _ = w.Write([]byte("hello"))
	})
	fwd := NewForwarder(newSource(t, svcDoc), testUpstreamConfig())

	resp, err := fwd.Forward(context.Background(), "svc1", newRequest(t, http.MethodGet, up.server.URL, nil, nil))
	require.NoError(t, err)

	assert.Equal(t, []string{"*"}, resp.Header.Values("Access-Control-Allow-Origin"))
	assert.Empty(t, resp.Header.Get("Connection"))
	assert.Empty(t, resp.Header.Get("Content-Length"))
	assert.Equal(t, "3", resp.Header.Get("X-Request-Cost"))
	assert.Equal(t, "hello", string(resp.Body))
}

func gzipBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	_, err := w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func zlibBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	_, err := w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func flateBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	require.NoError(t, err)
	_, err = w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func zstdBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	w, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	defer w.Close()
	return w.EncodeAll(data, nil)
}

func TestForward_EncodedBodyIsDecoded(t *testing.T) {
	plain := []byte("compressed payload")

	tests := []struct {
		name     string
		encoding string
		body     func(t *testing.T) []byte
	}{
		{"gzip", "gzip", func(t *testing.T) []byte { return gzipBytes(t, plain) }},
		{"x-gzip", "x-gzip", func(t *testing.T) []byte { return gzipBytes(t, plain) }},
		{"deflate zlib", "deflate", func(t *testing.T) []byte { return zlibBytes(t, plain) }},
		{"deflate raw", "deflate", func(t *testing.T) []byte { return flateBytes(t, plain) }},
		{"zstd", "zstd", func(t *testing.T) []byte { return zstdBytes(t, plain) }},
		{"stacked", "deflate, gzip", func(t *testing.T) []byte { return gzipBytes(t, zlibBytes(t, plain)) }},
		{"mixed case", " GZip ", func(t *testing.T) []byte { return gzipBytes(t, plain) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded := tt.body(t)
			up := newRecordingUpstream(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Encoding", tt.encoding)
				_, _ = w.Write(encoded)
			})
			fwd := NewForwarder(newSource(t, svcDoc), testUpstreamConfig())

			// An explicit Accept-Encoding turns off the transport's own decoding.
			header := http.Header{"Accept-Encoding": {"gzip, deflate, br, zstd"}}
			resp, err := fwd.Forward(context.Background(), "svc1", newRequest(t, http.MethodGet, up.server.URL, header, nil))
			require.NoError(t, err)

			assert.Equal(t, string(plain), string(resp.Body))
			assert.Empty(t, resp.Header.Get("Content-Encoding"))
		})
	}
}

func TestForward_UndecodableBodyKeepsEncoding(t *testing.T) {
	// Brotli is not decoded; the caller gets the bytes and the header.
	raw := []byte{0x0b, 0x02, 0x80, 0x68, 0x69, 0x03}
	up := newRecordingUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "br")
		_, _ = w.Write(raw)
	})
	fwd := NewForwarder(newSource(t, svcDoc), testUpstreamConfig())

	header := http.Header{"Accept-Encoding": {"br"}}
	resp, err := fwd.Forward(context.Background(), "svc1", newRequest(t, http.MethodGet, up.server.URL, header, nil))
	require.NoError(t, err)

	assert.Equal(t, raw, resp.Body)
	assert.Equal(t, "br", resp.Header.Get("Content-Encoding"))
}

func TestForward_EmptyEncodedBody(t *testing.T) {
	up := newRecordingUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "gzip")
		w.WriteHeader(http.StatusNoContent)
	})
	fwd := NewForwarder(newSource(t, svcDoc), testUpstreamConfig())

	header := http.Header{"Accept-Encoding": {"gzip"}}
	resp, err := fwd.Forward(context.Background(), "svc1", newRequest(t, http.MethodGet, up.server.URL, header, nil))
	require.NoError(t, err)

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Empty(t, resp.Body)
}

func TestForward_CorruptEncodedBody(t *testing.T) {
	up := newRecordingUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "gzip")
		_, _ = w.Write([]byte("definitely not gzip"))
	})
	fwd := NewForwarder(newSource(t, svcDoc), testUpstreamConfig())

	header := http.Header{"Accept-Encoding": {"gzip"}}
	_, err := fwd.Forward(context.Background(), "svc1", newRequest(t, http.MethodGet, up.server.URL, header, nil))

	var upErr *UpstreamError
	require.ErrorAs(t, err, &upErr)
}

func TestForward_ResponseTooLarge(t *testing.T) {
	up := newRecordingUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(bytes.Repeat([]byte("x"), 64))
	})
	cfg := testUpstreamConfig()
	cfg.MaxResponseBytes = 16
	fwd := NewForwarder(newSource(t, svcDoc), cfg)

	_, err := fwd.Forward(context.Background(), "svc1", newRequest(t, http.MethodGet, up.server.URL, nil, nil))

	var upErr *UpstreamError
	require.ErrorAs(t, err, &upErr)
	assert.ErrorIs(t, err, ErrResponseTooLarge)
}

func TestForward_ConnectionRefusedScrubsSecrets(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	// A transport that echoes the outbound headers into its error, so the
	// test can prove the scrubbing covers what was actually sent.
	leaky := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		_, err := net.DialTimeout("tcp", addr, time.Second)
		if err == nil {
			return nil, errors.New("expected the dial to fail")
		}
		return nil, errors.New(err.Error() + " key=" + r.Header.Get("X-Api-Key") + " auth=" + r.Header.Get("Authorization"))
	})}

	var events []ForwardEvent
	fwd := NewForwarder(newSource(t, svcDoc), testUpstreamConfig(),
		WithHTTPClient(leaky),
		WithObserver(ObserverFunc(func(_ context.Context, ev ForwardEvent) {
			events = append(events, ev)
		})),
	)

	header := http.Header{}
	header.Set("X-Api-Key", "secret://apikey")
	header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte("secret://password")))

	_, err = fwd.Forward(context.Background(), "svc1", newRequest(t, http.MethodGet, "http://"+addr+"/", header, nil))

	var upErr *UpstreamError
	require.ErrorAs(t, err, &upErr)
	msg := upErr.Error()
	assert.Contains(t, msg, "refused")
	assert.NotContains(t, msg, "XYZ")
	assert.NotContains(t, msg, "s3cr3t")
	assert.NotContains(t, msg, base64.StdEncoding.EncodeToString([]byte("s3cr3t")))
	assert.Contains(t, msg, secrets.Redacted)

	require.Len(t, events, 1)
	assert.Equal(t, OutcomeUpstreamError, events[0].Outcome)
	assert.Equal(t, []string{"apikey", "password"}, events[0].SecretKeys)
}

func TestForward_RealConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	fwd := NewForwarder(newSource(t, svcDoc), testUpstreamConfig())
	_, err = fwd.Forward(context.Background(), "svc1", newRequest(t, http.MethodGet, "http://"+addr+"/", nil, nil))

	var upErr *UpstreamError
	require.ErrorAs(t, err, &upErr)
	assert.Equal(t, "svc1", upErr.Service)
	assert.Equal(t, http.StatusInternalServerError, HandleError(err).HTTPStatusCode())
}

func TestForward_CancelledContext(t *testing.T) {
	release := make(chan struct{})
	up := newRecordingUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)
	fwd := NewForwarder(newSource(t, svcDoc), testUpstreamConfig())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err := fwd.Forward(ctx, "svc1", newRequest(t, http.MethodGet, up.server.URL, nil, nil))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, OutcomeCanceled, Outcome(err))
}

func TestForward_SplitTimeouts(t *testing.T) {
	up := newRecordingUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	})
	cfg := testUpstreamConfig()
	cfg.TimeoutMode = config.TimeoutModeSplit
	cfg.ReadTimeout = 50 * time.Millisecond
	fwd := NewForwarder(newSource(t, svcDoc), cfg)

	_, err := fwd.Forward(context.Background(), "svc1", newRequest(t, http.MethodGet, up.server.URL, nil, nil))

	var upErr *UpstreamError
	require.ErrorAs(t, err, &upErr)
	assert.True(t, upErr.Timeout(), "error = %v", err)
}

func TestForward_UnifiedTimeout(t *testing.T) {
	up := newRecordingUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	})
	cfg := testUpstreamConfig()
	cfg.Timeout = 50 * time.Millisecond
	fwd := NewForwarder(newSource(t, svcDoc), cfg)

	_, err := fwd.Forward(context.Background(), "svc1", newRequest(t, http.MethodGet, up.server.URL, nil, nil))

	var upErr *UpstreamError
	require.ErrorAs(t, err, &upErr)
	assert.True(t, upErr.Timeout(), "error = %v", err)
}

func TestForward_ObserverEvent(t *testing.T) {
	up := newRecordingUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	var got ForwardEvent
	fwd := NewForwarder(newSource(t, svcDoc), testUpstreamConfig(),
		WithObserver(Observers{nil, ObserverFunc(func(_ context.Context, ev ForwardEvent) { got = ev })}),
	)

	header := http.Header{"X-Api-Key": {"secret://apikey"}}
	_, err := fwd.Forward(context.Background(), "svc1", newRequest(t, http.MethodPut, up.server.URL+"/p", header, nil))
	require.NoError(t, err)

	assert.Equal(t, "svc1", got.Service)
	assert.Equal(t, http.MethodPut, got.Method)
	assert.Equal(t, http.StatusAccepted, got.StatusCode)
	assert.Equal(t, OutcomeSuccess, got.Outcome)
	assert.Equal(t, []string{"apikey"}, got.SecretKeys)
	assert.Equal(t, "/p", got.Target.Path)
	assert.NoError(t, got.Err)
	assert.False(t, got.Started.IsZero())
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}
