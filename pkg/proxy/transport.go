package proxy

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"time"

	"mercator-hq/vaultgate/pkg/config"
)

// NewHTTPClient builds the outbound client for the configured timeout mode.
//
// In unified mode one deadline covers the whole exchange. In split mode the
// connect and TLS handshake share the connect timeout, waiting for response
// headers and each body read are bounded by the read timeout, and each write
// of the request is bounded by the write timeout.
//
// Redirects are never followed; the caller sees the 3xx response.
func NewHTTPClient(cfg config.UpstreamConfig) *http.Client {
	dialer := &net.Dialer{
		Timeout:   cfg.ConnectTimeout,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          cfg.MaxIdleConns,
		IdleConnTimeout:       cfg.IdleConnTimeout,
		TLSHandshakeTimeout:   cfg.ConnectTimeout,
		ExpectContinueTimeout: 1 * time.Second,
		TLSClientConfig: &tls.Config{
			MinVersion:         tls.VersionTLS12,
			InsecureSkipVerify: cfg.InsecureSkipVerify,
		},
	}

	client := &http.Client{
		Transport:     transport,
		CheckRedirect: noRedirect,
	}

	if cfg.TimeoutMode == config.TimeoutModeSplit {
		transport.ResponseHeaderTimeout = cfg.ReadTimeout
		transport.DialContext = deadlineDialer{
			dial:  dialer.DialContext,
			read:  cfg.ReadTimeout,
			write: cfg.WriteTimeout,
		}.DialContext
		return client
	}

	client.Timeout = cfg.Timeout
	dialer.Timeout = cfg.Timeout
	transport.TLSHandshakeTimeout = cfg.Timeout
	return client
}

func noRedirect(*http.Request, []*http.Request) error {
	return http.ErrUseLastResponse
}

type dialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// deadlineDialer wraps every connection so that each read and write gets its
// own deadline.
type deadlineDialer struct {
	dial  dialFunc
	read  time.Duration
	write time.Duration
}

func (d deadlineDialer) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	conn, err := d.dial(ctx, network, addr)
	if err != nil {
		return nil, err
	}
	return &deadlineConn{Conn: conn, read: d.read, write: d.write}, nil
}

type deadlineConn struct {
	net.Conn
	read  time.Duration
	write time.Duration
}

func (c *deadlineConn) Read(p []byte) (int, error) {
	if c.read > 0 {
		if err := c.Conn.SetReadDeadline(time.Now().Add(c.read)); err != nil {
			return 0, err
		}
	}
	return c.Conn.Read(p)
}

func (c *deadlineConn) Write(p []byte) (int, error) {
	if c.write > 0 {
		if err := c.Conn.SetWriteDeadline(time.Now().Add(c.write)); err != nil {
			return 0, err
		}
	}
	return c.Conn.Write(p)
}
