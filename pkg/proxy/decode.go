package proxy

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

// parseEncodings splits a Content-Encoding value into lower-cased codings in
// the order they were applied, dropping identity.
func parseEncodings(value string) []string {
	var codings []string
	for _, part := range strings.Split(value, ",") {
		c := strings.ToLower(strings.TrimSpace(part))
		if c == "" || c == "identity" {
			continue
		}
		codings = append(codings, c)
	}
	return codings
}

// decodable reports whether every coding can be undone here.
func decodable(codings []string) bool {
	for _, c := range codings {
		switch c {
		case "gzip", "x-gzip", "deflate", "zstd":
		default:
			return false
		}
	}
	return true
}

// decodeBody wraps body so that reading it yields the payload with codings
// removed, last applied first. The returned close func releases the
// decoders.
func decodeBody(body io.Reader, codings []string) (io.Reader, func(), error) {
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	r := body
	for i := len(codings) - 1; i >= 0; i-- {
		switch codings[i] {
		case "gzip", "x-gzip":
			gz, err := gzip.NewReader(r)
			if err != nil {
				closeAll()
				return nil, nil, fmt.Errorf("decode gzip response: %w", err)
			}
			closers = append(closers, func() { gz.Close() })
			r = gz

		case "deflate":
			fr, err := newDeflateReader(r)
			if err != nil {
				closeAll()
				return nil, nil, fmt.Errorf("decode deflate response: %w", err)
			}
			closers = append(closers, func() { fr.Close() })
			r = fr

		case "zstd":
			zr, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
			if err != nil {
				closeAll()
				return nil, nil, fmt.Errorf("decode zstd response: %w", err)
			}
			closers = append(closers, zr.Close)
			r = zr

		default:
			closeAll()
			return nil, nil, fmt.Errorf("unsupported content encoding %q", codings[i])
		}
	}
	return r, closeAll, nil
}

// newDeflateReader accepts both the zlib-wrapped stream HTTP prescribes and
// the raw deflate stream some servers send instead.
func newDeflateReader(r io.Reader) (io.ReadCloser, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(2)
	if err != nil && err != io.EOF {
		return nil, err
	}
	if len(head) == 2 && isZlibHeader(head[0], head[1]) {
		return zlib.NewReader(br)
	}
	return flate.NewReader(br), nil
}

// isZlibHeader checks the CMF/FLG pair of RFC 1950: deflate method and a
// header checksum divisible by 31.
func isZlibHeader(cmf, flg byte) bool {
	return cmf&0x0f == 8 && (uint16(cmf)<<8|uint16(flg))%31 == 0
}
