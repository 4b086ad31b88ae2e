package relay

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/danilofalcao/chat-relay/internal/server/logger"
	"github.com/pkg/errors"
	"golang.org/x/net/http2"
)

const acceptEncoding = "br, gzip, deflate"

// NewHTTPClient returns the client used for upstream calls. It speaks HTTP/2 where the server
// offers it and decodes compressed bodies as they stream in. There is no client timeout; a
// stream lasts as long as the upstream keeps it open or the request context allows.
func NewHTTPClient() *http.Client {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	if err := http2.ConfigureTransport(tr); err != nil {
		logger.Fallback.Warnf(context.Background(), "HTTP/2 unavailable for upstream calls: %s", err.Error())
	}
	return &http.Client{Transport: NewDecodingTransport(tr)}
}

// NewDecodingTransport wraps next so responses arrive with brotli, gzip or deflate encoding
// already removed.
func NewDecodingTransport(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return &decodingTransport{next: next}
}

type decodingTransport struct {
	next http.RoundTripper
}

func (t *decodingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("Accept-Encoding") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("Accept-Encoding", acceptEncoding)
	}

	resp, err := t.next.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	encoding := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding")))
	if encoding == "" || encoding == "identity" {
		return resp, nil
	}

	body, err := decodeBody(encoding, resp.Body)
	if err != nil {
		resp.Body.Close()
		return nil, err
	}
	resp.Body = body
	resp.Header.Del("Content-Encoding")
	resp.Header.Del("Content-Length")
	resp.ContentLength = -1
	resp.Uncompressed = true
	return resp, nil
}

func decodeBody(encoding string, body io.ReadCloser) (io.ReadCloser, error) {
	switch encoding {
	case "gzip", "x-gzip":
		gzReader, err := gzip.NewReader(body)
		if err != nil {
			return nil, errors.Wrap(err, "error creating gzip reader")
		}
		return &decodedBody{Reader: gzReader, closers: []io.Closer{gzReader, body}}, nil
	case "br":
		return &decodedBody{Reader: brotli.NewReader(body), closers: []io.Closer{body}}, nil
	case "deflate":
		flReader := flate.NewReader(body)
		return &decodedBody{Reader: flReader, closers: []io.Closer{flReader, body}}, nil
	default:
		return nil, errors.Errorf("unsupported content encoding %q", encoding)
	}
}

type decodedBody struct {
	io.Reader
	closers []io.Closer
}

func (b *decodedBody) Close() error {
	var first error
	for _, c := range b.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
