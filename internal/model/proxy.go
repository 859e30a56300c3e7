// Package model defines shared types for the proxy.
package model

import (
	"context"
	"io"
	"net/http"
)

// ProxyRequest represents an inbound request to be forwarded upstream.
// Path, RawPath, and RawQuery come straight from the inbound URL and are
// carried byte-for-byte into the outbound URI; the core performs no
// normalization or percent-decoding. Body ownership transfers to the
// outbound request: it is streamed, never buffered.
type ProxyRequest struct {
	Ctx      context.Context
	Method   string
	Path     string
	RawPath  string
	RawQuery string
	Header   http.Header
	Body     io.ReadCloser
}

// ProxyResponse represents the upstream response to be streamed back.
type ProxyResponse struct {
	StatusCode int
	Header     http.Header
	Body       io.ReadCloser
}
