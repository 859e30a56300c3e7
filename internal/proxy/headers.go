// Package proxy implements the request/response forwarding core: hop-by-hop
// header elimination, X-Forwarded-For chain construction, outbound URI
// rewriting, and transport error classification. The package performs no
// logging and holds no state across calls.
package proxy

import (
	"net/http"
	"strings"
)

// fixedHopByHop are the hop-by-hop headers defined by RFC 7230 (via the
// obsoleted RFC 2616 section 13.5.1). They are meaningful only for a single
// transport connection and must never be forwarded past a proxy. Keys are
// canonical per http.CanonicalHeaderKey.
var fixedHopByHop = map[string]bool{
	"Connection":          true,
	"Keep-Alive":          true,
	"Proxy-Authenticate":  true,
	"Proxy-Authorization": true,
	"Te":                  true,
	"Trailer":             true,
	"Transfer-Encoding":   true,
	"Upgrade":             true,
}

// connectionTokens returns the comma-separated tokens named inside a
// message's Connection header value(s), trimmed and canonicalized. Per
// RFC 7230 section 6.1, any header named here is hop-by-hop for that
// message only. The Connection header must be read before it is dropped,
// since it is itself always hop-by-hop.
func connectionTokens(header http.Header) []string {
	var tokens []string
	for _, vs := range header.Values("Connection") {
		for _, tok := range strings.Split(vs, ",") {
			tok = strings.TrimSpace(tok)
			if tok != "" {
				tokens = append(tokens, http.CanonicalHeaderKey(tok))
			}
		}
	}
	return tokens
}

// isHopByHop reports whether a header must be dropped during forwarding,
// given the Connection tokens of the message it belongs to. Name comparison
// is case-insensitive via canonicalization.
func isHopByHop(name string, connTokens []string) bool {
	canonical := http.CanonicalHeaderKey(name)
	if fixedHopByHop[canonical] {
		return true
	}
	for _, tok := range connTokens {
		if tok == canonical {
			return true
		}
	}
	return false
}

// endToEndHeaders returns a copy of src with all hop-by-hop headers removed,
// using the Connection tokens of the message the headers came from. Repeated
// values of a surviving header are preserved in order; values are never
// modified.
func endToEndHeaders(src http.Header) http.Header {
	tokens := connectionTokens(src)
	dst := make(http.Header, len(src))
	for key, vals := range src {
		if isHopByHop(key, tokens) {
			continue
		}
		dst[http.CanonicalHeaderKey(key)] = append([]string(nil), vals...)
	}
	return dst
}
