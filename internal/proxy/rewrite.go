package proxy

import (
	"net/http"
	"net/netip"
	"net/url"
	"strconv"
	"strings"

	"relay-proxy-go/internal/model"
)

// PathMode controls how a forward target's own path component combines with
// the inbound path.
type PathMode string

const (
	// PathModePrefix prepends the target path to the inbound path:
	// target http://u/base with inbound /a yields /base/a. This is the
	// default.
	PathModePrefix PathMode = "prefix"
	// PathModeReplace discards the target path and forwards the inbound
	// path as-is.
	PathModeReplace PathMode = "replace"
)

// rewriteRequest builds the outbound request: target scheme and authority,
// inbound path and query carried byte-for-byte, method copied, hop-by-hop
// headers dropped per the inbound Connection value, X-Forwarded-For updated,
// body moved without copying. The target must already be validated as
// absolute.
func rewriteRequest(pr *model.ProxyRequest, clientIP netip.Addr, target *url.URL, mode PathMode) (*http.Request, error) {
	u := url.URL{
		Scheme:   target.Scheme,
		Host:     target.Host,
		Path:     pr.Path,
		RawPath:  pr.RawPath,
		RawQuery: pr.RawQuery,
	}
	if mode != PathModeReplace && target.Path != "" {
		u.Path = target.Path + pr.Path
		u.RawPath = target.EscapedPath() + escapedPath(pr.Path, pr.RawPath)
	}

	req, err := http.NewRequestWithContext(pr.Ctx, pr.Method, u.String(), pr.Body)
	if err != nil {
		return nil, &InvalidTargetError{Target: target.String(), Err: err}
	}

	req.Header = endToEndHeaders(pr.Header)

	// net/http takes the outbound length from ContentLength, not the header
	// map; without this a body of unknown type would be re-framed as chunked.
	if cl := pr.Header.Get("Content-Length"); cl != "" {
		if n, err := strconv.ParseInt(cl, 10, 64); err == nil && n >= 0 {
			req.ContentLength = n
		}
	}

	// X-Forwarded-For is end-to-end, so the copy above kept the inbound
	// value verbatim; it must be overridden with the appended chain.
	prior := strings.Join(pr.Header.Values(xForwardedFor), ", ")
	req.Header.Set(xForwardedFor, appendClientIP(prior, clientIP))

	return req, nil
}

// escapedPath returns the escaped form of an inbound path, preferring the
// original raw bytes when the inbound URL carried them.
func escapedPath(path, rawPath string) string {
	if rawPath != "" {
		return rawPath
	}
	return (&url.URL{Path: path}).EscapedPath()
}

// rewriteResponse strips hop-by-hop headers from the upstream response
// before it is returned to the original caller. The hop-by-hop set is
// computed from the response's own Connection value, independently of the
// request side. Status and body pass through unmodified.
func rewriteResponse(ur *model.ProxyResponse) *model.ProxyResponse {
	return &model.ProxyResponse{
		StatusCode: ur.StatusCode,
		Header:     endToEndHeaders(ur.Header),
		Body:       ur.Body,
	}
}
