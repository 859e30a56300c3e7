package proxy

import (
	"errors"
	"net/http"
	"net/netip"
	"net/url"

	"relay-proxy-go/internal/model"
)

// Invoker submits a rewritten request to the upstream HTTP client.
// Implementations own all transport concerns (connection pooling, TLS, DNS,
// deadlines) and must surface failures as *TransportError.
type Invoker interface {
	Send(req *http.Request) (*model.ProxyResponse, error)
}

// Service orchestrates a single forwarding call: validate the target,
// rewrite the request, invoke the upstream, rewrite the response. It holds
// no per-call state; concurrent calls are independent.
type Service struct {
	invoker  Invoker
	pathMode PathMode
}

// NewService creates a forwarding Service. An empty mode defaults to
// PathModePrefix.
func NewService(invoker Invoker, mode PathMode) *Service {
	if mode == "" {
		mode = PathModePrefix
	}
	return &Service{invoker: invoker, pathMode: mode}
}

// Call forwards an inbound request to forwardURI and returns the rewritten
// upstream response. On failure it returns either *InvalidTargetError (no
// network I/O was performed) or *TransportError (the upstream exchange did
// not complete; the response rewriter never ran). The caller is responsible
// for closing the response body and for mapping errors to status codes.
func (s *Service) Call(clientIP netip.Addr, forwardURI string, pr *model.ProxyRequest) (*model.ProxyResponse, error) {
	target, err := parseTarget(forwardURI)
	if err != nil {
		return nil, err
	}

	req, err := rewriteRequest(pr, clientIP, target, s.pathMode)
	if err != nil {
		return nil, err
	}

	resp, err := s.invoker.Send(req)
	if err != nil {
		return nil, err
	}

	return rewriteResponse(resp), nil
}

// parseTarget validates that the forward target is an absolute URI with
// scheme and authority. Anything else fails before any network activity.
func parseTarget(forwardURI string) (*url.URL, error) {
	u, err := url.Parse(forwardURI)
	if err != nil {
		return nil, &InvalidTargetError{Target: forwardURI, Err: err}
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, &InvalidTargetError{Target: forwardURI, Err: errors.New("scheme and authority are required")}
	}
	return u, nil
}
