package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"sort"
	"strings"

	"github.com/labstack/echo/v4"

	"relay-proxy-go/internal/config"
	"relay-proxy-go/internal/model"
	"relay-proxy-go/internal/proxy"
)

// ProxyHandler resolves the forward target for each inbound request and
// hands the call to the forwarding core.
type ProxyHandler struct {
	service *proxy.Service
	routes  []config.RouteConfig // sorted longest prefix first
	logger  *slog.Logger
}

// NewProxyHandler creates a ProxyHandler from the configured route table.
func NewProxyHandler(svc *proxy.Service, cfg *config.Config, logger *slog.Logger) *ProxyHandler {
	routes := append([]config.RouteConfig(nil), cfg.Routes...)
	sort.SliceStable(routes, func(i, j int) bool {
		return len(routes[i].Prefix) > len(routes[j].Prefix)
	})

	return &ProxyHandler{
		service: svc,
		routes:  routes,
		logger:  logger.With("component", "proxy_handler"),
	}
}

// Handle forwards the request to its route target and streams the rewritten
// response back to the client.
func (h *ProxyHandler) Handle(c echo.Context) error {
	req := c.Request()

	target, ok := h.resolveTarget(req.URL.Path)
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{
			"error": "no route configured for this path",
		})
	}

	clientIP, err := remoteIP(req.RemoteAddr)
	if err != nil {
		h.logger.Error("unparseable remote address",
			"remote_addr", req.RemoteAddr,
			"err", err,
		)
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "client address could not be determined",
		})
	}

	pr := &model.ProxyRequest{
		Ctx:      req.Context(),
		Method:   req.Method,
		Path:     req.URL.Path,
		RawPath:  req.URL.RawPath,
		RawQuery: req.URL.RawQuery,
		Header:   req.Header,
		Body:     req.Body,
	}

	resp, err := h.service.Call(clientIP, target, pr)
	if err != nil {
		return h.mapError(c, err)
	}
	defer func() { _ = resp.Body.Close() }()

	// Copy rewritten response headers
	for key, vals := range resp.Header {
		for _, v := range vals {
			c.Response().Header().Add(key, v)
		}
	}

	c.Response().WriteHeader(resp.StatusCode)

	// Stream the upstream body directly to the client. If io.Copy fails
	// mid-stream (e.g. client disconnect, network error), the HTTP status
	// code has already been sent, so the client receives a truncated
	// response with the original status. This is an inherent trade-off of
	// streaming proxies — we log the error for observability.
	if _, err := io.Copy(c.Response(), resp.Body); err != nil {
		h.logger.Error("streaming response body",
			"err", err,
			"path", req.URL.Path,
		)
	}

	return nil
}

// resolveTarget returns the forward target for an inbound path: the longest
// configured prefix that matches on a path-segment boundary.
func (h *ProxyHandler) resolveTarget(path string) (string, bool) {
	for _, r := range h.routes {
		if matchPrefix(path, r.Prefix) {
			return r.Target, true
		}
	}
	return "", false
}

// matchPrefix reports whether path falls under prefix without splitting a
// path segment ("/api" matches "/api" and "/api/x", not "/apifoo").
func matchPrefix(path, prefix string) bool {
	if prefix == "/" {
		return true
	}
	prefix = strings.TrimSuffix(prefix, "/")
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

// remoteIP extracts the client IP from a host:port remote address.
func remoteIP(remoteAddr string) (netip.Addr, error) {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		// Some callers hand us a bare IP without a port.
		host = remoteAddr
	}
	return netip.ParseAddr(host)
}

func (h *ProxyHandler) mapError(c echo.Context, err error) error {
	h.logger.Error("proxy error",
		"err", err,
		"path", c.Request().URL.Path,
	)

	var invalidTarget *proxy.InvalidTargetError
	if errors.As(err, &invalidTarget) {
		return c.JSON(http.StatusBadGateway, map[string]string{
			"error": "forward target is misconfigured",
		})
	}

	var transport *proxy.TransportError
	if errors.As(err, &transport) {
		switch transport.Kind {
		case proxy.KindTimedOut:
			return c.JSON(http.StatusGatewayTimeout, map[string]string{
				"error": "upstream request timed out",
			})
		case proxy.KindConnectFailed:
			return c.JSON(http.StatusBadGateway, map[string]string{
				"error": "upstream connection failed",
			})
		}
		if errors.Is(err, context.Canceled) {
			return c.JSON(http.StatusBadGateway, map[string]string{
				"error": "client disconnected",
			})
		}
	}

	return c.JSON(http.StatusBadGateway, map[string]string{
		"error": "upstream request failed",
	})
}
