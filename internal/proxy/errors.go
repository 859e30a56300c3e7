package proxy

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
)

// TransportKind is the coarse classification of an upstream transport
// failure. The proxy never retries; the kind is surfaced verbatim so the
// caller can choose a status code.
type TransportKind string

const (
	// KindConnectFailed covers dial and DNS failures: the exchange never
	// reached the upstream.
	KindConnectFailed TransportKind = "connect-failed"
	// KindTimedOut covers client timeouts and context deadline expiry.
	KindTimedOut TransportKind = "timed-out"
	// KindProtocolError covers everything else the HTTP client reports:
	// malformed responses, broken connections mid-exchange, cancellation.
	KindProtocolError TransportKind = "protocol-error"
)

// InvalidTargetError reports a forward target that is not a valid absolute
// URI with scheme and authority. It is always detected before any network
// I/O occurs.
type InvalidTargetError struct {
	Target string
	Err    error
}

func (e *InvalidTargetError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid forward target %q: %v", e.Target, e.Err)
	}
	return fmt.Sprintf("invalid forward target %q", e.Target)
}

func (e *InvalidTargetError) Unwrap() error { return e.Err }

// TransportError reports that the upstream HTTP client could not complete
// the exchange. The underlying client error is preserved for errors.Is/As.
type TransportError struct {
	Kind TransportKind
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("upstream transport (%s): %v", e.Kind, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ClassifyTransport wraps an error from the HTTP client into a
// TransportError with a coarse kind. Timeouts are detected before dial
// failures: a dial that times out is reported as timed-out, not
// connect-failed.
func ClassifyTransport(err error) *TransportError {
	if errors.Is(err, context.DeadlineExceeded) {
		return &TransportError{Kind: KindTimedOut, Err: err}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return &TransportError{Kind: KindTimedOut, Err: err}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &TransportError{Kind: KindConnectFailed, Err: err}
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return &TransportError{Kind: KindConnectFailed, Err: err}
	}

	return &TransportError{Kind: KindProtocolError, Err: err}
}
