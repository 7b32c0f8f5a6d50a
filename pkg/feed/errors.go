package feed

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
)

// ErrKind classifies fetch failures. Retriable kinds are retried within a
// single Fetch invocation; all terminal failures count against the source's
// circuit breaker.
type ErrKind string

// fetch error kinds
const (
	ErrInvalidURL        ErrKind = "invalid_url"
	ErrTimeout           ErrKind = "timeout"
	ErrDNSFailure        ErrKind = "dns_failure"
	ErrConnectionRefused ErrKind = "connection_refused"
	ErrHTTPClient        ErrKind = "http_client_error"
	ErrHTTPServer        ErrKind = "http_server_error"
	ErrParse             ErrKind = "parse_error"
)

// FetchError is a classified feed fetch failure
type FetchError struct {
	Kind ErrKind
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Retriable reports whether another attempt within the same invocation makes sense
func (e *FetchError) Retriable() bool {
	switch e.Kind {
	case ErrTimeout, ErrDNSFailure, ErrConnectionRefused, ErrHTTPServer:
		return true
	}
	return false
}

// classifyTransportError maps a transport-level error to a fetch error kind
func classifyTransportError(err error) *FetchError {
	var dnsErr *net.DNSError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &FetchError{Kind: ErrTimeout, Err: err}
	case errors.As(err, &dnsErr):
		return &FetchError{Kind: ErrDNSFailure, Err: err}
	case errors.Is(err, syscall.ECONNREFUSED):
		return &FetchError{Kind: ErrConnectionRefused, Err: err}
	default:
		if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
			return &FetchError{Kind: ErrTimeout, Err: err}
		}
		// treat unknown transport failures as retriable server-side trouble
		return &FetchError{Kind: ErrHTTPServer, Err: err}
	}
}
