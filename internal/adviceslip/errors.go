package adviceslip

import (
	"errors"
	"fmt"
)

// Kind classifies fetch failures.
type Kind int

const (
	KindUnexpected Kind = iota
	KindNotFound
	KindRateLimited
	KindTimeout
	KindTransport
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindRateLimited:
		return "rate_limited"
	case KindTimeout:
		return "timeout"
	case KindTransport:
		return "transport"
	default:
		return "unexpected"
	}
}

// Error is returned by Client for every failure except caller cancellation.
type Error struct {
	Kind   Kind
	Op     string // request path, e.g. "/advice/42"
	Status int    // HTTP status when one was received
	Err    error
}

// Sentinels for errors.Is comparisons; only Kind is compared.
var (
	ErrNotFound    = &Error{Kind: KindNotFound}
	ErrRateLimited = &Error{Kind: KindRateLimited}
	ErrTimeout     = &Error{Kind: KindTimeout}
	ErrTransport   = &Error{Kind: KindTransport}
	ErrUnexpected  = &Error{Kind: KindUnexpected}
)

func (e *Error) Error() string {
	msg := e.Kind.String()
	switch e.Kind {
	case KindNotFound:
		msg = "advice not found"
	case KindRateLimited:
		msg = "too many requests, please wait a moment"
	case KindTimeout:
		msg = "request timed out"
	case KindTransport:
		msg = "network error"
	case KindUnexpected:
		msg = "unexpected error"
	}
	if e.Op != "" {
		msg = fmt.Sprintf("%s %s", e.Op, msg)
	}
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the Kind of err, or KindUnexpected when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnexpected
}

// Retryable reports whether err may succeed on a later attempt. Not-found and
// rate-limited responses are terminal, as is anything outside the taxonomy
// (context cancellation in particular).
func Retryable(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	switch e.Kind {
	case KindTimeout, KindTransport, KindUnexpected:
		return true
	default:
		return false
	}
}
