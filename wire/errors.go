// Package wire holds the error classification and low-level read helpers
// shared by the JDWP and DDMS codecs.
//
// Every failure raised by the protocol core is a *Error carrying a Kind.
// Callers classify failures with errors.Is against the sentinel kinds:
//
//	if errors.Is(err, wire.ErrTruncatedStream) { ... }
package wire

import (
	"errors"
	"fmt"
)

// Kind classifies a protocol failure.
type Kind int

const (
	// KindMalformedHeader is a header with bad length, flags or ranges.
	KindMalformedHeader Kind = iota + 1
	// KindProtocolMismatch is a chunk decode requested on a non-DDMS packet.
	KindProtocolMismatch
	// KindTruncatedStream is a stream that ended inside a header or payload.
	KindTruncatedStream
	// KindLengthMismatch is a declared length that differs from the bytes transferred.
	KindLengthMismatch
	// KindInvalidStateAccess is a read of the other packet variant's fields.
	KindInvalidStateAccess
	// KindUnavailable is a payload that was already consumed, released or closed.
	KindUnavailable
	// KindInvalidFormat is a value that cannot be encoded (e.g. a chunk tag of the wrong size).
	KindInvalidFormat
)

func (k Kind) String() string {
	switch k {
	case KindMalformedHeader:
		return "malformed header"
	case KindProtocolMismatch:
		return "protocol mismatch"
	case KindTruncatedStream:
		return "truncated stream"
	case KindLengthMismatch:
		return "length mismatch"
	case KindInvalidStateAccess:
		return "invalid state access"
	case KindUnavailable:
		return "payload unavailable"
	case KindInvalidFormat:
		return "invalid format"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Sentinel errors, one per Kind. Use errors.Is(err, ErrXxx).
var (
	ErrMalformedHeader    = &Error{Kind: KindMalformedHeader}
	ErrProtocolMismatch   = &Error{Kind: KindProtocolMismatch}
	ErrTruncatedStream    = &Error{Kind: KindTruncatedStream}
	ErrLengthMismatch     = &Error{Kind: KindLengthMismatch}
	ErrInvalidStateAccess = &Error{Kind: KindInvalidStateAccess}
	ErrUnavailable        = &Error{Kind: KindUnavailable}
	ErrInvalidFormat      = &Error{Kind: KindInvalidFormat}
)

// Error is a classified protocol error.
type Error struct {
	Kind Kind
	// Op is the operation that failed (e.g. "read packet header").
	Op string
	// Msg is a human readable detail.
	Msg string
	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	s := e.Kind.String()
	if e.Op != "" {
		s = e.Op + ": " + s
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same Kind, so sentinels compare by classification.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Msg == "" && t.Err == nil
}

// Errorf builds a classified error with a formatted message.
func Errorf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Wrap builds a classified error around a cause.
func Wrap(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// IsFatal reports whether err is a protocol error. All protocol errors are
// fatal for the stream they were raised on; nothing at this layer retries.
func IsFatal(err error) bool {
	return KindOf(err) != 0
}
