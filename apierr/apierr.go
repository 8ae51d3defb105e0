// Package apierr defines the error taxonomy shared by all PubHubs servers
// and the Resp envelope their HTTP handlers return.
package apierr

import "fmt"

// Code is one of a fixed set of protocol-level error identifiers. Unlike a
// plain Go error, a Code is meant to cross the wire: it is what one server
// tells another (or a client) went wrong, without leaking implementation
// detail.
type Code string

const (
	// InvalidSignature means a Signed envelope's signature did not verify.
	// Not sent on the wire since 2025-06-25; see BadRequest.
	InvalidSignature Code = "InvalidSignature"
	// Expired means a Signed envelope's exp claim is in the past. Not sent
	// on the wire since 2025-06-25; see BadRequest.
	Expired Code = "Expired"
	// BadRequest covers malformed input, a Signed envelope with the wrong
	// message code, or (since 2025-06-25) what would otherwise have been
	// InvalidSignature or Expired.
	BadRequest Code = "BadRequest"

	// PleaseRetry asks the caller to retry after backoff; no state changed.
	PleaseRetry Code = "PleaseRetry"
	// CouldNotConnectYet means a downstream peer was unreachable; transient.
	CouldNotConnectYet Code = "CouldNotConnectYet"
	// SeveredConnection means a previously working connection was lost
	// mid-request; the caller cannot tell whether the request took effect.
	SeveredConnection Code = "SeveredConnection"
	// TemporaryFailure is a catch-all transient condition worth retrying.
	TemporaryFailure Code = "TemporaryFailure"

	// NotYetReady means the server is still in its Discovery phase.
	NotYetReady Code = "NotYetReady"

	// VersionConflict is an optimistic-concurrency failure: the caller's
	// ETag no longer matches the stored object.
	VersionConflict Code = "VersionConflict"

	// Malconfigured means a peer server reported values inconsistent with
	// this server's view of the constellation; needs operator action.
	Malconfigured Code = "Malconfigured"

	// InternalError is a catch-all for anything else; logged with context
	// server-side, never retried automatically by a well-behaved caller.
	InternalError Code = "InternalError"
)

// wireDemotions maps error codes that were removed from the wire on
// 2025-06-25 to the code actually sent to callers. Server-side logging
// still uses the precise code; only the Resp sent over HTTP is demoted.
var wireDemotions = map[Code]Code{
	InvalidSignature: BadRequest,
	Expired:          BadRequest,
}

// OnWire returns the code that should appear in an HTTP response body for
// c, applying the 2025-06-25 demotion of InvalidSignature and Expired to
// BadRequest.
func OnWire(c Code) Code {
	if demoted, ok := wireDemotions[c]; ok {
		return demoted
	}
	return c
}

// Error is a Go error carrying a protocol Code plus an internal message
// that is logged but never put on the wire.
type Error struct {
	Code    Code
	Message string
}

// New constructs an *Error with the given code and formatted message.
func New(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Retryable reports whether a caller should retry e with backoff.
func (e *Error) Retryable() bool {
	switch e.Code {
	case PleaseRetry, CouldNotConnectYet, SeveredConnection, TemporaryFailure, NotYetReady:
		return true
	default:
		return false
	}
}

// Resp is the envelope every PubHubs HTTP handler returns: either Ok
// carries the successful result, or Err carries a wire-safe error code.
// Exactly one of the two is set.
type Resp[T any] struct {
	Ok  *T    `json:"Ok,omitempty"`
	Err *Code `json:"Err,omitempty"`
}

// OkResp wraps a successful result.
func OkResp[T any](v T) Resp[T] {
	return Resp[T]{Ok: &v}
}

// ErrResp wraps a failure, demoting the code per OnWire before it is
// placed on the wire.
func ErrResp[T any](code Code) Resp[T] {
	demoted := OnWire(code)
	return Resp[T]{Err: &demoted}
}

// FromError builds a Resp from a Go error, translating an *Error into its
// wire code and anything else into InternalError.
func FromError[T any](err error) Resp[T] {
	var apiErr *Error
	if e, ok := err.(*Error); ok {
		apiErr = e
	} else {
		apiErr = New(InternalError, "%s", err.Error())
	}
	return ErrResp[T](apiErr.Code)
}
