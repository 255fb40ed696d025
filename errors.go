package slurm

import (
	"errors"
	"fmt"
)

// Kind classifies an [*Error].
type Kind int

// Error kinds returned by the SDK.
const (
	// KindAuthRequired is raised client-side before any network activity
	// when a protected operation is called without an access token.
	KindAuthRequired Kind = iota + 1

	// KindRequest covers transport failures: name resolution, refused
	// connections, timeouts, cancelled contexts.
	KindRequest

	// KindProtocol means the response broke the JSON contract, either a
	// wrong Content-Type or a body that does not parse.
	KindProtocol

	// KindRemote means the service answered with a non-2xx status and a
	// valid JSON body.
	KindRemote
)

func (k Kind) String() string {
	switch k {
	case KindAuthRequired:
		return "auth_required"
	case KindRequest:
		return "request"
	case KindProtocol:
		return "protocol"
	case KindRemote:
		return "remote"
	}
	return "unknown"
}

// Sentinel errors for use with errors.Is.
var (
	ErrAuthRequired = errors.New("slurm: access token is required")
	ErrRequest      = errors.New("slurm: request failed")
	ErrProtocol     = errors.New("slurm: invalid response")
	ErrRemote       = errors.New("slurm: remote error")
)

const msgAuthRequired = "Access token is required"

// Error is the single error type returned by [Transport] and [Client].
// It supports errors.Is against the sentinel errors and errors.As.
type Error struct {
	// Kind tells which part of the round trip failed.
	Kind Kind

	// Message is the human-readable description. For KindRemote it is the
	// decimal HTTP status code.
	Message string

	// Data is the parsed JSON error body for KindRemote and nil otherwise.
	Data any

	// StatusCode is the HTTP status for KindRemote.
	StatusCode int

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return "slurm: " + e.Message
}

// Is enables errors.Is matching against sentinel errors.
func (e *Error) Is(target error) bool {
	return target == e.sentinel()
}

// Unwrap returns the underlying cause when there is one, so that callers can
// still match things like context.DeadlineExceeded.
func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) sentinel() error {
	switch e.Kind {
	case KindAuthRequired:
		return ErrAuthRequired
	case KindRequest:
		return ErrRequest
	case KindProtocol:
		return ErrProtocol
	case KindRemote:
		return ErrRemote
	}
	return nil
}

func authRequiredError() *Error {
	return &Error{Kind: KindAuthRequired, Message: msgAuthRequired}
}

func requestError(err error) *Error {
	return &Error{Kind: KindRequest, Message: err.Error(), Err: err}
}

func protocolError(format string, args ...any) *Error {
	return &Error{Kind: KindProtocol, Message: fmt.Sprintf(format, args...)}
}

func remoteError(statusCode int, data any) *Error {
	return &Error{
		Kind:       KindRemote,
		Message:    fmt.Sprintf("%d", statusCode),
		Data:       data,
		StatusCode: statusCode,
	}
}

// StatusCode extracts the HTTP status from a KindRemote error. It returns 0
// for any other error.
func StatusCode(err error) int {
	var sErr *Error
	if errors.As(err, &sErr) {
		return sErr.StatusCode
	}
	return 0
}

// ErrorData extracts the parsed JSON error body from a KindRemote error.
func ErrorData(err error) any {
	var sErr *Error
	if errors.As(err, &sErr) {
		return sErr.Data
	}
	return nil
}
