// internal/transport/errors.go
package transport

import (
	"errors"
	"fmt"
)

// Kind classifies where a failure originated.
type Kind string

const (
	// KindNetwork covers connection, DNS, and timeout failures.
	KindNetwork Kind = "network"
	// KindParse covers malformed or empty response bodies.
	KindParse Kind = "parse"
	// KindService is a structured error payload returned by the service.
	KindService Kind = "service"
	// KindProcess is an external command that failed to start or exited non-zero.
	KindProcess Kind = "process"
	// KindContextOverflow means chunked delivery has no token budget left.
	KindContextOverflow Kind = "context_overflow"
	// KindUnexpected is anything else.
	KindUnexpected Kind = "unexpected"
)

// ErrorInfo is the structured failure carried by a Result.
type ErrorInfo struct {
	Kind       Kind
	Message    string
	Details    string
	StatusCode *int
}

// Error implements the error interface.
func (e *ErrorInfo) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if e.StatusCode != nil {
		msg = fmt.Sprintf("%s (status %d)", msg, *e.StatusCode)
	}
	if e.Details != "" {
		msg += ": " + e.Details
	}
	return msg
}

// Status returns the HTTP status code, if one was recorded.
func (e *ErrorInfo) Status() (int, bool) {
	if e == nil || e.StatusCode == nil {
		return 0, false
	}
	return *e.StatusCode, true
}

// NewError builds an ErrorInfo without a status code.
func NewError(kind Kind, message, details string) *ErrorInfo {
	return &ErrorInfo{Kind: kind, Message: message, Details: details}
}

// NewStatusError builds a service ErrorInfo carrying an HTTP status code.
func NewStatusError(message, details string, status int) *ErrorInfo {
	code := status
	return &ErrorInfo{Kind: KindService, Message: message, Details: details, StatusCode: &code}
}

// AsErrorInfo converts any error into an ErrorInfo, keeping structure when present.
func AsErrorInfo(err error) *ErrorInfo {
	if err == nil {
		return nil
	}
	var info *ErrorInfo
	if errors.As(err, &info) {
		return info
	}
	return NewError(KindUnexpected, "Unexpected error", err.Error())
}

// AsStreamError converts a failure raised while reading a response stream.
func AsStreamError(err error) *ErrorInfo {
	if err == nil {
		return nil
	}
	var info *ErrorInfo
	if errors.As(err, &info) {
		return info
	}
	return networkError(err)
}
