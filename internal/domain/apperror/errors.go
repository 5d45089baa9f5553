// internal/domain/apperror/errors.go
package apperror

import (
	"errors"
	"fmt"
)

// Kind classifies a domain error for transport mapping. The domain layer
// stays transport-agnostic; HTTP handlers translate kinds to status codes.
type Kind int

const (
	KindNotFound Kind = iota
	KindInvalidState
	KindConflict
	KindDomainRule
)

// Error is a domain error with a stable machine-readable code
type Error struct {
	Code    string
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// NotFound builds a not-found error (missing or out-of-tenant entity)
func NotFound(code, message string) *Error {
	return &Error{Code: code, Kind: KindNotFound, Message: message}
}

// InvalidState builds an error for an operation against the wrong lifecycle state
func InvalidState(code, message string) *Error {
	return &Error{Code: code, Kind: KindInvalidState, Message: message}
}

// Conflict builds an optimistic-concurrency conflict error
func Conflict(code, message string) *Error {
	return &Error{Code: code, Kind: KindConflict, Message: message}
}

// DomainRule builds a business-rule violation error
func DomainRule(code, message string) *Error {
	return &Error{Code: code, Kind: KindDomainRule, Message: message}
}

// DomainRulef builds a business-rule error with a formatted message
func DomainRulef(code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Kind: KindDomainRule, Message: fmt.Sprintf(format, args...)}
}

// FromError extracts the *Error from an error chain, if present
func FromError(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether err carries the given domain code
func HasCode(err error, code string) bool {
	if appErr, ok := FromError(err); ok {
		return appErr.Code == code
	}
	return false
}
