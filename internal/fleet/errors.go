package fleet

import (
	"errors"
	"fmt"
)

// ErrorKind is the stable tag attached to every error surfaced at the API
// boundary. Messages are operator-facing; kinds drive status-code mapping.
type ErrorKind string

const (
	KindNotFound            ErrorKind = "NotFound"
	KindIncompatibleVersion ErrorKind = "IncompatibleVersion"
	KindInvalidRequest      ErrorKind = "InvalidTransitionRequest"
	KindInvalidState        ErrorKind = "InvalidState"
	KindBackendUnavailable  ErrorKind = "BackendUnavailable"
	KindBackendRejected     ErrorKind = "BackendRejected"
	KindConflict            ErrorKind = "Conflict"
)

// Error is a kinded, operator-displayable error.
type Error struct {
	Kind    ErrorKind
	Message string
	cause   error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Retryable reports whether the caller may retry the same request unchanged.
func (e *Error) Retryable() bool {
	return e.Kind == KindBackendUnavailable || e.Kind == KindConflict
}

func newError(kind ErrorKind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), cause: cause}
}

// NotFoundError reports that a cluster is absent or from an incompatible
// era; the two cases are deliberately indistinguishable to callers.
func NotFoundError(clusterName string) *Error {
	return newError(KindNotFound, nil,
		"cluster %q does not exist or belongs to an incompatible major version", clusterName)
}

// IncompatibleVersionError reports a version-gate rejection.
func IncompatibleVersionError(clusterName string) *Error {
	return newError(KindIncompatibleVersion, nil,
		"cluster %q belongs to an incompatible major version", clusterName)
}

// ConflictError reports optimistic-concurrency exhaustion on the status
// record; the whole request may be retried.
func ConflictError(clusterName string) *Error {
	return newError(KindConflict, nil,
		"compute fleet status for cluster %q was updated concurrently, retry the request", clusterName)
}

// KindOf extracts the error kind, or empty string for untagged errors.
func KindOf(err error) ErrorKind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}
