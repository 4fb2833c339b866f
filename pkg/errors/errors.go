// Package errors defines the structured error type used across the sync
// core. The synchronization engine is a terminal boundary: these errors are
// translated exactly once into a status-callback notification or a queued
// retry, never propagated to callers of the engine's public methods.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind classifies a failure for the engine's recovery policy.
type Kind string

const (
	// KindValidation marks a structurally invalid record or argument.
	KindValidation Kind = "VALIDATION"
	// KindNotFound marks a lookup that matched nothing.
	KindNotFound Kind = "NOT_FOUND"
	// KindConnectivity marks an unreachable remote or a timeout; push
	// failures of this kind are queued for replay.
	KindConnectivity Kind = "CONNECTIVITY"
	// KindPrecondition marks an operation invoked before its requirements
	// held (no user id configured, canvas absent locally). Treated as a
	// silent no-op by the engine, never surfaced.
	KindPrecondition Kind = "PRECONDITION"
	// KindStore marks a local or remote storage-level failure.
	KindStore Kind = "STORE"
	// KindInternal marks everything else.
	KindInternal Kind = "INTERNAL"
)

// SyncError carries the failure classification plus the operation and, when
// known, the canvas it concerned.
type SyncError struct {
	Kind     Kind
	Op       string
	CanvasID string
	Message  string
	Cause    error
}

func (e *SyncError) Error() string {
	msg := e.Message
	if msg == "" && e.Cause != nil {
		msg = e.Cause.Error()
	}
	if e.CanvasID != "" {
		return fmt.Sprintf("%s: %s [%s canvas=%s]", e.Op, msg, e.Kind, e.CanvasID)
	}
	return fmt.Sprintf("%s: %s [%s]", e.Op, msg, e.Kind)
}

func (e *SyncError) Unwrap() error { return e.Cause }

// New builds a SyncError with a fixed message.
func New(kind Kind, op, message string) *SyncError {
	return &SyncError{Kind: kind, Op: op, Message: message}
}

// Newf builds a SyncError with a formatted message.
func Newf(kind Kind, op, format string, args ...any) *SyncError {
	return &SyncError{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches classification and operation context to an underlying error.
// Wrapping nil returns nil.
func Wrap(kind Kind, op string, err error) *SyncError {
	if err == nil {
		return nil
	}
	return &SyncError{Kind: kind, Op: op, Cause: err}
}

// WithCanvas tags the error with the canvas it concerned.
func (e *SyncError) WithCanvas(id string) *SyncError {
	e.CanvasID = id
	return e
}

// KindOf extracts the classification of err, walking the wrap chain.
// Unclassified errors report KindInternal; nil reports the empty kind.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var se *SyncError
	if stderrors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given classification.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
