package domain

import (
	"errors"
	"fmt"
)

// FailureKind classifies why an adapter call degraded.
type FailureKind string

const (
	KindToolMissing   FailureKind = "tool_missing"
	KindSubprocess    FailureKind = "subprocess"
	KindTimeout       FailureKind = "timeout"
	KindExitStatus    FailureKind = "exit_status"
	KindParse         FailureKind = "parse"
	KindMarkerMissing FailureKind = "marker_missing"
	KindNotFound      FailureKind = "not_found"
	KindTransport     FailureKind = "transport"
	KindIO            FailureKind = "io"
	KindInvalidFont   FailureKind = "invalid_font"
	KindCancelled     FailureKind = "cancelled"
	KindUnknown       FailureKind = "unknown"
)

// OpError is the typed failure returned next to a degraded adapter result.
type OpError struct {
	Op   string
	Path string
	Kind FailureKind
	Err  error
}

// Error formats the failure for logs and per-item status.
func (e *OpError) Error() string {
	if e == nil {
		return ""
	}
	msg := fmt.Sprintf("%s %s: %s", e.Op, e.Path, e.Kind)
	if e.Path == "" {
		msg = fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes the underlying error for errors.Is / errors.As.
func (e *OpError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewOpError builds an OpError.
func NewOpError(op, path string, kind FailureKind, err error) *OpError {
	return &OpError{Op: op, Path: path, Kind: kind, Err: err}
}

// KindOf returns the failure kind carried by err, or "" for nil.
func KindOf(err error) FailureKind {
	if err == nil {
		return ""
	}
	var opErr *OpError
	if errors.As(err, &opErr) {
		return opErr.Kind
	}
	return KindUnknown
}
