// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package apperr provides the structured error type shared by every stage.
// Each error carries a Kind that decides retry and exit-code behaviour, and
// an optional reference (PMID, batch range, query fragment, or path) that
// is always shown to the user.
package apperr

import (
	stderrs "errors"
	"fmt"
)

// Kind classifies an error.
type Kind uint8

const (
	// KindUnknown is for unclassified errors.
	KindUnknown Kind = iota

	// KindQuery is a malformed or rejected search expression. Never retried.
	KindQuery

	// KindTransient is a network, timeout, rate-limit or 5xx failure that
	// persisted after the retry budget was spent.
	KindTransient

	// KindFetch is a non-transient fetch failure: a 4xx response other than
	// 429, or a response body that cannot be decoded.
	KindFetch

	// KindMalformedRecord is a single article missing mandatory fields.
	// Callers skip it and keep going.
	KindMalformedRecord

	// KindOutput means the output target could not be written.
	KindOutput

	// KindConfig is an invalid configuration value.
	KindConfig
)

var kindNames = map[Kind]string{
	KindUnknown:         "unknown",
	KindQuery:           "query",
	KindTransient:       "transient",
	KindFetch:           "fetch",
	KindMalformedRecord: "malformed_record",
	KindOutput:          "output",
	KindConfig:          "config",
}

// String returns the snake_case kind name.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Error is the structured error type.
// msg is user facing; ref names the offending PMID, batch, query or path;
// op is an optional operation label; orig is the wrapped cause.
type Error struct {
	orig error
	msg  string
	ref  string
	op   string
	kind Kind
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	s := e.msg
	if e.ref != "" {
		s = fmt.Sprintf("%s [%s]", s, e.ref)
	}
	if e.orig != nil {
		s = fmt.Sprintf("%s: %v", s, e.orig)
	}
	return s
}

// Unwrap returns the wrapped error, if any.
func (e *Error) Unwrap() error { return e.orig }

// Kind returns the error kind.
func (e *Error) Kind() Kind { return e.kind }

// Ref returns the offending identifier, if set.
func (e *Error) Ref() string { return e.ref }

// Op returns the operation label, if set.
func (e *Error) Op() string { return e.op }

// New returns an *Error with the given kind and message.
func New(kind Kind, msg string) error { return &Error{kind: kind, msg: msg} }

// Newf returns an *Error with kind and formatted message.
func Newf(kind Kind, format string, a ...any) error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, a...)}
}

// Wrap returns an *Error that wraps orig.
func Wrap(orig error, kind Kind, msg string) error {
	return &Error{kind: kind, msg: msg, orig: orig}
}

// Wrapf returns an *Error that wraps orig with a formatted message.
func Wrapf(orig error, kind Kind, format string, a ...any) error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, a...), orig: orig}
}

// As unwraps and returns (*Error, true) if err is one of ours.
func As(err error) (*Error, bool) {
	var e *Error
	if stderrs.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf extracts the Kind from any error, defaulting to KindUnknown.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.kind
	}
	return KindUnknown
}

// IsKind reports whether err has the given kind.
func IsKind(err error, kind Kind) bool { return KindOf(err) == kind }

// Retryable reports whether err is transient. Transient errors reaching
// callers have already used up the retry budget; this only tells a caller
// whether running again later could help.
func Retryable(err error) bool { return IsKind(err, KindTransient) }

// WithRef attaches a reference to an *Error (copy-on-write). Foreign errors
// are returned unchanged.
func WithRef(err error, ref string) error {
	if e, ok := As(err); ok {
		c := *e
		c.ref = ref
		return &c
	}
	return err
}

// WithOp attaches an operation label to an *Error (copy-on-write).
func WithOp(err error, op string) error {
	if e, ok := As(err); ok {
		c := *e
		c.op = op
		return &c
	}
	return err
}

// Exit codes returned by the CLI.
const (
	ExitOK      = 0
	ExitGeneral = 1
	ExitQuery   = 2
	ExitFetch   = 3
	ExitOutput  = 4
)

// ExitCode maps an error to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	switch KindOf(err) {
	case KindQuery:
		return ExitQuery
	case KindTransient, KindFetch:
		return ExitFetch
	case KindOutput:
		return ExitOutput
	default:
		return ExitGeneral
	}
}
