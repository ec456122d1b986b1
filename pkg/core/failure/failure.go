// Package failure defines the error kinds surfaced by the extraction pipeline.
//
// Every stage returns a *Error whose Kind names the failure mode. Callers
// test for a kind with errors.Is against the package sentinels:
//
//	if errors.Is(err, failure.ErrSelectionUnresolved) { ... }
package failure

import (
	"context"
	"errors"
	"fmt"
)

// Kind is an upper-snake failure code.
type Kind string

const (
	KindConfigInvalid        Kind = "CONFIG_INVALID"
	KindRetrievalFailed      Kind = "RETRIEVAL_FAILED"
	KindSelectionParseFailed Kind = "SELECTION_PARSE_FAILED"
	KindSelectionUnresolved  Kind = "SELECTION_UNRESOLVED"
	KindMissingSourceContent Kind = "MISSING_SOURCE_CONTENT"
	KindReformatParseFailed  Kind = "REFORMAT_PARSE_FAILED"
	KindNumericDrift         Kind = "NUMERIC_DRIFT"
	KindUpstreamTimeout      Kind = "UPSTREAM_TIMEOUT"
	KindUpstreamUnavailable  Kind = "UPSTREAM_UNAVAILABLE"
	KindCancelled            Kind = "CANCELLED"
)

// Error is a classified pipeline failure.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrConfigInvalid        = &Error{Kind: KindConfigInvalid}
	ErrRetrievalFailed      = &Error{Kind: KindRetrievalFailed}
	ErrSelectionParseFailed = &Error{Kind: KindSelectionParseFailed}
	ErrSelectionUnresolved  = &Error{Kind: KindSelectionUnresolved}
	ErrMissingSourceContent = &Error{Kind: KindMissingSourceContent}
	ErrReformatParseFailed  = &Error{Kind: KindReformatParseFailed}
	ErrNumericDrift         = &Error{Kind: KindNumericDrift}
	ErrUpstreamTimeout      = &Error{Kind: KindUpstreamTimeout}
	ErrUpstreamUnavailable  = &Error{Kind: KindUpstreamUnavailable}
	ErrCancelled            = &Error{Kind: KindCancelled}
)

// New builds an error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an error of the given kind around cause.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: cause}
}

// KindOf returns the outermost kind in err's chain, or "" when err is unclassified.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

// Classify maps a transport error from an external call.
// parent is the caller's context, not the per-call timeout context: when
// parent is done the run was cancelled, otherwise a deadline is the call's
// own timeout.
func Classify(parent context.Context, err error, call string) error {
	if err == nil {
		return nil
	}
	var fe *Error
	if errors.As(err, &fe) {
		return err
	}
	if parent != nil && parent.Err() != nil {
		return Wrap(KindCancelled, parent.Err(), "%s interrupted", call)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Wrap(KindUpstreamTimeout, err, "%s timed out", call)
	}
	if errors.Is(err, context.Canceled) {
		return Wrap(KindCancelled, err, "%s interrupted", call)
	}
	return Wrap(KindUpstreamUnavailable, err, "%s failed", call)
}
