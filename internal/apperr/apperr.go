// Package apperr defines the closed error taxonomy shared by the gateway.
//
// Every failure that crosses a layer boundary is either an *Error carrying one
// of the Kind values below, or is normalized into one by KindOf. Downstream
// code matches on Kind instead of probing error shapes:
//
//   - KindValidation:         per-field rule violations (local or upstream 400/422)
//   - KindAlreadySubmitting:  a guarded submission is already in flight
//   - KindDuplicateRequest:   upstream reported the operation as already applied (409)
//   - KindTokenConsumed:      a completed idempotency token was presented again
//   - KindTransient:          timeouts, connection failures, 5xx gateway errors
//   - KindNotFound:           upstream resource does not exist
//   - KindUnexpected:         everything else
package apperr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sort"
	"strings"
)

// Kind identifies the error category. Values are stable snake_case strings
// that double as machine-readable codes in API responses.
type Kind string

const (
	KindValidation        Kind = "validation_error"
	KindAlreadySubmitting Kind = "already_submitting"
	KindDuplicateRequest  Kind = "duplicate_request"
	KindTokenConsumed     Kind = "token_consumed"
	KindTransient         Kind = "transient_network_error"
	KindNotFound          Kind = "not_found"
	KindUnexpected        Kind = "unexpected_error"
)

// Error is the normalized error value.
type Error struct {
	// Kind is the taxonomy bucket.
	Kind Kind

	// Message is a short human-readable description.
	Message string

	// Status is the upstream HTTP status, when the error came from a response.
	Status int

	// Detail is the backend-provided detail text, when present.
	Detail string

	// Fields carries per-field messages for validation errors.
	Fields map[string][]string

	// Err is the wrapped cause.
	Err error
}

// New returns an *Error with the given kind and message.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Wrap returns an *Error of the given kind wrapping cause.
func Wrap(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Err: cause}
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Status != 0 {
		fmt.Fprintf(&b, " (status=%d)", e.Status)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes the cause to errors.Is / errors.As.
func (e *Error) Unwrap() error { return e.Err }

// Is reports kind equality against another *Error so that sentinel values
// declared with New match any error of the same kind and message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == e.Message
}

// KindOf classifies any error into the taxonomy. A nil error has no kind.
//
// Context deadlines and network timeouts are transient; context cancellation
// is transient as well because the caller may retry with the same token.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindTransient
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return KindTransient
	}
	return KindUnexpected
}

// IsKind reports whether err classifies as kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// FieldsOf returns the per-field messages carried by err, or nil.
func FieldsOf(err error) map[string][]string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Fields
	}
	return nil
}

// UserMessage renders err as text suitable for a dismissible banner.
//
// A backend detail string wins over the generic message; per-field details
// are flattened as "field: message" pairs in field order.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var ae *Error
	if !errors.As(err, &ae) {
		switch KindOf(err) {
		case KindTransient:
			return "The server could not be reached. Please try again."
		default:
			return "Something went wrong. Please try again."
		}
	}
	if ae.Detail != "" {
		return ae.Detail
	}
	if len(ae.Fields) > 0 {
		names := make([]string, 0, len(ae.Fields))
		for k := range ae.Fields {
			names = append(names, k)
		}
		sort.Strings(names)
		parts := make([]string, 0, len(names))
		for _, n := range names {
			parts = append(parts, n+": "+strings.Join(ae.Fields[n], ", "))
		}
		return strings.Join(parts, "; ")
	}
	if ae.Message != "" {
		return ae.Message
	}
	switch ae.Kind {
	case KindValidation:
		return "Please correct the highlighted fields."
	case KindAlreadySubmitting:
		return "A submission is already in progress."
	case KindTokenConsumed:
		return "This submission was already completed."
	case KindDuplicateRequest:
		return "This operation was already applied."
	case KindTransient:
		return "The server could not be reached. Please try again."
	case KindNotFound:
		return "The requested record was not found."
	}
	return "Something went wrong. Please try again."
}
