// Package idempotency implements the per-form submission guard.
//
// A Guard owns the submission state of exactly one form instance. It mints a
// single-use Token per logical submission, refuses a second submission while
// one is in flight, retires tokens that reached a terminal outcome, and
// retains the token across retryable failures so a retry presents the same
// key upstream. A Registry hands out one Guard per form ID; guards of
// different forms never block each other.
//
// Completed tokens can additionally be recorded in a durable Store so a token
// stays consumed across guard eviction and process restarts.
package idempotency

import (
	"context"
	"regexp"
	"time"

	"github.com/google/uuid"
)

// Token is an opaque single-use operation identifier, sent upstream as the
// Idempotency-Key header.
type Token string

// NewToken mints a random 128-bit token (UUIDv4).
func NewToken() Token { return Token(uuid.NewString()) }

func (t Token) String() string { return string(t) }

// MaxTokenLen bounds caller-presented tokens.
const MaxTokenLen = 200

var tokenRe = regexp.MustCompile(`^[A-Za-z0-9._:-]+$`)

// ValidToken reports whether s is acceptable as a caller-presented token.
func ValidToken(s string) bool {
	return s != "" && len(s) <= MaxTokenLen && tokenRe.MatchString(s)
}

// Completion describes a token that reached a terminal outcome.
type Completion struct {
	FormID   string
	Token    Token
	Outcome  string
	Resource string
}

// Store is the durable completed-token set shared by all guards.
type Store interface {
	// Completed reports whether tok was already retired for form.
	Completed(ctx context.Context, form string, tok Token) (bool, error)
	// MarkCompleted records c. Recording an already-completed token is not
	// an error.
	MarkCompleted(ctx context.Context, c Completion) error
}

// clock is swapped in tests.
type clock func() time.Time
