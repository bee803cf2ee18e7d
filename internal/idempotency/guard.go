package idempotency

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tbourn/agritrade-gateway/internal/apperr"
	"github.com/tbourn/agritrade-gateway/internal/domain"
	"github.com/tbourn/agritrade-gateway/internal/logging"
)

var (
	// ErrAlreadySubmitting rejects a submission while another is in flight.
	ErrAlreadySubmitting = apperr.New(apperr.KindAlreadySubmitting, "a submission is already in progress")
	// ErrTokenConsumed rejects re-presentation of a retired token.
	ErrTokenConsumed = apperr.New(apperr.KindTokenConsumed, "idempotency token was already used")
)

// Op is the guarded operation. It receives the token to present upstream.
type Op func(ctx context.Context, tok Token) (any, error)

// Guard serializes the submissions of one form. The zero value is not usable;
// construct with NewGuard or through a Registry.
//
// Guard is safe for concurrent use. Its mutex is never held while Op or the
// Store run.
type Guard struct {
	form     string
	resource string
	store    Store
	now      clock
	mint     func() Token

	mu        sync.Mutex
	inFlight  bool
	current   Token
	completed map[Token]struct{}
	state     State
	lastUsed  time.Time
}

// NewGuard returns an idle guard for form. store may be nil.
func NewGuard(form string, store Store) *Guard {
	return &Guard{
		form:      form,
		store:     store,
		now:       time.Now,
		mint:      NewToken,
		completed: make(map[Token]struct{}),
		lastUsed:  time.Now(),
	}
}

// Form returns the form ID the guard belongs to.
func (g *Guard) Form() string { return g.form }

// Do runs op under the guard, minting a token or reusing the retained one.
func (g *Guard) Do(ctx context.Context, op Op) (any, error) {
	return g.DoWith(ctx, "", op)
}

// DoWith runs op with a caller-presented token. An empty tok behaves like Do.
//
// Outcomes:
//   - another call in flight: ErrAlreadySubmitting, op not called.
//   - tok already retired: ErrTokenConsumed, op not called.
//   - op succeeds: tok is retired, state Succeeded.
//   - op fails with a duplicate_request error: tok is retired without retry,
//     state Succeeded with Duplicate set, and the error is returned.
//   - op fails with validation_error or not_found: tok is dropped, state
//     Failed without a token.
//   - any other failure: tok is retained for retry, state Failed.
func (g *Guard) DoWith(ctx context.Context, tok Token, op Op) (any, error) {
	g.mu.Lock()
	if g.inFlight {
		g.mu.Unlock()
		return nil, ErrAlreadySubmitting
	}
	if tok == "" {
		tok = g.current
	}
	if tok == "" {
		tok = g.mint()
	}
	if _, done := g.completed[tok]; done {
		g.mu.Unlock()
		return nil, ErrTokenConsumed
	}
	prev := g.state
	resource := g.resource
	g.inFlight = true
	g.current = tok
	g.state = State{Phase: Pending, Token: tok}
	g.lastUsed = g.now()
	g.mu.Unlock()

	if g.store != nil {
		done, err := g.store.Completed(ctx, g.form, tok)
		if err != nil {
			g.release(prev)
			return nil, apperr.Wrap(apperr.KindUnexpected, "token store unavailable", err)
		}
		if done {
			g.mu.Lock()
			g.completed[tok] = struct{}{}
			g.current = ""
			g.inFlight = false
			g.state = prev
			if prev.Token == tok {
				g.state = State{Phase: Idle}
			}
			g.mu.Unlock()
			return nil, ErrTokenConsumed
		}
	}

	res, err := g.call(ctx, tok, op)

	duplicate := apperr.IsKind(err, apperr.KindDuplicateRequest)
	terminal := err == nil || duplicate
	if terminal && g.store != nil {
		outcome := domain.TokenSucceeded
		if duplicate {
			outcome = domain.TokenDuplicate
		}
		c := Completion{FormID: g.form, Token: tok, Outcome: outcome, Resource: resource}
		if serr := g.store.MarkCompleted(context.WithoutCancel(ctx), c); serr != nil {
			logging.FromContext(ctx).Warn().Err(serr).
				Str("form", g.form).Str("token", tok.String()).
				Msg("record completed token")
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.inFlight = false
	g.lastUsed = g.now()
	switch {
	case terminal:
		g.completed[tok] = struct{}{}
		g.current = ""
		g.state = State{Phase: Succeeded, Token: tok, Duplicate: duplicate}
	case rejected(err):
		g.current = ""
		g.state = State{Phase: Failed, Err: err}
	default:
		g.state = State{Phase: Failed, Token: tok, Err: err}
	}
	return res, err
}

// rejected reports whether the upstream definitively refused the request, so
// nothing was applied under the token. The corrected record is a different
// operation and gets a fresh token; re-sending a new payload under the old key
// would be a key reuse.
func rejected(err error) bool {
	switch apperr.KindOf(err) {
	case apperr.KindValidation, apperr.KindNotFound:
		return true
	}
	return false
}

// call runs op, converting a panic into an unexpected error so the guard is
// never left in flight.
func (g *Guard) call(ctx context.Context, tok Token, op Op) (res any, err error) {
	defer func() {
		if p := recover(); p != nil {
			res = nil
			err = apperr.Wrap(apperr.KindUnexpected, "submission panicked", fmt.Errorf("%v", p))
		}
	}()
	return op(ctx, tok)
}

func (g *Guard) release(prev State) {
	g.mu.Lock()
	g.inFlight = false
	g.state = prev
	g.mu.Unlock()
}

// SetResource labels completions recorded by this guard.
func (g *Guard) SetResource(resource string) {
	g.mu.Lock()
	g.resource = resource
	g.mu.Unlock()
}

// Cancel discards the retained token so the next submission mints a new one.
// It fails with ErrAlreadySubmitting while a call is in flight.
func (g *Guard) Cancel() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.inFlight {
		return ErrAlreadySubmitting
	}
	g.current = ""
	g.state = State{Phase: Idle}
	g.lastUsed = g.now()
	return nil
}

// Reset returns the guard to Idle and forgets the in-memory completed set.
// Tokens recorded in the durable Store stay consumed.
func (g *Guard) Reset() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.inFlight {
		return ErrAlreadySubmitting
	}
	g.current = ""
	g.completed = make(map[Token]struct{})
	g.state = State{Phase: Idle}
	g.lastUsed = g.now()
	return nil
}

// State returns a snapshot of the guard.
func (g *Guard) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Retained returns the token a retry would present, if any.
func (g *Guard) Retained() (Token, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.current, g.current != ""
}

// idleFor reports how long the guard has been idle, and false while pending.
func (g *Guard) idleFor(now time.Time) (time.Duration, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.inFlight {
		return 0, false
	}
	return now.Sub(g.lastUsed), true
}

func (g *Guard) touch(now time.Time) {
	g.mu.Lock()
	g.lastUsed = now
	g.mu.Unlock()
}
