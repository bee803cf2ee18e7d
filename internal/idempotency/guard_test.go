package idempotency

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/agritrade-gateway/internal/apperr"
)

var errTransient = apperr.New(apperr.KindTransient, "upstream unavailable")

func TestGuard_ConcurrentSubmitsCallOnce(t *testing.T) {
	g := NewGuard("f1", nil)

	var calls atomic.Int32
	entered := make(chan struct{})
	release := make(chan struct{})
	op := func(ctx context.Context, tok Token) (any, error) {
		calls.Add(1)
		close(entered)
		<-release
		return "ok", nil
	}

	var (
		wg       sync.WaitGroup
		firstRes any
		firstErr error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		firstRes, firstErr = g.Do(context.Background(), op)
	}()
	<-entered

	assert.Equal(t, Pending, g.State().Phase)
	_, err := g.Do(context.Background(), func(context.Context, Token) (any, error) {
		t.Fatal("second op must not run")
		return nil, nil
	})
	assert.ErrorIs(t, err, ErrAlreadySubmitting)
	assert.True(t, apperr.IsKind(err, apperr.KindAlreadySubmitting))

	close(release)
	wg.Wait()
	require.NoError(t, firstErr)
	assert.Equal(t, "ok", firstRes)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGuard_SuccessRetiresToken(t *testing.T) {
	g := NewGuard("f1", nil)
	var seen []Token
	op := func(_ context.Context, tok Token) (any, error) {
		seen = append(seen, tok)
		return nil, nil
	}

	_, err := g.Do(context.Background(), op)
	require.NoError(t, err)
	st := g.State()
	assert.Equal(t, Succeeded, st.Phase)
	assert.False(t, st.Duplicate)
	_, retained := g.Retained()
	assert.False(t, retained)

	// A distinct submission mints a new token.
	_, err = g.Do(context.Background(), op)
	require.NoError(t, err)
	require.Len(t, seen, 2)
	assert.NotEqual(t, seen[0], seen[1])

	// Re-presenting a retired token is rejected without a call.
	_, err = g.DoWith(context.Background(), seen[0], op)
	assert.ErrorIs(t, err, ErrTokenConsumed)
	assert.Len(t, seen, 2)
}

func TestGuard_UpstreamRejectionDropsToken(t *testing.T) {
	for _, kind := range []apperr.Kind{apperr.KindValidation, apperr.KindNotFound} {
		t.Run(string(kind), func(t *testing.T) {
			g := NewGuard("f1", nil)
			var seen []Token
			reject := true
			op := func(_ context.Context, tok Token) (any, error) {
				seen = append(seen, tok)
				if reject {
					return nil, apperr.New(kind, "rejected")
				}
				return nil, nil
			}

			_, err := g.Do(context.Background(), op)
			require.True(t, apperr.IsKind(err, kind))
			st := g.State()
			assert.Equal(t, Failed, st.Phase)
			assert.Empty(t, st.Token)
			_, ok := g.Retained()
			assert.False(t, ok)

			reject = false
			_, err = g.Do(context.Background(), op)
			require.NoError(t, err)
			require.Len(t, seen, 2)
			assert.NotEqual(t, seen[0], seen[1], "corrected record must not reuse the rejected key")
		})
	}
}

func TestGuard_TransientFailureRetainsToken(t *testing.T) {
	g := NewGuard("f1", nil)
	var seen []Token
	fail := true
	op := func(_ context.Context, tok Token) (any, error) {
		seen = append(seen, tok)
		if fail {
			return nil, errTransient
		}
		return nil, nil
	}

	_, err := g.Do(context.Background(), op)
	require.ErrorIs(t, err, errTransient)
	st := g.State()
	assert.Equal(t, Failed, st.Phase)
	assert.Equal(t, seen[0], st.Token)
	tok, ok := g.Retained()
	require.True(t, ok)
	assert.Equal(t, seen[0], tok)

	fail = false
	_, err = g.Do(context.Background(), op)
	require.NoError(t, err)
	require.Len(t, seen, 2)
	assert.Equal(t, seen[0], seen[1], "retry must reuse the retained token")
}

func TestGuard_DuplicateIsTerminal(t *testing.T) {
	g := NewGuard("f1", nil)
	dup := apperr.New(apperr.KindDuplicateRequest, "conflict")
	var tok Token
	_, err := g.Do(context.Background(), func(_ context.Context, k Token) (any, error) {
		tok = k
		return nil, dup
	})
	require.ErrorIs(t, err, dup)

	st := g.State()
	assert.Equal(t, Succeeded, st.Phase)
	assert.True(t, st.Duplicate)
	_, retained := g.Retained()
	assert.False(t, retained)

	_, err = g.DoWith(context.Background(), tok, func(context.Context, Token) (any, error) {
		t.Fatal("retired token must not be re-sent")
		return nil, nil
	})
	assert.ErrorIs(t, err, ErrTokenConsumed)
}

func TestGuard_CancelDiscardsRetainedToken(t *testing.T) {
	g := NewGuard("f1", nil)
	var seen []Token
	op := func(_ context.Context, tok Token) (any, error) {
		seen = append(seen, tok)
		return nil, errTransient
	}
	_, _ = g.Do(context.Background(), op)
	require.NoError(t, g.Cancel())
	assert.Equal(t, Idle, g.State().Phase)
	_, _ = g.Do(context.Background(), op)
	require.Len(t, seen, 2)
	assert.NotEqual(t, seen[0], seen[1])
}

func TestGuard_CancelAndResetWhilePending(t *testing.T) {
	g := NewGuard("f1", nil)
	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = g.Do(context.Background(), func(context.Context, Token) (any, error) {
			close(entered)
			<-release
			return nil, nil
		})
	}()
	<-entered
	assert.ErrorIs(t, g.Cancel(), ErrAlreadySubmitting)
	assert.ErrorIs(t, g.Reset(), ErrAlreadySubmitting)
	close(release)
	<-done
}

func TestGuard_ResetForgetsMemoryButNotStore(t *testing.T) {
	op := func(context.Context, Token) (any, error) { return nil, nil }

	g := NewGuard("f1", nil)
	tok := NewToken()
	_, err := g.DoWith(context.Background(), tok, op)
	require.NoError(t, err)
	require.NoError(t, g.Reset())
	_, err = g.DoWith(context.Background(), tok, op)
	assert.NoError(t, err, "without a store, reset allows the token again")

	store := NewMemoryStore(0)
	g = NewGuard("f2", store)
	tok = NewToken()
	_, err = g.DoWith(context.Background(), tok, op)
	require.NoError(t, err)
	require.NoError(t, g.Reset())
	_, err = g.DoWith(context.Background(), tok, op)
	assert.ErrorIs(t, err, ErrTokenConsumed)
	assert.Equal(t, Idle, g.State().Phase)
}

func TestGuard_StoreSharedAcrossGuards(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	tok := NewToken()
	calls := 0
	op := func(context.Context, Token) (any, error) { calls++; return nil, nil }

	first := NewGuard("f1", store)
	first.SetResource("purchases")
	_, err := first.DoWith(context.Background(), tok, op)
	require.NoError(t, err)

	// A fresh guard for the same form (e.g. after eviction) still refuses it.
	second := NewGuard("f1", store)
	_, err = second.DoWith(context.Background(), tok, op)
	assert.ErrorIs(t, err, ErrTokenConsumed)
	assert.Equal(t, 1, calls)

	// Other forms are independent.
	other := NewGuard("f2", store)
	_, err = other.DoWith(context.Background(), tok, op)
	assert.NoError(t, err)
}

type brokenStore struct{}

func (brokenStore) Completed(context.Context, string, Token) (bool, error) {
	return false, errors.New("disk on fire")
}
func (brokenStore) MarkCompleted(context.Context, Completion) error { return nil }

func TestGuard_StoreErrorReleasesGuard(t *testing.T) {
	g := NewGuard("f1", brokenStore{})
	_, err := g.Do(context.Background(), func(context.Context, Token) (any, error) {
		t.Fatal("op must not run when the store is unavailable")
		return nil, nil
	})
	assert.Equal(t, apperr.KindUnexpected, apperr.KindOf(err))
	assert.Equal(t, Idle, g.State().Phase)
	// Not stuck in flight.
	assert.NoError(t, g.Cancel())
}

func TestGuard_PanicBecomesFailure(t *testing.T) {
	g := NewGuard("f1", nil)
	_, err := g.Do(context.Background(), func(context.Context, Token) (any, error) {
		panic("boom")
	})
	assert.Equal(t, apperr.KindUnexpected, apperr.KindOf(err))
	assert.Equal(t, Failed, g.State().Phase)
	_, err = g.Do(context.Background(), func(context.Context, Token) (any, error) { return 1, nil })
	assert.NoError(t, err)
}

func TestValidToken(t *testing.T) {
	assert.True(t, ValidToken(NewToken().String()))
	assert.True(t, ValidToken("order-42:retry.1"))
	assert.False(t, ValidToken(""))
	assert.False(t, ValidToken("has space"))
	long := make([]byte, MaxTokenLen+1)
	for i := range long {
		long[i] = 'a'
	}
	assert.False(t, ValidToken(string(long)))
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "pending", Pending.String())
	assert.Equal(t, "succeeded", Succeeded.String())
	assert.Equal(t, "failed", Failed.String())
	assert.Equal(t, "unknown", Phase(9).String())
}
