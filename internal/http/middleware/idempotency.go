// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file validates the Idempotency-Key header on form routes. A client
// presents the key only when re-submitting a token the gateway retained
// after a retryable failure; first submissions let the form's guard mint one.
//
// The validator stashes the key for handlers (GetIdempotencyKey) and, given a
// lookup, flags keys that already reached a terminal outcome for the form
// (IsConsumed). Consumed keys are answered by the guard without touching the
// upstream, so they also bypass rate limiting.
package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/agritrade-gateway/internal/idempotency"
)

// HeaderIdempotencyKey is the request header carrying a retained token.
const HeaderIdempotencyKey = "Idempotency-Key"

// FormParam is the route parameter naming the form instance.
const FormParam = "form"

// Context keys used internally to stash idempotency state.
const (
	ctxKeyIdemKey      = "idem.key"
	ctxKeyIdemConsumed = "idem.consumed"
	ctxKeyRateBypass   = "rate.bypass"
)

// GetIdempotencyKey returns the validated key stored by IdempotencyValidator.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxKeyIdemKey)
	if !ok {
		return "", false
	}
	s, _ := v.(string)
	return s, s != ""
}

// IsConsumed reports whether the presented key was already retired for the
// request's form.
func IsConsumed(c *gin.Context) bool {
	v, ok := c.Get(ctxKeyIdemConsumed)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// ConsumedLookup answers whether key is a completed token of form. Errors are
// treated as "not consumed"; the guard re-checks the store anyway.
type ConsumedLookup func(ctx context.Context, form, key string) (bool, error)

// IdempotencyValidator validates the Idempotency-Key header when present.
//
// Behavior:
//   - Absent header: no-op.
//   - Malformed header (see idempotency.ValidToken): 400 bad_idempotency_key.
//   - Lookup reports the key consumed: sets the consumed and rate-bypass flags.
func IdempotencyValidator(lookup ConsumedLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}
		if !idempotency.ValidToken(key) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"request_id": c.Writer.Header().Get(requestIDHeader),
				"code":       "bad_idempotency_key",
				"message":    "invalid Idempotency-Key",
			})
			return
		}

		c.Set(ctxKeyIdemKey, key)

		if form := c.Param(FormParam); lookup != nil && form != "" {
			if done, _ := lookup(c.Request.Context(), form, key); done {
				c.Set(ctxKeyIdemConsumed, true)
				c.Set(ctxKeyRateBypass, true)
			}
		}

		c.Next()
	}
}
