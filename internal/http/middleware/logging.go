// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file provides the request ID injector, structured access logging and a
// panic-safe recovery handler.
//
//   - RequestID() reuses or mints the X-Request-ID correlation id.
//   - Logger() emits one access log per request and attaches a request-scoped
//     zerolog.Logger to both the Gin context (LoggerFrom) and the request's
//     context.Context (logging.FromContext), so services, the idempotency
//     guard and the upstream client log with the same request fields.
//   - Recovery() converts panics into the JSON 500 error envelope.
//
// Recommended order: RequestID, Logger (or RedactingLogger), Recovery.
package middleware

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/agritrade-gateway/internal/logging"
)

const (
	// requestIDKey is the Gin context key under which the request ID is stored.
	requestIDKey = "requestID"
	// requestIDHeader is the HTTP header used to propagate the correlation ID.
	requestIDHeader = "X-Request-ID"
	// loggerKey is the Gin context key of the request-scoped logger.
	loggerKey = "logger"
	// maxQueryLogLength caps the number of bytes of the raw query string logged.
	maxQueryLogLength = 2048
)

// RequestID attaches (or propagates) a correlation identifier per request.
// An incoming X-Request-ID is reused; otherwise a UUIDv4 is generated. The
// id is echoed on the response and stored under "requestID".
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(requestIDHeader)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set(requestIDKey, rid)
		c.Writer.Header().Set(requestIDHeader, rid)
		c.Next()
	}
}

// GetRequestID returns the correlation id stored by RequestID, falling back
// to the response and then the request X-Request-ID header.
func GetRequestID(c *gin.Context) string {
	v, _ := c.Get(requestIDKey)
	if rid := asString(v); rid != "" {
		return rid
	}
	if rid := c.Writer.Header().Get(requestIDHeader); rid != "" {
		return rid
	}
	return c.GetHeader(requestIDHeader)
}

// requestLogger builds the request-scoped logger and makes it reachable from
// the Gin context and from c.Request.Context().
func requestLogger(c *gin.Context, path, query string) zerolog.Logger {
	lc := log.With().
		Str("request_id", GetRequestID(c)).
		Str("method", c.Request.Method).
		Str("path", path)
	if query != "" {
		lc = lc.Str("query", query)
	}
	if form := c.Param(FormParam); form != "" {
		lc = lc.Str("form", form)
	}
	if res := c.Param("resource"); res != "" {
		lc = lc.Str("resource", res)
	}
	l := lc.Logger()

	c.Set(loggerKey, &l)
	c.Request = c.Request.WithContext(logging.WithContext(c.Request.Context(), l))
	return l
}

// logPath is the route when one matched, else the raw URL path.
func logPath(c *gin.Context) string {
	if p := c.FullPath(); p != "" {
		return p
	}
	return c.Request.URL.Path
}

// emitAccess writes the access line: error for 5xx or when handlers recorded
// gin errors, warn for 4xx, info otherwise.
func emitAccess(l zerolog.Logger, c *gin.Context, start time.Time) {
	status := c.Writer.Status()
	ev := l.With().
		Int("status", status).
		Dur("latency", time.Since(start)).
		Int("bytes_out", c.Writer.Size()).
		Logger()

	switch {
	case len(c.Errors) > 0:
		ev.Error().Str("errors", c.Errors.String()).Msg("request")
	case status >= 500:
		ev.Error().Msg("request")
	case status >= 400:
		ev.Warn().Msg("request")
	default:
		ev.Info().Msg("request")
	}
}

// Logger writes a structured access log for each request. Place it after
// RequestID so logs include the correlation ID.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		l := requestLogger(c, logPath(c), truncate(c.Request.URL.RawQuery, maxQueryLogLength))
		l = l.With().
			Str("remote_ip", c.ClientIP()).
			Str("user_agent", c.Request.UserAgent()).
			Int64("bytes_in", c.Request.ContentLength).
			Logger()

		c.Next()

		emitAccess(l, c, start)
	}
}

// Recovery intercepts panics, logs a stack trace, and answers with the
// standard error envelope:
//
//	{"request_id": "...", "code": "internal_error", "message": "internal server error"}
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				rid := GetRequestID(c)
				LoggerFrom(c).Error().
					Interface("panic", rec).
					Bytes("stack", debug.Stack()).
					Str("request_id", rid).
					Msg("panic recovered")

				if !c.Writer.Written() {
					c.Header(requestIDHeader, rid)
					c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
						"request_id": rid,
						"code":       "internal_error",
						"message":    "internal server error",
					})
					return
				}
				c.AbortWithStatus(http.StatusInternalServerError)
			}
		}()
		c.Next()
	}
}

// LoggerFrom returns the request-scoped zerolog.Logger, or the global logger
// when none was attached.
func LoggerFrom(c *gin.Context) *zerolog.Logger {
	if v, ok := c.Get(loggerKey); ok {
		if lg, ok := v.(*zerolog.Logger); ok {
			return lg
		}
	}
	l := log.With().Logger()
	return &l
}

func asString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// truncate caps s at max bytes and appends an ellipsis. max <= 0 disables
// truncation.
func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
