// Package handlers provides HTTP handler implementations for the public API.
//
// This file defines the standard response utilities used across all endpoints:
// the error envelope, the error → status mapping entry point, and the small
// helpers for success bodies.
//
// Conventions:
//   - Every error response is an ErrorResponse with a stable `code`.
//   - Submission endpoints answer with the services.Outcome body instead; the
//     HTTP status still follows the kind table in errors.go.
//   - 5xx responses are logged with the request-scoped logger.
//
// Example error response:
//
//	HTTP/1.1 404 Not Found
//	{
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000",
//	  "code": "not_found",
//	  "message": "unknown resource"
//	}
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/agritrade-gateway/internal/apperr"
	"github.com/tbourn/agritrade-gateway/internal/domain"
	"github.com/tbourn/agritrade-gateway/internal/http/middleware"
	"github.com/tbourn/agritrade-gateway/internal/services"
)

// ErrorResponse is the standard error envelope returned by all endpoints.
type ErrorResponse struct {
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code (see errors.go constants)
	Code string `json:"code" example:"not_found"`
	// Human-readable message (safe to show to users)
	Message string `json:"message" example:"unknown resource"`
	// Per-field messages for validation errors
	Fields map[string][]string `json:"fields,omitempty"`
}

// fail aborts the request with a structured error and logs server-side errors.
func fail(c *gin.Context, status int, code, msg string) {
	failFields(c, status, code, msg, nil)
}

func failFields(c *gin.Context, status int, code, msg string, fields map[string][]string) {
	resp := ErrorResponse{
		RequestID: c.Writer.Header().Get("X-Request-ID"),
		Code:      code,
		Message:   msg,
		Fields:    fields,
	}

	if status >= http.StatusInternalServerError {
		lg := middleware.LoggerFrom(c)
		lg.Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}

	c.AbortWithStatusJSON(status, resp)
}

// Fail is the exported variant of fail() for the router's 404/405 handlers.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// failErr maps err through the kind table. Internal errors never leak their
// text to the client; the cause is logged instead.
func failErr(c *gin.Context, err error) {
	status, code := statusFor(err)
	if code == ErrCodeInternal {
		middleware.LoggerFrom(c).Error().Err(err).Msg("unhandled error")
		fail(c, status, code, "internal server error")
		return
	}
	failFields(c, status, code, apperr.UserMessage(err), apperr.FieldsOf(err))
}

// outcome writes a submission result. A nil outcome means the request never
// reached the guard (bad form id, unknown resource) and gets the error
// envelope.
func outcome(c *gin.Context, out *services.Outcome, err error) {
	if out == nil {
		if err == nil {
			fail(c, http.StatusInternalServerError, ErrCodeInternal, "internal server error")
			return
		}
		failErr(c, err)
		return
	}
	middleware.ObserveOutcome(out.Resource, out.Operation, out.Status)
	status := http.StatusCreated
	if out.Operation != domain.OpCreate {
		status = http.StatusOK
	}
	if err != nil {
		status, _ = statusFor(err)
	}
	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().Err(err).
			Str("form", out.Form).Str("status", out.Status).
			Msg("submission failed")
	}
	c.JSON(status, out)
}

// ok writes a success JSON response.
func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

// noContent writes an HTTP 204 No Content response.
func noContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
