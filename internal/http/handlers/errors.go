// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// This file centralizes symbolic error code constants and the single table
// that maps apperr kinds to HTTP statuses. Codes are lowercase snake_case and
// stable; clients branch on them, never on the message text.
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "validation_error",
//	  "message": "Please correct the highlighted fields.",
//	  "fields": {"crop_id": ["required"]}
//	}
package handlers

import (
	"errors"
	"net/http"

	"github.com/tbourn/agritrade-gateway/internal/apperr"
)

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodeUnavailable      = "upstream_unavailable"

	// Submission taxonomy; the values equal the apperr kinds.
	ErrCodeValidation        = string(apperr.KindValidation)
	ErrCodeAlreadySubmitting = string(apperr.KindAlreadySubmitting)
	ErrCodeDuplicateRequest  = string(apperr.KindDuplicateRequest)
	ErrCodeTokenConsumed     = string(apperr.KindTokenConsumed)
	ErrCodeTransient         = string(apperr.KindTransient)
	ErrCodeUnexpected        = string(apperr.KindUnexpected)
)

// kindStatus is the kind → HTTP status table. A duplicate request means the
// operation already took effect, so it is reported as a success.
var kindStatus = map[apperr.Kind]int{
	apperr.KindValidation:        http.StatusUnprocessableEntity,
	apperr.KindAlreadySubmitting: http.StatusConflict,
	apperr.KindDuplicateRequest:  http.StatusOK,
	apperr.KindTokenConsumed:     http.StatusConflict,
	apperr.KindTransient:         http.StatusServiceUnavailable,
	apperr.KindNotFound:          http.StatusNotFound,
	apperr.KindUnexpected:        http.StatusBadGateway,
}

// statusFor returns the HTTP status and code for err. Plain errors that are
// not timeouts or cancellations are internal errors of the gateway itself.
func statusFor(err error) (int, string) {
	var ae *apperr.Error
	kind := apperr.KindOf(err)
	if !errors.As(err, &ae) && kind != apperr.KindTransient {
		return http.StatusInternalServerError, ErrCodeInternal
	}
	if st, ok := kindStatus[kind]; ok {
		return st, string(kind)
	}
	return http.StatusInternalServerError, ErrCodeInternal
}
