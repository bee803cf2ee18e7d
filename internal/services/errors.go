// Package services holds the gateway's application logic: the submission
// orchestrator, cached resource reads and writes, the reference-data service
// and the best-effort lookups.
//
// This file centralizes service-level error values. They are *apperr.Error
// values so handlers map them through the same kind table as upstream errors.
package services

import "github.com/tbourn/agritrade-gateway/internal/apperr"

var (
	// ErrUnknownResource is returned for a resource name the gateway does
	// not front.
	ErrUnknownResource = apperr.New(apperr.KindNotFound, "unknown resource")

	// ErrReadOnlyResource is returned when a submission targets a resource
	// without a record schema (inventory, dashboard, reference data).
	ErrReadOnlyResource = apperr.New(apperr.KindValidation, "resource does not accept submissions")

	// ErrNoDetail is returned for a detail read of a singleton resource.
	ErrNoDetail = apperr.New(apperr.KindValidation, "resource has no detail view")

	// ErrInvalidID is returned when a path id is not a positive integer.
	ErrInvalidID = apperr.New(apperr.KindValidation, "id must be a positive integer")

	// ErrInvalidToken is returned when a presented idempotency key is
	// malformed.
	ErrInvalidToken = apperr.New(apperr.KindValidation, "invalid idempotency key")

	// ErrInvalidForm is returned for an empty or oversized form id.
	ErrInvalidForm = apperr.New(apperr.KindValidation, "invalid form id")

	// ErrInvalidCoordinates is returned for a weather lookup outside the
	// valid latitude/longitude range.
	ErrInvalidCoordinates = apperr.New(apperr.KindValidation, "latitude must be within [-90, 90] and longitude within [-180, 180]")
)
