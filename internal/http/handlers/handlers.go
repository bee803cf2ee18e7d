// Package handlers provides HTTP handler implementations for the public API.
//
// Handlers are transport-thin: they read path, query and body, call the
// application services, and translate results into HTTP responses. All
// dependencies are narrow interfaces so tests can substitute fakes.
package handlers

import (
	"context"
	"encoding/json"

	"github.com/tbourn/agritrade-gateway/internal/domain"
	"github.com/tbourn/agritrade-gateway/internal/idempotency"
	"github.com/tbourn/agritrade-gateway/internal/services"
)

//
// Service contracts (context-aware)
//

// ResourceService serves cached reads and guarded writes. Implemented by
// *services.ResourceService.
type ResourceService interface {
	List(ctx context.Context, name string, filters map[string]string) (json.RawMessage, error)
	Get(ctx context.Context, name, id string) (json.RawMessage, error)
	Create(ctx context.Context, form, name string, raw any, tok idempotency.Token) (*services.Outcome, error)
	Update(ctx context.Context, form, name, id string, raw any, tok idempotency.Token) (*services.Outcome, error)
	Delete(ctx context.Context, form, name, id string, tok idempotency.Token) (*services.Outcome, error)
}

// FormService exposes guard state and the audit trail. Implemented by
// *services.Submitter.
type FormService interface {
	State(form string) services.FormState
	Cancel(form string) error
	History(ctx context.Context, form string, page, pageSize int) ([]domain.Submission, int64, error)
	Stats(ctx context.Context, form string) (services.SubmissionStats, error)
}

// ReferenceService serves the shared reference snapshot. Implemented by
// *services.ReferenceData.
type ReferenceService interface {
	Get(ctx context.Context) (services.Reference, error)
	Refresh(ctx context.Context) (services.Reference, error)
}

// LookupService serves best-effort UI hints. Implemented by
// *services.LookupService.
type LookupService interface {
	LastPrice(ctx context.Context, cropID, supplierID *int64) domain.LastPrice
	Weather(ctx context.Context, lat, lon float64) (*domain.Weather, error)
}

// Pinger checks the upstream API for readiness. Implemented by
// *upstream.Client.
type Pinger interface {
	Ping(ctx context.Context) error
}

//
// Handler wiring
//

// Deps are the services behind the handlers. Nil Lookups or Upstream disable
// the corresponding endpoints' dependency (lookups answer defaults, /ready
// reports ready).
type Deps struct {
	Resources ResourceService
	Forms     FormService
	Reference ReferenceService
	Lookups   LookupService
	Upstream  Pinger
}

// Handlers groups the gateway's HTTP endpoints.
type Handlers struct {
	res   ResourceService
	forms FormService
	ref   ReferenceService
	look  LookupService
	ping  Pinger
}

// New constructs Handlers bound to the given services.
func New(d Deps) *Handlers {
	return &Handlers{
		res:   d.Resources,
		forms: d.Forms,
		ref:   d.Reference,
		look:  d.Lookups,
		ping:  d.Upstream,
	}
}
