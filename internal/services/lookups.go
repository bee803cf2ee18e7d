package services

import (
	"context"
	"math"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/agritrade-gateway/internal/domain"
)

// LookupSource provides the best-effort hints.
type LookupSource interface {
	LastPurchasePrice(ctx context.Context, cropID, supplierID *int64) domain.LastPrice
	Weather(ctx context.Context, lat, lon float64) *domain.Weather
}

// LookupService serves non-critical UI hints. Failures degrade to defaults.
type LookupService struct {
	Src LookupSource
}

// LastPrice returns the last purchase price for the pair, or the null-filled
// default. Non-positive ids count as absent.
func (s *LookupService) LastPrice(ctx context.Context, cropID, supplierID *int64) domain.LastPrice {
	ctx, span := otel.Tracer("services/LookupService").Start(ctx, "LastPrice")
	defer span.End()

	if cropID != nil && *cropID <= 0 {
		cropID = nil
	}
	if supplierID != nil && *supplierID <= 0 {
		supplierID = nil
	}
	return s.Src.LastPurchasePrice(ctx, cropID, supplierID)
}

// Weather returns current conditions or nil. Out-of-range coordinates are a
// validation error.
func (s *LookupService) Weather(ctx context.Context, lat, lon float64) (*domain.Weather, error) {
	ctx, span := otel.Tracer("services/LookupService").Start(ctx, "Weather",
		trace.WithAttributes(attribute.Float64("lat", lat), attribute.Float64("lon", lon)),
	)
	defer span.End()

	if math.IsNaN(lat) || math.IsNaN(lon) || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return nil, ErrInvalidCoordinates
	}
	return s.Src.Weather(ctx, lat, lon), nil
}
