package services

import (
	"context"
	"math"
	"testing"

	"github.com/tbourn/agritrade-gateway/internal/domain"
)

type fakeLookups struct {
	crop, supplier *int64
	calls          int
}

func (f *fakeLookups) LastPurchasePrice(ctx context.Context, cropID, supplierID *int64) domain.LastPrice {
	f.calls++
	f.crop, f.supplier = cropID, supplierID
	return domain.LastPrice{}
}

func (f *fakeLookups) Weather(ctx context.Context, lat, lon float64) *domain.Weather {
	f.calls++
	return &domain.Weather{Latitude: lat, Longitude: lon}
}

func TestLastPrice_NonPositiveIDsAreAbsent(t *testing.T) {
	src := &fakeLookups{}
	s := &LookupService{Src: src}
	zero, five := int64(0), int64(5)

	got := s.LastPrice(context.Background(), &zero, &five)
	if !got.Empty() {
		t.Fatalf("expected empty hint")
	}
	if src.crop != nil || src.supplier == nil || *src.supplier != 5 {
		t.Fatalf("unexpected forwarded ids %v %v", src.crop, src.supplier)
	}
}

func TestWeather_ValidatesCoordinates(t *testing.T) {
	src := &fakeLookups{}
	s := &LookupService{Src: src}
	ctx := context.Background()

	for _, c := range [][2]float64{{91, 0}, {0, -181}, {math.NaN(), 0}} {
		if _, err := s.Weather(ctx, c[0], c[1]); err != ErrInvalidCoordinates {
			t.Fatalf("%v: expected ErrInvalidCoordinates, got %v", c, err)
		}
	}
	if src.calls != 0 {
		t.Fatalf("invalid coordinates reached the provider")
	}
	w, err := s.Weather(ctx, 38.2, 21.7)
	if err != nil || w == nil || w.Latitude != 38.2 {
		t.Fatalf("Weather = (%v, %v)", w, err)
	}
}
