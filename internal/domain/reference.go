package domain

import "github.com/shopspring/decimal"

// Crop is a reference crop as served by GET /crops/.
type Crop struct {
	ID      int64   `json:"id"`
	Name    string  `json:"name"`
	Variety *string `json:"variety,omitempty"`
}

// Contact is a supplier, buyer, or other counterparty.
type Contact struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	ContactType string  `json:"contact_type"`
	Phone       *string `json:"phone,omitempty"`
}

// Season is an accounting season.
type Season struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	StartDate string  `json:"start_date"`
	EndDate   *string `json:"end_date,omitempty"`
	IsActive  bool    `json:"is_active"`
}

// LastPrice is the last-purchase-price hint for a (crop, supplier) pair. The
// zero value, with every field null, is the default when no hint is available.
type LastPrice struct {
	UnitPrice    *decimal.Decimal `json:"unit_price"`
	PurchaseDate *string          `json:"purchase_date"`
	QuantityKg   *decimal.Decimal `json:"quantity_kg"`
}

// Empty reports whether no hint is available.
func (p LastPrice) Empty() bool {
	return p.UnitPrice == nil && p.PurchaseDate == nil && p.QuantityKg == nil
}

// Weather is the current conditions at a coordinate.
type Weather struct {
	Latitude     float64  `json:"latitude"`
	Longitude    float64  `json:"longitude"`
	TemperatureC *float64 `json:"temperature_c"`
	WindSpeedKmh *float64 `json:"wind_speed_kmh"`
	WeatherCode  *int     `json:"weather_code"`
	ObservedAt   string   `json:"observed_at,omitempty"`
}
