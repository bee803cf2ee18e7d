package upstream

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/tbourn/agritrade-gateway/internal/domain"
	"github.com/tbourn/agritrade-gateway/internal/logging"
)

// LastPurchasePrice returns the last purchase price hint for a crop and
// supplier. With either id missing it returns the null-filled default
// without calling upstream. Any upstream failure also yields the default;
// the hint is advisory and never blocks a form.
func (c *Client) LastPurchasePrice(ctx context.Context, cropID, supplierID *int64) domain.LastPrice {
	if cropID == nil || supplierID == nil {
		return domain.LastPrice{}
	}
	q := url.Values{}
	q.Set("crop_id", strconv.FormatInt(*cropID, 10))
	q.Set("supplier_id", strconv.FormatInt(*supplierID, 10))

	var out domain.LastPrice
	if err := c.do(ctx, request{method: http.MethodGet, path: "/purchases/last-price", query: q}, &out); err != nil {
		logging.FromContext(ctx).Debug().Err(err).
			Int64("crop_id", *cropID).Int64("supplier_id", *supplierID).
			Msg("last price lookup failed")
		return domain.LastPrice{}
	}
	return out
}

type weatherResponse struct {
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	CurrentWeather *struct {
		Temperature *float64 `json:"temperature"`
		WindSpeed   *float64 `json:"windspeed"`
		WeatherCode *int     `json:"weathercode"`
		Time        string   `json:"time"`
	} `json:"current_weather"`
}

// Weather fetches current conditions from the configured provider. It
// returns nil when no provider is configured or on any failure.
func (c *Client) Weather(ctx context.Context, lat, lon float64) *domain.Weather {
	if c.weatherURL == "" {
		return nil
	}
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(lat, 'f', 4, 64))
	q.Set("longitude", strconv.FormatFloat(lon, 'f', 4, 64))
	q.Set("current_weather", "true")

	var out weatherResponse
	if err := c.do(ctx, request{method: http.MethodGet, absolute: c.weatherURL, query: q}, &out); err != nil {
		logging.FromContext(ctx).Debug().Err(err).Msg("weather lookup failed")
		return nil
	}
	if out.CurrentWeather == nil {
		return nil
	}
	return &domain.Weather{
		Latitude:     lat,
		Longitude:    lon,
		TemperatureC: out.CurrentWeather.Temperature,
		WindSpeedKmh: out.CurrentWeather.WindSpeed,
		WeatherCode:  out.CurrentWeather.WeatherCode,
		ObservedAt:   out.CurrentWeather.Time,
	}
}
