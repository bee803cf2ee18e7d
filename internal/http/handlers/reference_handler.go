// Reference and lookup HTTP handlers.
//
//   - GET  /reference                   (crops, contacts and seasons snapshot)
//   - POST /reference/refresh           (reload the snapshot now)
//   - GET  /lookups/last-price          (last purchase price hint)
//   - GET  /lookups/weather             (current weather hint)
//
// Lookups are best effort: a failed upstream call yields the default value,
// not an error.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/agritrade-gateway/internal/domain"
	"github.com/tbourn/agritrade-gateway/internal/services"
)

// WeatherResponse wraps the weather hint; Weather is null when unavailable.
type WeatherResponse struct {
	Weather *domain.Weather `json:"weather"`
}

// GetReference godoc
// @ID          getReference
// @Summary     Reference data snapshot
// @Description Crops, contacts and seasons, served from a read-through cache.
// @Tags        Reference
// @Produce     json
// @Success     200  {object}  services.Reference
// @Failure     503  {object}  handlers.ErrorResponse  "No snapshot and upstream unreachable"
// @Router      /reference [get]
func (h *Handlers) GetReference(c *gin.Context) {
	ref, err := h.ref.Get(c.Request.Context())
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, ref)
}

// RefreshReference godoc
// @ID          refreshReference
// @Summary     Reload reference data
// @Description On failure the previous snapshot stays in place.
// @Tags        Reference
// @Produce     json
// @Success     200  {object}  services.Reference
// @Failure     503  {object}  handlers.ErrorResponse
// @Router      /reference/refresh [post]
func (h *Handlers) RefreshReference(c *gin.Context) {
	ref, err := h.ref.Refresh(c.Request.Context())
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, ref)
}

// optionalID parses a positive id query value; anything else is absent.
func optionalID(raw string) *int64 {
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		return nil
	}
	return &n
}

// LastPrice godoc
// @ID          lastPurchasePrice
// @Summary     Last purchase price hint
// @Description Returns the last unit price paid for the crop to the supplier. Missing ids or upstream failures yield null fields.
// @Tags        Lookups
// @Produce     json
// @Param       crop_id      query  int  false  "Crop id"
// @Param       supplier_id  query  int  false  "Supplier contact id"
// @Success     200  {object}  domain.LastPrice
// @Router      /lookups/last-price [get]
func (h *Handlers) LastPrice(c *gin.Context) {
	if h.look == nil {
		ok(c, http.StatusOK, domain.LastPrice{})
		return
	}
	ok(c, http.StatusOK, h.look.LastPrice(c.Request.Context(),
		optionalID(c.Query("crop_id")), optionalID(c.Query("supplier_id"))))
}

// Weather godoc
// @ID          weather
// @Summary     Current weather hint
// @Tags        Lookups
// @Produce     json
// @Param       lat  query  number  true  "Latitude"   minimum(-90)  maximum(90)
// @Param       lon  query  number  true  "Longitude"  minimum(-180) maximum(180)
// @Success     200  {object}  handlers.WeatherResponse
// @Failure     422  {object}  handlers.ErrorResponse
// @Router      /lookups/weather [get]
func (h *Handlers) Weather(c *gin.Context) {
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lon, errLon := strconv.ParseFloat(c.Query("lon"), 64)
	if errLat != nil || errLon != nil {
		failErr(c, services.ErrInvalidCoordinates)
		return
	}
	if h.look == nil {
		ok(c, http.StatusOK, WeatherResponse{})
		return
	}
	w, err := h.look.Weather(c.Request.Context(), lat, lon)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, WeatherResponse{Weather: w})
}
