// Resource HTTP handlers.
//
// Cached reads of the upstream collections:
//   - GET /resources/{resource}        (list; query parameters pass through as filters)
//   - GET /resources/{resource}/{id}   (detail)
//
// Bodies are the upstream JSON, unchanged.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/agritrade-gateway/internal/domain"
)

// maxFilters bounds the number of pass-through filters per list request.
const maxFilters = 16

// ResourcesResponse describes the resources the gateway fronts.
type ResourcesResponse struct {
	Resources []domain.Resource `json:"resources"`
}

func rawJSON(c *gin.Context, raw json.RawMessage) {
	c.Data(http.StatusOK, "application/json; charset=utf-8", raw)
}

// DescribeResources godoc
// @ID          describeResources
// @Summary     Resources fronted by the gateway
// @Tags        Resources
// @Produce     json
// @Success     200  {object}  handlers.ResourcesResponse
// @Router      /resources [get]
func (h *Handlers) DescribeResources(c *gin.Context) {
	ok(c, http.StatusOK, ResourcesResponse{Resources: domain.Resources()})
}

// ListResource godoc
// @ID          listResource
// @Summary     List a resource (cached)
// @Description Query parameters other than page and page_size are forwarded upstream as filters and are part of the cache key.
// @Tags        Resources
// @Produce     json
// @Param       resource  path  string  true  "Resource name"  example(sales)
// @Success     200  {array}   object
// @Failure     400  {object}  handlers.ErrorResponse  "Too many filters"
// @Failure     404  {object}  handlers.ErrorResponse
// @Failure     503  {object}  handlers.ErrorResponse
// @Router      /resources/{resource} [get]
func (h *Handlers) ListResource(c *gin.Context) {
	q := c.Request.URL.Query()
	if len(q) > maxFilters {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "too many filters")
		return
	}
	filters := make(map[string]string, len(q))
	for k, vs := range q {
		if len(vs) > 0 && vs[0] != "" {
			filters[k] = vs[0]
		}
	}
	raw, err := h.res.List(c.Request.Context(), c.Param("resource"), filters)
	if err != nil {
		failErr(c, err)
		return
	}
	rawJSON(c, raw)
}

// GetResource godoc
// @ID          getResource
// @Summary     Get one record (cached)
// @Tags        Resources
// @Produce     json
// @Param       resource  path  string  true  "Resource name"
// @Param       id        path  int     true  "Record id"
// @Success     200  {object}  object
// @Failure     404  {object}  handlers.ErrorResponse
// @Failure     422  {object}  handlers.ErrorResponse  "Invalid id, or resource has no detail view"
// @Failure     503  {object}  handlers.ErrorResponse
// @Router      /resources/{resource}/{id} [get]
func (h *Handlers) GetResource(c *gin.Context) {
	raw, err := h.res.Get(c.Request.Context(), c.Param("resource"), c.Param("id"))
	if err != nil {
		failErr(c, err)
		return
	}
	rawJSON(c, raw)
}
