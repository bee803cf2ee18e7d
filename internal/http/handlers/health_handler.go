package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/agritrade-gateway/internal/http/middleware"
)

// Health godoc
// @ID          health
// @Summary     Liveness check
// @Tags        Health
// @Produce     json
// @Success     200  {object}  map[string]string
// @Router      /health [get]
func (h *Handlers) Health(c *gin.Context) {
	ok(c, http.StatusOK, gin.H{"status": "ok"})
}

// Ready godoc
// @ID          ready
// @Summary     Readiness check
// @Description Pings the upstream API with a short timeout.
// @Tags        Health
// @Produce     json
// @Success     200  {object}  map[string]string
// @Failure     503  {object}  handlers.ErrorResponse
// @Router      /ready [get]
func (h *Handlers) Ready(c *gin.Context) {
	if h.ping != nil {
		if err := h.ping.Ping(c.Request.Context()); err != nil {
			middleware.LoggerFrom(c).Warn().Err(err).Msg("upstream not ready")
			fail(c, http.StatusServiceUnavailable, ErrCodeUnavailable, "upstream unavailable")
			return
		}
	}
	ok(c, http.StatusOK, gin.H{"status": "ready"})
}
