package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/taskdesk/eligibility-service/internal/database"
	"github.com/taskdesk/eligibility-service/internal/redisconn"
)

// HealthResponse is the liveness probe body.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// ReadinessResponse reports per-backend health. Degraded backends are
// reported but never fail the probe: the service keeps answering from its
// fallbacks, so it stays in rotation.
type ReadinessResponse struct {
	Status       string `json:"status"`
	Postgres     string `json:"postgres"`
	Redis        string `json:"redis"`
	StoreBreaker string `json:"store_breaker"`
	UptimeSec    int64  `json:"uptime_seconds"`
}

// Health is the liveness probe.
//
//	@Summary	Liveness probe
//	@Produce	json
//	@Tags		health
//	@Success	200	{object}	HealthResponse
//	@Router		/health [get]
func (a *API) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok", Service: "eligibility-service"})
}

// Ready is the readiness probe with per-backend detail.
//
//	@Summary	Readiness probe
//	@Produce	json
//	@Tags		health
//	@Success	200	{object}	ReadinessResponse
//	@Router		/health/ready [get]
func (a *API) Ready(c *gin.Context) {
	ctx := c.Request.Context()
	resp := ReadinessResponse{
		Status:       "ok",
		Postgres:     "connected",
		Redis:        "connected",
		StoreBreaker: a.repo.BreakerState().String(),
		UptimeSec:    int64(time.Since(a.startedAt).Seconds()),
	}

	if err := database.Status(ctx); err != nil {
		resp.Postgres = "disconnected"
		resp.Status = "degraded"
	}
	if err := redisconn.Status(ctx); err != nil {
		resp.Redis = "disconnected"
		resp.Status = "degraded"
	}

	c.JSON(http.StatusOK, resp)
}
