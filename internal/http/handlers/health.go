package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/shiftsleep-backend/internal/cache"
	types "github.com/yungbote/shiftsleep-backend/internal/domain"
	"github.com/yungbote/shiftsleep-backend/internal/platform/timeutil"
)

type EngineLister interface {
	Types() []types.EngineType
}

type HealthHandler struct {
	cache   *cache.Service
	engines EngineLister
}

func NewHealthHandler(c *cache.Service, engines EngineLister) *HealthHandler {
	return &HealthHandler{cache: c, engines: engines}
}

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// GET /api/engines/health. A cache outage degrades but does not fail the
// engines, so the endpoint stays 200.
func (h *HealthHandler) Engines(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := "healthy"
	cacheStatus := gin.H{"enabled": h.cache.Enabled(), "reachable": true}
	if err := h.cache.Ping(ctx); err != nil {
		status = "degraded"
		cacheStatus["reachable"] = false
		cacheStatus["error"] = err.Error()
	}
	hits, misses, ratio := h.cache.HitRatio()
	cacheStatus["hits"] = hits
	cacheStatus["misses"] = misses
	cacheStatus["hitRatio"] = ratio

	var engineTypes []types.EngineType
	if h.engines != nil {
		engineTypes = h.engines.Types()
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    status,
		"engines":   engineTypes,
		"cache":     cacheStatus,
		"timestamp": timeutil.FormatISO(time.Now()),
	})
}
