package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/shiftsleep-backend/internal/cache"
	types "github.com/yungbote/shiftsleep-backend/internal/domain"
	"github.com/yungbote/shiftsleep-backend/internal/http/response"
	"github.com/yungbote/shiftsleep-backend/internal/jobs/cacherefresh"
	"github.com/yungbote/shiftsleep-backend/internal/platform/apierr"
	"github.com/yungbote/shiftsleep-backend/internal/platform/ctxutil"
	"github.com/yungbote/shiftsleep-backend/internal/platform/logger"
	"github.com/yungbote/shiftsleep-backend/internal/platform/timeutil"
)

type Preloader interface {
	PreloadUser(ctx context.Context, userID string) (cacherefresh.UserOutcome, []string)
}

// CacheHandler lets a caller manage their own cached engine results.
type CacheHandler struct {
	log       *logger.Logger
	cache     *cache.Service
	preloader Preloader
}

func NewCacheHandler(log *logger.Logger, c *cache.Service, preloader Preloader) *CacheHandler {
	return &CacheHandler{log: log.With("handler", "CacheHandler"), cache: c, preloader: preloader}
}

// DELETE /api/engines/cache?engineType&targetDate
func (h *CacheHandler) Invalidate(c *gin.Context) {
	var f cache.Filter
	if raw := strings.TrimSpace(c.Query("engineType")); raw != "" {
		e, ok := types.ParseEngineType(raw)
		if !ok {
			response.RespondAPIError(c, apierr.BadRequest(fmt.Errorf("unknown engineType %q", raw)))
			return
		}
		f.Engines = []types.EngineType{e}
	}
	if raw := strings.TrimSpace(c.Query("targetDate")); raw != "" {
		if _, err := timeutil.ParseDate(raw); err != nil {
			response.RespondAPIError(c, apierr.BadRequest(err))
			return
		}
		f.Dates = []string{raw}
	}
	ctx := c.Request.Context()
	userID := ctxutil.UserID(ctx)
	n, err := h.cache.Invalidate(ctx, userID, f)
	if err != nil {
		response.RespondAPIError(c, apierr.New(http.StatusServiceUnavailable, "", err))
		return
	}
	response.RespondOK(c, gin.H{
		"userId":        userID,
		"deletedKeys":   n,
		"engineType":    c.Query("engineType"),
		"targetDate":    c.Query("targetDate"),
		"correlationId": ctxutil.CorrelationID(ctx),
	})
}

// GET /api/engines/cache/stats
func (h *CacheHandler) Stats(c *gin.Context) {
	ctx := c.Request.Context()
	st, err := h.cache.Stats(ctx, ctxutil.UserID(ctx))
	if err != nil {
		response.RespondAPIError(c, apierr.New(http.StatusServiceUnavailable, "", err))
		return
	}
	response.RespondOK(c, st)
}

// POST /api/engines/cache/preload
func (h *CacheHandler) Preload(c *gin.Context) {
	if h.preloader == nil {
		response.RespondAPIError(c, apierr.New(http.StatusServiceUnavailable, "", fmt.Errorf("preload unavailable")))
		return
	}
	ctx := c.Request.Context()
	out, dates := h.preloader.PreloadUser(ctx, ctxutil.UserID(ctx))
	failures := out.Failures
	if failures == nil {
		failures = []cacherefresh.Failure{}
	}
	response.RespondOK(c, gin.H{
		"userId":        out.UserID,
		"targetDates":   dates,
		"warmed":        out.Warmed,
		"skipped":       out.Skipped,
		"failures":      failures,
		"correlationId": ctxutil.CorrelationID(ctx),
	})
}
