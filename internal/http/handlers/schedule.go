package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/shiftsleep-backend/internal/http/response"
	"github.com/yungbote/shiftsleep-backend/internal/platform/apierr"
	"github.com/yungbote/shiftsleep-backend/internal/platform/ctxutil"
	"github.com/yungbote/shiftsleep-backend/internal/services"
)

type ScheduleHandler struct {
	schedules services.ScheduleService
}

func NewScheduleHandler(schedules services.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{schedules: schedules}
}

// GET /api/schedules?from&to
func (h *ScheduleHandler) List(c *gin.Context) {
	from, to := c.Query("from"), c.Query("to")
	if from == "" || to == "" {
		response.RespondAPIError(c, apierr.BadRequest(fmt.Errorf("from and to are required")))
		return
	}
	ctx := c.Request.Context()
	rows, err := h.schedules.List(ctx, ctxutil.UserID(ctx), from, to)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"schedules": rows})
}

// GET /api/schedules/:date
func (h *ScheduleHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()
	row, err := h.schedules.Get(ctx, ctxutil.UserID(ctx), c.Param("date"))
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	if row == nil {
		response.RespondAPIError(c, apierr.New(http.StatusNotFound, "", fmt.Errorf("no schedule for %s", c.Param("date"))))
		return
	}
	response.RespondOK(c, gin.H{"schedule": row})
}

// PUT /api/schedules/:date
func (h *ScheduleHandler) Put(c *gin.Context) {
	var in services.ScheduleInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.RespondAPIError(c, apierr.BadRequest(fmt.Errorf("invalid body: %w", err)))
		return
	}
	ctx := c.Request.Context()
	row, change, err := h.schedules.Upsert(ctx, ctxutil.UserID(ctx), c.Param("date"), in)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"schedule": row, "change": change, "correlationId": ctxutil.CorrelationID(ctx)})
}

// DELETE /api/schedules/:date
func (h *ScheduleHandler) Delete(c *gin.Context) {
	ctx := c.Request.Context()
	change, err := h.schedules.Delete(ctx, ctxutil.UserID(ctx), c.Param("date"))
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"change": change, "correlationId": ctxutil.CorrelationID(ctx)})
}
