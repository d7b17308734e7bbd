package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/shiftsleep-backend/internal/http/response"
	"github.com/yungbote/shiftsleep-backend/internal/platform/apierr"
	"github.com/yungbote/shiftsleep-backend/internal/platform/ctxutil"
	"github.com/yungbote/shiftsleep-backend/internal/platform/timeutil"
	"github.com/yungbote/shiftsleep-backend/internal/services"
)

type DashboardHandler struct {
	dashboard services.DashboardService
}

func NewDashboardHandler(dashboard services.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard}
}

// GET /api/dashboard/home?targetDate
func (h *DashboardHandler) Home(c *gin.Context) {
	date := strings.TrimSpace(c.Query("targetDate"))
	if date != "" {
		if _, err := timeutil.ParseDate(date); err != nil {
			response.RespondAPIError(c, apierr.BadRequest(err))
			return
		}
	}
	ctx := c.Request.Context()
	response.RespondOK(c, h.dashboard.Home(ctx, ctxutil.UserID(ctx), date))
}
