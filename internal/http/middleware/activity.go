package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/shiftsleep-backend/internal/platform/ctxutil"
	"github.com/yungbote/shiftsleep-backend/internal/services"
)

// TouchActivity records the authenticated caller as active after the
// handler ran. Must be installed after RequireAuth.
func TouchActivity(svc services.ActivityService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if svc == nil || c.Writer.Status() >= 500 {
			return
		}
		svc.Touch(c.Request.Context(), ctxutil.UserID(c.Request.Context()))
	}
}
