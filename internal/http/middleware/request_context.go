package middleware

import (
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/shiftsleep-backend/internal/platform/ctxutil"
)

const headerCorrelationID = "X-Correlation-Id"

var correlationIDPattern = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,128}$`)

// AttachRequestContext honors a well-formed X-Correlation-Id or mints
// "req-<unix>-<8 hex>", stores it on the request context and echoes it.
// Runs after AttachTraceContext so trace/request ids are preserved.
func AttachRequestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		id := strings.TrimSpace(c.GetHeader(headerCorrelationID))
		if !correlationIDPattern.MatchString(id) {
			id = ctxutil.NewCorrelationID(time.Now())
		}
		td := &ctxutil.TraceData{CorrelationID: id}
		if prev := ctxutil.GetTraceData(ctx); prev != nil {
			td.TraceID = prev.TraceID
			td.RequestID = prev.RequestID
		}
		c.Request = c.Request.WithContext(ctxutil.WithTraceData(ctx, td))
		c.Set("correlation_id", id)
		c.Writer.Header().Set(headerCorrelationID, id)
		c.Next()
	}
}
