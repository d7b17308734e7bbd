package app

import (
	"github.com/yungbote/shiftsleep-backend/internal/http"
	httpMW "github.com/yungbote/shiftsleep-backend/internal/http/middleware"
	"github.com/yungbote/shiftsleep-backend/internal/observability"
	"github.com/yungbote/shiftsleep-backend/internal/platform/logger"
)

func wireServer(log *logger.Logger, cfg Config, svc Services, h Handlers, metrics *observability.Metrics) *http.Server {
	log.Info("Wiring router...")
	return http.NewServer(http.RouterConfig{
		Log:              log,
		ServiceName:      cfg.ServiceName,
		CORSOrigins:      cfg.CORSOrigins,
		Metrics:          metrics,
		AuthMiddleware:   httpMW.NewAuthMiddleware(log, svc.Auth, cfg.AllowHeaderIdentity),
		Activity:         svc.Activity,
		EngineHandler:    h.Engine,
		CacheHandler:     h.Cache,
		DashboardHandler: h.Dashboard,
		ScheduleHandler:  h.Schedule,
		HealthHandler:    h.Health,
	})
}
