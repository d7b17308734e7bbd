package app

import (
	httpH "github.com/yungbote/shiftsleep-backend/internal/http/handlers"
	"github.com/yungbote/shiftsleep-backend/internal/platform/logger"
)

type Handlers struct {
	Engine    *httpH.EngineHandler
	Cache     *httpH.CacheHandler
	Dashboard *httpH.DashboardHandler
	Schedule  *httpH.ScheduleHandler
	Health    *httpH.HealthHandler
}

func wireHandlers(log *logger.Logger, svc Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Engine:    httpH.NewEngineHandler(svc.Sleep, svc.Caffeine, svc.Fatigue),
		Cache:     httpH.NewCacheHandler(log, svc.Cache, svc.Refresher),
		Dashboard: httpH.NewDashboardHandler(svc.Dashboard),
		Schedule:  httpH.NewScheduleHandler(svc.Schedule),
		Health:    httpH.NewHealthHandler(svc.Cache, svc.Registry),
	}
}
