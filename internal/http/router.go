package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/shiftsleep-backend/internal/http/handlers"
	httpMW "github.com/yungbote/shiftsleep-backend/internal/http/middleware"
	"github.com/yungbote/shiftsleep-backend/internal/observability"
	"github.com/yungbote/shiftsleep-backend/internal/platform/logger"
	"github.com/yungbote/shiftsleep-backend/internal/services"
)

type RouterConfig struct {
	Log            *logger.Logger
	ServiceName    string
	CORSOrigins    []string
	Metrics        *observability.Metrics
	AuthMiddleware *httpMW.AuthMiddleware
	Activity       services.ActivityService

	EngineHandler    *httpH.EngineHandler
	CacheHandler     *httpH.CacheHandler
	DashboardHandler *httpH.DashboardHandler
	ScheduleHandler  *httpH.ScheduleHandler
	HealthHandler    *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.AttachRequestContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	api := r.Group("/api")
	protected := api.Group("/")
	{
		// Middleware
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}
		protected.Use(httpMW.TouchActivity(cfg.Activity))

		// Engines
		if cfg.EngineHandler != nil {
			protected.GET("/engines/shift-to-sleep", cfg.EngineHandler.ShiftToSleep)
			protected.GET("/engines/caffeine-cutoff", cfg.EngineHandler.CaffeineCutoff)
			protected.GET("/engines/caffeine-cutoff/beverages", cfg.EngineHandler.Beverages)
			protected.GET("/engines/fatigue-risk", cfg.EngineHandler.FatigueRisk)
		}

		// Cache
		if cfg.CacheHandler != nil {
			protected.DELETE("/engines/cache", cfg.CacheHandler.Invalidate)
			protected.GET("/engines/cache/stats", cfg.CacheHandler.Stats)
			protected.POST("/engines/cache/preload", cfg.CacheHandler.Preload)
		}
		if cfg.HealthHandler != nil {
			protected.GET("/engines/health", cfg.HealthHandler.Engines)
		}

		// Dashboard
		if cfg.DashboardHandler != nil {
			protected.GET("/dashboard/home", cfg.DashboardHandler.Home)
		}

		// Schedules
		if cfg.ScheduleHandler != nil {
			protected.GET("/schedules", cfg.ScheduleHandler.List)
			protected.GET("/schedules/:date", cfg.ScheduleHandler.Get)
			protected.PUT("/schedules/:date", cfg.ScheduleHandler.Put)
			protected.DELETE("/schedules/:date", cfg.ScheduleHandler.Delete)
		}
	}

	return r
}
