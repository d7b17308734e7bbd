package app

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/yungbote/shiftsleep-backend/internal/cache"
	redisclient "github.com/yungbote/shiftsleep-backend/internal/clients/redis"
	types "github.com/yungbote/shiftsleep-backend/internal/domain"
	"github.com/yungbote/shiftsleep-backend/internal/engines"
	"github.com/yungbote/shiftsleep-backend/internal/jobs/cacherefresh"
	"github.com/yungbote/shiftsleep-backend/internal/observability"
	"github.com/yungbote/shiftsleep-backend/internal/platform/logger"
	"github.com/yungbote/shiftsleep-backend/internal/services"
	"github.com/yungbote/shiftsleep-backend/internal/temporalx/temporalworker"
)

type Services struct {
	Cache    *cache.Service
	Sleep    *engines.SleepEngine
	Caffeine *engines.CaffeineEngine
	Fatigue  *engines.FatigueEngine
	Registry *engines.Registry

	Refresher *cacherefresh.Refresher
	Scheduler *cacherefresh.Scheduler
	Temporal  *temporalworker.Runner

	Dashboard services.DashboardService
	Schedule  services.ScheduleService
	Activity  services.ActivityService
	Auth      services.AuthService

	// instanceID tags invalidations this process publishes.
	instanceID string
}

func wireServices(log *logger.Logger, cfg Config, reposet Repos, clients Clients, metrics *observability.Metrics) (Services, error) {
	log.Info("Wiring services...")
	out := Services{instanceID: uuid.NewString()}

	out.Cache = cache.NewService(clients.cacheStore(cfg, log), log, cache.Options{
		TTL:     cfg.CacheTTL,
		Enabled: cfg.CacheEnabled,
		Metrics: metrics,
	})

	deps := engines.Deps{
		Profiles:  reposet.Profiles,
		Schedules: reposet.Schedules,
		Cache:     out.Cache,
		Log:       log,
		Defaults:  cfg.Engines,
		Observer:  metrics,
	}
	out.Sleep = engines.NewSleepEngine(deps)
	out.Caffeine = engines.NewCaffeineEngine(deps)
	out.Fatigue = engines.NewFatigueEngine(deps)
	registry, err := engines.NewRegistry(out.Sleep, out.Caffeine, out.Fatigue)
	if err != nil {
		return Services{}, fmt.Errorf("engine registry: %w", err)
	}
	out.Registry = registry

	var bcast cacherefresh.Broadcaster
	if clients.Bus != nil {
		bcast = busBroadcaster{bus: clients.Bus, origin: out.instanceID}
	}
	out.Refresher = cacherefresh.New(cacherefresh.Deps{
		Users:       reposet.Profiles,
		Runs:        reposet.RefreshRuns,
		Registry:    registry,
		Cache:       out.Cache,
		Log:         log,
		Config:      cfg.Refresh,
		Observer:    metrics,
		Broadcaster: bcast,
	})

	if clients.Temporal != nil {
		runner, err := temporalworker.NewRunner(log, cfg.Temporal, clients.Temporal, out.Refresher)
		if err != nil {
			return Services{}, fmt.Errorf("temporal runner: %w", err)
		}
		out.Temporal = runner
	} else {
		out.Scheduler = cacherefresh.NewScheduler(out.Refresher, log, cfg.RefreshOnStart)
	}

	out.Dashboard = services.NewDashboardService(log, services.DashboardDeps{
		Sleep:     out.Sleep,
		Caffeine:  out.Caffeine,
		Fatigue:   out.Fatigue,
		Schedules: reposet.Schedules,
		Timeout:   cfg.EngineTimeout,
	})
	out.Schedule = services.NewScheduleService(log, reposet.Schedules, out.Refresher)
	out.Activity = services.NewActivityService(log, reposet.Profiles, cfg.ActivityInterval, nil)
	out.Auth = services.NewAuthService(log, cfg.JWTSecretKey)
	return out, nil
}

// startInvalidationForwarder applies invalidations published by other
// processes to this process's memory cache.
func (s Services) startInvalidationForwarder(ctx context.Context, log *logger.Logger, bus redisclient.InvalidationBus) error {
	if bus == nil {
		return nil
	}
	return bus.StartForwarder(ctx, func(m redisclient.Invalidation) {
		if m.Origin == s.instanceID {
			return
		}
		f := cache.Filter{Dates: m.Dates}
		for _, e := range m.Engines {
			f.Engines = append(f.Engines, types.EngineType(e))
		}
		n, err := s.Refresher.Invalidate(ctx, m.UserID, f)
		if err != nil {
			log.Warn("Remote invalidation failed", "user_id", m.UserID, "origin", m.Origin, "error", err)
			return
		}
		log.Debug("Applied remote invalidation", "user_id", m.UserID, "origin", m.Origin, "deleted", n)
	})
}

type busBroadcaster struct {
	bus    redisclient.InvalidationBus
	origin string
}

func (b busBroadcaster) BroadcastInvalidation(ctx context.Context, userID string, f cache.Filter) error {
	msg := redisclient.Invalidation{Origin: b.origin, UserID: userID, Dates: f.Dates}
	for _, e := range f.Engines {
		msg.Engines = append(msg.Engines, string(e))
	}
	return b.bus.Publish(ctx, msg)
}
