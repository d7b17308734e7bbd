// Package engines computes sleep, caffeine and fatigue recommendations from
// a user's profile and shift calendar. Engines read through narrow
// interfaces, memoize through cache.Service, and never return Go errors:
// every call ends in a domain.EngineResponse.
package engines

import (
	"context"
	"fmt"
	"math"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/yungbote/shiftsleep-backend/internal/cache"
	types "github.com/yungbote/shiftsleep-backend/internal/domain"
	"github.com/yungbote/shiftsleep-backend/internal/platform/ctxutil"
	"github.com/yungbote/shiftsleep-backend/internal/platform/dbctx"
	"github.com/yungbote/shiftsleep-backend/internal/platform/logger"
	"github.com/yungbote/shiftsleep-backend/internal/platform/timeutil"
)

type ProfileReader interface {
	GetByUserID(dbc dbctx.Context, userID string) (*types.UserProfile, error)
}

type ScheduleReader interface {
	GetByDate(dbc dbctx.Context, userID, date string) (*types.ShiftSchedule, error)
	ListRange(dbc dbctx.Context, userID, from, to string) ([]*types.ShiftSchedule, error)
	ListUpcoming(dbc dbctx.Context, userID, after string, limit int) ([]*types.ShiftSchedule, error)
}

// Observer receives one call per engine invocation. Outcome is "ok",
// "cached", or the lowercased whyNotShown reason.
type Observer interface {
	ObserveEngine(engine types.EngineType, outcome string, elapsed time.Duration)
}

type Defaults struct {
	SleepDurationHours float64 `yaml:"sleep_duration_hours"`
	BufferMinutes      int     `yaml:"buffer_minutes"`
	CaffeineMg         float64 `yaml:"caffeine_mg"`
	HalfLifeHours      float64 `yaml:"half_life_hours"`
	SafeThresholdMg    float64 `yaml:"safe_threshold_mg"`
	FatigueDays        int     `yaml:"fatigue_days"`
}

func DefaultParams() Defaults {
	return Defaults{
		SleepDurationHours: 8,
		BufferMinutes:      30,
		CaffeineMg:         100,
		HalfLifeHours:      5,
		SafeThresholdMg:    25,
		FatigueDays:        7,
	}
}

func (d Defaults) withFallbacks() Defaults {
	def := DefaultParams()
	if d.SleepDurationHours <= 0 {
		d.SleepDurationHours = def.SleepDurationHours
	}
	if d.BufferMinutes < 0 {
		d.BufferMinutes = def.BufferMinutes
	}
	if d.CaffeineMg <= 0 {
		d.CaffeineMg = def.CaffeineMg
	}
	if d.HalfLifeHours <= 0 {
		d.HalfLifeHours = def.HalfLifeHours
	}
	if d.SafeThresholdMg <= 0 {
		d.SafeThresholdMg = def.SafeThresholdMg
	}
	if d.FatigueDays <= 0 {
		d.FatigueDays = def.FatigueDays
	}
	return d
}

// Deps is shared by all three engines.
type Deps struct {
	Profiles  ProfileReader
	Schedules ScheduleReader
	Cache     *cache.Service
	Log       *logger.Logger
	Clock     timeutil.Clock
	Defaults  Defaults
	Observer  Observer
}

const tracerName = "github.com/yungbote/shiftsleep-backend/internal/engines"

type runner struct {
	engine   types.EngineType
	cache    *cache.Service
	log      *logger.Logger
	now      timeutil.Clock
	observer Observer
}

func newRunner(engine types.EngineType, d Deps, name string) runner {
	clock := d.Clock
	if clock == nil {
		clock = timeutil.SystemClock
	}
	return runner{
		engine:   engine,
		cache:    d.Cache,
		log:      d.Log.With("engine", name),
		now:      clock,
		observer: d.Observer,
	}
}

// run is the shared request flow: cache lookup unless forced, guarded
// computation, cache write only for a successful result.
func run[T any](ctx context.Context, r runner, key cache.Key, force bool, compute func(context.Context) (types.Result[T], error)) types.EngineResponse[T] {
	start := time.Now()
	corrID := ctxutil.CorrelationID(ctx)
	if corrID == "" {
		corrID = ctxutil.NewCorrelationID(r.now())
	}
	ctx, span := otel.Tracer(tracerName).Start(ctx, "engine."+string(r.engine))
	defer span.End()
	span.SetAttributes(
		attribute.String("engine.date", key.Date),
		attribute.Bool("engine.force_refresh", force),
	)

	if !force {
		var cached T
		if r.cache.Get(ctx, key, &cached) {
			resp := types.NewResponse(types.Ok(cached), r.now(), corrID)
			resp.Cached = true
			span.SetAttributes(attribute.String("engine.outcome", "cached"))
			r.observe("cached", start)
			return resp
		}
	}

	res := guard(ctx, r, key.UserID, compute)
	if res.OK() && ctx.Err() != nil {
		res = types.Unavailable[T](types.WhyTimeout)
	}
	outcome := "ok"
	if res.OK() {
		p, _ := res.Payload()
		r.cache.Put(ctx, key, p)
	} else {
		outcome = string(res.WhyNotShown())
		if res.WhyNotShown() != types.WhyInsufficientData {
			span.SetStatus(codes.Error, outcome)
		}
	}
	span.SetAttributes(attribute.String("engine.outcome", outcome))
	r.observe(outcome, start)
	return types.NewResponse(res, r.now(), corrID)
}

func guard[T any](ctx context.Context, r runner, userID string, compute func(context.Context) (types.Result[T], error)) (res types.Result[T]) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("engine panic", "user_id", userID, "panic", fmt.Sprint(rec), "stack", string(debug.Stack()))
			res = types.Unavailable[T](types.WhyCalculationError)
		}
	}()
	out, err := compute(ctx)
	if err != nil {
		if ctx.Err() != nil {
			r.log.Warn("engine timed out", "user_id", userID, "error", err)
			return types.Unavailable[T](types.WhyTimeout)
		}
		r.log.Error("engine calculation failed", "user_id", userID, "error", err)
		return types.Unavailable[T](types.WhyCalculationError)
	}
	return out
}

func (r runner) observe(outcome string, start time.Time) {
	if r.observer == nil {
		return
	}
	r.observer.ObserveEngine(r.engine, outcome, time.Since(start))
}

// invalid short-circuits before any cache or storage access.
func invalid[T any](ctx context.Context, r runner, field string, err error) types.EngineResponse[T] {
	r.log.Debug("engine parameters rejected", "field", field, "error", err)
	corrID := ctxutil.CorrelationID(ctx)
	if corrID == "" {
		corrID = ctxutil.NewCorrelationID(r.now())
	}
	r.observe(string(types.WhyInvalidParameters), time.Now())
	return types.NewResponse(types.Unavailable[T](types.WhyInvalidParameters), r.now(), corrID)
}

// within reports lo <= v <= hi, or lo < v <= hi when openLow is set.
// NaN and the infinities are never within range.
func within(v, lo, hi float64, openLow bool) bool {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return false
	}
	if openLow {
		return v > lo && v <= hi
	}
	return v >= lo && v <= hi
}

// resolveDate defaults an empty date to today and normalizes the format.
func resolveDate(date string, clock timeutil.Clock) (string, error) {
	if date == "" {
		return timeutil.Today(clock), nil
	}
	d, err := timeutil.ParseDate(date)
	if err != nil {
		return "", err
	}
	return timeutil.FormatDate(d), nil
}
