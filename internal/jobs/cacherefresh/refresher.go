// Package cacherefresh pre-warms engine results for recently active users
// and propagates schedule edits into the result cache.
package cacherefresh

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
	"gorm.io/datatypes"

	"github.com/yungbote/shiftsleep-backend/internal/cache"
	types "github.com/yungbote/shiftsleep-backend/internal/domain"
	"github.com/yungbote/shiftsleep-backend/internal/engines"
	"github.com/yungbote/shiftsleep-backend/internal/platform/dbctx"
	"github.com/yungbote/shiftsleep-backend/internal/platform/envutil"
	"github.com/yungbote/shiftsleep-backend/internal/platform/logger"
	"github.com/yungbote/shiftsleep-backend/internal/platform/timeutil"
)

// PropagationDays is how far past an edited date every engine's cached
// results are dropped. Fatigue results look back up to
// engines.MaxFatigueDays, so that engine is swept further.
const PropagationDays = 7

const (
	TriggerSchedule = "schedule"
	TriggerManual   = "manual"
	TriggerTemporal = "temporal"
)

type ActiveUserLister interface {
	ListActiveUserIDs(dbc dbctx.Context, since time.Time, limit int) ([]string, error)
}

type RunStore interface {
	Create(dbc dbctx.Context, run *types.CacheRefreshRun) error
}

// Broadcaster tells other processes about an invalidation. It is only set
// when processes keep their own in-memory cache.
type Broadcaster interface {
	BroadcastInvalidation(ctx context.Context, userID string, f cache.Filter) error
}

type Observer interface {
	ObserveRefresh(trigger, status string, succeeded, failed int, elapsed time.Duration)
}

type Config struct {
	BatchSize  int           `yaml:"batch_size"`
	ActiveDays int           `yaml:"active_days"`
	DaysAhead  int           `yaml:"days_ahead"`
	BatchPause time.Duration `yaml:"batch_pause"`
	Interval   time.Duration `yaml:"interval"`
}

func DefaultConfig() Config {
	return Config{
		BatchSize:  10,
		ActiveDays: 7,
		DaysAhead:  2,
		BatchPause: 500 * time.Millisecond,
		Interval:   6 * time.Hour,
	}
}

func ConfigFromEnv() Config {
	def := DefaultConfig()
	return Config{
		BatchSize:  envutil.Int("REFRESH_BATCH_SIZE", def.BatchSize),
		ActiveDays: envutil.Int("REFRESH_ACTIVE_DAYS", def.ActiveDays),
		DaysAhead:  envutil.Int("REFRESH_DAYS_AHEAD", def.DaysAhead),
		BatchPause: envutil.Millis("REFRESH_BATCH_PAUSE_MS", def.BatchPause),
		Interval:   time.Duration(envutil.Int("REFRESH_INTERVAL_MINUTES", int(def.Interval/time.Minute))) * time.Minute,
	}
}

func (c Config) normalized() Config {
	def := DefaultConfig()
	if c.BatchSize < 1 {
		c.BatchSize = def.BatchSize
	}
	if c.ActiveDays < 1 {
		c.ActiveDays = def.ActiveDays
	}
	if c.DaysAhead < 0 {
		c.DaysAhead = 0
	}
	if c.BatchPause < 0 {
		c.BatchPause = 0
	}
	if c.Interval <= 0 {
		c.Interval = def.Interval
	}
	return c
}

type Deps struct {
	Users       ActiveUserLister
	Runs        RunStore
	Registry    *engines.Registry
	Cache       *cache.Service
	Log         *logger.Logger
	Clock       timeutil.Clock
	Config      Config
	Observer    Observer
	Broadcaster Broadcaster
}

type Refresher struct {
	users    ActiveUserLister
	runs     RunStore
	registry *engines.Registry
	cache    *cache.Service
	log      *logger.Logger
	clock    timeutil.Clock
	cfg      Config
	observer Observer
	bcast    Broadcaster
}

func New(d Deps) *Refresher {
	log := d.Log
	if log == nil {
		log = logger.Nop()
	}
	clock := d.Clock
	if clock == nil {
		clock = timeutil.SystemClock
	}
	return &Refresher{
		users:    d.Users,
		runs:     d.Runs,
		registry: d.Registry,
		cache:    d.Cache,
		log:      log.With("component", "CacheRefresher"),
		clock:    clock,
		cfg:      d.Config.normalized(),
		observer: d.Observer,
		bcast:    d.Broadcaster,
	}
}

func (r *Refresher) Config() Config { return r.cfg }

// Failure is one engine that could not be warmed for a user/date.
type Failure struct {
	UserID string           `json:"userId"`
	Engine types.EngineType `json:"engine,omitempty"`
	Date   string           `json:"date,omitempty"`
	Reason string           `json:"reason"`
}

// UserOutcome summarizes one user's warm-up across engines and dates.
type UserOutcome struct {
	UserID   string    `json:"userId"`
	Warmed   int       `json:"warmed"`
	Skipped  int       `json:"skipped"`
	Failures []Failure `json:"failures,omitempty"`
}

func (o UserOutcome) Failed() bool { return len(o.Failures) > 0 }

type Report struct {
	RunID          string    `json:"runId,omitempty"`
	Trigger        string    `json:"trigger"`
	Status         string    `json:"status"`
	TargetDates    []string  `json:"targetDates"`
	Users          int       `json:"users"`
	Succeeded      int       `json:"succeeded"`
	Failed         int       `json:"failed"`
	Failures       []Failure `json:"failures"`
	OrphansRemoved int       `json:"orphansRemoved"`
	StartedAt      time.Time `json:"startedAt"`
	FinishedAt     time.Time `json:"finishedAt"`
}

// TargetDates is today through today+DaysAhead in KST.
func (r *Refresher) TargetDates() []string {
	today := timeutil.Today(r.clock)
	end, err := timeutil.AddDays(today, r.cfg.DaysAhead)
	if err != nil {
		return []string{today}
	}
	dates, err := timeutil.DateRange(today, end)
	if err != nil {
		return []string{today}
	}
	return dates
}

// Run warms every active user's results for the target dates. Per-user
// failures are collected in the report; the returned error is reserved for
// failures that stop the run as a whole.
func (r *Refresher) Run(ctx context.Context, trigger string) (Report, error) {
	if r == nil || r.users == nil || r.registry == nil {
		return Report{}, fmt.Errorf("cache refresher not configured")
	}
	if strings.TrimSpace(trigger) == "" {
		trigger = TriggerManual
	}
	started := r.clock()
	rep := Report{
		Trigger:     trigger,
		TargetDates: r.TargetDates(),
		Failures:    []Failure{},
		StartedAt:   started,
	}

	since := started.Add(-time.Duration(r.cfg.ActiveDays) * 24 * time.Hour)
	userIDs, err := r.users.ListActiveUserIDs(dbctx.Context{Ctx: ctx}, since, 0)
	if err != nil {
		rep.Status = types.RefreshStatusFailed
		rep.Failures = append(rep.Failures, Failure{Reason: "list active users: " + err.Error()})
		r.finish(ctx, &rep)
		return rep, fmt.Errorf("list active users: %w", err)
	}
	rep.Users = len(userIDs)
	r.log.Info("cache refresh started", "trigger", trigger, "users", len(userIDs), "dates", rep.TargetDates, "batch_size", r.cfg.BatchSize)

	limiter := rate.NewLimiter(rate.Inf, 1)
	if r.cfg.BatchPause > 0 {
		limiter = rate.NewLimiter(rate.Every(r.cfg.BatchPause), 1)
	}

	for startIdx := 0; startIdx < len(userIDs); startIdx += r.cfg.BatchSize {
		if err := limiter.Wait(ctx); err != nil {
			rep.Failures = append(rep.Failures, Failure{Reason: "run interrupted: " + err.Error()})
			break
		}
		end := min(startIdx+r.cfg.BatchSize, len(userIDs))
		for _, o := range r.runBatch(ctx, userIDs[startIdx:end], rep.TargetDates) {
			if o.Failed() {
				rep.Failed++
				rep.Failures = append(rep.Failures, o.Failures...)
			} else {
				rep.Succeeded++
			}
		}
	}

	rep.Status = statusFor(rep)
	r.finish(ctx, &rep)
	r.log.Info("cache refresh finished",
		"trigger", trigger,
		"status", rep.Status,
		"users", rep.Users,
		"succeeded", rep.Succeeded,
		"failed", rep.Failed,
		"orphans_removed", rep.OrphansRemoved,
		"elapsed", rep.FinishedAt.Sub(rep.StartedAt).String(),
	)
	return rep, nil
}

func statusFor(rep Report) string {
	switch {
	case rep.Users == 0 && len(rep.Failures) == 0:
		return types.RefreshStatusSucceeded
	case rep.Succeeded == 0 && (rep.Failed > 0 || len(rep.Failures) > 0):
		return types.RefreshStatusFailed
	case rep.Failed > 0 || len(rep.Failures) > 0 || rep.Succeeded < rep.Users:
		return types.RefreshStatusPartial
	default:
		return types.RefreshStatusSucceeded
	}
}

// runBatch warms one group of users concurrently and joins before returning.
func (r *Refresher) runBatch(ctx context.Context, userIDs, dates []string) []UserOutcome {
	out := make([]UserOutcome, len(userIDs))
	var g errgroup.Group
	for i, uid := range userIDs {
		g.Go(func() error {
			out[i] = r.RefreshUser(ctx, uid, dates)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// RefreshUser recomputes every registered engine for the user on each date.
// Data-missing results count as skipped, not failed.
func (r *Refresher) RefreshUser(ctx context.Context, userID string, dates []string) (o UserOutcome) {
	o.UserID = userID
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("cache refresh panic", "user_id", userID, "panic", rec)
			o.Failures = append(o.Failures, Failure{UserID: userID, Reason: "panic: unexpected error"})
		}
	}()
	for _, date := range dates {
		for _, w := range r.registry.All() {
			if err := ctx.Err(); err != nil {
				o.Failures = append(o.Failures, Failure{UserID: userID, Engine: w.Type(), Date: date, Reason: string(types.WhyTimeout)})
				return o
			}
			ok, why := w.Warm(ctx, userID, date)
			switch {
			case ok:
				o.Warmed++
			case why == types.WhyInsufficientData:
				o.Skipped++
			default:
				o.Failures = append(o.Failures, Failure{UserID: userID, Engine: w.Type(), Date: date, Reason: string(why)})
			}
		}
	}
	if o.Failed() {
		r.log.Warn("cache refresh user failed", "user_id", userID, "failures", len(o.Failures))
	}
	return o
}

// finish removes orphaned metadata and records the run. Neither step can
// change the outcome of the warm-up itself.
func (r *Refresher) finish(ctx context.Context, rep *Report) {
	if r.cache != nil {
		n, err := r.cache.Cleanup(ctx)
		if err != nil {
			r.log.Warn("cache cleanup after refresh failed", "error", err)
		}
		rep.OrphansRemoved = n
	}
	rep.FinishedAt = r.clock()
	if r.observer != nil {
		r.observer.ObserveRefresh(rep.Trigger, rep.Status, rep.Succeeded, rep.Failed, rep.FinishedAt.Sub(rep.StartedAt))
	}
	if r.runs == nil {
		return
	}
	failures, err := json.Marshal(rep.Failures)
	if err != nil {
		failures = []byte("[]")
	}
	finished := rep.FinishedAt
	run := &types.CacheRefreshRun{
		Trigger:     rep.Trigger,
		Status:      rep.Status,
		TargetDates: strings.Join(rep.TargetDates, ","),
		Users:       rep.Users,
		Succeeded:   rep.Succeeded,
		Failed:      rep.Failed,
		Failures:    datatypes.JSON(failures),
		StartedAt:   rep.StartedAt,
		FinishedAt:  &finished,
	}
	if err := r.runs.Create(dbctx.Context{Ctx: context.WithoutCancel(ctx)}, run); err != nil {
		r.log.Warn("record cache refresh run failed", "error", err)
		return
	}
	rep.RunID = run.ID.String()
}

// PropagateScheduleChange drops every engine's cached results for the user
// on date through date+PropagationDays, and fatigue results on through
// date+engines.MaxFatigueDays. Other users are untouched.
func (r *Refresher) PropagateScheduleChange(ctx context.Context, userID, date string) (int, error) {
	if err := cache.ValidateUserID(userID); err != nil {
		return 0, err
	}
	sweep, err := propagationSweep(date)
	if err != nil {
		return 0, fmt.Errorf("invalid date %q: %w", date, err)
	}
	total := 0
	for _, f := range sweep {
		n, err := r.Invalidate(ctx, userID, f)
		if err != nil {
			return total, err
		}
		total += n
		if r.bcast != nil {
			if err := r.bcast.BroadcastInvalidation(ctx, userID, f); err != nil {
				r.log.Warn("invalidation broadcast failed", "user_id", userID, "error", err)
			}
		}
	}
	last := sweep[len(sweep)-1].Dates
	r.log.Info("schedule change propagated", "user_id", userID, "from", date, "to", last[len(last)-1], "deleted", total)
	return total, nil
}

// propagationSweep lists the filters a schedule edit on date must clear:
// all engines for the near window, then the fatigue engine alone for the
// rest of its lookback.
func propagationSweep(date string) ([]cache.Filter, error) {
	near, err := timeutil.AddDays(date, PropagationDays)
	if err != nil {
		return nil, err
	}
	all, err := timeutil.DateRange(date, near)
	if err != nil {
		return nil, err
	}
	sweep := []cache.Filter{{Dates: all}}
	tailFrom, err := timeutil.AddDays(date, PropagationDays+1)
	if err != nil {
		return nil, err
	}
	tailTo, err := timeutil.AddDays(date, engines.MaxFatigueDays)
	if err != nil {
		return nil, err
	}
	if tail, err := timeutil.DateRange(tailFrom, tailTo); err == nil && len(tail) > 0 {
		sweep = append(sweep, cache.Filter{Engines: []types.EngineType{types.EngineFatigueRisk}, Dates: tail})
	}
	return sweep, nil
}

// Invalidate drops the user's entries matching f in this process's cache
// only. Remote invalidations arrive here.
func (r *Refresher) Invalidate(ctx context.Context, userID string, f cache.Filter) (int, error) {
	if err := cache.ValidateUserID(userID); err != nil {
		return 0, err
	}
	return r.cache.Invalidate(ctx, userID, f)
}

// PreloadUser warms the user's results for the refresher's target dates.
func (r *Refresher) PreloadUser(ctx context.Context, userID string) (UserOutcome, []string) {
	dates := r.TargetDates()
	return r.RefreshUser(ctx, userID, dates), dates
}
