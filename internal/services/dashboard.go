package services

import (
	"context"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	types "github.com/yungbote/shiftsleep-backend/internal/domain"
	"github.com/yungbote/shiftsleep-backend/internal/engines"
	"github.com/yungbote/shiftsleep-backend/internal/platform/ctxutil"
	"github.com/yungbote/shiftsleep-backend/internal/platform/dbctx"
	"github.com/yungbote/shiftsleep-backend/internal/platform/logger"
	"github.com/yungbote/shiftsleep-backend/internal/platform/timeutil"
)

const maxQuickActions = 5

const (
	SliceAvailable   = "available"
	SliceUnavailable = "unavailable"
)

type SleepCalculator interface {
	Calculate(ctx context.Context, req engines.SleepRequest) types.EngineResponse[engines.SleepResult]
}

type CaffeineCalculator interface {
	Calculate(ctx context.Context, req engines.CaffeineRequest) types.EngineResponse[engines.CaffeineResult]
}

type FatigueCalculator interface {
	Calculate(ctx context.Context, req engines.FatigueRequest) types.EngineResponse[engines.FatigueResult]
}

type ScheduleDayReader interface {
	GetByDate(dbc dbctx.Context, userID, date string) (*types.ShiftSchedule, error)
}

// Slice is one dashboard panel. An unavailable slice never fails the page.
type Slice[T any] struct {
	Status      string                    `json:"status"`
	Data        *T                        `json:"data,omitempty"`
	WhyNotShown types.WhyNotShown         `json:"whyNotShown,omitempty"`
	DataMissing []types.DataMissingReason `json:"dataMissing,omitempty"`
}

func (s Slice[T]) Available() bool { return s.Status == SliceAvailable }

func sliceFrom[T any](resp types.EngineResponse[T]) Slice[T] {
	if resp.Result != nil {
		return Slice[T]{Status: SliceAvailable, Data: resp.Result}
	}
	return Slice[T]{Status: SliceUnavailable, WhyNotShown: resp.WhyNotShown, DataMissing: resp.DataMissing}
}

func unavailable[T any](why types.WhyNotShown) Slice[T] {
	return Slice[T]{Status: SliceUnavailable, WhyNotShown: why}
}

type TodaySchedule struct {
	Status            string          `json:"status"`
	ShiftType         types.ShiftType `json:"shiftType,omitempty"`
	StartAt           string          `json:"startAt,omitempty"`
	EndAt             string          `json:"endAt,omitempty"`
	CommuteMinutes    *int            `json:"commuteMinutes,omitempty"`
	Note              string          `json:"note,omitempty"`
	WorkDurationHours *float64        `json:"workDurationHours,omitempty"`
}

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

func (p Priority) rank() int {
	switch p {
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 3
	}
	return 4
}

type QuickAction struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Icon        string   `json:"icon"`
	Priority    Priority `json:"priority"`
}

type DashboardHome struct {
	TargetDate          string                        `json:"targetDate"`
	SleepRecommendation Slice[engines.SleepResult]    `json:"sleepRecommendation"`
	CaffeineGuidance    Slice[engines.CaffeineResult] `json:"caffeineGuidance"`
	FatigueAssessment   Slice[engines.FatigueResult]  `json:"fatigueAssessment"`
	TodaySchedule       Slice[TodaySchedule]          `json:"todaySchedule"`
	QuickActions        []QuickAction                 `json:"quickActions"`
	Disclaimer          string                        `json:"disclaimer"`
	GeneratedAt         string                        `json:"generatedAt"`
	CorrelationID       string                        `json:"correlationId"`
}

type DashboardService interface {
	Home(ctx context.Context, userID, date string) DashboardHome
}

type DashboardDeps struct {
	Sleep     SleepCalculator
	Caffeine  CaffeineCalculator
	Fatigue   FatigueCalculator
	Schedules ScheduleDayReader
	Timeout   time.Duration
	Clock     timeutil.Clock
}

type dashboardService struct {
	log  *logger.Logger
	deps DashboardDeps
}

func NewDashboardService(log *logger.Logger, deps DashboardDeps) DashboardService {
	if deps.Timeout <= 0 {
		deps.Timeout = 30 * time.Second
	}
	if deps.Clock == nil {
		deps.Clock = timeutil.SystemClock
	}
	return &dashboardService{log: log.With("service", "DashboardService"), deps: deps}
}

// Home fans out to every engine and today's schedule. Each call has its own
// timeout and a failed call only blanks its own slice.
func (s *dashboardService) Home(ctx context.Context, userID, date string) DashboardHome {
	ctx, corrID := ctxutil.EnsureCorrelationID(ctx, s.deps.Clock())
	if date == "" {
		date = timeutil.Today(s.deps.Clock)
	}
	ctx, span := otel.Tracer("github.com/yungbote/shiftsleep-backend/internal/services").Start(ctx, "dashboard.home")
	defer span.End()

	out := DashboardHome{TargetDate: date, Disclaimer: types.Disclaimer, CorrelationID: corrID}

	var g errgroup.Group
	g.Go(func() error {
		out.SleepRecommendation = bounded(ctx, s.deps.Timeout, func(ctx context.Context) Slice[engines.SleepResult] {
			return sliceFrom(s.deps.Sleep.Calculate(ctx, engines.SleepRequest{UserID: userID, TargetDate: date}))
		})
		return nil
	})
	g.Go(func() error {
		out.CaffeineGuidance = bounded(ctx, s.deps.Timeout, func(ctx context.Context) Slice[engines.CaffeineResult] {
			return sliceFrom(s.deps.Caffeine.Calculate(ctx, engines.CaffeineRequest{UserID: userID, TargetDate: date}))
		})
		return nil
	})
	g.Go(func() error {
		out.FatigueAssessment = bounded(ctx, s.deps.Timeout, func(ctx context.Context) Slice[engines.FatigueResult] {
			return sliceFrom(s.deps.Fatigue.Calculate(ctx, engines.FatigueRequest{UserID: userID, TargetDate: date}))
		})
		return nil
	})
	g.Go(func() error {
		out.TodaySchedule = bounded(ctx, s.deps.Timeout, func(ctx context.Context) Slice[TodaySchedule] {
			return s.todaySchedule(ctx, userID, date)
		})
		return nil
	})
	_ = g.Wait()

	out.QuickActions = quickActions(out)
	out.GeneratedAt = timeutil.FormatISO(s.deps.Clock())

	span.SetAttributes(
		attribute.Bool("dashboard.sleep", out.SleepRecommendation.Available()),
		attribute.Bool("dashboard.caffeine", out.CaffeineGuidance.Available()),
		attribute.Bool("dashboard.fatigue", out.FatigueAssessment.Available()),
		attribute.Bool("dashboard.schedule", out.TodaySchedule.Available()),
	)
	s.log.Info("Home dashboard built",
		"user_id", userID,
		"date", date,
		"has_sleep", out.SleepRecommendation.Available(),
		"has_caffeine", out.CaffeineGuidance.Available(),
		"has_fatigue", out.FatigueAssessment.Available(),
		"has_schedule", out.TodaySchedule.Available(),
	)
	return out
}

// bounded runs fn under timeout. A call that overruns is reported as
// TIMEOUT even if fn ignores its context.
func bounded[T any](parent context.Context, timeout time.Duration, fn func(context.Context) Slice[T]) Slice[T] {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	done := make(chan Slice[T], 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- unavailable[T](types.WhyCalculationError)
			}
		}()
		done <- fn(ctx)
	}()
	select {
	case res := <-done:
		return res
	case <-ctx.Done():
		return unavailable[T](types.WhyTimeout)
	}
}

func (s *dashboardService) todaySchedule(ctx context.Context, userID, date string) Slice[TodaySchedule] {
	row, err := s.deps.Schedules.GetByDate(dbctx.From(ctx), userID, date)
	if err != nil {
		if ctx.Err() != nil {
			return unavailable[TodaySchedule](types.WhyTimeout)
		}
		s.log.Warn("today schedule lookup failed", "user_id", userID, "error", err)
		return unavailable[TodaySchedule](types.WhyCalculationError)
	}
	if row == nil {
		return Slice[TodaySchedule]{Status: SliceAvailable, Data: &TodaySchedule{Status: "no_schedule"}}
	}
	ts := &TodaySchedule{
		Status:         "scheduled",
		ShiftType:      row.ShiftType,
		CommuteMinutes: row.CommuteMinutes,
		Note:           row.Note,
	}
	if row.StartAt != nil {
		ts.StartAt = timeutil.FormatISO(*row.StartAt)
	}
	if row.EndAt != nil {
		ts.EndAt = timeutil.FormatISO(*row.EndAt)
	}
	if row.Worked() {
		h := timeutil.Round1(row.WorkHours())
		ts.WorkDurationHours = &h
	}
	return Slice[TodaySchedule]{Status: SliceAvailable, Data: ts}
}

func quickActions(h DashboardHome) []QuickAction {
	var out []QuickAction

	noSchedule := !h.TodaySchedule.Available() || h.TodaySchedule.Data.Status == "no_schedule"
	add := QuickAction{
		ID:          "add_schedule",
		Title:       "Enter your shifts",
		Description: "Add today's or upcoming shifts",
		Icon:        "calendar",
		Priority:    PriorityMedium,
	}
	if noSchedule {
		add.Priority = PriorityHigh
	}
	out = append(out, add)

	if sl := h.SleepRecommendation; sl.Available() {
		desc := "See your personalized sleep plan"
		if t, err := time.Parse(timeutil.ISOLayout, sl.Data.SleepMain.StartAt); err == nil {
			desc = "Your next main sleep starts at " + timeutil.FormatClock(t)
		}
		out = append(out, QuickAction{ID: "view_sleep_window", Title: "Sleep window", Description: desc, Icon: "moon", Priority: PriorityMedium})
	} else if missingAny(sl.DataMissing, types.MissingUserProfile, types.MissingCommuteMinutes, types.MissingShiftType) {
		out = append(out, QuickAction{
			ID:          "complete_profile",
			Title:       "Complete your profile",
			Description: "Add your shift pattern and commute for more accurate advice",
			Icon:        "user",
			Priority:    PriorityHigh,
		})
	}

	if f := h.FatigueAssessment; f.Available() && f.Data.FatigueScore >= 75 {
		out = append(out, QuickAction{
			ID:          "fatigue_management",
			Title:       "Fatigue guide",
			Description: "Your fatigue level is high. See how to manage it",
			Icon:        "alert-triangle",
			Priority:    PriorityHigh,
		})
	}

	if c := h.CaffeineGuidance; c.Available() {
		desc := "Set a reminder for your caffeine cutoff"
		if t, err := time.Parse(timeutil.ISOLayout, c.Data.CaffeineDeadline); err == nil {
			desc = "Last caffeine by " + timeutil.FormatClock(t)
		}
		out = append(out, QuickAction{ID: "caffeine_cutoff", Title: "Caffeine cutoff", Description: desc, Icon: "coffee", Priority: PriorityLow})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority.rank() < out[j].Priority.rank() })
	if len(out) > maxQuickActions {
		out = out[:maxQuickActions]
	}
	return out
}

func missingAny(have []types.DataMissingReason, want ...types.DataMissingReason) bool {
	for _, h := range have {
		for _, w := range want {
			if h == w {
				return true
			}
		}
	}
	return false
}
