package engines

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/yungbote/shiftsleep-backend/internal/cache"
	types "github.com/yungbote/shiftsleep-backend/internal/domain"
	"github.com/yungbote/shiftsleep-backend/internal/platform/dbctx"
	"github.com/yungbote/shiftsleep-backend/internal/platform/timeutil"
)

const (
	maxCaffeineMg      = 1000.0
	minHalfLifeHours   = 3.0
	maxHalfLifeHours   = 8.0
	maxSafeThresholdMg = 200.0
	maxTimelinePoints  = 12
	sleepPrepMinutes   = 60
)

type CaffeineRequest struct {
	UserID           string   `json:"userId"`
	TargetDate       string   `json:"targetDate,omitempty"`
	TargetSleepTime  string   `json:"targetSleepTime,omitempty"`
	CaffeineAmountMg *float64 `json:"caffeineAmountMg,omitempty"`
	HalfLifeHours    *float64 `json:"halfLifeHours,omitempty"`
	SafeThresholdMg  *float64 `json:"safeThresholdMg,omitempty"`
	ForceRefresh     bool     `json:"forceRefresh"`
}

type DecayPoint struct {
	Time         string  `json:"time"`
	HoursElapsed float64 `json:"hoursElapsed"`
	CaffeineMg   float64 `json:"caffeineMg"`
	Percentage   float64 `json:"percentage"`
	Status       string  `json:"status"`
}

type HalfLifeInfo struct {
	HalfLifeHours   float64      `json:"halfLifeHours"`
	SafeThresholdMg float64      `json:"safeThresholdMg"`
	InitialAmountMg float64      `json:"initialAmountMg"`
	Timeline        []DecayPoint `json:"timeline"`
}

type BeverageCutoff struct {
	Beverage
	CutoffTime string `json:"cutoffTime"`
}

type CaffeineResult struct {
	CaffeineDeadline string           `json:"caffeineDeadline"`
	HoursBeforeSleep float64          `json:"hoursBeforeSleep"`
	TargetSleepTime  string           `json:"targetSleepTime"`
	SleepTimeSource  string           `json:"sleepTimeSource"`
	HalfLifeInfo     HalfLifeInfo     `json:"halfLifeInfo"`
	BeverageCutoffs  []BeverageCutoff `json:"beverageCutoffs"`
	Recommendations  []string         `json:"recommendations"`
}

type CaffeineEngine struct {
	profiles  ProfileReader
	schedules ScheduleReader
	defaults  Defaults
	run       runner
}

func NewCaffeineEngine(d Deps) *CaffeineEngine {
	return &CaffeineEngine{
		profiles:  d.Profiles,
		schedules: d.Schedules,
		defaults:  d.Defaults.withFallbacks(),
		run:       newRunner(types.EngineCaffeineCutoff, d, "CaffeineCutoff"),
	}
}

func (e *CaffeineEngine) Type() types.EngineType { return types.EngineCaffeineCutoff }

func (e *CaffeineEngine) Warm(ctx context.Context, userID, date string) (bool, types.WhyNotShown) {
	resp := e.Calculate(ctx, CaffeineRequest{UserID: userID, TargetDate: date, ForceRefresh: true})
	return resp.Available(), resp.WhyNotShown
}

func (e *CaffeineEngine) Calculate(ctx context.Context, req CaffeineRequest) types.EngineResponse[CaffeineResult] {
	if err := cache.ValidateUserID(req.UserID); err != nil {
		return invalid[CaffeineResult](ctx, e.run, "userId", err)
	}
	date, err := resolveDate(req.TargetDate, e.run.now)
	if err != nil {
		return invalid[CaffeineResult](ctx, e.run, "targetDate", err)
	}
	dose := e.defaults.CaffeineMg
	if req.CaffeineAmountMg != nil {
		dose = *req.CaffeineAmountMg
	}
	if !within(dose, 0, maxCaffeineMg, true) {
		return invalid[CaffeineResult](ctx, e.run, "caffeineAmountMg", fmt.Errorf("must be within (0, %.0f]", maxCaffeineMg))
	}
	halfLife := e.defaults.HalfLifeHours
	if req.HalfLifeHours != nil {
		halfLife = *req.HalfLifeHours
	}
	if !within(halfLife, minHalfLifeHours, maxHalfLifeHours, false) {
		return invalid[CaffeineResult](ctx, e.run, "halfLifeHours", fmt.Errorf("must be within %.0f..%.0f", minHalfLifeHours, maxHalfLifeHours))
	}
	threshold := e.defaults.SafeThresholdMg
	if req.SafeThresholdMg != nil {
		threshold = *req.SafeThresholdMg
	}
	if !within(threshold, 0, maxSafeThresholdMg, true) {
		return invalid[CaffeineResult](ctx, e.run, "safeThresholdMg", fmt.Errorf("must be within (0, %.0f]", maxSafeThresholdMg))
	}
	sleepAt := strings.TrimSpace(req.TargetSleepTime)

	key := cache.Key{
		Engine: types.EngineCaffeineCutoff,
		UserID: req.UserID,
		Date:   date,
		ParamsHash: cache.Params{
			"caffeineAmountMg": dose,
			"halfLifeHours":    halfLife,
			"safeThresholdMg":  threshold,
			"targetSleepTime":  sleepAt,
		}.Hash(),
	}
	return run(ctx, e.run, key, req.ForceRefresh, func(ctx context.Context) (types.Result[CaffeineResult], error) {
		dbc := dbctx.From(ctx)
		profile, err := e.profiles.GetByUserID(dbc, req.UserID)
		if err != nil {
			return types.Result[CaffeineResult]{}, fmt.Errorf("load profile: %w", err)
		}

		var missing []types.DataMissingReason
		if profile == nil {
			missing = append(missing, types.MissingUserProfile)
		}

		var target time.Time
		source := "requested"
		if sleepAt != "" {
			t, err := timeutil.ParseDateTime(sleepAt, date)
			if err != nil {
				missing = append(missing, types.MissingInvalidSleepTime)
			}
			target = t
		} else {
			source = "schedule"
			day, err := e.schedules.GetByDate(dbc, req.UserID, date)
			if err != nil {
				return types.Result[CaffeineResult]{}, fmt.Errorf("load schedule: %w", err)
			}
			if !day.Worked() {
				missing = append(missing, types.MissingTargetSleepTime)
			} else if commute, ok := resolveCommute(profile, day); ok {
				target = day.EndAt.In(timeutil.KST).Add(timeutil.Minutes(commute + sleepPrepMinutes))
			} else if profile != nil {
				missing = append(missing, types.MissingCommuteMinutes)
			}
		}
		if len(missing) > 0 {
			return types.Missing[CaffeineResult](missing...), nil
		}

		res := planCaffeine(target, dose, halfLife, threshold, profile.ShiftType)
		res.SleepTimeSource = source
		return types.Ok(res), nil
	})
}

func planCaffeine(sleepAt time.Time, dose, halfLife, threshold float64, pattern types.ShiftPattern) CaffeineResult {
	hours := timeutil.EliminationHours(dose, threshold, halfLife)
	cutoff := sleepAt.Add(-timeutil.Hours(hours))

	cutoffs := make([]BeverageCutoff, 0, len(beverages))
	for _, b := range beverages {
		t := sleepAt.Add(-timeutil.Hours(timeutil.EliminationHours(b.CaffeineMg, threshold, halfLife)))
		cutoffs = append(cutoffs, BeverageCutoff{Beverage: b, CutoffTime: timeutil.FormatISO(t)})
	}

	return CaffeineResult{
		CaffeineDeadline: timeutil.FormatISO(cutoff),
		HoursBeforeSleep: timeutil.Round1(hours),
		TargetSleepTime:  timeutil.FormatISO(sleepAt),
		HalfLifeInfo: HalfLifeInfo{
			HalfLifeHours:   halfLife,
			SafeThresholdMg: threshold,
			InitialAmountMg: dose,
			Timeline:        decayTimeline(cutoff, dose, halfLife, threshold),
		},
		BeverageCutoffs: cutoffs,
		Recommendations: caffeineRecommendations(cutoff, sleepAt, dose, pattern),
	}
}

// decayTimeline starts at the peak and halves once per half-life until the
// amount is at or below threshold. The peak counts toward maxTimelinePoints.
func decayTimeline(from time.Time, dose, halfLife, threshold float64) []DecayPoint {
	out := []DecayPoint{{
		Time:       timeutil.FormatISO(from),
		CaffeineMg: timeutil.Round1(dose),
		Percentage: 100,
		Status:     "peak",
	}}
	amount := dose
	for step := 1; len(out) < maxTimelinePoints && amount > threshold; step++ {
		amount /= 2
		elapsed := float64(step) * halfLife
		status := "active"
		if amount <= threshold {
			status = "safe"
		}
		out = append(out, DecayPoint{
			Time:         timeutil.FormatISO(from.Add(timeutil.Hours(elapsed))),
			HoursElapsed: timeutil.Round1(elapsed),
			CaffeineMg:   timeutil.Round1(amount),
			Percentage:   timeutil.Round1(amount / dose * 100),
			Status:       status,
		})
	}
	return out
}

func caffeineRecommendations(cutoff, sleepAt time.Time, dose float64, pattern types.ShiftPattern) []string {
	out := []string{fmt.Sprintf("Avoid caffeine after %s", timeutil.HourPhrase(cutoff))}
	switch {
	case dose > 400:
		out = append(out, "This dose is above the 400mg daily guideline for adults")
	case dose > 200:
		out = append(out, "That is a large dose; try cutting back gradually")
	}
	if pattern == types.ShiftPatternThreeShift || pattern == types.ShiftPatternIrregular {
		out = append(out,
			"Rotating schedules make caffeine dependence harder to manage; keep doses small",
			"A small dose about 30 minutes before your shift starts works best")
	}
	if h := sleepAt.In(timeutil.KST).Hour(); h >= 6 && h <= 14 {
		out = append(out, "Before daytime sleep, try a short stretch or breathing exercise instead of caffeine")
	}
	out = append(out, "Drink water and get daylight early in your shift as alternatives to caffeine")
	return out
}
