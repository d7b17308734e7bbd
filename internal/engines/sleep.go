package engines

import (
	"context"
	"fmt"
	"time"

	"github.com/yungbote/shiftsleep-backend/internal/cache"
	types "github.com/yungbote/shiftsleep-backend/internal/domain"
	"github.com/yungbote/shiftsleep-backend/internal/platform/dbctx"
	"github.com/yungbote/shiftsleep-backend/internal/platform/timeutil"
)

const (
	minSleepHours     = 4.0
	maxSleepHours     = 12.0
	maxBufferMinutes  = 120
	napDuration       = 25 * time.Minute
	napDelay          = 5 * time.Hour
	prepMinutes       = 60
	conflictPrep      = 30
	shortGapHours     = 16.0
	upcomingLookahead = 3
)

type SleepRequest struct {
	UserID             string   `json:"userId"`
	TargetDate         string   `json:"targetDate,omitempty"`
	SleepDurationHours *float64 `json:"sleepDurationHours,omitempty"`
	BufferMinutes      *int     `json:"bufferMinutes,omitempty"`
	ForceRefresh       bool     `json:"forceRefresh"`
}

type SleepWindow struct {
	StartAt       string  `json:"startAt"`
	EndAt         string  `json:"endAt"`
	DurationHours float64 `json:"durationHours"`
	Quality       string  `json:"quality"`
}

type WorkPattern struct {
	ConsecutiveWorkDays int             `json:"consecutiveWorkDays"`
	IsNightShift        bool            `json:"isNightShift"`
	NextWorkGapHours    *float64        `json:"nextWorkGapHours,omitempty"`
	ShiftType           types.ShiftType `json:"shiftType"`
}

type SleepResult struct {
	SleepMain        SleepWindow           `json:"sleepMain"`
	SleepNap         *SleepWindow          `json:"sleepNap,omitempty"`
	Clamped          bool                  `json:"clamped"`
	WakeAlternatives []timeutil.WakeOption `json:"wakeAlternatives"`
	WorkPattern      WorkPattern           `json:"workPattern"`
	Recommendations  []string              `json:"recommendations"`
	ConflictWarnings []string              `json:"conflictWarnings"`
}

type SleepEngine struct {
	profiles  ProfileReader
	schedules ScheduleReader
	defaults  Defaults
	run       runner
}

func NewSleepEngine(d Deps) *SleepEngine {
	return &SleepEngine{
		profiles:  d.Profiles,
		schedules: d.Schedules,
		defaults:  d.Defaults.withFallbacks(),
		run:       newRunner(types.EngineShiftToSleep, d, "ShiftToSleep"),
	}
}

func (e *SleepEngine) Type() types.EngineType { return types.EngineShiftToSleep }

func (e *SleepEngine) Warm(ctx context.Context, userID, date string) (bool, types.WhyNotShown) {
	resp := e.Calculate(ctx, SleepRequest{UserID: userID, TargetDate: date, ForceRefresh: true})
	return resp.Available(), resp.WhyNotShown
}

func (e *SleepEngine) Calculate(ctx context.Context, req SleepRequest) types.EngineResponse[SleepResult] {
	if err := cache.ValidateUserID(req.UserID); err != nil {
		return invalid[SleepResult](ctx, e.run, "userId", err)
	}
	date, err := resolveDate(req.TargetDate, e.run.now)
	if err != nil {
		return invalid[SleepResult](ctx, e.run, "targetDate", err)
	}
	duration := e.defaults.SleepDurationHours
	if req.SleepDurationHours != nil {
		duration = *req.SleepDurationHours
	}
	if !within(duration, minSleepHours, maxSleepHours, false) {
		return invalid[SleepResult](ctx, e.run, "sleepDurationHours", fmt.Errorf("must be within %.0f..%.0f", minSleepHours, maxSleepHours))
	}
	buffer := e.defaults.BufferMinutes
	if req.BufferMinutes != nil {
		buffer = *req.BufferMinutes
	}
	if buffer < 0 || buffer > maxBufferMinutes {
		return invalid[SleepResult](ctx, e.run, "bufferMinutes", fmt.Errorf("must be within 0..%d", maxBufferMinutes))
	}

	key := cache.Key{
		Engine:     types.EngineShiftToSleep,
		UserID:     req.UserID,
		Date:       date,
		ParamsHash: cache.Params{"sleepDurationHours": duration, "bufferMinutes": buffer}.Hash(),
	}
	return run(ctx, e.run, key, req.ForceRefresh, func(ctx context.Context) (types.Result[SleepResult], error) {
		dbc := dbctx.From(ctx)
		profile, err := e.profiles.GetByUserID(dbc, req.UserID)
		if err != nil {
			return types.Result[SleepResult]{}, fmt.Errorf("load profile: %w", err)
		}
		current, err := e.schedules.GetByDate(dbc, req.UserID, date)
		if err != nil {
			return types.Result[SleepResult]{}, fmt.Errorf("load schedule: %w", err)
		}

		var missing []types.DataMissingReason
		if profile == nil {
			missing = append(missing, types.MissingUserProfile)
		}
		if current.IsOff() || !current.Worked() {
			missing = append(missing, types.MissingShiftScheduleDay)
		}
		commute, hasCommute := resolveCommute(profile, current)
		if profile != nil && !hasCommute {
			missing = append(missing, types.MissingCommuteMinutes)
		}
		if len(missing) > 0 {
			return types.Missing[SleepResult](missing...), nil
		}

		// Results for D also read the next upcomingLookahead entries, so an
		// edit on D can change cached sleep plans for D-3..D-1. Schedule
		// propagation only sweeps forward from the edited date.
		upcoming, err := e.schedules.ListUpcoming(dbc, req.UserID, date, upcomingLookahead)
		if err != nil {
			return types.Result[SleepResult]{}, fmt.Errorf("load upcoming schedules: %w", err)
		}
		return types.Ok(planSleep(sleepInput{
			current:  current,
			upcoming: upcoming,
			commute:  commute,
			buffer:   buffer,
			duration: duration,
		})), nil
	})
}

// resolveCommute prefers the day's own commute over the profile's.
func resolveCommute(profile *types.UserProfile, day *types.ShiftSchedule) (int, bool) {
	if day != nil && day.CommuteMinutes != nil {
		m := *day.CommuteMinutes
		if m < 0 {
			m = 0
		}
		if m > types.MaxCommuteMinutes {
			m = types.MaxCommuteMinutes
		}
		return m, true
	}
	return profile.Commute()
}

type sleepInput struct {
	current  *types.ShiftSchedule
	upcoming []*types.ShiftSchedule
	commute  int
	buffer   int
	duration float64
}

func planSleep(in sleepInput) SleepResult {
	pattern := analyzePattern(in.current, in.upcoming)
	workStart, workEnd := in.current.StartAt.In(timeutil.KST), in.current.EndAt.In(timeutil.KST)

	start := workEnd.Add(timeutil.Minutes(in.commute + in.buffer))
	end := start.Add(timeutil.Hours(in.duration))
	clamped := false
	if !pattern.IsNightShift && pattern.NextWorkGapHours != nil && *pattern.NextWorkGapHours < shortGapHours {
		next := nextWorked(in.upcoming)
		latest := next.StartAt.In(timeutil.KST).Add(-timeutil.Minutes(in.commute + prepMinutes))
		if end.After(latest) {
			end = latest
			clamped = true
		}
		if end.Before(start) {
			end = start
		}
	}

	hours := timeutil.HoursBetween(start, end)
	main := SleepWindow{
		StartAt:       timeutil.FormatISO(start),
		EndAt:         timeutil.FormatISO(end),
		DurationHours: timeutil.Round1(hours),
		Quality:       sleepQuality(start, hours, pattern),
	}

	var nap *SleepWindow
	var napStart, napEnd time.Time
	if pattern.ConsecutiveWorkDays >= 3 || pattern.IsNightShift {
		napStart = end.Add(napDelay)
		napEnd = napStart.Add(napDuration)
		if !timeutil.Overlaps(napStart, napEnd, workStart, workEnd) {
			nap = &SleepWindow{
				StartAt:       timeutil.FormatISO(napStart),
				EndAt:         timeutil.FormatISO(napEnd),
				DurationHours: timeutil.Round1(napDuration.Hours()),
				Quality:       "power_nap",
			}
		}
	}

	res := SleepResult{
		SleepMain:        main,
		SleepNap:         nap,
		Clamped:          clamped,
		WakeAlternatives: timeutil.WakeOptions(start, 4, 6),
		WorkPattern:      pattern,
		Recommendations:  sleepRecommendations(start, end, napStart, main, nap, pattern),
		ConflictWarnings: []string{},
	}

	checked := 0
	for _, s := range in.upcoming {
		if checked == 2 {
			break
		}
		if !s.Worked() {
			continue
		}
		checked++
		if end.Add(timeutil.Minutes(in.commute + conflictPrep)).After(s.StartAt.In(timeutil.KST)) {
			res.ConflictWarnings = append(res.ConflictWarnings,
				fmt.Sprintf("Not enough time to get ready before the %s shift on %s", s.ShiftType, s.Date))
		}
	}
	if nap != nil {
		if next := nextWorked(in.upcoming); next != nil &&
			timeutil.Overlaps(napStart, napEnd, next.StartAt.In(timeutil.KST), next.EndAt.In(timeutil.KST)) {
			res.ConflictWarnings = append(res.ConflictWarnings, "The suggested power nap overlaps your next shift")
		}
	}
	return res
}

// analyzePattern counts the current day plus each following worked day on
// consecutive dates until the first OFF day or calendar gap.
func analyzePattern(current *types.ShiftSchedule, upcoming []*types.ShiftSchedule) WorkPattern {
	p := WorkPattern{
		ConsecutiveWorkDays: 1,
		IsNightShift:        current.IsNight(),
		ShiftType:           current.ShiftType,
	}
	prev := current.Date
	for _, s := range upcoming {
		want, err := timeutil.AddDays(prev, 1)
		if err != nil || s.Date != want || s.IsOff() {
			break
		}
		p.ConsecutiveWorkDays++
		prev = s.Date
	}
	if len(upcoming) > 0 && upcoming[0].Worked() {
		gap := timeutil.Round1(timeutil.HoursBetween(*current.EndAt, *upcoming[0].StartAt))
		p.NextWorkGapHours = &gap
	}
	return p
}

func nextWorked(upcoming []*types.ShiftSchedule) *types.ShiftSchedule {
	for _, s := range upcoming {
		if s.Worked() {
			return s
		}
	}
	return nil
}

func sleepQuality(start time.Time, hours float64, p WorkPattern) string {
	score := 0
	switch h := start.In(timeutil.KST).Hour(); {
	case h >= 22 || h <= 6:
		score += 3
	case h >= 7 && h <= 9:
		score += 2
	default:
		score++
	}
	switch {
	case hours >= 7 && hours <= 9:
		score += 3
	case hours >= 6 && hours < 7, hours > 9 && hours <= 10:
		score += 2
	default:
		score++
	}
	if p.ConsecutiveWorkDays >= 3 {
		score--
	}
	if p.IsNightShift {
		score--
	}
	switch {
	case score >= 5:
		return "excellent"
	case score >= 4:
		return "good"
	case score >= 3:
		return "fair"
	default:
		return "poor"
	}
}

func sleepRecommendations(start, end, napStart time.Time, main SleepWindow, nap *SleepWindow, p WorkPattern) []string {
	out := []string{
		fmt.Sprintf("Main sleep: %s to %s (%.1fh)", timeutil.FormatClock(start), timeutil.FormatClock(end), main.DurationHours),
	}
	if nap != nil {
		out = append(out, fmt.Sprintf("Power nap: %s for 25 minutes", timeutil.FormatClock(napStart)))
	}
	if main.Quality == "poor" {
		out = append(out,
			"Keep the bedroom dark and quiet to improve sleep quality",
			"Avoid screens for an hour before sleeping")
	}
	if p.IsNightShift {
		out = append(out,
			"Wear sunglasses on the way home to limit morning light",
			"A warm shower before bed helps your body cool down for sleep")
	}
	if p.ConsecutiveWorkDays >= 3 {
		out = append(out, "Fatigue builds over consecutive workdays; protect your full sleep window")
		if nap == nil {
			out = append(out, "Consider a 20 to 30 minute nap if your schedule allows")
		}
	}
	return out
}
