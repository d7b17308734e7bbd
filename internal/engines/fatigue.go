package engines

import (
	"context"
	"fmt"
	"sort"

	"github.com/yungbote/shiftsleep-backend/internal/cache"
	types "github.com/yungbote/shiftsleep-backend/internal/domain"
	"github.com/yungbote/shiftsleep-backend/internal/platform/dbctx"
	"github.com/yungbote/shiftsleep-backend/internal/platform/timeutil"
)

const (
	predictionDays  = 3
	offDaySleep     = 8.0
	minEstimate     = 4.0
	wakingDayHours  = 16.0
	longShiftHours  = 10.0
	sleepDataSource = "estimated"
)

// MaxFatigueDays bounds daysToAnalyze. A fatigue result for D reads shifts
// back to D-daysToAnalyze, so a schedule edit can affect fatigue results up
// to this many days later.
const MaxFatigueDays = 30

type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// LevelFor maps a 0..100 score onto its risk band.
func LevelFor(score int) RiskLevel {
	switch {
	case score <= 25:
		return RiskLow
	case score <= 50:
		return RiskMedium
	case score <= 75:
		return RiskHigh
	default:
		return RiskCritical
	}
}

type FatigueRequest struct {
	UserID            string `json:"userId"`
	TargetDate        string `json:"targetDate,omitempty"`
	DaysToAnalyze     *int   `json:"daysToAnalyze,omitempty"`
	IncludePrediction bool   `json:"includePrediction"`
	ForceRefresh      bool   `json:"forceRefresh"`
}

type FatigueBreakdown struct {
	SleepDeficit      int `json:"sleepDeficit"`
	ConsecutiveNights int `json:"consecutiveNights"`
	Commute           int `json:"commute"`
	Additional        int `json:"additional"`
}

func (b FatigueBreakdown) Total() int {
	t := b.SleepDeficit + b.ConsecutiveNights + b.Commute + b.Additional
	if t < 0 {
		return 0
	}
	if t > 100 {
		return 100
	}
	return t
}

type RiskFactor struct {
	Factor      string `json:"factor"`
	Severity    string `json:"severity"`
	Score       int    `json:"score"`
	Description string `json:"description"`
}

type PredictedDay struct {
	Date           string    `json:"date"`
	PredictedScore int       `json:"predictedScore"`
	PredictedLevel RiskLevel `json:"predictedLevel"`
	Confidence     string    `json:"confidence"`
}

type FatiguePrediction struct {
	Days  []PredictedDay `json:"predictionDays"`
	Trend string         `json:"trend"`
	Notes []string       `json:"notes"`
}

type FatigueResult struct {
	FatigueScore       int                `json:"fatigueScore"`
	FatigueLevel       RiskLevel          `json:"fatigueLevel"`
	Breakdown          FatigueBreakdown   `json:"breakdown"`
	AverageSleepHours  float64            `json:"averageSleepHours"`
	SleepDebtHours     float64            `json:"sleepDebtHours"`
	SleepDataSource    string             `json:"sleepDataSource"`
	LongestNightStreak int                `json:"longestNightStreak"`
	EntriesAnalyzed    int                `json:"entriesAnalyzed"`
	RiskFactors        []RiskFactor       `json:"riskFactors"`
	Recommendations    []string           `json:"recommendations"`
	Prediction         *FatiguePrediction `json:"prediction,omitempty"`
}

type FatigueEngine struct {
	profiles  ProfileReader
	schedules ScheduleReader
	defaults  Defaults
	run       runner
}

func NewFatigueEngine(d Deps) *FatigueEngine {
	return &FatigueEngine{
		profiles:  d.Profiles,
		schedules: d.Schedules,
		defaults:  d.Defaults.withFallbacks(),
		run:       newRunner(types.EngineFatigueRisk, d, "FatigueRisk"),
	}
}

func (e *FatigueEngine) Type() types.EngineType { return types.EngineFatigueRisk }

func (e *FatigueEngine) Warm(ctx context.Context, userID, date string) (bool, types.WhyNotShown) {
	resp := e.Calculate(ctx, FatigueRequest{UserID: userID, TargetDate: date, ForceRefresh: true})
	return resp.Available(), resp.WhyNotShown
}

func (e *FatigueEngine) Calculate(ctx context.Context, req FatigueRequest) types.EngineResponse[FatigueResult] {
	if err := cache.ValidateUserID(req.UserID); err != nil {
		return invalid[FatigueResult](ctx, e.run, "userId", err)
	}
	date, err := resolveDate(req.TargetDate, e.run.now)
	if err != nil {
		return invalid[FatigueResult](ctx, e.run, "targetDate", err)
	}
	days := e.defaults.FatigueDays
	if req.DaysToAnalyze != nil {
		days = *req.DaysToAnalyze
	}
	if days < 1 || days > MaxFatigueDays {
		return invalid[FatigueResult](ctx, e.run, "daysToAnalyze", fmt.Errorf("must be within 1..%d", MaxFatigueDays))
	}
	from, err := timeutil.AddDays(date, -days)
	if err != nil {
		return invalid[FatigueResult](ctx, e.run, "targetDate", err)
	}

	key := cache.Key{
		Engine:     types.EngineFatigueRisk,
		UserID:     req.UserID,
		Date:       date,
		ParamsHash: cache.Params{"daysToAnalyze": days, "includePrediction": req.IncludePrediction}.Hash(),
	}
	return run(ctx, e.run, key, req.ForceRefresh, func(ctx context.Context) (types.Result[FatigueResult], error) {
		dbc := dbctx.From(ctx)
		profile, err := e.profiles.GetByUserID(dbc, req.UserID)
		if err != nil {
			return types.Result[FatigueResult]{}, fmt.Errorf("load profile: %w", err)
		}
		recent, err := e.schedules.ListRange(dbc, req.UserID, from, date)
		if err != nil {
			return types.Result[FatigueResult]{}, fmt.Errorf("load schedule range: %w", err)
		}

		var missing []types.DataMissingReason
		commute := 0
		if profile == nil {
			missing = append(missing, types.MissingUserProfile)
		} else {
			if profile.ShiftType == "" {
				missing = append(missing, types.MissingShiftType)
			}
			m, ok := profile.Commute()
			if !ok {
				missing = append(missing, types.MissingCommuteMinutes)
			}
			commute = m
		}
		if len(recent) == 0 {
			missing = append(missing, types.MissingShiftScheduleSpan)
		}
		if len(missing) > 0 {
			return types.Missing[FatigueResult](missing...), nil
		}

		res := scoreFatigue(profile.ShiftType, commute, recent)
		if req.IncludePrediction {
			p, err := predictFatigue(date, res.FatigueScore)
			if err != nil {
				return types.Result[FatigueResult]{}, err
			}
			res.Prediction = p
		}
		return types.Ok(res), nil
	})
}

func scoreFatigue(pattern types.ShiftPattern, commute int, recent []*types.ShiftSchedule) FatigueResult {
	sorted := append([]*types.ShiftSchedule(nil), recent...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date < sorted[j].Date })

	avg := averageSleep(sorted)
	streak := longestNightStreak(sorted)
	b := FatigueBreakdown{
		SleepDeficit:      sleepDeficitScore(avg),
		ConsecutiveNights: nightStreakScore(streak),
		Commute:           commuteScore(commute, sorted),
		Additional:        additionalRiskScore(pattern, sorted),
	}
	score := b.Total()
	level := LevelFor(score)
	return FatigueResult{
		FatigueScore:       score,
		FatigueLevel:       level,
		Breakdown:          b,
		AverageSleepHours:  timeutil.Round1(avg),
		SleepDebtHours:     timeutil.Round1(timeutil.SleepDebt(avg, timeutil.TargetSleepHours)),
		SleepDataSource:    sleepDataSource,
		LongestNightStreak: streak,
		EntriesAnalyzed:    len(sorted),
		RiskFactors:        riskFactors(b),
		Recommendations:    fatigueRecommendations(level, b, pattern),
	}
}

// averageSleep estimates sleep per entry from the rota alone: a full night
// on OFF days, otherwise what remains of a waking day after work and two
// hours of overhead, floored at minEstimate.
func averageSleep(entries []*types.ShiftSchedule) float64 {
	if len(entries) == 0 {
		return offDaySleep
	}
	total := 0.0
	for _, s := range entries {
		if s.IsOff() {
			total += offDaySleep
			continue
		}
		est := wakingDayHours - s.WorkHours() - 2
		if est < minEstimate {
			est = minEstimate
		}
		total += est
	}
	return total / float64(len(entries))
}

func sleepDeficitScore(avg float64) int {
	switch {
	case avg >= 8:
		return 0
	case avg >= 7:
		return 10
	case avg >= 6:
		return 20
	case avg >= 5:
		return 30
	default:
		return 40
	}
}

// longestNightStreak counts NIGHT entries on consecutive calendar dates.
func longestNightStreak(sorted []*types.ShiftSchedule) int {
	best, cur := 0, 0
	prev := ""
	for _, s := range sorted {
		if !s.IsNight() {
			cur, prev = 0, ""
			continue
		}
		if prev != "" {
			if want, err := timeutil.AddDays(prev, 1); err == nil && want == s.Date {
				cur++
			} else {
				cur = 1
			}
		} else {
			cur = 1
		}
		prev = s.Date
		if cur > best {
			best = cur
		}
	}
	return best
}

func nightStreakScore(streak int) int {
	switch {
	case streak <= 1:
		return 0
	case streak == 2:
		return 10
	case streak == 3:
		return 20
	default:
		return 30
	}
}

func commuteScore(commute int, entries []*types.ShiftSchedule) int {
	score := (commute / 30) * 5
	if score > 15 {
		score = 15
	}
	nights, worked := 0, 0
	for _, s := range entries {
		if s.IsOff() {
			continue
		}
		worked++
		if s.IsNight() {
			nights++
		}
	}
	if worked > 0 && float64(nights)/float64(worked) > 0.5 {
		score += 5
	}
	if score > 20 {
		score = 20
	}
	return score
}

func additionalRiskScore(pattern types.ShiftPattern, entries []*types.ShiftSchedule) int {
	score := 0
	if pattern == types.ShiftPatternIrregular {
		score += 3
	}
	kinds := map[types.ShiftType]struct{}{}
	weekend, long := 0, 0
	for _, s := range entries {
		if s.IsOff() {
			continue
		}
		kinds[s.ShiftType] = struct{}{}
		if d, err := timeutil.ParseDate(s.Date); err == nil && timeutil.IsWeekend(d) {
			weekend++
		}
		if s.WorkHours() > longShiftHours {
			long++
		}
	}
	if len(kinds) >= 3 {
		score += 2
	}
	if weekend >= 2 {
		score += 2
	}
	if long >= 2 {
		score += 3
	}
	if score > 10 {
		score = 10
	}
	return score
}

// riskFactors lists the components past their warning thresholds,
// highest score first.
func riskFactors(b FatigueBreakdown) []RiskFactor {
	out := []RiskFactor{}
	add := func(factor string, score, medium, high int, desc string) {
		if score < medium {
			return
		}
		sev := "medium"
		if high > 0 && score >= high {
			sev = "high"
		}
		out = append(out, RiskFactor{Factor: factor, Severity: sev, Score: score, Description: desc})
	}
	add("sleep_deficit", b.SleepDeficit, 20, 30, "Accumulated sleep shortfall")
	add("consecutive_nights", b.ConsecutiveNights, 10, 20, "Circadian disruption from back-to-back night shifts")
	add("commute_fatigue", b.Commute, 10, 15, "Long commute adds to shift fatigue")
	add("additional_risks", b.Additional, 5, 0, "Irregular rota, weekend work or long shifts")
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

func fatigueRecommendations(level RiskLevel, b FatigueBreakdown, pattern types.ShiftPattern) []string {
	var out []string
	switch level {
	case RiskCritical:
		out = append(out,
			"Fatigue is very high. Rest as soon as you can and take extra care with safety-critical tasks",
			"Avoid extra night or overtime shifts for now if possible")
	case RiskHigh:
		out = append(out, "Fatigue is high. Put rest and sleep first for the next few days")
	case RiskMedium:
		out = append(out, "Fatigue is building; keep an eye on it")
	default:
		out = append(out, "Your fatigue level is currently fine")
	}
	if b.SleepDeficit >= 30 {
		out = append(out,
			"Extend your sleep window and focus on sleep quality",
			"A 20 to 30 minute nap can help bridge the gap")
	} else if b.SleepDeficit >= 20 {
		out = append(out, "Try to keep a regular sleep routine")
	}
	if b.ConsecutiveNights >= 20 {
		out = append(out,
			"Fatigue from consecutive night shifts has built up",
			"Plan a proper recovery period after your night run ends")
	}
	if b.Commute >= 15 {
		out = append(out,
			"Your commute is adding to your fatigue",
			"If you use public transport, rest during the ride instead of using your phone")
	}
	switch pattern {
	case types.ShiftPatternIrregular:
		out = append(out, "With an irregular rota, anchor meals and light exposure to help your body clock")
	case types.ShiftPatternThreeShift:
		out = append(out, "On a three-shift rota, allow adjustment time when your shift changes")
	}
	return out
}

// predictFatigue projects the score forward with a fixed recovery or drift
// rule per tier. It is a heuristic and is labeled low confidence.
func predictFatigue(date string, score int) (*FatiguePrediction, error) {
	p := &FatiguePrediction{
		Days:  make([]PredictedDay, 0, predictionDays),
		Trend: "stable",
		Notes: []string{
			"Assumes your current pattern continues",
			"Actual fatigue depends on your upcoming shifts and sleep",
		},
	}
	for i := 1; i <= predictionDays; i++ {
		d, err := timeutil.AddDays(date, i)
		if err != nil {
			return nil, err
		}
		var s int
		switch {
		case score > 75:
			s = max(50, score-5*i)
		case score > 50:
			s = max(25, score-8*i)
		default:
			s = min(50, score+2*i)
		}
		p.Days = append(p.Days, PredictedDay{Date: d, PredictedScore: s, PredictedLevel: LevelFor(s), Confidence: "low"})
	}
	last := p.Days[len(p.Days)-1].PredictedScore
	switch {
	case last < score:
		p.Trend = "improving"
	case last > score:
		p.Trend = "worsening"
	}
	return p, nil
}
