package engines

import (
	"context"
	"testing"

	types "github.com/yungbote/shiftsleep-backend/internal/domain"
)

func TestFatigueFourNightRun(t *testing.T) {
	f := newFixture(t)
	f.profile("u1", types.ShiftPatternIrregular, 45)
	for _, d := range []string{"2024-01-08", "2024-01-09", "2024-01-10", "2024-01-11"} {
		f.shift("u1", d, types.ShiftNight, 22, 9)
	}
	resp := NewFatigueEngine(f.deps).Calculate(context.Background(), FatigueRequest{UserID: "u1", TargetDate: "2024-01-11"})
	if !resp.Available() {
		t.Fatalf("expected result, got %s %v", resp.WhyNotShown, resp.DataMissing)
	}
	r := resp.Result
	want := FatigueBreakdown{SleepDeficit: 30, ConsecutiveNights: 30, Commute: 10, Additional: 3}
	if r.Breakdown != want {
		t.Fatalf("breakdown: want=%+v got=%+v", want, r.Breakdown)
	}
	if r.FatigueScore != 73 || r.FatigueLevel != RiskHigh {
		t.Fatalf("score: want=73/HIGH got=%d/%s", r.FatigueScore, r.FatigueLevel)
	}
	if r.AverageSleepHours != 5 || r.SleepDebtHours != 3 || r.SleepDataSource != "estimated" {
		t.Fatalf("sleep summary: %+v", r)
	}
	if r.LongestNightStreak != 4 {
		t.Fatalf("streak: want=4 got=%d", r.LongestNightStreak)
	}
	if len(r.RiskFactors) != 3 || r.RiskFactors[0].Severity != "high" || r.RiskFactors[2].Factor != "commute_fatigue" {
		t.Fatalf("risk factors: %+v", r.RiskFactors)
	}
	if r.Prediction != nil {
		t.Fatalf("prediction not requested")
	}
}

func TestFatigueNightStreakBreaksOnGap(t *testing.T) {
	f := newFixture(t)
	f.profile("u1", types.ShiftPatternFixedNight, 0)
	for _, d := range []string{"2024-01-05", "2024-01-06", "2024-01-08", "2024-01-09"} {
		f.shift("u1", d, types.ShiftNight, 22, 8)
	}
	resp := NewFatigueEngine(f.deps).Calculate(context.Background(), FatigueRequest{UserID: "u1", TargetDate: "2024-01-10"})
	if resp.Result.LongestNightStreak != 2 || resp.Result.Breakdown.ConsecutiveNights != 10 {
		t.Fatalf("streak across gap: got=%d score=%d", resp.Result.LongestNightStreak, resp.Result.Breakdown.ConsecutiveNights)
	}
}

func TestFatigueDataMissing(t *testing.T) {
	f := newFixture(t)
	e := NewFatigueEngine(f.deps)

	resp := e.Calculate(context.Background(), FatigueRequest{UserID: "u1", TargetDate: "2024-01-10"})
	if !sameReasons(resp.DataMissing, types.MissingUserProfile, types.MissingShiftScheduleSpan) {
		t.Fatalf("no data: got %v", resp.DataMissing)
	}

	f.profiles.rows["u1"] = &types.UserProfile{UserID: "u1"}
	f.off("u1", "2024-01-09")
	resp = e.Calculate(context.Background(), FatigueRequest{UserID: "u1", TargetDate: "2024-01-10"})
	if !sameReasons(resp.DataMissing, types.MissingShiftType, types.MissingCommuteMinutes) {
		t.Fatalf("bare profile: got %v", resp.DataMissing)
	}

	if resp := e.Calculate(context.Background(), FatigueRequest{UserID: "u1", DaysToAnalyze: ptrI(0)}); resp.WhyNotShown != types.WhyInvalidParameters {
		t.Fatalf("daysToAnalyze=0: got %s", resp.WhyNotShown)
	}
}

func TestFatigueScoreBounds(t *testing.T) {
	kinds := []types.ShiftType{types.ShiftDay, types.ShiftEvening, types.ShiftNight, types.ShiftOff}
	patterns := []types.ShiftPattern{types.ShiftPatternTwoShift, types.ShiftPatternIrregular}
	for seed := 0; seed < 64; seed++ {
		f := newFixture(t)
		f.profile("u1", patterns[seed%2], (seed*17)%241)
		for i := 0; i < 8; i++ {
			d := []string{"2024-01-03", "2024-01-04", "2024-01-05", "2024-01-06", "2024-01-07", "2024-01-08", "2024-01-09", "2024-01-10"}[i]
			k := kinds[(seed+i*seed/3)%4]
			if k == types.ShiftOff {
				f.off("u1", d)
				continue
			}
			f.shift("u1", d, k, float64((seed+i)%24), float64(6+(seed+i)%8))
		}
		resp := NewFatigueEngine(f.deps).Calculate(context.Background(), FatigueRequest{UserID: "u1", TargetDate: "2024-01-10"})
		if !resp.Available() {
			t.Fatalf("seed=%d: %s %v", seed, resp.WhyNotShown, resp.DataMissing)
		}
		r := resp.Result
		if r.FatigueScore < 0 || r.FatigueScore > 100 {
			t.Fatalf("seed=%d: score out of range %d", seed, r.FatigueScore)
		}
		if r.FatigueLevel != LevelFor(r.FatigueScore) {
			t.Fatalf("seed=%d: level %s for score %d", seed, r.FatigueLevel, r.FatigueScore)
		}
		b := r.Breakdown
		if b.SleepDeficit > 40 || b.ConsecutiveNights > 30 || b.Commute > 20 || b.Additional > 10 {
			t.Fatalf("seed=%d: component over cap %+v", seed, b)
		}
	}
}

func TestLevelForBoundaries(t *testing.T) {
	cases := map[int]RiskLevel{0: RiskLow, 25: RiskLow, 26: RiskMedium, 50: RiskMedium, 51: RiskHigh, 75: RiskHigh, 76: RiskCritical, 100: RiskCritical}
	for score, want := range cases {
		if got := LevelFor(score); got != want {
			t.Fatalf("LevelFor(%d): want=%s got=%s", score, want, got)
		}
	}
}

func TestFatiguePrediction(t *testing.T) {
	cases := []struct {
		score int
		want  []int
		trend string
	}{
		{score: 80, want: []int{75, 70, 65}, trend: "improving"},
		{score: 73, want: []int{65, 57, 49}, trend: "improving"},
		{score: 20, want: []int{22, 24, 26}, trend: "worsening"},
		{score: 50, want: []int{50, 50, 50}, trend: "stable"},
	}
	for _, tc := range cases {
		p, err := predictFatigue("2024-01-10", tc.score)
		if err != nil {
			t.Fatalf("predictFatigue: %v", err)
		}
		for i, d := range p.Days {
			if d.PredictedScore != tc.want[i] || d.Confidence != "low" {
				t.Fatalf("score=%d day %d: want=%d got=%+v", tc.score, i, tc.want[i], d)
			}
		}
		if p.Days[0].Date != "2024-01-11" || p.Days[2].Date != "2024-01-13" {
			t.Fatalf("prediction dates: %+v", p.Days)
		}
		if p.Trend != tc.trend {
			t.Fatalf("score=%d trend: want=%s got=%s", tc.score, tc.trend, p.Trend)
		}
	}
}
