package timeutil

import "time"

const (
	SleepCycle       = 90 * time.Minute
	FallAsleepBuffer = 15 * time.Minute
	TargetSleepHours = 8.0
)

type WakeOption struct {
	Cycles     int       `json:"cycles"`
	WakeAt     time.Time `json:"-"`
	WakeTime   string    `json:"wakeTime"`
	SleepHours float64   `json:"sleepHours"`
}

// WakeOptions lists wake-up times that land at the end of a full sleep
// cycle, for minCycles..maxCycles cycles after falling asleep.
func WakeOptions(bedtime time.Time, minCycles, maxCycles int) []WakeOption {
	if minCycles < 1 {
		minCycles = 1
	}
	if maxCycles < minCycles {
		return nil
	}
	asleep := bedtime.Add(FallAsleepBuffer)
	out := make([]WakeOption, 0, maxCycles-minCycles+1)
	for n := minCycles; n <= maxCycles; n++ {
		wake := asleep.Add(time.Duration(n) * SleepCycle)
		out = append(out, WakeOption{
			Cycles:     n,
			WakeAt:     wake,
			WakeTime:   FormatISO(wake),
			SleepHours: Round1((time.Duration(n) * SleepCycle).Hours()),
		})
	}
	return out
}

// SleepDebt is the shortfall against target, floored at zero.
func SleepDebt(actualHours, targetHours float64) float64 {
	if targetHours <= 0 {
		targetHours = TargetSleepHours
	}
	if actualHours >= targetHours {
		return 0
	}
	return targetHours - actualHours
}
