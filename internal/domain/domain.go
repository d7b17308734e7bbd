package domain

import (
	"github.com/yungbote/shiftsleep-backend/internal/domain/jobs"
	"github.com/yungbote/shiftsleep-backend/internal/domain/schedule"
	"github.com/yungbote/shiftsleep-backend/internal/domain/user"
)

type UserProfile = user.UserProfile
type ShiftPattern = user.ShiftPattern
type ShiftSchedule = schedule.ShiftSchedule
type ShiftType = schedule.ShiftType
type CacheRefreshRun = jobs.CacheRefreshRun

const (
	ShiftPatternTwoShift   = user.ShiftPatternTwoShift
	ShiftPatternThreeShift = user.ShiftPatternThreeShift
	ShiftPatternFixedNight = user.ShiftPatternFixedNight
	ShiftPatternIrregular  = user.ShiftPatternIrregular

	ShiftDay     = schedule.ShiftDay
	ShiftEvening = schedule.ShiftEvening
	ShiftNight   = schedule.ShiftNight
	ShiftOff     = schedule.ShiftOff

	MaxCommuteMinutes = user.MaxCommuteMinutes

	RefreshStatusSucceeded = jobs.RefreshStatusSucceeded
	RefreshStatusPartial   = jobs.RefreshStatusPartial
	RefreshStatusFailed    = jobs.RefreshStatusFailed
)

// Disclaimer accompanies every aggregated view of engine output.
const Disclaimer = "These recommendations are rule-based estimates for general wellness and are not medical advice. " +
	"Consult a healthcare professional about persistent sleep problems or fatigue."
