package user

import "time"

// ShiftPattern is the user's overall rota, as opposed to the type of a single day.
type ShiftPattern string

const (
	ShiftPatternTwoShift   ShiftPattern = "TWO_SHIFT"
	ShiftPatternThreeShift ShiftPattern = "THREE_SHIFT"
	ShiftPatternFixedNight ShiftPattern = "FIXED_NIGHT"
	ShiftPatternIrregular  ShiftPattern = "IRREGULAR"
)

func (p ShiftPattern) Valid() bool {
	switch p {
	case ShiftPatternTwoShift, ShiftPatternThreeShift, ShiftPatternFixedNight, ShiftPatternIrregular:
		return true
	}
	return false
}

const MaxCommuteMinutes = 240

// UserProfile is owned by onboarding; engines only read it.
type UserProfile struct {
	UserID            string       `gorm:"column:user_id;type:varchar(64);primaryKey" json:"userId"`
	ShiftType         ShiftPattern `gorm:"column:shift_type;type:varchar(16)" json:"shiftType"`
	CommuteMinutes    *int         `gorm:"column:commute_minutes" json:"commuteMinutes,omitempty"`
	WearableConnected bool         `gorm:"column:wearable_connected;not null;default:false" json:"wearableConnected"`
	LastActiveAt      *time.Time   `gorm:"column:last_active_at;index" json:"lastActiveAt,omitempty"`
	CreatedAt         time.Time    `gorm:"not null;autoCreateTime" json:"createdAt"`
	UpdatedAt         time.Time    `gorm:"not null;autoUpdateTime" json:"updatedAt"`
}

func (UserProfile) TableName() string { return "user_profiles" }

// Commute returns the profile commute and whether it is known.
func (p *UserProfile) Commute() (int, bool) {
	if p == nil || p.CommuteMinutes == nil {
		return 0, false
	}
	m := *p.CommuteMinutes
	if m < 0 {
		m = 0
	}
	if m > MaxCommuteMinutes {
		m = MaxCommuteMinutes
	}
	return m, true
}
