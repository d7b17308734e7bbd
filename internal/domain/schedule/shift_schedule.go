package schedule

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type ShiftType string

const (
	ShiftDay     ShiftType = "DAY"
	ShiftEvening ShiftType = "EVENING"
	ShiftNight   ShiftType = "NIGHT"
	ShiftOff     ShiftType = "OFF"
)

func (t ShiftType) Valid() bool {
	switch t {
	case ShiftDay, ShiftEvening, ShiftNight, ShiftOff:
		return true
	}
	return false
}

// DefaultWorkHours is assumed when a worked entry has no usable times.
const DefaultWorkHours = 8.0

// ShiftSchedule is one calendar day of a user's rota. EndAt may fall on the
// following day for overnight shifts.
type ShiftSchedule struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID         string     `gorm:"column:user_id;type:varchar(64);not null;uniqueIndex:idx_shift_schedule_user_date,priority:1" json:"userId"`
	Date           string     `gorm:"column:date;type:varchar(10);not null;uniqueIndex:idx_shift_schedule_user_date,priority:2;index" json:"date"`
	ShiftType      ShiftType  `gorm:"column:shift_type;type:varchar(16);not null" json:"shiftType"`
	StartAt        *time.Time `gorm:"column:start_at" json:"startAt,omitempty"`
	EndAt          *time.Time `gorm:"column:end_at" json:"endAt,omitempty"`
	CommuteMinutes *int       `gorm:"column:commute_minutes" json:"commuteMinutes,omitempty"`
	Note           string     `gorm:"column:note;type:text" json:"note,omitempty"`
	CreatedAt      time.Time  `gorm:"not null;autoCreateTime" json:"createdAt"`
	UpdatedAt      time.Time  `gorm:"not null;autoUpdateTime" json:"updatedAt"`
}

func (ShiftSchedule) TableName() string { return "shift_schedules" }

func (s *ShiftSchedule) IsOff() bool { return s == nil || s.ShiftType == ShiftOff }

func (s *ShiftSchedule) IsNight() bool { return s != nil && s.ShiftType == ShiftNight }

// Worked reports a non-OFF entry with both times present.
func (s *ShiftSchedule) Worked() bool {
	return s != nil && s.ShiftType != ShiftOff && s.StartAt != nil && s.EndAt != nil
}

// WorkHours is the shift length. Entries stored as clock times that wrap
// midnight come out negative and are shifted by a day.
func (s *ShiftSchedule) WorkHours() float64 {
	if s == nil || s.StartAt == nil || s.EndAt == nil {
		return DefaultWorkHours
	}
	h := s.EndAt.Sub(*s.StartAt).Hours()
	if h < 0 {
		h += 24
	}
	return h
}

func (s *ShiftSchedule) Validate() error {
	if s == nil {
		return fmt.Errorf("schedule is nil")
	}
	if !s.ShiftType.Valid() {
		return fmt.Errorf("invalid shift type %q", s.ShiftType)
	}
	if s.ShiftType == ShiftOff {
		return nil
	}
	if s.StartAt == nil || s.EndAt == nil {
		return fmt.Errorf("%s shift requires startAt and endAt", s.ShiftType)
	}
	if !s.EndAt.After(*s.StartAt) {
		return fmt.Errorf("endAt must be after startAt")
	}
	if s.EndAt.Sub(*s.StartAt) > 24*time.Hour {
		return fmt.Errorf("shift longer than 24h")
	}
	return nil
}
