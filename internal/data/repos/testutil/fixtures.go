package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/shiftsleep-backend/internal/domain"
)

func SeedProfile(tb testing.TB, ctx context.Context, tx *gorm.DB, userID string, pattern types.ShiftPattern, commute *int) *types.UserProfile {
	tb.Helper()
	p := &types.UserProfile{
		UserID:         userID,
		ShiftType:      pattern,
		CommuteMinutes: commute,
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed profile: %v", err)
	}
	return p
}

func SeedShift(tb testing.TB, ctx context.Context, tx *gorm.DB, userID, date string, shiftType types.ShiftType, start, end *time.Time) *types.ShiftSchedule {
	tb.Helper()
	s := &types.ShiftSchedule{
		ID:        uuid.New(),
		UserID:    userID,
		Date:      date,
		ShiftType: shiftType,
		StartAt:   start,
		EndAt:     end,
	}
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed shift: %v", err)
	}
	return s
}

func PtrInt(v int) *int { return &v }

func PtrTime(v time.Time) *time.Time { return &v }
