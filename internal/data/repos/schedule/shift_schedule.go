package schedule

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/shiftsleep-backend/internal/domain"
	"github.com/yungbote/shiftsleep-backend/internal/platform/dbctx"
	"github.com/yungbote/shiftsleep-backend/internal/platform/logger"
)

// ShiftScheduleRepo reads and writes per-day rota entries. Dates are
// YYYY-MM-DD strings, so range filters compare lexically.
type ShiftScheduleRepo interface {
	GetByDate(dbc dbctx.Context, userID, date string) (*types.ShiftSchedule, error)
	ListRange(dbc dbctx.Context, userID, from, to string) ([]*types.ShiftSchedule, error)
	ListUpcoming(dbc dbctx.Context, userID, after string, limit int) ([]*types.ShiftSchedule, error)
	Upsert(dbc dbctx.Context, row *types.ShiftSchedule) (*types.ShiftSchedule, error)
	DeleteByDate(dbc dbctx.Context, userID, date string) (bool, error)
}

type shiftScheduleRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewShiftScheduleRepo(db *gorm.DB, baseLog *logger.Logger) ShiftScheduleRepo {
	return &shiftScheduleRepo{db: db, log: baseLog.With("repo", "ShiftScheduleRepo")}
}

func (r *shiftScheduleRepo) GetByDate(dbc dbctx.Context, userID, date string) (*types.ShiftSchedule, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var rows []*types.ShiftSchedule
	if err := t.WithContext(dbc.Ctx).
		Where("user_id = ? AND date = ?", userID, date).
		Limit(1).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// ListRange returns entries with from <= date <= to, oldest first.
func (r *shiftScheduleRepo) ListRange(dbc dbctx.Context, userID, from, to string) ([]*types.ShiftSchedule, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	out := []*types.ShiftSchedule{}
	if err := t.WithContext(dbc.Ctx).
		Where("user_id = ? AND date >= ? AND date <= ?", userID, from, to).
		Order("date ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ListUpcoming returns up to limit entries strictly after the given date.
func (r *shiftScheduleRepo) ListUpcoming(dbc dbctx.Context, userID, after string, limit int) ([]*types.ShiftSchedule, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if limit <= 0 {
		limit = 7
	}
	out := []*types.ShiftSchedule{}
	if err := t.WithContext(dbc.Ctx).
		Where("user_id = ? AND date > ?", userID, after).
		Order("date ASC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// Upsert replaces the entry for (user_id, date) and returns the stored row.
func (r *shiftScheduleRepo) Upsert(dbc dbctx.Context, row *types.ShiftSchedule) (*types.ShiftSchedule, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	row.UpdatedAt = time.Now().UTC()
	if err := t.WithContext(dbc.Ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"shift_type", "start_at", "end_at", "commute_minutes", "note", "updated_at",
		}),
	}).Create(row).Error; err != nil {
		return nil, err
	}
	return r.GetByDate(dbc, row.UserID, row.Date)
}

func (r *shiftScheduleRepo) DeleteByDate(dbc dbctx.Context, userID, date string) (bool, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	res := t.WithContext(dbc.Ctx).
		Where("user_id = ? AND date = ?", userID, date).
		Delete(&types.ShiftSchedule{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
