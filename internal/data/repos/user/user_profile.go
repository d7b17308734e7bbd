package user

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/shiftsleep-backend/internal/domain"
	"github.com/yungbote/shiftsleep-backend/internal/platform/dbctx"
	"github.com/yungbote/shiftsleep-backend/internal/platform/logger"
)

type UserProfileRepo interface {
	GetByUserID(dbc dbctx.Context, userID string) (*types.UserProfile, error)
	Upsert(dbc dbctx.Context, row *types.UserProfile) error
	TouchActivity(dbc dbctx.Context, userID string, at time.Time) error
	ListActiveUserIDs(dbc dbctx.Context, since time.Time, limit int) ([]string, error)
}

type userProfileRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserProfileRepo(db *gorm.DB, baseLog *logger.Logger) UserProfileRepo {
	return &userProfileRepo{db: db, log: baseLog.With("repo", "UserProfileRepo")}
}

func (r *userProfileRepo) GetByUserID(dbc dbctx.Context, userID string) (*types.UserProfile, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if userID == "" {
		return nil, nil
	}
	var rows []*types.UserProfile
	if err := t.WithContext(dbc.Ctx).
		Where("user_id = ?", userID).
		Limit(1).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *userProfileRepo) Upsert(dbc dbctx.Context, row *types.UserProfile) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if row == nil || row.UserID == "" {
		return nil
	}
	return t.WithContext(dbc.Ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"shift_type", "commute_minutes", "wearable_connected", "updated_at"}),
	}).Create(row).Error
}

// TouchActivity stamps last_active_at. Users without a profile row are ignored.
func (r *userProfileRepo) TouchActivity(dbc dbctx.Context, userID string, at time.Time) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if userID == "" {
		return nil
	}
	return t.WithContext(dbc.Ctx).
		Model(&types.UserProfile{}).
		Where("user_id = ?", userID).
		UpdateColumn("last_active_at", at.UTC().Truncate(time.Second)).Error
}

// ListActiveUserIDs returns users seen at or after since, most recent first.
func (r *userProfileRepo) ListActiveUserIDs(dbc dbctx.Context, since time.Time, limit int) ([]string, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	q := t.WithContext(dbc.Ctx).
		Model(&types.UserProfile{}).
		Where("last_active_at IS NOT NULL AND last_active_at >= ?", since.UTC().Truncate(time.Second)).
		Order("last_active_at DESC").
		Order("user_id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []string
	if err := q.Pluck("user_id", &out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
