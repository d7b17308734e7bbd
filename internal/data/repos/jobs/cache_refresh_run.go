package jobs

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/shiftsleep-backend/internal/domain"
	"github.com/yungbote/shiftsleep-backend/internal/platform/dbctx"
	"github.com/yungbote/shiftsleep-backend/internal/platform/logger"
)

type CacheRefreshRunRepo interface {
	Create(dbc dbctx.Context, run *types.CacheRefreshRun) error
	ListRecent(dbc dbctx.Context, limit int) ([]*types.CacheRefreshRun, error)
}

type cacheRefreshRunRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCacheRefreshRunRepo(db *gorm.DB, baseLog *logger.Logger) CacheRefreshRunRepo {
	return &cacheRefreshRunRepo{db: db, log: baseLog.With("repo", "CacheRefreshRunRepo")}
}

func (r *cacheRefreshRunRepo) Create(dbc dbctx.Context, run *types.CacheRefreshRun) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if run == nil {
		return nil
	}
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	return t.WithContext(dbc.Ctx).Create(run).Error
}

func (r *cacheRefreshRunRepo) ListRecent(dbc dbctx.Context, limit int) ([]*types.CacheRefreshRun, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if limit <= 0 {
		limit = 20
	}
	out := []*types.CacheRefreshRun{}
	if err := t.WithContext(dbc.Ctx).
		Order("started_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
