package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/shiftsleep-backend/internal/data/repos/jobs"
	"github.com/yungbote/shiftsleep-backend/internal/data/repos/schedule"
	"github.com/yungbote/shiftsleep-backend/internal/data/repos/user"
	"github.com/yungbote/shiftsleep-backend/internal/platform/logger"
)

type UserProfileRepo = user.UserProfileRepo
type ShiftScheduleRepo = schedule.ShiftScheduleRepo
type CacheRefreshRunRepo = jobs.CacheRefreshRunRepo

func NewUserProfileRepo(db *gorm.DB, baseLog *logger.Logger) UserProfileRepo {
	return user.NewUserProfileRepo(db, baseLog)
}

func NewShiftScheduleRepo(db *gorm.DB, baseLog *logger.Logger) ShiftScheduleRepo {
	return schedule.NewShiftScheduleRepo(db, baseLog)
}

func NewCacheRefreshRunRepo(db *gorm.DB, baseLog *logger.Logger) CacheRefreshRunRepo {
	return jobs.NewCacheRefreshRunRepo(db, baseLog)
}
