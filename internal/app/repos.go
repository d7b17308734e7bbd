package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/shiftsleep-backend/internal/data/repos"
	"github.com/yungbote/shiftsleep-backend/internal/platform/logger"
)

type Repos struct {
	Profiles    repos.UserProfileRepo
	Schedules   repos.ShiftScheduleRepo
	RefreshRuns repos.CacheRefreshRunRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Profiles:    repos.NewUserProfileRepo(db, log),
		Schedules:   repos.NewShiftScheduleRepo(db, log),
		RefreshRuns: repos.NewCacheRefreshRunRepo(db, log),
	}
}
