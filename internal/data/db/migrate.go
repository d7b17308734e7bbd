package db

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/yungbote/shiftsleep-backend/internal/domain"
)

// Models lists every table the service owns.
func Models() []any {
	return []any{
		&types.UserProfile{},
		&types.ShiftSchedule{},
		&types.CacheRefreshRun{},
	}
}

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
