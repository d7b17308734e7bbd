package jobs

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// CacheRefreshRun records one batch cache refresh. Failures holds the
// per-user error list as JSON.
type CacheRefreshRun struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Trigger     string         `gorm:"column:triggered_by;type:varchar(32);not null;index" json:"trigger"`
	Status      string         `gorm:"column:status;type:varchar(16);not null;index" json:"status"`
	TargetDates string         `gorm:"column:target_dates;type:text" json:"targetDates"`
	Users       int            `gorm:"column:users;not null;default:0" json:"users"`
	Succeeded   int            `gorm:"column:succeeded;not null;default:0" json:"succeeded"`
	Failed      int            `gorm:"column:failed;not null;default:0" json:"failed"`
	Failures    datatypes.JSON `gorm:"column:failures" json:"failures"`
	StartedAt   time.Time      `gorm:"column:started_at;not null;index" json:"startedAt"`
	FinishedAt  *time.Time     `gorm:"column:finished_at" json:"finishedAt,omitempty"`
}

func (CacheRefreshRun) TableName() string { return "cache_refresh_runs" }

const (
	RefreshStatusSucceeded = "succeeded"
	RefreshStatusPartial   = "partial"
	RefreshStatusFailed    = "failed"
)
