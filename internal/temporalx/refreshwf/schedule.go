package refreshwf

import (
	"context"
	"errors"
	"fmt"
	"time"

	enumspb "go.temporal.io/api/enums/v1"
	temporalsdkclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"

	"github.com/yungbote/shiftsleep-backend/internal/platform/logger"
	"github.com/yungbote/shiftsleep-backend/internal/temporalx"
)

const defaultInterval = 6 * time.Hour

// EnsureSchedule registers the periodic cache refresh. An existing schedule
// with the same ID is left as is.
func EnsureSchedule(ctx context.Context, c temporalsdkclient.Client, cfg temporalx.Config, log *logger.Logger) error {
	if c == nil || cfg.RefreshScheduleID == "" {
		return nil
	}
	_, err := c.ScheduleClient().Create(ctx, scheduleOptions(cfg))
	if errors.Is(err, temporal.ErrScheduleAlreadyRunning) {
		if log != nil {
			log.Debug("Cache refresh schedule already registered", "schedule_id", cfg.RefreshScheduleID)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("create schedule %s: %w", cfg.RefreshScheduleID, err)
	}
	if log != nil {
		log.Info("Registered cache refresh schedule", "schedule_id", cfg.RefreshScheduleID, "every", intervalOf(cfg).String())
	}
	return nil
}

func scheduleOptions(cfg temporalx.Config) temporalsdkclient.ScheduleOptions {
	return temporalsdkclient.ScheduleOptions{
		ID: cfg.RefreshScheduleID,
		Spec: temporalsdkclient.ScheduleSpec{
			Intervals: []temporalsdkclient.ScheduleIntervalSpec{{Every: intervalOf(cfg)}},
		},
		Action: &temporalsdkclient.ScheduleWorkflowAction{
			ID:        cfg.RefreshScheduleID + "-run",
			Workflow:  WorkflowName,
			Args:      []interface{}{RunInput{Trigger: "temporal"}},
			TaskQueue: cfg.TaskQueue,
		},
		Overlap: enumspb.SCHEDULE_OVERLAP_POLICY_SKIP,
	}
}

func intervalOf(cfg temporalx.Config) time.Duration {
	if cfg.RefreshInterval <= 0 {
		return defaultInterval
	}
	return cfg.RefreshInterval
}
