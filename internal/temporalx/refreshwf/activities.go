package refreshwf

import (
	"context"
	"fmt"
	"time"

	"go.temporal.io/sdk/activity"

	"github.com/yungbote/shiftsleep-backend/internal/jobs/cacherefresh"
	"github.com/yungbote/shiftsleep-backend/internal/platform/logger"
)

type Activities struct {
	Log       *logger.Logger
	Refresher *cacherefresh.Refresher
}

func (a *Activities) Run(ctx context.Context, in RunInput) (RunSummary, error) {
	if a == nil || a.Refresher == nil {
		return RunSummary{}, fmt.Errorf("refreshwf: activity not configured")
	}
	stopHB := startHeartbeat(ctx, 10*time.Second)
	defer stopHB()

	trigger := in.Trigger
	if trigger == "" {
		trigger = cacherefresh.TriggerTemporal
	}
	rep, err := a.Refresher.Run(ctx, trigger)
	if err != nil {
		if a.Log != nil {
			a.Log.Warn("Cache refresh activity failed", "attempt", activity.GetInfo(ctx).Attempt, "error", err)
		}
		return RunSummary{}, err
	}
	return RunSummary{
		RunID:          rep.RunID,
		Status:         rep.Status,
		Users:          rep.Users,
		Succeeded:      rep.Succeeded,
		Failed:         rep.Failed,
		OrphansRemoved: rep.OrphansRemoved,
		TargetDates:    rep.TargetDates,
		FinishedAt:     rep.FinishedAt,
	}, nil
}

func startHeartbeat(ctx context.Context, every time.Duration) func() {
	done := make(chan struct{})
	go func() {
		t := time.NewTicker(every)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-t.C:
				activity.RecordHeartbeat(ctx)
			}
		}
	}()
	return func() { close(done) }
}
