package refreshwf

import (
	"strings"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	types "github.com/yungbote/shiftsleep-backend/internal/domain"
)

func Workflow(ctx workflow.Context, in RunInput) (RunSummary, error) {
	if strings.TrimSpace(in.Trigger) == "" {
		in.Trigger = "temporal"
	}
	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Hour,
		HeartbeatTimeout:    time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    30 * time.Second,
			BackoffCoefficient: 2,
			MaximumAttempts:    3,
		},
	})

	var out RunSummary
	if err := workflow.ExecuteActivity(ctx, ActivityRun, in).Get(ctx, &out); err != nil {
		return out, err
	}
	if out.Status != types.RefreshStatusSucceeded {
		workflow.GetLogger(ctx).Warn("Cache refresh finished with failures",
			"status", out.Status, "failed", out.Failed, "users", out.Users)
	}
	return out, nil
}
