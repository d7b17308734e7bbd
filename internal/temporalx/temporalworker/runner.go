package temporalworker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/activity"
	temporalsdkclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/yungbote/shiftsleep-backend/internal/jobs/cacherefresh"
	"github.com/yungbote/shiftsleep-backend/internal/platform/logger"
	"github.com/yungbote/shiftsleep-backend/internal/temporalx"
	"github.com/yungbote/shiftsleep-backend/internal/temporalx/refreshwf"
)

// Runner hosts the cache refresh workflow and activity on the configured
// task queue and registers the periodic schedule.
type Runner struct {
	log       *logger.Logger
	cfg       temporalx.Config
	tc        temporalsdkclient.Client
	refresher *cacherefresh.Refresher
}

func NewRunner(log *logger.Logger, cfg temporalx.Config, tc temporalsdkclient.Client, refresher *cacherefresh.Refresher) (*Runner, error) {
	if tc == nil {
		return nil, fmt.Errorf("temporal client is not configured")
	}
	if refresher == nil {
		return nil, fmt.Errorf("temporal worker missing deps")
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Runner{
		log:       log.With("component", "TemporalWorker"),
		cfg:       cfg,
		tc:        tc,
		refresher: refresher,
	}, nil
}

// Start polls the task queue until ctx is cancelled. Start failures are
// retried with backoff for up to DialMaxWait.
func (r *Runner) Start(ctx context.Context) error {
	if r == nil || r.tc == nil {
		return fmt.Errorf("temporal worker not initialized")
	}
	r.log.Info("Starting Temporal worker", "address", r.cfg.Address, "namespace", r.cfg.Namespace, "task_queue", r.cfg.TaskQueue)

	deadline := time.Now().Add(r.cfg.DialMaxWait)
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		w := r.newWorker()
		startErr := w.Start()
		if startErr == nil {
			go func() {
				<-ctx.Done()
				w.Stop()
			}()
			r.log.Info("Temporal worker started", "task_queue", r.cfg.TaskQueue, "attempts", attempt)
			if err := refreshwf.EnsureSchedule(ctx, r.tc, r.cfg, r.log); err != nil {
				r.log.Warn("Cache refresh schedule registration failed", "error", err)
			}
			return nil
		}
		w.Stop()

		var nfe *serviceerror.NamespaceNotFound
		missingNS := errors.As(startErr, &nfe)
		if missingNS && r.cfg.AutoRegisterNamespace {
			if err := temporalx.EnsureNamespace(ctx, r.cfg, r.log); err != nil {
				r.log.Warn("Temporal namespace ensure failed", "namespace", r.cfg.Namespace, "error", err)
			}
		}

		if r.cfg.DialMaxWait <= 0 || time.Now().After(deadline) {
			if missingNS {
				return fmt.Errorf("temporal namespace not found (namespace=%s): %w", r.cfg.Namespace, startErr)
			}
			return startErr
		}
		r.log.Warn("Temporal worker failed to start; retrying", "task_queue", r.cfg.TaskQueue, "attempt", attempt, "error", startErr)

		t := time.NewTimer(temporalx.Backoff(r.cfg.DialBackoff, r.cfg.DialBackoffMax, attempt))
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

func (r *Runner) newWorker() worker.Worker {
	concurrency := r.cfg.WorkerConcurrency
	if concurrency < 1 {
		concurrency = 1
	}
	w := worker.New(r.tc, r.cfg.TaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize:     concurrency,
		MaxConcurrentWorkflowTaskExecutionSize: concurrency,
	})
	acts := &refreshwf.Activities{Log: r.log, Refresher: r.refresher}
	w.RegisterWorkflowWithOptions(refreshwf.Workflow, workflow.RegisterOptions{Name: refreshwf.WorkflowName})
	w.RegisterActivityWithOptions(acts.Run, activity.RegisterOptions{Name: refreshwf.ActivityRun})
	return w
}

// TriggerNow starts one refresh workflow immediately, outside the schedule.
func (r *Runner) TriggerNow(ctx context.Context, trigger string) (string, error) {
	run, err := r.tc.ExecuteWorkflow(ctx, temporalsdkclient.StartWorkflowOptions{
		ID:        fmt.Sprintf("%s-%d", refreshwf.WorkflowName, time.Now().UnixNano()),
		TaskQueue: r.cfg.TaskQueue,
	}, refreshwf.WorkflowName, refreshwf.RunInput{Trigger: trigger})
	if err != nil {
		return "", fmt.Errorf("start %s: %w", refreshwf.WorkflowName, err)
	}
	return run.GetRunID(), nil
}
