package cacherefresh

import (
	"context"
	"sync"
	"time"

	"github.com/yungbote/shiftsleep-backend/internal/platform/logger"
)

// Scheduler runs the refresher on a fixed interval inside this process. It
// is used when no Temporal cluster is configured.
type Scheduler struct {
	refresher  *Refresher
	interval   time.Duration
	runOnStart bool
	log        *logger.Logger

	mu      sync.Mutex
	running bool
	done    chan struct{}
}

func NewScheduler(r *Refresher, baseLog *logger.Logger, runOnStart bool) *Scheduler {
	if baseLog == nil {
		baseLog = logger.Nop()
	}
	return &Scheduler{
		refresher:  r,
		interval:   r.Config().Interval,
		runOnStart: runOnStart,
		log:        baseLog.With("component", "CacheRefreshScheduler"),
	}
}

// Start launches the loop. It stops when ctx is cancelled; Wait blocks
// until it has.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.done = make(chan struct{})
	s.log.Info("Starting cache refresh scheduler", "interval", s.interval.String())
	go s.loop(ctx, s.done)
}

func (s *Scheduler) Wait() {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	if s.runOnStart {
		s.tick(ctx)
	}
	for {
		select {
		case <-ctx.Done():
			s.log.Info("Cache refresh scheduler stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("Cache refresh panic", "panic", r)
		}
	}()
	if _, err := s.refresher.Run(ctx, TriggerSchedule); err != nil {
		s.log.Warn("Scheduled cache refresh failed", "error", err)
	}
}
