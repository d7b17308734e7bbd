package services

import (
	"context"
	"sync"
	"time"

	"github.com/yungbote/shiftsleep-backend/internal/platform/dbctx"
	"github.com/yungbote/shiftsleep-backend/internal/platform/logger"
	"github.com/yungbote/shiftsleep-backend/internal/platform/timeutil"
)

type ActivityStore interface {
	TouchActivity(dbc dbctx.Context, userID string, at time.Time) error
}

// ActivityService keeps user_profiles.last_active_at fresh enough for the
// refresher's active-user window without a write per request.
type ActivityService interface {
	Touch(ctx context.Context, userID string)
}

type activityService struct {
	log      *logger.Logger
	store    ActivityStore
	clock    timeutil.Clock
	interval time.Duration

	mu   sync.Mutex
	seen map[string]time.Time
}

const maxTrackedUsers = 50000

func NewActivityService(log *logger.Logger, store ActivityStore, interval time.Duration, clock timeutil.Clock) ActivityService {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if clock == nil {
		clock = timeutil.SystemClock
	}
	return &activityService{
		log:      log.With("service", "ActivityService"),
		store:    store,
		clock:    clock,
		interval: interval,
		seen:     map[string]time.Time{},
	}
}

func (s *activityService) Touch(ctx context.Context, userID string) {
	if userID == "" || s.store == nil {
		return
	}
	now := s.clock()
	if !s.claim(userID, now) {
		return
	}
	if err := s.store.TouchActivity(dbctx.From(ctx), userID, now); err != nil {
		s.log.Warn("activity touch failed", "user_id", userID, "error", err)
		s.mu.Lock()
		delete(s.seen, userID)
		s.mu.Unlock()
	}
}

func (s *activityService) claim(userID string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if last, ok := s.seen[userID]; ok && now.Sub(last) < s.interval {
		return false
	}
	if len(s.seen) >= maxTrackedUsers {
		for id, last := range s.seen {
			if now.Sub(last) >= s.interval {
				delete(s.seen, id)
			}
		}
	}
	s.seen[userID] = now
	return true
}
