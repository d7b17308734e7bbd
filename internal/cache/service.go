package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/yungbote/shiftsleep-backend/internal/domain"
	"github.com/yungbote/shiftsleep-backend/internal/platform/logger"
	"github.com/yungbote/shiftsleep-backend/internal/platform/timeutil"
)

// Recorder receives cache outcomes for metrics. A nil Recorder is allowed.
type Recorder interface {
	CacheHit(engine domain.EngineType)
	CacheMiss(engine domain.EngineType)
	CacheError(engine domain.EngineType, op string)
}

type Options struct {
	TTL     time.Duration
	Enabled bool
	Clock   timeutil.Clock
	Metrics Recorder
}

// Service is the typed face of a Store. Store failures are logged and
// degrade to a miss on read and a no-op on write.
type Service struct {
	store   Store
	log     *logger.Logger
	ttl     time.Duration
	enabled bool
	now     timeutil.Clock
	metrics Recorder

	hits   atomic.Int64
	misses atomic.Int64
}

func NewService(store Store, baseLog *logger.Logger, opts Options) *Service {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Clock == nil {
		opts.Clock = timeutil.SystemClock
	}
	return &Service{
		store:   store,
		log:     baseLog.With("service", "EngineCache"),
		ttl:     opts.TTL,
		enabled: opts.Enabled && store != nil,
		now:     opts.Clock,
		metrics: opts.Metrics,
	}
}

func (s *Service) Enabled() bool { return s != nil && s.enabled }

func (s *Service) TTL() time.Duration { return s.ttl }

// Get decodes the cached value for key into dst and reports a hit.
func (s *Service) Get(ctx context.Context, key Key, dst any) bool {
	if !s.Enabled() {
		return false
	}
	if err := key.Validate(); err != nil {
		s.log.Warn("cache key rejected", "error", err)
		return false
	}
	raw, ok, err := s.store.Get(ctx, key.String())
	if err != nil {
		s.recordError(key.Engine, "get")
		s.log.Warn("cache read failed; treating as miss", "engine", key.Engine, "error", err)
		return false
	}
	if !ok {
		s.misses.Add(1)
		if s.metrics != nil {
			s.metrics.CacheMiss(key.Engine)
		}
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		s.recordError(key.Engine, "decode")
		s.log.Warn("cache entry undecodable; treating as miss", "engine", key.Engine, "error", err)
		return false
	}
	s.hits.Add(1)
	if s.metrics != nil {
		s.metrics.CacheHit(key.Engine)
	}
	return true
}

// Put stores value under key with the service TTL.
func (s *Service) Put(ctx context.Context, key Key, value any) {
	if !s.Enabled() {
		return
	}
	if err := key.Validate(); err != nil {
		s.log.Warn("cache key rejected", "error", err)
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		s.recordError(key.Engine, "encode")
		s.log.Warn("cache encode failed", "engine", key.Engine, "error", err)
		return
	}
	meta := Meta{EngineType: key.Engine, UserID: key.UserID}
	if err := s.store.Set(ctx, key.String(), raw, meta, s.ttl); err != nil {
		s.recordError(key.Engine, "set")
		s.log.Warn("cache write failed; continuing without cache", "engine", key.Engine, "error", err)
	}
}

// Filter narrows an invalidation. Empty fields match everything.
type Filter struct {
	Engines []domain.EngineType
	Dates   []string
}

func (f Filter) matches(k Key) bool {
	if len(f.Engines) > 0 {
		found := false
		for _, e := range f.Engines {
			if e == k.Engine {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if len(f.Dates) > 0 {
		found := false
		for _, d := range f.Dates {
			if d == k.Date {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Invalidate removes the user's entries matching f and returns how many
// values were deleted.
func (s *Service) Invalidate(ctx context.Context, userID string, f Filter) (int, error) {
	if s == nil || s.store == nil {
		return 0, nil
	}
	keys, err := s.store.UserKeys(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("list cache keys: %w", err)
	}
	var victims []string
	for _, raw := range keys {
		k, err := ParseKey(raw)
		if err != nil || k.UserID != userID {
			continue
		}
		if f.matches(k) {
			victims = append(victims, raw)
		}
	}
	if len(victims) == 0 {
		return 0, nil
	}
	n, err := s.store.Delete(ctx, victims...)
	if err != nil {
		return 0, fmt.Errorf("delete cache keys: %w", err)
	}
	s.log.Info("cache invalidated", "user_id", userID, "deleted", n, "dates", f.Dates)
	return n, nil
}

type EngineStats struct {
	Keys int   `json:"keys"`
	Hits int64 `json:"hits"`
}

type Stats struct {
	UserID      string                            `json:"userId"`
	TotalKeys   int                               `json:"totalKeys"`
	TotalHits   int64                             `json:"totalHits"`
	ByEngine    map[domain.EngineType]EngineStats `json:"byEngine"`
	ProcessHits int64                             `json:"processHits"`
	ProcessMiss int64                             `json:"processMisses"`
	HitRatio    float64                           `json:"hitRatio"`
	TTLSeconds  int64                             `json:"ttlSeconds"`
	Enabled     bool                              `json:"enabled"`
	GeneratedAt string                            `json:"generatedAt"`
}

// Stats summarizes the user's entries. Hit counts are approximate.
func (s *Service) Stats(ctx context.Context, userID string) (Stats, error) {
	st := Stats{
		UserID:      userID,
		ByEngine:    map[domain.EngineType]EngineStats{},
		TTLSeconds:  int64(s.ttl / time.Second),
		Enabled:     s.Enabled(),
		GeneratedAt: timeutil.FormatISO(s.now()),
	}
	for _, e := range domain.AllEngines {
		st.ByEngine[e] = EngineStats{}
	}
	st.ProcessHits, st.ProcessMiss, st.HitRatio = s.HitRatio()
	if s.store == nil {
		return st, nil
	}
	keys, err := s.store.UserKeys(ctx, userID)
	if err != nil {
		return st, fmt.Errorf("list cache keys: %w", err)
	}
	for _, raw := range keys {
		k, err := ParseKey(raw)
		if err != nil {
			continue
		}
		es := st.ByEngine[k.Engine]
		es.Keys++
		if m, ok, err := s.store.Meta(ctx, raw); err == nil && ok {
			es.Hits += m.HitCount
			st.TotalHits += m.HitCount
		}
		st.ByEngine[k.Engine] = es
		st.TotalKeys++
	}
	return st, nil
}

// HitRatio reports this process's hits, misses and hits/(hits+misses).
func (s *Service) HitRatio() (int64, int64, float64) {
	h, m := s.hits.Load(), s.misses.Load()
	if h+m == 0 {
		return h, m, 0
	}
	return h, m, timeutil.Round2(float64(h) / float64(h+m))
}

func (s *Service) Cleanup(ctx context.Context) (int, error) {
	if s == nil || s.store == nil {
		return 0, nil
	}
	n, err := s.store.CleanupOrphans(ctx)
	if err != nil {
		return n, err
	}
	if n > 0 {
		s.log.Info("cache orphan metadata removed", "count", n)
	}
	return n, nil
}

func (s *Service) Ping(ctx context.Context) error {
	if s == nil || s.store == nil {
		return fmt.Errorf("cache store not configured")
	}
	return s.store.Ping(ctx)
}

func (s *Service) recordError(engine domain.EngineType, op string) {
	if s.metrics != nil {
		s.metrics.CacheError(engine, op)
	}
}
