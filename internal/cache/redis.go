package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/shiftsleep-backend/internal/domain"
	"github.com/yungbote/shiftsleep-backend/internal/platform/logger"
	"github.com/yungbote/shiftsleep-backend/internal/platform/timeutil"
)

const scanBatch = 200

// RedisStore keeps each value under SETEX and its metadata in a hash at
// <key>:meta with the same TTL. Writes are pipelined, not transactional.
type RedisStore struct {
	rdb goredis.UniversalClient
	now timeutil.Clock
	log *logger.Logger
}

func NewRedisStore(rdb goredis.UniversalClient, clock timeutil.Clock, log *logger.Logger) *RedisStore {
	if clock == nil {
		clock = timeutil.SystemClock
	}
	if log == nil {
		log = logger.Nop()
	}
	return &RedisStore{rdb: rdb, now: clock, log: log.With("component", "RedisStore")}
}

// bumpHits increments hit_count only while the meta hash exists, so a hit
// racing with expiry never recreates the hash without a TTL.
var bumpHits = goredis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
	return redis.call("HINCRBY", KEYS[1], "hit_count", 1)
end
return 0`)

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	raw, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	if err := bumpHits.Run(ctx, s.rdb, []string{key + metaSuffix}).Err(); err != nil {
		s.log.Warn("cache hit count update failed", "error", err)
	}
	return raw, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, meta Meta, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := s.now()
	metaKey := key + metaSuffix
	_, err := s.rdb.Pipelined(ctx, func(p goredis.Pipeliner) error {
		p.Set(ctx, key, value, ttl)
		p.Del(ctx, metaKey)
		p.HSet(ctx, metaKey,
			"created_at", timeutil.FormatISO(now),
			"expires_at", timeutil.FormatISO(now.Add(ttl)),
			"hit_count", 0,
			"engine_type", string(meta.EngineType),
			"user_id", meta.UserID,
		)
		p.Expire(ctx, metaKey, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, keys ...string) (int, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	all := make([]string, 0, len(keys)*2)
	for _, k := range keys {
		all = append(all, k, k+metaSuffix)
	}
	var counts []*goredis.IntCmd
	_, err := s.rdb.Pipelined(ctx, func(p goredis.Pipeliner) error {
		for _, k := range keys {
			counts = append(counts, p.Exists(ctx, k))
		}
		p.Del(ctx, all...)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("redis delete: %w", err)
	}
	n := 0
	for _, c := range counts {
		n += int(c.Val())
	}
	return n, nil
}

// UserKeys scans engine#*:user#<id>* and keeps only keys that parse back to
// exactly userID, so "u1" never picks up "u10".
func (s *RedisStore) UserKeys(ctx context.Context, userID string) ([]string, error) {
	if err := ValidateUserID(userID); err != nil {
		return nil, err
	}
	pattern := segEngine + "*:" + segUser + userID + "*"
	var out []string
	err := s.scan(ctx, pattern, func(k string) {
		if IsMetaKey(k) {
			return
		}
		parsed, err := ParseKey(k)
		if err != nil || parsed.UserID != userID {
			return
		}
		out = append(out, k)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *RedisStore) Meta(ctx context.Context, key string) (*Meta, bool, error) {
	fields, err := s.rdb.HGetAll(ctx, key+metaSuffix).Result()
	if err != nil {
		return nil, false, fmt.Errorf("redis meta: %w", err)
	}
	if len(fields) == 0 {
		return nil, false, nil
	}
	m := &Meta{
		EngineType: domain.EngineType(fields["engine_type"]),
		UserID:     fields["user_id"],
	}
	if v, err := time.Parse(time.RFC3339, fields["created_at"]); err == nil {
		m.CreatedAt = v
	}
	if v, err := time.Parse(time.RFC3339, fields["expires_at"]); err == nil {
		m.ExpiresAt = v
	}
	if v, err := strconv.ParseInt(fields["hit_count"], 10, 64); err == nil {
		m.HitCount = v
	}
	return m, true, nil
}

func (s *RedisStore) CleanupOrphans(ctx context.Context) (int, error) {
	var metas []string
	if err := s.scan(ctx, segEngine+"*"+metaSuffix, func(k string) { metas = append(metas, k) }); err != nil {
		return 0, err
	}
	removed := 0
	for start := 0; start < len(metas); start += scanBatch {
		end := start + scanBatch
		if end > len(metas) {
			end = len(metas)
		}
		chunk := metas[start:end]
		exists := make([]*goredis.IntCmd, len(chunk))
		if _, err := s.rdb.Pipelined(ctx, func(p goredis.Pipeliner) error {
			for i, mk := range chunk {
				exists[i] = p.Exists(ctx, strings.TrimSuffix(mk, metaSuffix))
			}
			return nil
		}); err != nil {
			return removed, fmt.Errorf("redis cleanup: %w", err)
		}
		var orphans []string
		for i, c := range exists {
			if c.Val() == 0 {
				orphans = append(orphans, chunk[i])
			}
		}
		if len(orphans) == 0 {
			continue
		}
		n, err := s.rdb.Del(ctx, orphans...).Result()
		if err != nil {
			return removed, fmt.Errorf("redis cleanup: %w", err)
		}
		removed += int(n)
	}
	return removed, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *RedisStore) Close() error { return s.rdb.Close() }

// scan visits each key matching pattern once; SCAN itself may repeat keys.
func (s *RedisStore) scan(ctx context.Context, pattern string, fn func(string)) error {
	seen := map[string]struct{}{}
	var cursor uint64
	for {
		keys, next, err := s.rdb.Scan(ctx, cursor, pattern, scanBatch).Result()
		if err != nil {
			return fmt.Errorf("redis scan: %w", err)
		}
		for _, k := range keys {
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			fn(k)
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}
