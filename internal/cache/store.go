// Package cache memoizes engine results per user, date and parameter set.
//
// The backing store is shared by many readers and writers with no locking
// across keys. Concurrent recomputation of one key is harmless because
// engine output is a pure function of its inputs; the last write wins.
// Hit counts are approximate and may undercount under concurrent hits.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/yungbote/shiftsleep-backend/internal/domain"
)

// DefaultTTL is how long an entry lives without invalidation.
const DefaultTTL = 48 * time.Hour

var ErrClosed = errors.New("cache store closed")

// Meta is the record kept next to each value under the same TTL.
type Meta struct {
	CreatedAt  time.Time         `json:"createdAt"`
	ExpiresAt  time.Time         `json:"expiresAt"`
	HitCount   int64             `json:"hitCount"`
	EngineType domain.EngineType `json:"engineType"`
	UserID     string            `json:"userId"`
}

// Store is the raw key/value backend. Keys are the strings produced by Key.
type Store interface {
	// Get returns the value and bumps the entry's hit count on a hit.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set writes value and its metadata with the same ttl.
	Set(ctx context.Context, key string, value []byte, meta Meta, ttl time.Duration) error
	// Delete removes values and their metadata, returning how many values existed.
	Delete(ctx context.Context, keys ...string) (int, error)
	// UserKeys lists live value keys (never metadata keys) belonging to userID.
	UserKeys(ctx context.Context, userID string) ([]string, error)
	Meta(ctx context.Context, key string) (*Meta, bool, error)
	// CleanupOrphans removes metadata whose value is gone and returns the count.
	CleanupOrphans(ctx context.Context) (int, error)
	Ping(ctx context.Context) error
	Close() error
}
