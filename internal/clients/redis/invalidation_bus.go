package redis

import (
	"context"
	"encoding/json"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/shiftsleep-backend/internal/platform/logger"
)

// Invalidation tells other processes to drop a user's cached results for
// the listed dates, limited to Engines when set. Origin lets a process skip
// its own messages.
type Invalidation struct {
	Origin  string   `json:"origin"`
	UserID  string   `json:"userId"`
	Dates   []string `json:"dates"`
	Engines []string `json:"engines,omitempty"`
}

type InvalidationBus interface {
	Publish(ctx context.Context, msg Invalidation) error
	StartForwarder(ctx context.Context, onMsg func(m Invalidation)) error
}

type invalidationBus struct {
	log     *logger.Logger
	rdb     goredis.UniversalClient
	channel string
}

// NewInvalidationBus shares rdb with the caller, who remains responsible
// for closing it.
func NewInvalidationBus(rdb goredis.UniversalClient, channel string, log *logger.Logger) (InvalidationBus, error) {
	if rdb == nil {
		return nil, fmt.Errorf("redis client required")
	}
	if log == nil {
		log = logger.Nop()
	}
	if channel == "" {
		channel = "shiftsleep:invalidate"
	}
	return &invalidationBus{
		log:     log.With("service", "RedisInvalidationBus"),
		rdb:     rdb,
		channel: channel,
	}, nil
}

func (b *invalidationBus) Publish(ctx context.Context, msg Invalidation) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel, raw).Err()
}

func (b *invalidationBus) StartForwarder(ctx context.Context, onMsg func(m Invalidation)) error {
	if onMsg == nil {
		return fmt.Errorf("onMsg callback required")
	}

	sub := b.rdb.Subscribe(ctx, b.channel)
	// Receive blocks until the subscription is confirmed.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					return
				}
				var msg Invalidation
				if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
					b.log.Warn("bad invalidation payload", "error", err)
					continue
				}
				onMsg(msg)
			}
		}
	}()
	return nil
}
