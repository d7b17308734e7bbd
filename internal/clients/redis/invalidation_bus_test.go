package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/yungbote/shiftsleep-backend/internal/platform/logger"
)

func TestNewClientRequiresAddr(t *testing.T) {
	if _, err := NewClient(context.Background(), Config{}, nil); err == nil {
		t.Fatalf("want error without an address")
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("REDIS_ADDR", "localhost:6380")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("REDIS_POOL_SIZE", "")
	cfg := ConfigFromEnv()
	if cfg.Addr != "localhost:6380" || cfg.DB != 3 || cfg.PoolSize != 10 {
		t.Fatalf("config: got=%+v", cfg)
	}
}

func TestInvalidationBusRoundTrip(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	rdb, err := NewClient(ctx, Config{Addr: addr, DB: 15}, logger.Nop())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer rdb.Close()

	bus, err := NewInvalidationBus(rdb, "shiftsleep:test:invalidate", logger.Nop())
	if err != nil {
		t.Fatalf("NewInvalidationBus: %v", err)
	}
	got := make(chan Invalidation, 1)
	if err := bus.StartForwarder(ctx, func(m Invalidation) { got <- m }); err != nil {
		t.Fatalf("StartForwarder: %v", err)
	}
	want := Invalidation{Origin: "node-a", UserID: "u1", Dates: []string{"2024-01-10", "2024-01-11"}, Engines: []string{"fatigue_risk"}}
	if err := bus.Publish(ctx, want); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	select {
	case m := <-got:
		if m.UserID != want.UserID || m.Origin != want.Origin || len(m.Dates) != 2 || len(m.Engines) != 1 || m.Engines[0] != "fatigue_risk" {
			t.Fatalf("message: want=%+v got=%+v", want, m)
		}
	case <-ctx.Done():
		t.Fatalf("no message received")
	}
}
