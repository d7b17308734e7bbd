package engines

import (
	"context"
	"testing"

	types "github.com/yungbote/shiftsleep-backend/internal/domain"
)

func TestRegistryOrdersAndRejectsDuplicates(t *testing.T) {
	f := newFixture(t)
	reg, err := NewRegistry(NewFatigueEngine(f.deps), NewSleepEngine(f.deps), NewCaffeineEngine(f.deps))
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	got := reg.Types()
	for i, want := range types.AllEngines {
		if got[i] != want {
			t.Fatalf("Types()[%d]: want=%s got=%s", i, want, got[i])
		}
	}
	if err := reg.Register(NewSleepEngine(f.deps)); err == nil {
		t.Fatalf("duplicate registration accepted")
	}
	if _, ok := reg.Get(types.EngineCaffeineCutoff); !ok {
		t.Fatalf("Get(caffeine_cutoff): missing")
	}
}

func TestWarmBypassesAndFillsCache(t *testing.T) {
	f := newFixture(t)
	f.profile("u1", types.ShiftPatternFixedNight, 30)
	f.shift("u1", "2024-01-10", types.ShiftNight, 22, 8)
	e := NewSleepEngine(f.deps)

	ok, why := e.Warm(context.Background(), "u1", "2024-01-10")
	if !ok || why != "" {
		t.Fatalf("Warm: ok=%v why=%s", ok, why)
	}
	resp := e.Calculate(context.Background(), SleepRequest{UserID: "u1", TargetDate: "2024-01-10"})
	if !resp.Cached {
		t.Fatalf("warmed entry not served from cache")
	}
	if ok, why := e.Warm(context.Background(), "ghost", "2024-01-10"); ok || why != types.WhyInsufficientData {
		t.Fatalf("Warm(ghost): ok=%v why=%s", ok, why)
	}
}
