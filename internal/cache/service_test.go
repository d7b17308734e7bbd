package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yungbote/shiftsleep-backend/internal/domain"
	"github.com/yungbote/shiftsleep-backend/internal/platform/logger"
)

type payload struct {
	Window string `json:"window"`
}

type countingRecorder struct {
	hits, misses, errs int
}

func (r *countingRecorder) CacheHit(domain.EngineType)           { r.hits++ }
func (r *countingRecorder) CacheMiss(domain.EngineType)          { r.misses++ }
func (r *countingRecorder) CacheError(domain.EngineType, string) { r.errs++ }

// brokenStore fails every call, standing in for an unreachable backend.
type brokenStore struct{ *MemoryStore }

var errDown = errors.New("store down")

func (brokenStore) Get(context.Context, string) ([]byte, bool, error) { return nil, false, errDown }
func (brokenStore) Set(context.Context, string, []byte, Meta, time.Duration) error {
	return errDown
}

func newTestService(t *testing.T, store Store, rec Recorder) *Service {
	t.Helper()
	return NewService(store, logger.Nop(), Options{Enabled: true, TTL: time.Hour, Metrics: rec})
}

func TestServiceSetThenGet(t *testing.T) {
	rec := &countingRecorder{}
	svc := newTestService(t, NewMemoryStore(newFakeClock().Now), rec)
	ctx := context.Background()
	k := Key{Engine: domain.EngineShiftToSleep, UserID: "u1", Date: "2024-01-10", ParamsHash: Params{"a": 1}.Hash()}

	var out payload
	if svc.Get(ctx, k, &out) {
		t.Fatalf("unexpected hit on empty cache")
	}
	svc.Put(ctx, k, payload{Window: "07:00-15:00"})
	if !svc.Get(ctx, k, &out) {
		t.Fatalf("miss after Put")
	}
	if out.Window != "07:00-15:00" {
		t.Fatalf("value: want=07:00-15:00 got=%s", out.Window)
	}
	if rec.hits != 1 || rec.misses != 1 {
		t.Fatalf("recorder: want hits=1 misses=1 got=%+v", rec)
	}
	h, m, ratio := svc.HitRatio()
	if h != 1 || m != 1 || ratio != 0.5 {
		t.Fatalf("HitRatio: got h=%d m=%d r=%v", h, m, ratio)
	}
}

func TestServiceDegradesOnStoreFailure(t *testing.T) {
	rec := &countingRecorder{}
	svc := newTestService(t, &brokenStore{MemoryStore: NewMemoryStore(nil)}, rec)
	ctx := context.Background()
	k := Key{Engine: domain.EngineShiftToSleep, UserID: "u1", Date: "2024-01-10"}
	svc.Put(ctx, k, payload{Window: "x"})
	var out payload
	if svc.Get(ctx, k, &out) {
		t.Fatalf("broken store reported a hit")
	}
	if rec.errs != 2 {
		t.Fatalf("errors recorded: want=2 got=%d", rec.errs)
	}
}

func TestServiceRejectsUnsafeKeys(t *testing.T) {
	store := NewMemoryStore(nil)
	svc := newTestService(t, store, nil)
	ctx := context.Background()
	k := Key{Engine: domain.EngineShiftToSleep, UserID: "u*", Date: "2024-01-10"}
	svc.Put(ctx, k, payload{Window: "x"})
	if keys, _ := store.UserKeys(ctx, "u*"); len(keys) != 0 {
		t.Fatalf("unsafe key written: %v", keys)
	}
}

func TestInvalidateDateRangeAllEnginesOneUser(t *testing.T) {
	svc := newTestService(t, NewMemoryStore(newFakeClock().Now), nil)
	ctx := context.Background()
	dates := []string{"2024-01-09", "2024-01-10", "2024-01-13", "2024-01-17", "2024-01-18"}
	for _, user := range []string{"u1", "u10"} {
		for _, e := range domain.AllEngines {
			for _, d := range dates {
				svc.Put(ctx, Key{Engine: e, UserID: user, Date: d, ParamsHash: "0000aaaa"}, payload{Window: d})
			}
		}
	}
	window := []string{"2024-01-10", "2024-01-11", "2024-01-12", "2024-01-13", "2024-01-14", "2024-01-15", "2024-01-16", "2024-01-17"}
	n, err := svc.Invalidate(ctx, "u1", Filter{Dates: window})
	if err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if n != 9 {
		t.Fatalf("deleted: want=9 got=%d", n)
	}
	var out payload
	for _, e := range domain.AllEngines {
		for _, d := range dates {
			hit := svc.Get(ctx, Key{Engine: e, UserID: "u1", Date: d, ParamsHash: "0000aaaa"}, &out)
			inWindow := d >= "2024-01-10" && d <= "2024-01-17"
			if hit == inWindow {
				t.Fatalf("u1 %s %s: hit=%v inWindow=%v", e, d, hit, inWindow)
			}
			if !svc.Get(ctx, Key{Engine: e, UserID: "u10", Date: d, ParamsHash: "0000aaaa"}, &out) {
				t.Fatalf("u10 %s %s: invalidated by another user's edit", e, d)
			}
		}
	}
}

func TestInvalidateByEngine(t *testing.T) {
	svc := newTestService(t, NewMemoryStore(nil), nil)
	ctx := context.Background()
	for _, e := range domain.AllEngines {
		svc.Put(ctx, Key{Engine: e, UserID: "u1", Date: "2024-01-10"}, payload{})
	}
	n, err := svc.Invalidate(ctx, "u1", Filter{Engines: []domain.EngineType{domain.EngineCaffeineCutoff}})
	if err != nil || n != 1 {
		t.Fatalf("Invalidate engine: want=1 got=%d err=%v", n, err)
	}
	st, err := svc.Stats(ctx, "u1")
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.TotalKeys != 2 || st.ByEngine[domain.EngineCaffeineCutoff].Keys != 0 || st.ByEngine[domain.EngineShiftToSleep].Keys != 1 {
		t.Fatalf("Stats after invalidate: %+v", st)
	}
}

func TestStatsCountsHits(t *testing.T) {
	svc := newTestService(t, NewMemoryStore(nil), nil)
	ctx := context.Background()
	k := Key{Engine: domain.EngineFatigueRisk, UserID: "u1", Date: "2024-01-10"}
	svc.Put(ctx, k, payload{})
	var out payload
	for i := 0; i < 3; i++ {
		svc.Get(ctx, k, &out)
	}
	st, err := svc.Stats(ctx, "u1")
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.TotalHits != 3 || st.ByEngine[domain.EngineFatigueRisk].Hits != 3 {
		t.Fatalf("Stats hits: %+v", st)
	}
	if st.TTLSeconds != 3600 {
		t.Fatalf("TTLSeconds: want=3600 got=%d", st.TTLSeconds)
	}
}

func TestDisabledServiceIsNoop(t *testing.T) {
	store := NewMemoryStore(nil)
	svc := NewService(store, logger.Nop(), Options{Enabled: false})
	ctx := context.Background()
	k := Key{Engine: domain.EngineFatigueRisk, UserID: "u1", Date: "2024-01-10"}
	svc.Put(ctx, k, payload{})
	var out payload
	if svc.Get(ctx, k, &out) {
		t.Fatalf("disabled cache returned a hit")
	}
	if svc.TTL() != DefaultTTL {
		t.Fatalf("default TTL: want=%v got=%v", DefaultTTL, svc.TTL())
	}
}
