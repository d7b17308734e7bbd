package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	types "github.com/yungbote/shiftsleep-backend/internal/domain"
)

func TestMetricsCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveEngine(types.EngineFatigueRisk, "ok", 20*time.Millisecond)
	m.ObserveEngine(types.EngineFatigueRisk, "ok", 10*time.Millisecond)
	m.ObserveEngine(types.EngineFatigueRisk, string(types.WhyTimeout), time.Second)
	m.CacheHit(types.EngineShiftToSleep)
	m.CacheMiss(types.EngineShiftToSleep)
	m.CacheMiss(types.EngineShiftToSleep)
	m.CacheError(types.EngineCaffeineCutoff, "get")
	m.ObserveRefresh("schedule", types.RefreshStatusPartial, 9, 1, time.Minute)

	if got := testutil.ToFloat64(m.engineCalls.WithLabelValues("fatigue_risk", "ok")); got != 2 {
		t.Fatalf("engine ok calls: want=2 got=%v", got)
	}
	if got := testutil.ToFloat64(m.engineCalls.WithLabelValues("fatigue_risk", "TIMEOUT")); got != 1 {
		t.Fatalf("engine timeout calls: want=1 got=%v", got)
	}
	if got := testutil.ToFloat64(m.cacheMisses.WithLabelValues("shift_to_sleep")); got != 2 {
		t.Fatalf("cache misses: want=2 got=%v", got)
	}
	if got := testutil.ToFloat64(m.cacheErrors.WithLabelValues("caffeine_cutoff", "get")); got != 1 {
		t.Fatalf("cache errors: want=1 got=%v", got)
	}
	if got := testutil.ToFloat64(m.refreshUsers.WithLabelValues("succeeded")); got != 9 {
		t.Fatalf("refresh users: want=9 got=%v", got)
	}
}

func TestMetricsHandlerExposesSeries(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ObserveAPI("GET", "/api/engines/fatigue-risk", StatusLabel(200), 5*time.Millisecond)
	m.ApiInflightInc()
	m.ApiInflightDec()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status: want=200 got=%d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		`ss_api_requests_total{method="GET",route="/api/engines/fatigue-risk",status="200"} 1`,
		"ss_api_inflight_requests 0",
		"go_goroutines",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("exposition missing %q", want)
		}
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveAPI("GET", "/x", "200", time.Millisecond)
	m.ObserveEngine(types.EngineShiftToSleep, "ok", time.Millisecond)
	m.CacheHit(types.EngineShiftToSleep)
	m.ObserveRefresh("manual", "succeeded", 1, 0, time.Second)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("nil handler: want=503 got=%d", rec.Code)
	}
}

func TestInitDisabled(t *testing.T) {
	t.Setenv("METRICS_ENABLED", "false")
	if m := Init(nil); m != nil {
		t.Fatalf("Init: want=nil when disabled")
	}
}

func TestTracingSettingsFromEnv(t *testing.T) {
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("OTEL_SAMPLER_RATIO", "4")
	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", "a=1, bad ,b=2,c=")
	st := tracingFromEnv()
	if !st.enabled {
		t.Fatalf("enabled: want=true")
	}
	if st.sampleRatio != 1 {
		t.Fatalf("ratio clamp: want=1 got=%v", st.sampleRatio)
	}
	if len(st.headers) != 2 || st.headers["a"] != "1" || st.headers["b"] != "2" {
		t.Fatalf("headers: got=%v", st.headers)
	}
	if clampRatio(-0.5) != 0 {
		t.Fatalf("negative ratio: want=0")
	}
}

func TestTracingNoExporterWithoutEndpoint(t *testing.T) {
	exp, err := tracingSettings{}.exporter(context.Background())
	if err != nil || exp != nil {
		t.Fatalf("exporter: want=nil,nil got=%v,%v", exp, err)
	}
}
