package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/shiftsleep-backend/internal/cache"
	types "github.com/yungbote/shiftsleep-backend/internal/domain"
	"github.com/yungbote/shiftsleep-backend/internal/engines"
	httpH "github.com/yungbote/shiftsleep-backend/internal/http/handlers"
	httpMW "github.com/yungbote/shiftsleep-backend/internal/http/middleware"
	"github.com/yungbote/shiftsleep-backend/internal/jobs/cacherefresh"
	"github.com/yungbote/shiftsleep-backend/internal/platform/ctxutil"
	"github.com/yungbote/shiftsleep-backend/internal/platform/dbctx"
	"github.com/yungbote/shiftsleep-backend/internal/platform/logger"
	"github.com/yungbote/shiftsleep-backend/internal/platform/timeutil"
	"github.com/yungbote/shiftsleep-backend/internal/services"
)

const testSecret = "test-secret"

var testNow = time.Date(2024, 1, 10, 9, 0, 0, 0, timeutil.KST)

func testClock() time.Time { return testNow }

type fakeSleep struct {
	mu   sync.Mutex
	last engines.SleepRequest
}

func (f *fakeSleep) Calculate(ctx context.Context, req engines.SleepRequest) types.EngineResponse[engines.SleepResult] {
	f.mu.Lock()
	f.last = req
	f.mu.Unlock()
	_, corr := ctxutil.EnsureCorrelationID(ctx, testNow)
	return types.NewResponse(types.Ok(engines.SleepResult{
		SleepMain: engines.SleepWindow{StartAt: "2024-01-11T07:00:00+09:00", EndAt: "2024-01-11T15:00:00+09:00", DurationHours: 8},
	}), testNow, corr)
}

type fakeCaffeine struct{}

func (fakeCaffeine) Calculate(ctx context.Context, req engines.CaffeineRequest) types.EngineResponse[engines.CaffeineResult] {
	return types.NewResponse(types.Missing[engines.CaffeineResult](types.MissingTargetSleepTime), testNow, ctxutil.CorrelationID(ctx))
}

type fakeFatigue struct{}

func (fakeFatigue) Calculate(ctx context.Context, req engines.FatigueRequest) types.EngineResponse[engines.FatigueResult] {
	return types.NewResponse(types.Ok(engines.FatigueResult{FatigueScore: 40, FatigueLevel: engines.LevelFor(40)}), testNow, ctxutil.CorrelationID(ctx))
}

type memSchedules struct {
	mu   sync.Mutex
	rows map[string]*types.ShiftSchedule
}

func (m *memSchedules) GetByDate(dbc dbctx.Context, userID, date string) (*types.ShiftSchedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rows[userID+"@"+date], nil
}

func (m *memSchedules) ListRange(dbc dbctx.Context, userID, from, to string) ([]*types.ShiftSchedule, error) {
	return nil, nil
}

func (m *memSchedules) Upsert(dbc dbctx.Context, row *types.ShiftSchedule) (*types.ShiftSchedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[row.UserID+"@"+row.Date] = row
	return row, nil
}

func (m *memSchedules) DeleteByDate(dbc dbctx.Context, userID, date string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.rows[userID+"@"+date]
	delete(m.rows, userID+"@"+date)
	return ok, nil
}

type cachePropagator struct {
	cache *cache.Service
}

func (p cachePropagator) PropagateScheduleChange(ctx context.Context, userID, date string) (int, error) {
	end, err := timeutil.AddDays(date, 7)
	if err != nil {
		return 0, err
	}
	dates, err := timeutil.DateRange(date, end)
	if err != nil {
		return 0, err
	}
	return p.cache.Invalidate(ctx, userID, cache.Filter{Dates: dates})
}

type fakePreloader struct{}

func (fakePreloader) PreloadUser(ctx context.Context, userID string) (cacherefresh.UserOutcome, []string) {
	return cacherefresh.UserOutcome{UserID: userID, Warmed: 9}, []string{"2024-01-10", "2024-01-11", "2024-01-12"}
}

type countingActivity struct {
	mu    sync.Mutex
	users []string
}

func (c *countingActivity) Touch(ctx context.Context, userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.users = append(c.users, userID)
}

type testEnv struct {
	router   *gin.Engine
	sleep    *fakeSleep
	cache    *cache.Service
	auth     services.AuthService
	activity *countingActivity
}

func newTestEnv(t *testing.T, allowHeader bool) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := logger.Nop()

	c := cache.NewService(cache.NewMemoryStore(testClock), log, cache.Options{TTL: time.Hour, Enabled: true, Clock: testClock})
	sleep := &fakeSleep{}
	auth := services.NewAuthService(log, testSecret)
	activity := &countingActivity{}
	schedules := &memSchedules{rows: map[string]*types.ShiftSchedule{}}
	registry, err := engines.NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	dash := services.NewDashboardService(log, services.DashboardDeps{
		Sleep:     sleep,
		Caffeine:  fakeCaffeine{},
		Fatigue:   fakeFatigue{},
		Schedules: schedules,
		Clock:     testClock,
	})

	router := NewRouter(RouterConfig{
		Log:              log,
		AuthMiddleware:   httpMW.NewAuthMiddleware(log, auth, allowHeader),
		Activity:         activity,
		EngineHandler:    httpH.NewEngineHandler(sleep, fakeCaffeine{}, fakeFatigue{}),
		CacheHandler:     httpH.NewCacheHandler(log, c, fakePreloader{}),
		DashboardHandler: httpH.NewDashboardHandler(dash),
		ScheduleHandler:  httpH.NewScheduleHandler(services.NewScheduleService(log, schedules, cachePropagator{cache: c})),
		HealthHandler:    httpH.NewHealthHandler(c, registry),
	})
	return &testEnv{router: router, sleep: sleep, cache: c, auth: auth, activity: activity}
}

func (e *testEnv) do(t *testing.T, method, path, userID string, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if userID != "" {
		tok, err := e.auth.IssueToken(userID, time.Hour)
		if err != nil {
			t.Fatalf("IssueToken: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return m
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	m := decode(t, rec)
	e, _ := m["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func TestHealthcheck(t *testing.T) {
	env := newTestEnv(t, false)
	rec := env.do(t, http.MethodGet, "/healthcheck", "", "", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthcheck: code=%d body=%q", rec.Code, rec.Body.String())
	}
}

func TestEnginesRequireAuth(t *testing.T) {
	env := newTestEnv(t, false)
	rec := env.do(t, http.MethodGet, "/api/engines/shift-to-sleep", "", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status: want=401 got=%d", rec.Code)
	}
	if code := errorCode(t, rec); code != "AUTHENTICATION_ERROR" {
		t.Fatalf("code: want=AUTHENTICATION_ERROR got=%s", code)
	}

	rec = env.do(t, http.MethodGet, "/api/engines/shift-to-sleep", "", "", map[string]string{"Authorization": "Bearer not-a-jwt"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad token status: want=401 got=%d", rec.Code)
	}

	// header identity is ignored unless enabled
	rec = env.do(t, http.MethodGet, "/api/engines/shift-to-sleep", "", "", map[string]string{"X-User-Id": "u1"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("header identity: want=401 got=%d", rec.Code)
	}
}

func TestShiftToSleepPassesQuery(t *testing.T) {
	env := newTestEnv(t, false)
	rec := env.do(t, http.MethodGet,
		"/api/engines/shift-to-sleep?targetDate=2024-01-10&sleepDurationHours=7.5&bufferMinutes=15&forceRefresh=true",
		"u1", "", map[string]string{"X-Correlation-Id": "req-1-abcdef01"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status: want=200 got=%d body=%s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("X-Correlation-Id"); got != "req-1-abcdef01" {
		t.Fatalf("correlation header: got=%q", got)
	}
	m := decode(t, rec)
	if m["correlationId"] != "req-1-abcdef01" {
		t.Fatalf("correlationId body: got=%v", m["correlationId"])
	}
	if _, ok := m["result"].(map[string]any); !ok {
		t.Fatalf("result missing: %v", m)
	}

	last := env.sleep.last
	if last.UserID != "u1" || last.TargetDate != "2024-01-10" || !last.ForceRefresh {
		t.Fatalf("request: got=%+v", last)
	}
	if last.SleepDurationHours == nil || *last.SleepDurationHours != 7.5 || last.BufferMinutes == nil || *last.BufferMinutes != 15 {
		t.Fatalf("params: got=%+v", last)
	}
	if len(env.activity.users) != 1 || env.activity.users[0] != "u1" {
		t.Fatalf("activity: got=%v", env.activity.users)
	}
}

func TestMalformedQueryIs400(t *testing.T) {
	env := newTestEnv(t, false)
	rec := env.do(t, http.MethodGet, "/api/engines/shift-to-sleep?sleepDurationHours=abc", "u1", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: want=400 got=%d", rec.Code)
	}
	if code := errorCode(t, rec); code != "VALIDATION_ERROR" {
		t.Fatalf("code: want=VALIDATION_ERROR got=%s", code)
	}
}

func TestNonFiniteQueryIs400(t *testing.T) {
	env := newTestEnv(t, false)
	for _, path := range []string{
		"/api/engines/shift-to-sleep?sleepDurationHours=NaN",
		"/api/engines/caffeine-cutoff?caffeineAmountMg=Inf",
		"/api/engines/caffeine-cutoff?halfLifeHours=-Inf",
		"/api/engines/caffeine-cutoff?safeThresholdMg=nan",
	} {
		rec := env.do(t, http.MethodGet, path, "u1", "", nil)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: want=400 got=%d", path, rec.Code)
		}
		if code := errorCode(t, rec); code != "VALIDATION_ERROR" {
			t.Fatalf("%s: code want=VALIDATION_ERROR got=%s", path, code)
		}
	}
}

func TestFatigueRiskEnvelope(t *testing.T) {
	env := newTestEnv(t, false)
	rec := env.do(t, http.MethodGet, "/api/engines/fatigue-risk", "u1", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: want=200 got=%d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Fatalf("content type: got=%s", ct)
	}
	m := decode(t, rec)
	result, _ := m["result"].(map[string]any)
	if result["fatigueScore"] != float64(40) || result["fatigueLevel"] != string(engines.RiskMedium) {
		t.Fatalf("result: got=%v", m)
	}
}

func TestDataMissingIs200(t *testing.T) {
	env := newTestEnv(t, false)
	rec := env.do(t, http.MethodGet, "/api/engines/caffeine-cutoff", "u1", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: want=200 got=%d", rec.Code)
	}
	m := decode(t, rec)
	if m["whyNotShown"] != string(types.WhyInsufficientData) {
		t.Fatalf("whyNotShown: got=%v", m["whyNotShown"])
	}
	dm, _ := m["dataMissing"].([]any)
	if len(dm) != 1 || dm[0] != string(types.MissingTargetSleepTime) {
		t.Fatalf("dataMissing: got=%v", m["dataMissing"])
	}
	if m["correlationId"] == "" {
		t.Fatalf("correlationId must be generated")
	}
}

func TestHeaderIdentityWhenEnabled(t *testing.T) {
	env := newTestEnv(t, true)
	rec := env.do(t, http.MethodGet, "/api/engines/fatigue-risk", "", "", map[string]string{"X-User-Id": "dev-user"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status: want=200 got=%d", rec.Code)
	}
	rec = env.do(t, http.MethodGet, "/api/engines/fatigue-risk", "", "", map[string]string{"X-User-Id": "bad*id"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("wildcard user id: want=403 got=%d", rec.Code)
	}
}

func TestBeverages(t *testing.T) {
	env := newTestEnv(t, false)
	rec := env.do(t, http.MethodGet, "/api/engines/caffeine-cutoff/beverages", "u1", "", nil)
	m := decode(t, rec)
	list, _ := m["beverages"].([]any)
	if rec.Code != http.StatusOK || len(list) != len(engines.Beverages()) {
		t.Fatalf("beverages: code=%d n=%d", rec.Code, len(list))
	}
}

func seed(t *testing.T, c *cache.Service, userID string, dates ...string) {
	t.Helper()
	for _, d := range dates {
		for _, e := range types.AllEngines {
			c.Put(context.Background(), cache.Key{Engine: e, UserID: userID, Date: d}, map[string]int{"v": 1})
		}
	}
}

func TestCacheInvalidateAndStats(t *testing.T) {
	env := newTestEnv(t, false)
	seed(t, env.cache, "u1", "2024-01-10", "2024-01-11")
	seed(t, env.cache, "u10", "2024-01-10")

	rec := env.do(t, http.MethodDelete, "/api/engines/cache?engineType=unknown", "u1", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown engine: want=400 got=%d", rec.Code)
	}

	rec = env.do(t, http.MethodDelete, "/api/engines/cache?engineType=fatigue-risk&targetDate=2024-01-10", "u1", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("invalidate: want=200 got=%d", rec.Code)
	}
	if n := decode(t, rec)["deletedKeys"]; n != float64(1) {
		t.Fatalf("deletedKeys: want=1 got=%v", n)
	}

	rec = env.do(t, http.MethodGet, "/api/engines/cache/stats", "u1", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("stats: want=200 got=%d", rec.Code)
	}
	if n := decode(t, rec)["totalKeys"]; n != float64(5) {
		t.Fatalf("totalKeys: want=5 got=%v", n)
	}

	rec = env.do(t, http.MethodGet, "/api/engines/cache/stats", "u10", "", nil)
	if n := decode(t, rec)["totalKeys"]; n != float64(3) {
		t.Fatalf("u10 totalKeys: want=3 got=%v", n)
	}
}

func TestCachePreload(t *testing.T) {
	env := newTestEnv(t, false)
	rec := env.do(t, http.MethodPost, "/api/engines/cache/preload", "u1", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("preload: want=200 got=%d", rec.Code)
	}
	m := decode(t, rec)
	if m["warmed"] != float64(9) || m["userId"] != "u1" {
		t.Fatalf("preload body: got=%v", m)
	}
	if dates, _ := m["targetDates"].([]any); len(dates) != 3 {
		t.Fatalf("targetDates: got=%v", m["targetDates"])
	}
}

func TestScheduleEditInvalidatesWindow(t *testing.T) {
	env := newTestEnv(t, false)
	seed(t, env.cache, "u1", "2024-01-09", "2024-01-10", "2024-01-17", "2024-01-18")

	rec := env.do(t, http.MethodPut, "/api/schedules/2024-01-10", "u1",
		`{"shiftType":"NIGHT","startAt":"22:00","endAt":"06:00","commuteMinutes":30}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("put: want=200 got=%d body=%s", rec.Code, rec.Body.String())
	}
	change, _ := decode(t, rec)["change"].(map[string]any)
	if change["invalidatedKeys"] != float64(6) || change["propagated"] != true {
		t.Fatalf("change: got=%v", change)
	}
	for _, d := range []string{"2024-01-09", "2024-01-18"} {
		var v map[string]int
		if !env.cache.Get(context.Background(), cache.Key{Engine: types.EngineShiftToSleep, UserID: "u1", Date: d}, &v) {
			t.Fatalf("%s should survive invalidation", d)
		}
	}

	rec = env.do(t, http.MethodPut, "/api/schedules/2024-01-10", "u1", `{"shiftType":"SWING"}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad shift: want=400 got=%d", rec.Code)
	}

	rec = env.do(t, http.MethodDelete, "/api/schedules/2024-01-10", "u1", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: want=200 got=%d", rec.Code)
	}
	change, _ = decode(t, rec)["change"].(map[string]any)
	if change["deleted"] != true {
		t.Fatalf("deleted: got=%v", change)
	}
	rec = env.do(t, http.MethodGet, "/api/schedules/2024-01-10", "u1", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete: want=404 got=%d", rec.Code)
	}
}

func TestDashboardHome(t *testing.T) {
	env := newTestEnv(t, false)
	rec := env.do(t, http.MethodGet, "/api/dashboard/home?targetDate=2024-01-10", "u1", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("dashboard: want=200 got=%d", rec.Code)
	}
	m := decode(t, rec)
	sleep, _ := m["sleepRecommendation"].(map[string]any)
	caffeine, _ := m["caffeineGuidance"].(map[string]any)
	if sleep["status"] != "available" || caffeine["status"] != "unavailable" {
		t.Fatalf("slices: sleep=%v caffeine=%v", sleep, caffeine)
	}
	if m["disclaimer"] != types.Disclaimer {
		t.Fatalf("disclaimer: got=%v", m["disclaimer"])
	}
	if m["correlationId"] != rec.Header().Get("X-Correlation-Id") {
		t.Fatalf("correlation id mismatch: body=%v header=%s", m["correlationId"], rec.Header().Get("X-Correlation-Id"))
	}

	rec = env.do(t, http.MethodGet, "/api/dashboard/home?targetDate=2024-02-30", "u1", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad date: want=400 got=%d", rec.Code)
	}
}

func TestEngineHealth(t *testing.T) {
	env := newTestEnv(t, false)
	rec := env.do(t, http.MethodGet, "/api/engines/health", "u1", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("health: want=200 got=%d", rec.Code)
	}
	if s := decode(t, rec)["status"]; s != "healthy" {
		t.Fatalf("status: want=healthy got=%v", s)
	}
}
