package observability

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	types "github.com/yungbote/shiftsleep-backend/internal/domain"
	"github.com/yungbote/shiftsleep-backend/internal/platform/envutil"
	"github.com/yungbote/shiftsleep-backend/internal/platform/logger"
)

// Metrics owns the process's Prometheus collectors. All methods are safe on
// a nil receiver so callers never need to check whether metrics are on.
type Metrics struct {
	reg *prometheus.Registry

	apiRequests *prometheus.CounterVec
	apiLatency  *prometheus.HistogramVec
	apiInflight prometheus.Gauge

	engineCalls   *prometheus.CounterVec
	engineLatency *prometheus.HistogramVec

	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec
	cacheErrors *prometheus.CounterVec

	refreshRuns     *prometheus.CounterVec
	refreshUsers    *prometheus.CounterVec
	refreshDuration prometheus.Histogram

	dbStats   *prometheus.GaugeVec
	redisUp   prometheus.Gauge
	redisPing prometheus.Gauge

	scrapeEvery time.Duration
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool {
	return envutil.Bool("METRICS_ENABLED", false)
}

func Current() *Metrics {
	return instance
}

// Init builds the process-wide metrics once. It returns nil when
// METRICS_ENABLED is off.
func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() {
		instance = New(prometheus.NewRegistry())
		if log != nil {
			log.Info("metrics enabled", "scrape_interval", instance.scrapeEvery.String())
		}
	})
	return instance
}

// New registers every collector on reg. Tests pass their own registry.
func New(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return &Metrics{
		reg: reg,
		apiRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ss_api_requests_total",
			Help: "Total API requests by method/route/status.",
		}, []string{"method", "route", "status"}),
		apiLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ss_api_request_duration_seconds",
			Help:    "API request latency in seconds by method/route/status.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"method", "route", "status"}),
		apiInflight: f.NewGauge(prometheus.GaugeOpts{
			Name: "ss_api_inflight_requests",
			Help: "In-flight API requests.",
		}),
		engineCalls: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ss_engine_calls_total",
			Help: "Engine calls by engine and outcome (ok, cached, or a whyNotShown reason).",
		}, []string{"engine", "outcome"}),
		engineLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ss_engine_duration_seconds",
			Help:    "Engine call latency in seconds.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 5, 30},
		}, []string{"engine"}),
		cacheHits: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ss_cache_hits_total",
			Help: "Result cache hits by engine.",
		}, []string{"engine"}),
		cacheMisses: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ss_cache_misses_total",
			Help: "Result cache misses by engine.",
		}, []string{"engine"}),
		cacheErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ss_cache_errors_total",
			Help: "Result cache store errors by engine and operation.",
		}, []string{"engine", "op"}),
		refreshRuns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ss_cache_refresh_runs_total",
			Help: "Batch cache refresh runs by trigger and status.",
		}, []string{"trigger", "status"}),
		refreshUsers: f.NewCounterVec(prometheus.CounterOpts{
			Name: "ss_cache_refresh_users_total",
			Help: "Users processed by the batch refresher by result.",
		}, []string{"result"}),
		refreshDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "ss_cache_refresh_duration_seconds",
			Help:    "Batch cache refresh wall time in seconds.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		}),
		dbStats: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ss_db_pool",
			Help: "database/sql pool statistics.",
		}, []string{"stat"}),
		redisUp: f.NewGauge(prometheus.GaugeOpts{
			Name: "ss_redis_up",
			Help: "1 when the last redis ping succeeded.",
		}),
		redisPing: f.NewGauge(prometheus.GaugeOpts{
			Name: "ss_redis_ping_seconds",
			Help: "Latency of the last redis ping.",
		}),
		scrapeEvery: scrapeInterval(),
	}
}

func scrapeInterval() time.Duration {
	d := envutil.Seconds("METRICS_SCRAPE_INTERVAL_SECONDS", 10*time.Second)
	if d <= 0 {
		return 10 * time.Second
	}
	return d
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// StartServer exposes /metrics on a separate listener until ctx ends.
func (m *Metrics) StartServer(ctx context.Context, log *logger.Logger, addr string) {
	if m == nil {
		return
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = srv.Shutdown(shutdownCtx)
		cancel()
	}()
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if log != nil {
				log.Error("metrics server failed", "error", err, "addr", addr)
			}
		}
	}()
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	if status == "" {
		status = "0"
	}
	m.apiRequests.WithLabelValues(method, route, status).Inc()
	m.apiLatency.WithLabelValues(method, route, status).Observe(dur.Seconds())
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

func (m *Metrics) ObserveEngine(engine types.EngineType, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.engineCalls.WithLabelValues(string(engine), outcome).Inc()
	m.engineLatency.WithLabelValues(string(engine)).Observe(elapsed.Seconds())
}

func (m *Metrics) CacheHit(engine types.EngineType) {
	if m == nil {
		return
	}
	m.cacheHits.WithLabelValues(string(engine)).Inc()
}

func (m *Metrics) CacheMiss(engine types.EngineType) {
	if m == nil {
		return
	}
	m.cacheMisses.WithLabelValues(string(engine)).Inc()
}

func (m *Metrics) CacheError(engine types.EngineType, op string) {
	if m == nil {
		return
	}
	m.cacheErrors.WithLabelValues(string(engine), op).Inc()
}

func (m *Metrics) ObserveRefresh(trigger, status string, succeeded, failed int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.refreshRuns.WithLabelValues(trigger, status).Inc()
	m.refreshUsers.WithLabelValues("succeeded").Add(float64(succeeded))
	m.refreshUsers.WithLabelValues("failed").Add(float64(failed))
	m.refreshDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) StartPostgresCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	go func() {
		ticker := time.NewTicker(m.scrapeEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sqlDB, err := db.DB()
				if err != nil {
					if log != nil {
						log.Warn("metrics: db stats unavailable", "error", err)
					}
					continue
				}
				stats := sqlDB.Stats()
				m.dbStats.WithLabelValues("open_connections").Set(float64(stats.OpenConnections))
				m.dbStats.WithLabelValues("in_use").Set(float64(stats.InUse))
				m.dbStats.WithLabelValues("idle").Set(float64(stats.Idle))
				m.dbStats.WithLabelValues("wait_count").Set(float64(stats.WaitCount))
				m.dbStats.WithLabelValues("wait_duration_seconds").Set(stats.WaitDuration.Seconds())
				m.dbStats.WithLabelValues("max_open_connections").Set(float64(stats.MaxOpenConnections))
			}
		}
	}()
}

// StartRedisCollector pings rdb on the scrape interval. The client is owned
// by the caller.
func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, rdb goredis.UniversalClient) {
	if m == nil || rdb == nil {
		return
	}
	go func() {
		ticker := time.NewTicker(m.scrapeEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				start := time.Now()
				if err := rdb.Ping(ctx).Err(); err != nil {
					m.redisUp.Set(0)
					if log != nil {
						log.Warn("metrics: redis ping failed", "error", err)
					}
					continue
				}
				m.redisUp.Set(1)
				m.redisPing.Set(time.Since(start).Seconds())
			}
		}
	}()
}

func StatusLabel(code int) string {
	return strconv.Itoa(code)
}
