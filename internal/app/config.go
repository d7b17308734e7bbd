package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	redisclient "github.com/yungbote/shiftsleep-backend/internal/clients/redis"
	"github.com/yungbote/shiftsleep-backend/internal/data/db"
	"github.com/yungbote/shiftsleep-backend/internal/engines"
	"github.com/yungbote/shiftsleep-backend/internal/jobs/cacherefresh"
	"github.com/yungbote/shiftsleep-backend/internal/platform/envutil"
	"github.com/yungbote/shiftsleep-backend/internal/platform/logger"
	"github.com/yungbote/shiftsleep-backend/internal/temporalx"
)

const (
	CacheBackendRedis  = "redis"
	CacheBackendMemory = "memory"
)

type Config struct {
	Port        string `yaml:"port"`
	LogMode     string `yaml:"log_mode"`
	ServiceName string `yaml:"service_name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`

	JWTSecretKey        string   `yaml:"jwt_secret_key"`
	AllowHeaderIdentity bool     `yaml:"allow_header_identity"`
	CORSOrigins         []string `yaml:"cors_allowed_origins"`

	CacheBackend  string           `yaml:"cache_backend"`
	CacheTTL      time.Duration    `yaml:"cache_ttl"`
	CacheEnabled  bool             `yaml:"cache_enabled"`
	EngineTimeout time.Duration    `yaml:"engine_timeout"`
	Engines       engines.Defaults `yaml:"engines"`

	Refresh          cacherefresh.Config `yaml:"refresh"`
	RefreshOnStart   bool                `yaml:"refresh_on_start"`
	ActivityInterval time.Duration       `yaml:"activity_interval"`

	MetricsAddr string `yaml:"metrics_addr"`

	Redis    redisclient.Config `yaml:"redis"`
	DB       db.Config          `yaml:"-"`
	Temporal temporalx.Config   `yaml:"-"`
}

func defaultConfig() Config {
	return Config{
		Port:             "8080",
		LogMode:          "development",
		ServiceName:      "shiftsleep",
		Environment:      "development",
		CacheBackend:     CacheBackendRedis,
		CacheTTL:         48 * time.Hour,
		CacheEnabled:     true,
		EngineTimeout:    30 * time.Second,
		Engines:          engines.DefaultParams(),
		Refresh:          cacherefresh.DefaultConfig(),
		ActivityInterval: 5 * time.Minute,
	}
}

// LoadConfig builds the config from defaults, then the YAML file named by
// CONFIG_FILE, then the environment. A set env var always wins.
func LoadConfig(log *logger.Logger) (Config, error) {
	cfg := defaultConfig()
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
		if log != nil {
			log.Info("Loaded config file", "path", path)
		}
	}
	applyEnv(&cfg)
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Port = envutil.String("PORT", cfg.Port)
	cfg.LogMode = envutil.String("LOG_MODE", cfg.LogMode)
	cfg.ServiceName = envutil.String("OTEL_SERVICE_NAME", cfg.ServiceName)
	cfg.Environment = envutil.String("APP_ENV", cfg.Environment)
	cfg.Version = envutil.String("APP_VERSION", cfg.Version)

	cfg.JWTSecretKey = envutil.String("JWT_SECRET_KEY", cfg.JWTSecretKey)
	cfg.AllowHeaderIdentity = envutil.Bool("AUTH_ALLOW_USER_HEADER", cfg.AllowHeaderIdentity)
	cfg.CORSOrigins = envutil.List("CORS_ALLOWED_ORIGINS", cfg.CORSOrigins)

	cfg.CacheBackend = strings.ToLower(envutil.String("CACHE_BACKEND", cfg.CacheBackend))
	cfg.CacheTTL = envutil.Seconds("CACHE_TTL_SECONDS", cfg.CacheTTL)
	cfg.CacheEnabled = envutil.Bool("ENGINE_CACHE_ENABLED", cfg.CacheEnabled)
	cfg.EngineTimeout = envutil.Seconds("ENGINE_TIMEOUT_SECONDS", cfg.EngineTimeout)

	e := &cfg.Engines
	e.SleepDurationHours = envutil.Float("DEFAULT_SLEEP_DURATION_HOURS", e.SleepDurationHours)
	e.BufferMinutes = envutil.Int("DEFAULT_BUFFER_MINUTES", e.BufferMinutes)
	e.CaffeineMg = envutil.Float("DEFAULT_CAFFEINE_MG", e.CaffeineMg)
	e.HalfLifeHours = envutil.Float("DEFAULT_HALF_LIFE_HOURS", e.HalfLifeHours)
	e.SafeThresholdMg = envutil.Float("DEFAULT_SAFE_THRESHOLD_MG", e.SafeThresholdMg)
	e.FatigueDays = envutil.Int("DEFAULT_FATIGUE_DAYS", e.FatigueDays)

	r := &cfg.Refresh
	r.BatchSize = envutil.Int("REFRESH_BATCH_SIZE", r.BatchSize)
	r.ActiveDays = envutil.Int("REFRESH_ACTIVE_DAYS", r.ActiveDays)
	r.DaysAhead = envutil.Int("REFRESH_DAYS_AHEAD", r.DaysAhead)
	r.BatchPause = envutil.Millis("REFRESH_BATCH_PAUSE_MS", r.BatchPause)
	r.Interval = time.Duration(envutil.Int("REFRESH_INTERVAL_MINUTES", int(r.Interval/time.Minute))) * time.Minute
	cfg.RefreshOnStart = envutil.Bool("REFRESH_ON_START", cfg.RefreshOnStart)
	cfg.ActivityInterval = envutil.Seconds("ACTIVITY_TOUCH_INTERVAL_SECONDS", cfg.ActivityInterval)

	cfg.MetricsAddr = envutil.String("METRICS_ADDR", cfg.MetricsAddr)

	rc := &cfg.Redis
	rc.Addr = envutil.String("REDIS_ADDR", rc.Addr)
	rc.Password = envutil.String("REDIS_PASSWORD", rc.Password)
	rc.DB = envutil.Int("REDIS_DB", rc.DB)
	rc.PoolSize = envutil.Int("REDIS_POOL_SIZE", max(rc.PoolSize, 10))
	rc.Channel = envutil.String("REDIS_CHANNEL", rc.Channel)

	cfg.DB = db.ConfigFromEnv()
	cfg.Temporal = temporalx.LoadConfig()
	if cfg.Temporal.RefreshInterval <= 0 {
		cfg.Temporal.RefreshInterval = cfg.Refresh.Interval
	}
}

func (c Config) validate() error {
	switch c.CacheBackend {
	case CacheBackendRedis:
		if strings.TrimSpace(c.Redis.Addr) == "" {
			return fmt.Errorf("CACHE_BACKEND=redis requires REDIS_ADDR")
		}
	case CacheBackendMemory:
	default:
		return fmt.Errorf("unknown CACHE_BACKEND %q (want redis|memory)", c.CacheBackend)
	}
	if c.JWTSecretKey == "" && !c.AllowHeaderIdentity {
		return fmt.Errorf("JWT_SECRET_KEY is required unless AUTH_ALLOW_USER_HEADER=true")
	}
	if c.EngineTimeout <= 0 {
		return fmt.Errorf("ENGINE_TIMEOUT_SECONDS must be positive")
	}
	return nil
}

// UsesTemporal reports whether scheduled refresh runs on Temporal instead
// of the in-process ticker.
func (c Config) UsesTemporal() bool { return c.Temporal.Enabled() }
