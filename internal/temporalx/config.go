package temporalx

import (
	"time"

	"github.com/yungbote/shiftsleep-backend/internal/platform/envutil"
)

type Config struct {
	Address   string `yaml:"address"`
	Namespace string `yaml:"namespace"`
	TaskQueue string `yaml:"task_queue"`

	ClientCertPath string `yaml:"client_cert_path"`
	ClientKeyPath  string `yaml:"client_key_path"`
	ClientCAPath   string `yaml:"client_ca_path"`

	AutoRegisterNamespace  bool `yaml:"auto_register_namespace"`
	NamespaceRetentionDays int  `yaml:"namespace_retention_days"`

	// RefreshScheduleID names the Temporal schedule that triggers the cache
	// refresh workflow. Empty disables schedule registration.
	RefreshScheduleID string        `yaml:"refresh_schedule_id"`
	RefreshInterval   time.Duration `yaml:"refresh_interval"`

	DialTimeout       time.Duration `yaml:"dial_timeout"`
	DialMaxWait       time.Duration `yaml:"dial_max_wait"`
	DialBackoff       time.Duration `yaml:"dial_backoff"`
	DialBackoffMax    time.Duration `yaml:"dial_backoff_max"`
	WorkerConcurrency int           `yaml:"worker_concurrency"`
}

func LoadConfig() Config {
	return Config{
		Address:   envutil.String("TEMPORAL_ADDRESS", ""),
		Namespace: envutil.String("TEMPORAL_NAMESPACE", "shiftsleep"),
		TaskQueue: envutil.String("TEMPORAL_TASK_QUEUE", "shiftsleep"),

		ClientCertPath: envutil.String("TEMPORAL_CLIENT_CERT_PATH", ""),
		ClientKeyPath:  envutil.String("TEMPORAL_CLIENT_KEY_PATH", ""),
		ClientCAPath:   envutil.String("TEMPORAL_CLIENT_CA_PATH", ""),

		AutoRegisterNamespace:  envutil.Bool("TEMPORAL_AUTO_REGISTER_NAMESPACE", false),
		NamespaceRetentionDays: envutil.Int("TEMPORAL_NAMESPACE_RETENTION_DAYS", 7),

		RefreshScheduleID: envutil.String("TEMPORAL_REFRESH_SCHEDULE_ID", "shiftsleep-cache-refresh"),
		RefreshInterval:   time.Duration(envutil.Int("REFRESH_INTERVAL_MINUTES", 360)) * time.Minute,

		DialTimeout:       envutil.Seconds("TEMPORAL_DIAL_TIMEOUT_SECONDS", 5*time.Second),
		DialMaxWait:       envutil.Seconds("TEMPORAL_DIAL_MAX_WAIT_SECONDS", 60*time.Second),
		DialBackoff:       envutil.Millis("TEMPORAL_DIAL_BACKOFF_MS", 250*time.Millisecond),
		DialBackoffMax:    envutil.Millis("TEMPORAL_DIAL_BACKOFF_MAX_MS", 5*time.Second),
		WorkerConcurrency: envutil.Int("TEMPORAL_WORKER_CONCURRENCY", 2),
	}
}

func (c Config) Enabled() bool { return c.Address != "" }

func (c Config) usesTLS() bool {
	return c.ClientCertPath != "" || c.ClientKeyPath != "" || c.ClientCAPath != ""
}

func (c Config) retention() time.Duration {
	days := c.NamespaceRetentionDays
	if days < 1 {
		days = 7
	}
	if days > 365 {
		days = 365
	}
	return time.Duration(days) * 24 * time.Hour
}

// Backoff doubles base per attempt, capped at max.
func Backoff(base, max time.Duration, attempt int) time.Duration {
	if base <= 0 {
		base = 250 * time.Millisecond
	}
	sleep := base
	for i := 1; i < attempt; i++ {
		sleep *= 2
		if max > 0 && sleep >= max {
			return max
		}
	}
	if max > 0 && sleep > max {
		return max
	}
	return sleep
}
