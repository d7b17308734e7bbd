package temporalx

import (
	"context"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestBackoff(t *testing.T) {
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 250 * time.Millisecond},
		{2, 500 * time.Millisecond},
		{3, time.Second},
		{6, 5 * time.Second},
	}
	for _, tc := range cases {
		if got := Backoff(250*time.Millisecond, 5*time.Second, tc.attempt); got != tc.want {
			t.Fatalf("Backoff(attempt=%d): want=%v got=%v", tc.attempt, tc.want, got)
		}
	}
	if got := Backoff(0, 0, 1); got != 250*time.Millisecond {
		t.Fatalf("Backoff default base: want=250ms got=%v", got)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("TEMPORAL_ADDRESS", "")
	t.Setenv("TEMPORAL_NAMESPACE", "")
	t.Setenv("REFRESH_INTERVAL_MINUTES", "90")
	cfg := LoadConfig()
	if cfg.Enabled() {
		t.Fatalf("Enabled: want=false without an address")
	}
	if cfg.Namespace != "shiftsleep" || cfg.TaskQueue != "shiftsleep" {
		t.Fatalf("namespace/queue: got=%s/%s", cfg.Namespace, cfg.TaskQueue)
	}
	if cfg.RefreshInterval != 90*time.Minute {
		t.Fatalf("RefreshInterval: want=90m got=%v", cfg.RefreshInterval)
	}
	if cfg.retention() != 7*24*time.Hour {
		t.Fatalf("retention: want=168h got=%v", cfg.retention())
	}
}

func TestNewClientDisabled(t *testing.T) {
	c, err := NewClient(context.Background(), Config{}, nil)
	if err != nil || c != nil {
		t.Fatalf("disabled client: want=nil,nil got=%v,%v", c, err)
	}
}

func TestIsRetryableRPC(t *testing.T) {
	if !isRetryableRPC(status.Error(codes.Unavailable, "down")) {
		t.Fatalf("Unavailable should retry")
	}
	if isRetryableRPC(status.Error(codes.PermissionDenied, "no")) {
		t.Fatalf("PermissionDenied should not retry")
	}
	if !isRetryableRPC(context.DeadlineExceeded) {
		t.Fatalf("context deadline should retry")
	}
}

func TestLoadTLSConfigRequiresPair(t *testing.T) {
	if _, err := loadTLSConfig(Config{ClientCAPath: "/tmp/ca.pem"}); err == nil {
		t.Fatalf("want error when cert/key are missing")
	}
}
