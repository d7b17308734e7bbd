package observability

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"

	"github.com/yungbote/shiftsleep-backend/internal/platform/envutil"
	"github.com/yungbote/shiftsleep-backend/internal/platform/logger"
)

type OtelConfig struct {
	ServiceName string
	Environment string
	Version     string
	// CacheBackend is recorded on the resource so traces from redis- and
	// memory-backed deployments can be told apart.
	CacheBackend string
}

// tracingSettings is the OTEL_* environment, read once at init.
type tracingSettings struct {
	enabled     bool
	sampleRatio float64
	endpoint    string
	headers     map[string]string
	insecure    bool
	stdout      bool
}

func tracingFromEnv() tracingSettings {
	return tracingSettings{
		enabled:     envutil.Bool("OTEL_ENABLED", false),
		sampleRatio: clampRatio(envutil.Float("OTEL_SAMPLER_RATIO", 0.1)),
		endpoint:    envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		headers:     parseHeaders(envutil.List("OTEL_EXPORTER_OTLP_HEADERS", nil)),
		insecure:    envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", false),
		stdout:      envutil.Bool("OTEL_STDOUT", false),
	}
}

func clampRatio(r float64) float64 { return min(max(r, 0), 1) }

// parseHeaders reads "k=v" pairs and drops malformed ones.
func parseHeaders(parts []string) map[string]string {
	out := map[string]string{}
	for _, part := range parts {
		key, val, ok := strings.Cut(part, "=")
		key, val = strings.TrimSpace(key), strings.TrimSpace(val)
		if !ok || key == "" || val == "" {
			continue
		}
		out[key] = val
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

var (
	otelOnce     sync.Once
	otelShutdown func(context.Context) error
)

// InitOTel installs the global tracer provider and W3C propagators. It
// returns nil when OTEL_ENABLED is off. Without an OTLP endpoint spans are
// still created, so trace ids reach logs and response headers, but nothing
// is exported unless OTEL_STDOUT is set.
func InitOTel(ctx context.Context, log *logger.Logger, cfg OtelConfig) func(context.Context) error {
	otelOnce.Do(func() {
		if log == nil {
			log = logger.Nop()
		}
		st := tracingFromEnv()
		if !st.enabled {
			return
		}
		serviceName := strings.TrimSpace(cfg.ServiceName)
		if serviceName == "" {
			serviceName = "shiftsleep"
		}
		res, err := resource.New(ctx, resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceVersionKey.String(strings.TrimSpace(cfg.Version)),
			attribute.String("deployment.environment", strings.TrimSpace(cfg.Environment)),
			attribute.String("shiftsleep.cache_backend", cfg.CacheBackend),
		))
		if err != nil {
			log.Warn("otel resource init failed (continuing)", "error", err)
		}

		opts := []sdktrace.TracerProviderOption{
			sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(st.sampleRatio))),
			sdktrace.WithResource(res),
		}
		exporter, err := st.exporter(ctx)
		switch {
		case err != nil:
			log.Warn("otel exporter init failed (continuing without export)", "error", err)
		case exporter != nil:
			opts = append(opts, sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)))
		}
		tp := sdktrace.NewTracerProvider(opts...)
		otel.SetTracerProvider(tp)
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		))
		otelShutdown = tp.Shutdown
		log.Info("otel tracing initialized", "service", serviceName, "endpoint", st.endpoint, "ratio", st.sampleRatio)
	})
	return otelShutdown
}

func (st tracingSettings) exporter(ctx context.Context) (sdktrace.SpanExporter, error) {
	if st.endpoint != "" {
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(st.endpoint)}
		if st.insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		if st.headers != nil {
			opts = append(opts, otlptracehttp.WithHeaders(st.headers))
		}
		return otlptracehttp.New(ctx, opts...)
	}
	if st.stdout {
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	}
	return nil, nil
}
