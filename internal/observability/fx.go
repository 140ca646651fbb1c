package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/arrears/internal/observability/logger"
	"github.com/smallbiznis/arrears/internal/observability/metrics"
	"github.com/smallbiznis/arrears/internal/observability/tracing"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
)

var Module = fx.Module("observability",
	fx.Provide(
		LoadConfig,
		provideLoggerConfig,
		logger.New,
		provideTracingConfig,
		tracing.NewProvider,
		provideRegistry,
		metrics.NewHTTPMetrics,
		metrics.NewEngineMetrics,
	),
	fx.Invoke(ensureTracingProvider),
)

func ensureTracingProvider(_ *sdktrace.TracerProvider) {}

func provideLoggerConfig(cfg Config) logger.Config {
	return logger.Config{
		ServiceName:         cfg.ServiceName,
		Environment:         cfg.Environment,
		Version:             cfg.Version,
		Level:               cfg.LogLevel,
		Format:              cfg.LogFormat,
		IncludeCaller:       true,
		IncludeStackOnError: true,
	}
}

func provideTracingConfig(cfg Config) tracing.Config {
	return tracing.Config{
		Enabled:       cfg.OtelEnabled,
		ServiceName:   cfg.ServiceName,
		Environment:   cfg.Environment,
		Version:       cfg.Version,
		Endpoint:      cfg.OtelExporterEndpoint,
		SamplingRatio: cfg.OtelSamplingRatio,
	}
}

func provideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	return reg
}
