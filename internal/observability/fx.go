package observability

import (
	"github.com/smallbiznis/tourdesk/internal/observability/logger"
	"github.com/smallbiznis/tourdesk/internal/observability/metrics"
	"github.com/smallbiznis/tourdesk/internal/observability/tracing"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
)

var Module = fx.Module("observability",
	fx.Provide(LoadConfig),

	// logging
	fx.Provide(Config.loggerConfig, logger.New),

	// tracing; the provider must exist before the gin middleware starts spans
	fx.Provide(Config.tracingConfig, tracing.NewProvider),
	fx.Invoke(func(*sdktrace.TracerProvider) {}),

	// metrics: otel domain counters, prometheus http and scheduler collectors
	fx.Provide(
		Config.metricsConfig,
		metrics.NewProvider,
		metrics.New,
		metrics.NewHTTPMetrics,
		metrics.NewSchedulerMetrics,
	),
)
