package observability

import (
	"testing"

	"github.com/smallbiznis/tourdesk/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig(config.Config{
		Environment:  "production",
		AppVersion:   "1.2.0",
		OTLPEndpoint: " collector:4317 ",
		Observability: config.ObservabilityConfig{
			OtelProtocol:      "HTTP",
			OtelSamplingRatio: 4,
		},
	})

	assert.Equal(t, "tourdesk", cfg.ServiceName)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "http", cfg.OtelExporterProtocol)
	assert.Equal(t, "collector:4317", cfg.OtelExporterEndpoint)
	assert.Equal(t, defaultSamplingRatio, cfg.OtelSamplingRatio)
	assert.False(t, cfg.Debug())
}

func TestDebug(t *testing.T) {
	assert.True(t, Config{Environment: "development"}.Debug())
	assert.True(t, Config{Environment: "production", LogLevel: "debug"}.Debug())
	assert.False(t, Config{Environment: "staging"}.Debug())
}

func TestDerivedConfigs(t *testing.T) {
	cfg := Config{
		ServiceName:          "tourdesk",
		Environment:          "local",
		OtelEnabled:          true,
		OtelExporterEndpoint: "collector:4317",
		OtelExporterProtocol: "grpc",
		OtelSamplingRatio:    0.5,
	}

	assert.True(t, cfg.loggerConfig().IncludeStackOnError)
	assert.Equal(t, 0.5, cfg.tracingConfig().SamplingRatio)
	assert.Equal(t, "collector:4317", cfg.metricsConfig().ExporterEndpoint)
}
