package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ADMIN_EMAILS", " ops@tourdesk.test, boss@tourdesk.test ,")
	t.Setenv("BOOKING_LOCK_TTL", "nonsense")
	t.Setenv("OTEL_SAMPLING_RATIO", "0.25")

	cfg := Load()
	assert.Equal(t, "tourdesk", cfg.AppName)
	assert.Equal(t, "America/Argentina/Buenos_Aires", cfg.Timezone)
	assert.Equal(t, 72, cfg.Booking.DefaultCancellationHours)
	assert.Equal(t, 10*time.Second, cfg.Booking.LockTTL)
	assert.Equal(t, "info", cfg.Observability.LogLevel)
	assert.Equal(t, 0.25, cfg.Observability.OtelSamplingRatio)
	assert.Equal(t, []string{"ops@tourdesk.test", "boss@tourdesk.test"}, cfg.AdminEmails)
	assert.True(t, cfg.IsAdminEmail("OPS@tourdesk.test"))
	assert.False(t, cfg.IsAdminEmail("guest@tourdesk.test"))
}

func TestLoadLocation(t *testing.T) {
	loc, err := LoadLocation(Config{Timezone: "America/Argentina/Buenos_Aires"})
	require.NoError(t, err)
	assert.Equal(t, "America/Argentina/Buenos_Aires", loc.String())

	_, err = LoadLocation(Config{Timezone: "Mars/Olympus"})
	assert.Error(t, err)
}
