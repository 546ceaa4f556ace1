package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string
	NodeID      int64

	// Timezone is the business timezone every calendar date is interpreted in.
	Timezone string

	OTLPEndpoint  string
	Observability ObservabilityConfig

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int
	DBMigrateOnStart  bool

	Redis      RedisConfig
	Email      EmailConfig
	Membership MembershipConfig
	Booking    BookingConfig
	Scheduler  SchedulerConfig
	Gateway    GatewayConfig

	// AdminEmails get the ADMIN role when they register.
	AdminEmails []string
}

type ObservabilityConfig struct {
	LogLevel          string
	LogFormat         string
	OtelEnabled       bool
	OtelProtocol      string
	OtelSamplingRatio float64
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type EmailConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
}

type MembershipConfig struct {
	// ConfigDir is searched first for membership.yml.
	ConfigDir string
}

type BookingConfig struct {
	DefaultCancellationHours int
	LockTTL                  time.Duration
	LockWait                 time.Duration
}

type SchedulerConfig struct {
	Enabled  bool
	Interval time.Duration
	Jobs     []string
}

type GatewayConfig struct {
	Provider        string
	CheckoutBaseURL string
	WebhookSecret   string
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:           getenv("APP_SERVICE", "tourdesk"),
		AppVersion:        getenv("APP_VERSION", "0.1.0"),
		Environment:       getenv("ENVIRONMENT", "development"),
		HTTPAddr:          getenv("HTTP_ADDR", ":8080"),
		NodeID:            getenvInt64("NODE_ID", 1),
		Timezone:          getenv("APP_TIMEZONE", "America/Argentina/Buenos_Aires"),
		OTLPEndpoint:      getenv("OTEL_EXPORTER_OTLP_ENDPOINT", getenv("OTLP_ENDPOINT", "localhost:4317")),
		DBType:            strings.ToLower(getenv("DATABASE_TYPE", "postgres")),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "tourdesk"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 10),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 50),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 60),
		DBMigrateOnStart:  getenvBool("DATABASE_MIGRATE_ON_START", true),
		Observability: ObservabilityConfig{
			LogLevel:          strings.ToLower(getenv("LOG_LEVEL", "info")),
			LogFormat:         strings.ToLower(getenv("LOG_FORMAT", "json")),
			OtelEnabled:       getenvBool("OTEL_ENABLED", false),
			OtelProtocol:      strings.ToLower(getenv("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc")),
			OtelSamplingRatio: getenvFloat("OTEL_SAMPLING_RATIO", 0.1),
		},
		Redis: RedisConfig{
			Addr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
			Password: getenv("REDIS_PASSWORD", ""),
			DB:       getenvInt("REDIS_DB", 0),
		},
		Email: EmailConfig{
			SMTPHost:     strings.TrimSpace(getenv("SMTP_HOST", "")),
			SMTPPort:     getenvInt("SMTP_PORT", 587),
			SMTPUsername: getenv("SMTP_USERNAME", ""),
			SMTPPassword: getenv("SMTP_PASSWORD", ""),
			SMTPFrom:     getenv("SMTP_FROM", "no-reply@tourdesk.local"),
		},
		Membership: MembershipConfig{
			ConfigDir: getenv("MEMBERSHIP_CONFIG_DIR", "/etc/tourdesk"),
		},
		Booking: BookingConfig{
			DefaultCancellationHours: getenvInt("CANCELLATION_HOURS", 72),
			LockTTL:                  getenvDuration("BOOKING_LOCK_TTL", 10*time.Second),
			LockWait:                 getenvDuration("BOOKING_LOCK_WAIT", 3*time.Second),
		},
		Scheduler: SchedulerConfig{
			Enabled:  getenvBool("SCHEDULER_ENABLED", true),
			Interval: getenvDuration("SCHEDULER_INTERVAL", time.Minute),
			Jobs:     parseList(getenv("SCHEDULER_JOBS", "")),
		},
		Gateway: GatewayConfig{
			Provider:        strings.ToLower(getenv("GATEWAY_PROVIDER", "simulated")),
			CheckoutBaseURL: getenv("GATEWAY_CHECKOUT_URL", "http://localhost:3000/checkout"),
			WebhookSecret:   getenv("GATEWAY_WEBHOOK_SECRET", ""),
		},
		AdminEmails: parseList(getenv("ADMIN_EMAILS", "")),
	}

	return cfg
}

// LoadLocation resolves the business timezone.
func LoadLocation(cfg Config) (*time.Location, error) {
	return time.LoadLocation(strings.TrimSpace(cfg.Timezone))
}

func (c Config) IsAdminEmail(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, admin := range c.AdminEmails {
		if strings.ToLower(admin) == email {
			return true
		}
	}
	return false
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt64(key string, def int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvInt(key string, def int) int {
	return int(getenvInt64(key, int64(def)))
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func parseList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
