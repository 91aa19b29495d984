// Package config reads process settings from the environment (and an
// optional .env file) through koanf.
package config

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config is the settings shared by the api, worker and tools. The env tag
// names the variable each field is read from.
type Config struct {
	AppEnv             string        `env:"APP_ENV"`
	Port               string        `env:"PORT"`
	DatabaseURL        string        `env:"DATABASE_URL" validate:"required"`
	RedisURL           string        `env:"REDIS_URL" validate:"required"`
	RunMigrations      bool          `env:"RUN_MIGRATIONS"`
	CORSAllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS"`
	MaxBodyBytes       int64         `env:"MAX_BODY_BYTES" validate:"gte=0"`
	HSTSMaxAge         time.Duration `env:"HSTS_MAX_AGE"`

	JWTSecret      string        `env:"JWT_SECRET" validate:"required"`
	JWTIssuer      string        `env:"JWT_ISSUER"`
	JWTAudience    string        `env:"JWT_AUDIENCE"`
	AccessTokenTTL time.Duration `env:"ACCESS_TOKEN_TTL" validate:"gt=0"`

	DefaultTaxRate         float64 `env:"DEFAULT_TAX_RATE" validate:"gte=0"`
	LowStockDefaultMinimum int     `env:"LOW_STOCK_DEFAULT_MINIMUM" validate:"gte=0"`
	ExpiryWarningDays      int     `env:"EXPIRY_WARNING_DAYS" validate:"gt=0"`

	DashboardCacheTTL time.Duration `env:"DASHBOARD_CACHE_TTL"`
	IdempotencyTTL    time.Duration `env:"IDEMPOTENCY_TTL"`
	LockTTL           time.Duration `env:"LOCK_TTL"`
	LockRetryBackoff  time.Duration `env:"LOCK_RETRY_BACKOFF"`

	RateLimitAuth        string        `env:"RATE_LIMIT_AUTH"`
	RateLimitWriteMax    int           `env:"RATE_LIMIT_WRITE_MAX"`
	RateLimitWriteWindow time.Duration `env:"RATE_LIMIT_WRITE_WINDOW"`

	QueueConcurrency  int    `env:"QUEUE_CONCURRENCY" validate:"gt=0"`
	WorkerMetricsAddr string `env:"WORKER_METRICS_ADDR"`

	LogFormat         string        `env:"OBS_LOG_FORMAT" validate:"oneof=json console text"`
	LogLevel          string        `env:"OBS_LOG_LEVEL"`
	MetricsEnabled    bool          `env:"OBS_ENABLE_PROMETHEUS"`
	MetricsNamespace  string        `env:"OBS_METRICS_NAMESPACE"`
	MetricsBucketsMS  string        `env:"OBS_METRICS_BUCKETS_MS"`
	TracingEnabled    bool          `env:"OBS_ENABLE_TRACING"`
	TracingExporter   string        `env:"OBS_TRACING_EXPORTER"`
	TracingEndpoint   string        `env:"OBS_OTLP_ENDPOINT"`
	TracingSampling   float64       `env:"OBS_TRACING_SAMPLING_RATIO" validate:"gte=0,lte=1"`
	ShutdownTimeout   time.Duration `env:"SHUTDOWN_TIMEOUT"`
	ReadHeaderTimeout time.Duration `env:"READ_HEADER_TIMEOUT"`
}

// Load reads .env (when present) and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("config: load env: %w", err)
	}
	return build(k)
}

// FromMap builds a Config from explicit values instead of the environment.
// Empty values count as unset.
func FromMap(values map[string]string) (*Config, error) {
	k := koanf.New(".")
	for key, v := range values {
		if v == "" {
			continue
		}
		if err := k.Set(key, v); err != nil {
			return nil, fmt.Errorf("config: set %s: %w", key, err)
		}
	}
	return build(k)
}

func build(k *koanf.Koanf) (*Config, error) {
	r := reader{k}
	cfg := &Config{
		AppEnv:             r.str("APP_ENV", "development"),
		Port:               r.str("PORT", "8080"),
		DatabaseURL:        r.str("DATABASE_URL", ""),
		RedisURL:           r.str("REDIS_URL", ""),
		RunMigrations:      r.boolean("RUN_MIGRATIONS", true),
		CORSAllowedOrigins: r.list("CORS_ALLOWED_ORIGINS"),
		MaxBodyBytes:       int64(r.integer("MAX_BODY_BYTES", 1<<20)),
		HSTSMaxAge:         r.duration("HSTS_MAX_AGE", 0),

		JWTSecret:      r.str("JWT_SECRET", ""),
		JWTIssuer:      r.str("JWT_ISSUER", "backend-apotek"),
		JWTAudience:    r.str("JWT_AUDIENCE", "apotek-frontend"),
		AccessTokenTTL: r.duration("ACCESS_TOKEN_TTL", 7*24*time.Hour),

		DefaultTaxRate:         r.float("DEFAULT_TAX_RATE", 12),
		LowStockDefaultMinimum: r.integer("LOW_STOCK_DEFAULT_MINIMUM", 10),
		ExpiryWarningDays:      r.integer("EXPIRY_WARNING_DAYS", 30),

		DashboardCacheTTL: r.duration("DASHBOARD_CACHE_TTL", time.Minute),
		IdempotencyTTL:    r.duration("IDEMPOTENCY_TTL", 24*time.Hour),
		LockTTL:           r.duration("LOCK_TTL", 10*time.Second),
		LockRetryBackoff:  r.duration("LOCK_RETRY_BACKOFF", 50*time.Millisecond),

		RateLimitAuth:        r.str("RATE_LIMIT_AUTH", "10-M"),
		RateLimitWriteMax:    r.integer("RATE_LIMIT_WRITE_MAX", 60),
		RateLimitWriteWindow: r.duration("RATE_LIMIT_WRITE_WINDOW", time.Minute),

		QueueConcurrency:  r.integer("QUEUE_CONCURRENCY", 5),
		WorkerMetricsAddr: r.str("WORKER_METRICS_ADDR", ":9091"),

		LogFormat:         strings.ToLower(r.str("OBS_LOG_FORMAT", "json")),
		LogLevel:          r.str("OBS_LOG_LEVEL", "info"),
		MetricsEnabled:    r.boolean("OBS_ENABLE_PROMETHEUS", true),
		MetricsNamespace:  r.str("OBS_METRICS_NAMESPACE", "apotek"),
		MetricsBucketsMS:  r.str("OBS_METRICS_BUCKETS_MS", ""),
		TracingEnabled:    r.boolean("OBS_ENABLE_TRACING", false),
		TracingExporter:   r.str("OBS_TRACING_EXPORTER", "otlp"),
		TracingEndpoint:   r.str("OBS_OTLP_ENDPOINT", ""),
		TracingSampling:   r.float("OBS_TRACING_SAMPLING_RATIO", 1),
		ShutdownTimeout:   r.duration("SHUTDOWN_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: r.duration("READ_HEADER_TIMEOUT", 5*time.Second),
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

var structValidator = func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string { return f.Tag.Get("env") })
	return v
}()

// validate reports every bad setting at once, by variable name.
func validate(cfg *Config) error {
	err := structValidator.Struct(cfg)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Tag() == "required" {
			msgs = append(msgs, fe.Field()+" is required")
			continue
		}
		msgs = append(msgs, fmt.Sprintf("%s fails %s=%s", fe.Field(), fe.Tag(), fe.Param()))
	}
	return fmt.Errorf("config: %s", strings.Join(msgs, "; "))
}

// HTTPAddr is the listen address derived from PORT.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	switch {
	case port == "":
		return ":8080"
	case strings.HasPrefix(port, ":"):
		return port
	default:
		return ":" + port
	}
}

// IsProduction reports APP_ENV=production.
func (c *Config) IsProduction() bool { return c.AppEnv == "production" }

// reader returns the fallback for unset or unparsable values.
type reader struct{ k *koanf.Koanf }

func (r reader) str(key, fallback string) string {
	if v := strings.TrimSpace(r.k.String(key)); v != "" {
		return v
	}
	return fallback
}

func (r reader) list(key string) []string {
	var out []string
	for _, part := range strings.Split(r.k.String(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (r reader) duration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(r.str(key, ""))
	if err != nil {
		return fallback
	}
	return d
}

func (r reader) boolean(key string, fallback bool) bool {
	switch strings.ToLower(r.str(key, "")) {
	case "1", "t", "true", "yes", "on":
		return true
	case "0", "f", "false", "no", "off":
		return false
	}
	return fallback
}

func (r reader) integer(key string, fallback int) int {
	n, err := strconv.Atoi(r.str(key, ""))
	if err != nil {
		return fallback
	}
	return n
}

func (r reader) float(key string, fallback float64) float64 {
	f, err := strconv.ParseFloat(r.str(key, ""), 64)
	if err != nil {
		return fallback
	}
	return f
}
