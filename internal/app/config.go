package app

import (
	"errors"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv             string        `envconfig:"APP_ENV" default:"development"`
	AppAddr            string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout     time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout    time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"60s"`
	AppRequestTimeout  time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`
	AppShutdownTimeout time.Duration `envconfig:"APP_SHUTDOWN_TIMEOUT" default:"10s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`

	MongoURI     string        `envconfig:"MONGO_URI" default:"mongodb://127.0.0.1:27017"`
	MongoDB      string        `envconfig:"MONGO_DB" default:"grand_nerud"`
	MongoTimeout time.Duration `envconfig:"MONGO_TIMEOUT" default:"10s"`

	RedisAddr string `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`

	AuthSecret             string        `envconfig:"AUTH_SECRET" required:"true"`
	AuthTokenTTL           time.Duration `envconfig:"AUTH_TOKEN_TTL" default:"30m"`
	AuthCookieName         string        `envconfig:"AUTH_COOKIE_NAME" default:"backoffice_access_token"`
	AuthLoginRatePerMinute int           `envconfig:"AUTH_LOGIN_RATE_PER_MINUTE" default:"10"`
	RateLimitPerMinute     int           `envconfig:"RATE_LIMIT_PER_MINUTE" default:"120"`

	RegistryURL     string        `envconfig:"REGISTRY_URL" default:"https://api-fns.ru/api/egr"`
	RegistryAPIKey  string        `envconfig:"REGISTRY_API_KEY"`
	RegistryTimeout time.Duration `envconfig:"REGISTRY_TIMEOUT" default:"10s"`

	// AuditAsync routes audit events through the task queue; when false they
	// are written directly from the API process.
	AuditAsync     bool          `envconfig:"AUDIT_ASYNC" default:"true"`
	AuditRetention time.Duration `envconfig:"AUDIT_RETENTION" default:"2160h"`
	AuditPurgeCron string        `envconfig:"AUDIT_PURGE_CRON" default:"0 3 * * *"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if cfg.AuthSecret == "" {
		return nil, errors.New("auth secret must be provided")
	}
	if len(cfg.AuthSecret) < 32 && cfg.IsProduction() {
		return nil, errors.New("auth secret must be at least 32 bytes in production")
	}
	if cfg.AuthTokenTTL <= 0 {
		return nil, errors.New("auth token ttl must be positive")
	}
	if cfg.MongoDB == "" {
		return nil, errors.New("mongo database name must be provided")
	}
	return &cfg, nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}
