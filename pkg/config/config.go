package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Cache        CacheConfig
	Eventing     EventingConfig
	Outbox       OutboxConfig
	Cron         CronConfig
	Client       ClientConfig
	RateLimit    RateLimitConfig
	CORS         CORSConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadClient reads only the settings the operator CLI needs, so it can run
// on machines without database or redis credentials.
func LoadClient() (*ClientConfig, error) {
	var cfg ClientConfig
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing client config: %w", err)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"COMERCIO_APP_ENV" required:"true"`
	Port         string `envconfig:"COMERCIO_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"COMERCIO_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"COMERCIO_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"COMERCIO_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"COMERCIO_DB_DSN"`
	Driver string `envconfig:"COMERCIO_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"COMERCIO_DB_HOST"`
	LegacyPort     int    `envconfig:"COMERCIO_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"COMERCIO_DB_USER"`
	LegacyPassword string `envconfig:"COMERCIO_DB_PASSWORD"`
	LegacyName     string `envconfig:"COMERCIO_DB_NAME"`
	LegacySSLMode  string `envconfig:"COMERCIO_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"COMERCIO_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"COMERCIO_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"COMERCIO_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"COMERCIO_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the configured driver is the embedded sqlite one.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"COMERCIO_REDIS_URL" required:"true"`
	Address      string        `envconfig:"COMERCIO_REDIS_ADDR"`
	Password     string        `envconfig:"COMERCIO_REDIS_PASSWORD"`
	DB           int           `envconfig:"COMERCIO_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"COMERCIO_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"COMERCIO_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"COMERCIO_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"COMERCIO_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"COMERCIO_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"COMERCIO_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"COMERCIO_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"COMERCIO_JWT_EXPIRATION_MINUTES" required:"true"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"COMERCIO_AUTO_MIGRATE" default:"false"`
}

type CacheConfig struct {
	StatsTTL time.Duration `envconfig:"COMERCIO_CACHE_STATS_TTL" default:"60s"`
}

type EventingConfig struct {
	IdempotencyTTL time.Duration `envconfig:"COMERCIO_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"COMERCIO_OUTBOX_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"COMERCIO_OUTBOX_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"COMERCIO_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

// PollInterval returns the dispatcher poll interval.
func (o OutboxConfig) PollInterval() time.Duration {
	if o.PollIntervalMS <= 0 {
		return 0
	}
	return time.Duration(o.PollIntervalMS) * time.Millisecond
}

type CronConfig struct {
	Interval                  time.Duration `envconfig:"COMERCIO_CRON_INTERVAL" default:"24h"`
	NotificationRetentionDays int           `envconfig:"COMERCIO_NOTIFICATION_RETENTION_DAYS" default:"30"`
	OutboxRetentionDays       int           `envconfig:"COMERCIO_OUTBOX_RETENTION_DAYS" default:"30"`
	DLQRetentionDays          int           `envconfig:"COMERCIO_OUTBOX_DLQ_RETENTION_DAYS" default:"90"`
}

type RateLimitConfig struct {
	Window    time.Duration `envconfig:"COMERCIO_RATE_LIMIT_WINDOW" default:"1m"`
	IPLimit   int           `envconfig:"COMERCIO_RATE_LIMIT_IP" default:"120"`
	UserLimit int           `envconfig:"COMERCIO_RATE_LIMIT_USER" default:"60"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"COMERCIO_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

type ClientConfig struct {
	BaseURL string        `envconfig:"COMERCIO_CLIENT_BASE_URL" default:"http://localhost:8080"`
	Token   string        `envconfig:"COMERCIO_CLIENT_TOKEN"`
	Timeout time.Duration `envconfig:"COMERCIO_CLIENT_TIMEOUT" default:"15s"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
