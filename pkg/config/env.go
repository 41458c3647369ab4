package config

const (
	EnvPrefix = "COMERCIO"

	AppEnvDev  = "dev"
	AppEnvProd = "production"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)

const (
	EnvAppEnv      = "COMERCIO_APP_ENV"
	EnvPort        = "COMERCIO_APP_PORT"
	EnvDBDSN       = "COMERCIO_DB_DSN"
	EnvDBDriver    = "COMERCIO_DB_DRIVER"
	EnvDBHost      = "COMERCIO_DB_HOST"
	EnvDBUser      = "COMERCIO_DB_USER"
	EnvDBName      = "COMERCIO_DB_NAME"
	EnvRedisURL    = "COMERCIO_REDIS_URL"
	EnvJWTSecret   = "COMERCIO_JWT_SECRET"
	EnvJWTIssuer   = "COMERCIO_JWT_ISSUER"
	EnvJWTExpMins  = "COMERCIO_JWT_EXPIRATION_MINUTES"
	EnvStatsTTL    = "COMERCIO_CACHE_STATS_TTL"
	EnvClientURL   = "COMERCIO_CLIENT_BASE_URL"
	EnvClientToken = "COMERCIO_CLIENT_TOKEN"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
