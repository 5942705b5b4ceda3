package config

// EnvPrefix is the envconfig prefix applied to every variable.
const EnvPrefix = "BLENDERY"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

// Environment variable names referenced outside struct tags.
const (
	EnvAppEnv   = "BLENDERY_APP_ENV"
	EnvPort     = "BLENDERY_APP_PORT"
	EnvDBDSN    = "BLENDERY_DB_DSN"
	EnvDBHost   = "BLENDERY_DB_HOST"
	EnvDBUser   = "BLENDERY_DB_USER"
	EnvDBName   = "BLENDERY_DB_NAME"
	EnvRedisURL = "BLENDERY_REDIS_URL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
