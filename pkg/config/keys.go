package config

// EnvPrefix is the envconfig prefix shared by every setting.
const EnvPrefix = "MINIMART"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "production"
)

// Environment variable names referenced outside struct tags (tests, error
// messages).
const (
	EnvAppEnv = "MINIMART_APP_ENV"
	EnvPort   = "MINIMART_APP_PORT"

	EnvDBDSN  = "MINIMART_DB_DSN"
	EnvDBHost = "MINIMART_DB_HOST"
	EnvDBUser = "MINIMART_DB_USER"
	EnvDBName = "MINIMART_DB_NAME"

	EnvRedisURL = "MINIMART_REDIS_URL"

	EnvJWTSecret              = "MINIMART_JWT_SECRET"
	EnvJWTIssuer              = "MINIMART_JWT_ISSUER"
	EnvJWTExpMins             = "MINIMART_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "MINIMART_REFRESH_TOKEN_TTL_MINUTES"

	EnvGCPProjectID    = "MINIMART_GCP_PROJECT_ID"
	EnvPubSubStaffSub  = "MINIMART_PUBSUB_STAFF_SUBSCRIPTION"
	EnvPubSubStaffTopc = "MINIMART_PUBSUB_STAFF_TOPIC"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
