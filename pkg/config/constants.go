package config

const EnvPrefix = "TRACKSUBS"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "production"
)

const (
	EnvAppEnv   = "TRACKSUBS_APP_ENV"
	EnvPort     = "TRACKSUBS_APP_PORT"
	EnvDBDSN    = "TRACKSUBS_DB_DSN"
	EnvDBHost   = "TRACKSUBS_DB_HOST"
	EnvDBUser   = "TRACKSUBS_DB_USER"
	EnvDBName   = "TRACKSUBS_DB_NAME"
	EnvRedisURL = "TRACKSUBS_REDIS_URL"

	EnvJWTSecret              = "TRACKSUBS_JWT_SECRET"
	EnvJWTIssuer              = "TRACKSUBS_JWT_ISSUER"
	EnvJWTExpMins             = "TRACKSUBS_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "TRACKSUBS_REFRESH_TOKEN_TTL_MINUTES"

	EnvGCPProjectID      = "TRACKSUBS_GCP_PROJECT_ID"
	EnvPubSubDomainTopic = "TRACKSUBS_PUBSUB_DOMAIN_TOPIC"
	EnvPubSubDomainSub   = "TRACKSUBS_PUBSUB_DOMAIN_SUBSCRIPTION"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
