package config

// EnvPrefix is handed to envconfig; every field carries its full variable name.
const EnvPrefix = "FLEETSHOP"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const defaultSQLiteDSN = "file:fleetshop.db?cache=shared"

const (
	EnvAppEnv                 = "FLEETSHOP_APP_ENV"
	EnvPort                   = "FLEETSHOP_APP_PORT"
	EnvDBDSN                  = "FLEETSHOP_DB_DSN"
	EnvDBHost                 = "FLEETSHOP_DB_HOST"
	EnvDBUser                 = "FLEETSHOP_DB_USER"
	EnvDBName                 = "FLEETSHOP_DB_NAME"
	EnvRedisURL               = "FLEETSHOP_REDIS_URL"
	EnvJWTSecret              = "FLEETSHOP_JWT_SECRET"
	EnvJWTIssuer              = "FLEETSHOP_JWT_ISSUER"
	EnvJWTExpMins             = "FLEETSHOP_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "FLEETSHOP_REFRESH_TOKEN_TTL_MINUTES"
	EnvGCPProjectID           = "FLEETSHOP_GCP_PROJECT_ID"
	EnvGCSBucket              = "FLEETSHOP_GCS_BUCKET_NAME"
	EnvGCSDownloadExpiry      = "FLEETSHOP_GCS_DOWNLOAD_URL_EXPIRY"
	EnvPubSubInventoryTopic   = "FLEETSHOP_PUBSUB_INVENTORY_TOPIC"
	EnvUseSQLite              = "FLEETSHOP_USE_SQLITE"
	EnvDraftSessionTTL        = "FLEETSHOP_DRAFT_SESSION_TTL"
	EnvDraftLockRetries       = "FLEETSHOP_DRAFT_LOCK_RETRIES"
	EnvSweeperInterval        = "FLEETSHOP_SWEEPER_INTERVAL"
)
