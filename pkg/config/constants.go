package config

// EnvPrefix is empty; every field tag carries its full POS_* name.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	OutboxSinkPubSub = "pubsub"
	OutboxSinkKafka  = "kafka"
)

const (
	EnvAppEnv   = "POS_APP_ENV"
	EnvPort     = "POS_APP_PORT"
	EnvDBDSN    = "POS_DB_DSN"
	EnvDBDriver = "POS_DB_DRIVER"
	EnvDBHost   = "POS_DB_HOST"
	EnvDBUser   = "POS_DB_USER"
	EnvDBName   = "POS_DB_NAME"
	EnvRedisURL = "POS_REDIS_URL"

	EnvJWTSecret  = "POS_JWT_SECRET"
	EnvJWTIssuer  = "POS_JWT_ISSUER"
	EnvJWTExpMins = "POS_JWT_EXPIRATION_MINUTES"

	EnvSalesAllowBackorder = "POS_SALES_ALLOW_BACKORDER"
	EnvSalesMaxRetries     = "POS_SALES_COMMIT_MAX_RETRIES"

	EnvGCPProjectID = "POS_GCP_PROJECT_ID"
	EnvKafkaBrokers = "POS_KAFKA_BROKERS"
	EnvOutboxSink   = "POS_OUTBOX_SINK"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
