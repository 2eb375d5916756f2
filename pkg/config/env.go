package config

const (
	EnvPrefix = "STOREFRONT"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv   = "STOREFRONT_APP_ENV"
	EnvPort     = "STOREFRONT_APP_PORT"
	EnvLogLevel = "STOREFRONT_LOG_LEVEL"

	EnvDBDSN  = "STOREFRONT_DB_DSN"
	EnvDBHost = "STOREFRONT_DB_HOST"
	EnvDBUser = "STOREFRONT_DB_USER"
	EnvDBName = "STOREFRONT_DB_NAME"

	DriverPostgres   = "postgres"
	DriverSQLite     = "sqlite"
	defaultSQLiteDSN = "file:storefront.db?_foreign_keys=on"

	EnvRedisURL = "STOREFRONT_REDIS_URL"

	EnvJWTSecret              = "STOREFRONT_JWT_SECRET"
	EnvJWTIssuer              = "STOREFRONT_JWT_ISSUER"
	EnvJWTExpMins             = "STOREFRONT_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "STOREFRONT_REFRESH_TOKEN_TTL_MINUTES"

	EnvOrdersFreeShipping = "STOREFRONT_ORDERS_FREE_SHIPPING_THRESHOLD"
	EnvOrdersFlatShipping = "STOREFRONT_ORDERS_FLAT_SHIPPING"
	EnvOrdersTaxRate      = "STOREFRONT_ORDERS_TAX_RATE"

	EnvCORSAllowedOrigins = "STOREFRONT_CORS_ALLOWED_ORIGINS"
	EnvPubSubOrdersTopic  = "STOREFRONT_PUBSUB_ORDERS_TOPIC"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
