package config

// EnvPrefix is the envconfig prefix shared by every setting.
const EnvPrefix = "CHECKOUT"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"

	PendingBackendMemory = "memory"
	PendingBackendRedis  = "redis"
)

const (
	EnvAppEnv   = "CHECKOUT_APP_ENV"
	EnvPort     = "CHECKOUT_APP_PORT"
	EnvLogLevel = "CHECKOUT_LOG_LEVEL"

	EnvDBDSN    = "CHECKOUT_DB_DSN"
	EnvDBDriver = "CHECKOUT_DB_DRIVER"
	EnvDBHost   = "CHECKOUT_DB_HOST"
	EnvDBUser   = "CHECKOUT_DB_USER"
	EnvDBName   = "CHECKOUT_DB_NAME"

	EnvRedisURL = "CHECKOUT_REDIS_URL"

	EnvJWTSecret = "CHECKOUT_JWT_SECRET"
	EnvJWTIssuer = "CHECKOUT_JWT_ISSUER"

	EnvGatewayBaseURL        = "CHECKOUT_GATEWAY_BASE_URL"
	EnvGatewaySecretKey      = "CHECKOUT_GATEWAY_SECRET_KEY"
	EnvGatewayPublishableKey = "CHECKOUT_GATEWAY_PUBLISHABLE_KEY"
	EnvGatewayTimeout        = "CHECKOUT_GATEWAY_TIMEOUT"

	EnvPricingPairCategories = "CHECKOUT_PRICING_PAIR_CATEGORIES"
	EnvPricingFreeShipping   = "CHECKOUT_PRICING_FREE_SHIPPING_AT"

	EnvPendingBackend = "CHECKOUT_PENDING_BACKEND"
	EnvPendingTTL     = "CHECKOUT_PENDING_TTL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
