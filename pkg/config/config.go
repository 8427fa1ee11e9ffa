package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Gateway      GatewayConfig
	Pricing      PricingConfig
	Pending      PendingConfig
	RateLimit    RateLimitConfig
	Idempotency  IdempotencyConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Pending.validate(); err != nil {
		return nil, err
	}
	if cfg.Pending.UsesRedis() && !cfg.Redis.Enabled() {
		return nil, fmt.Errorf("%s=%s requires %s", EnvPendingBackend, PendingBackendRedis, EnvRedisURL)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env             string        `envconfig:"CHECKOUT_APP_ENV" required:"true"`
	Port            string        `envconfig:"CHECKOUT_APP_PORT" required:"true"`
	Name            string        `envconfig:"CHECKOUT_APP_NAME" default:"checkout-api"`
	LogLevel        string        `envconfig:"CHECKOUT_LOG_LEVEL" default:"info"`
	LogWarnStack    bool          `envconfig:"CHECKOUT_LOG_WARN_STACK" default:"false"`
	CORSOrigins     []string      `envconfig:"CHECKOUT_CORS_ORIGINS"`
	ShutdownTimeout time.Duration `envconfig:"CHECKOUT_SHUTDOWN_TIMEOUT" default:"15s"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

type DBConfig struct {
	DSN    string `envconfig:"CHECKOUT_DB_DSN"`
	Driver string `envconfig:"CHECKOUT_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"CHECKOUT_DB_HOST"`
	LegacyPort     int    `envconfig:"CHECKOUT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"CHECKOUT_DB_USER"`
	LegacyPassword string `envconfig:"CHECKOUT_DB_PASSWORD"`
	LegacyName     string `envconfig:"CHECKOUT_DB_NAME"`
	LegacySSLMode  string `envconfig:"CHECKOUT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"CHECKOUT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CHECKOUT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CHECKOUT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CHECKOUT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the configured driver is the embedded sqlite driver.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DBDriverSQLite)
}

// RedisConfig is optional. An empty URL and address leaves every Redis-backed
// feature disabled.
type RedisConfig struct {
	URL          string        `envconfig:"CHECKOUT_REDIS_URL"`
	Address      string        `envconfig:"CHECKOUT_REDIS_ADDR"`
	Password     string        `envconfig:"CHECKOUT_REDIS_PASSWORD"`
	DB           int           `envconfig:"CHECKOUT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CHECKOUT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CHECKOUT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CHECKOUT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CHECKOUT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CHECKOUT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

// JWTConfig verifies back-office tokens for the order admin routes.
type JWTConfig struct {
	Secret   string        `envconfig:"CHECKOUT_JWT_SECRET" required:"true"`
	Issuer   string        `envconfig:"CHECKOUT_JWT_ISSUER" default:"checkout-backend"`
	TokenTTL time.Duration `envconfig:"CHECKOUT_JWT_TOKEN_TTL" default:"12h"`
}

// GatewayConfig holds the hosted payment page settings. BaseURL, SecretKey and
// PublishableKey are the three options the gateway itself recognizes.
type GatewayConfig struct {
	BaseURL        string        `envconfig:"CHECKOUT_GATEWAY_BASE_URL" required:"true"`
	SecretKey      string        `envconfig:"CHECKOUT_GATEWAY_SECRET_KEY" required:"true"`
	PublishableKey string        `envconfig:"CHECKOUT_GATEWAY_PUBLISHABLE_KEY" required:"true"`
	PayURL         string        `envconfig:"CHECKOUT_GATEWAY_PAY_URL" default:"https://checkout.thawani.om/pay"`
	SuccessURL     string        `envconfig:"CHECKOUT_GATEWAY_SUCCESS_URL" default:"https://www.bondarabia.com/SuccessRedirect"`
	CancelURL      string        `envconfig:"CHECKOUT_GATEWAY_CANCEL_URL" default:"https://www.bondarabia.com/checkout"`
	WebhookSecret  string        `envconfig:"CHECKOUT_GATEWAY_WEBHOOK_SECRET"`
	Timeout        time.Duration `envconfig:"CHECKOUT_GATEWAY_TIMEOUT" default:"10s"`

	BreakerMaxFailures uint32        `envconfig:"CHECKOUT_GATEWAY_BREAKER_MAX_FAILURES" default:"5"`
	BreakerOpenTimeout time.Duration `envconfig:"CHECKOUT_GATEWAY_BREAKER_OPEN_TIMEOUT" default:"30s"`
}

// PricingConfig carries every constant the pricing engine depends on. Amounts
// are in the major currency unit.
type PricingConfig struct {
	PairDiscount        decimal.Decimal `envconfig:"CHECKOUT_PRICING_PAIR_DISCOUNT" default:"1"`
	PairCategories      []string        `envconfig:"CHECKOUT_PRICING_PAIR_CATEGORIES" default:"الشيلات فرنسية,الشيلات سادة"`
	DomesticShipping    decimal.Decimal `envconfig:"CHECKOUT_PRICING_DOMESTIC_SHIPPING" default:"2"`
	RegionName          string          `envconfig:"CHECKOUT_PRICING_REGION_NAME" default:"دول الخليج"`
	RegionShipping      decimal.Decimal `envconfig:"CHECKOUT_PRICING_REGION_SHIPPING" default:"5"`
	SubregionName       string          `envconfig:"CHECKOUT_PRICING_SUBREGION_NAME" default:"الإمارات"`
	SubregionShipping   decimal.Decimal `envconfig:"CHECKOUT_PRICING_SUBREGION_SHIPPING" default:"4"`
	FreeShippingAt      decimal.Decimal `envconfig:"CHECKOUT_PRICING_FREE_SHIPPING_AT" default:"14"`
	DepositAmount       decimal.Decimal `envconfig:"CHECKOUT_PRICING_DEPOSIT_AMOUNT" default:"10"`
	MinorUnitsPerMajor  int64           `envconfig:"CHECKOUT_PRICING_MINOR_UNITS" default:"1000"`
	MinimumChargeMinor  int64           `envconfig:"CHECKOUT_PRICING_MINIMUM_CHARGE_MINOR" default:"100"`
	MinimumUnitPrice    decimal.Decimal `envconfig:"CHECKOUT_PRICING_MINIMUM_UNIT_PRICE" default:"0.1"`
	MaxAmount           decimal.Decimal `envconfig:"CHECKOUT_PRICING_MAX_AMOUNT" default:"100000"`
	DepositLineName     string          `envconfig:"CHECKOUT_PRICING_DEPOSIT_LINE_NAME" default:"دفعة مقدم"`
	ShippingLineName    string          `envconfig:"CHECKOUT_PRICING_SHIPPING_LINE_NAME" default:"رسوم الشحن"`
	FallbackProductName string          `envconfig:"CHECKOUT_PRICING_FALLBACK_PRODUCT_NAME" default:"منتج"`
}

type PendingConfig struct {
	Backend       string        `envconfig:"CHECKOUT_PENDING_BACKEND" default:"memory"`
	TTL           time.Duration `envconfig:"CHECKOUT_PENDING_TTL" default:"2h"`
	MaxEntries    int           `envconfig:"CHECKOUT_PENDING_MAX_ENTRIES" default:"10000"`
	SweepInterval time.Duration `envconfig:"CHECKOUT_PENDING_SWEEP_INTERVAL" default:"5m"`
}

func (p PendingConfig) UsesRedis() bool {
	return strings.EqualFold(strings.TrimSpace(p.Backend), PendingBackendRedis)
}

func (p PendingConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(p.Backend)) {
	case PendingBackendMemory, PendingBackendRedis:
	default:
		return fmt.Errorf("%s must be %q or %q", EnvPendingBackend, PendingBackendMemory, PendingBackendRedis)
	}
	if p.TTL < 0 {
		return fmt.Errorf("%s must not be negative", EnvPendingTTL)
	}
	return nil
}

type RateLimitConfig struct {
	CheckoutWindow  time.Duration `envconfig:"CHECKOUT_RATE_LIMIT_CHECKOUT_WINDOW" default:"1m"`
	CheckoutIPLimit int           `envconfig:"CHECKOUT_RATE_LIMIT_CHECKOUT_IP_LIMIT" default:"20"`
}

type IdempotencyConfig struct {
	CheckoutTTL time.Duration `envconfig:"CHECKOUT_IDEMPOTENCY_CHECKOUT_TTL" default:"24h"`
	WebhookTTL  time.Duration `envconfig:"CHECKOUT_IDEMPOTENCY_WEBHOOK_TTL" default:"720h"`
}

type FeatureFlagsConfig struct {
	AutoMigrate  bool `envconfig:"CHECKOUT_AUTO_MIGRATE" default:"false"`
	PendingSweep bool `envconfig:"CHECKOUT_PENDING_SWEEP" default:"true"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		db.DSN = "file:checkout.db?cache=shared"
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
