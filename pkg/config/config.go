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
	DB           DBConfig
	Redis        RedisConfig
	Checkout     CheckoutConfig
	Stripe       StripeConfig
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
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"BLENDERY_APP_ENV" required:"true"`
	Port         string `envconfig:"BLENDERY_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"BLENDERY_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"BLENDERY_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"BLENDERY_DB_DSN"`
	Driver string `envconfig:"BLENDERY_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"BLENDERY_DB_HOST"`
	LegacyPort     int    `envconfig:"BLENDERY_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"BLENDERY_DB_USER"`
	LegacyPassword string `envconfig:"BLENDERY_DB_PASSWORD"`
	LegacyName     string `envconfig:"BLENDERY_DB_NAME"`
	LegacySSLMode  string `envconfig:"BLENDERY_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BLENDERY_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BLENDERY_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BLENDERY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BLENDERY_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"BLENDERY_REDIS_URL" required:"true"`
	Address      string        `envconfig:"BLENDERY_REDIS_ADDR"`
	Password     string        `envconfig:"BLENDERY_REDIS_PASSWORD"`
	DB           int           `envconfig:"BLENDERY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BLENDERY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BLENDERY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BLENDERY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BLENDERY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BLENDERY_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// CheckoutConfig bounds the order-placement transaction and fixes the
// pricing knobs applied when a cart is converted into an order.
type CheckoutConfig struct {
	TaxRateBasisPoints         int           `envconfig:"BLENDERY_CHECKOUT_TAX_RATE_BPS" default:"875"`
	ShippingFlatCents          int           `envconfig:"BLENDERY_CHECKOUT_SHIPPING_FLAT_CENTS" default:"599"`
	FreeShippingThresholdCents int           `envconfig:"BLENDERY_CHECKOUT_FREE_SHIPPING_CENTS" default:"5000"`
	LockWait                   time.Duration `envconfig:"BLENDERY_CHECKOUT_LOCK_WAIT" default:"2s"`
	TxTimeout                  time.Duration `envconfig:"BLENDERY_CHECKOUT_TX_TIMEOUT" default:"5s"`
}

type StripeConfig struct {
	APIKey string `envconfig:"BLENDERY_STRIPE_API_KEY"`
	Secret string `envconfig:"BLENDERY_STRIPE_SECRET"`
	Env    string `envconfig:"BLENDERY_STRIPE_ENV" default:"test"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type IdempotencyConfig struct {
	DefaultTTL  time.Duration `envconfig:"BLENDERY_IDEMPOTENCY_TTL" default:"24h"`
	CriticalTTL time.Duration `envconfig:"BLENDERY_IDEMPOTENCY_CRITICAL_TTL" default:"168h"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"BLENDERY_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"BLENDERY_AUTO_MIGRATE" default:"false"`
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
