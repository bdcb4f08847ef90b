package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	// EnvPrefix namespaces every environment variable the service reads.
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App      AppConfig
	DB       DBConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Platform PlatformConfig
	Payout   PayoutConfig
	Webhook  WebhookConfig
	Cache    CacheConfig
	Security SecurityConfig
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
	Env          string `envconfig:"GARIMPEI_APP_ENV" required:"true"`
	Port         string `envconfig:"GARIMPEI_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"GARIMPEI_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"GARIMPEI_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"GARIMPEI_DB_DSN"`
	Driver string `envconfig:"GARIMPEI_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"GARIMPEI_DB_HOST"`
	Port     int    `envconfig:"GARIMPEI_DB_PORT" default:"5432"`
	User     string `envconfig:"GARIMPEI_DB_USER"`
	Password string `envconfig:"GARIMPEI_DB_PASSWORD"`
	Name     string `envconfig:"GARIMPEI_DB_NAME"`
	SSLMode  string `envconfig:"GARIMPEI_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"GARIMPEI_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"GARIMPEI_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"GARIMPEI_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"GARIMPEI_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	AutoMigrate bool `envconfig:"GARIMPEI_DB_AUTO_MIGRATE" default:"false"`
}

type RedisConfig struct {
	URL          string        `envconfig:"GARIMPEI_REDIS_URL"`
	Address      string        `envconfig:"GARIMPEI_REDIS_ADDR"`
	Password     string        `envconfig:"GARIMPEI_REDIS_PASSWORD"`
	DB           int           `envconfig:"GARIMPEI_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"GARIMPEI_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"GARIMPEI_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"GARIMPEI_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"GARIMPEI_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"GARIMPEI_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"GARIMPEI_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"GARIMPEI_JWT_ISSUER" default:"garimpei"`
	ExpirationMinutes int    `envconfig:"GARIMPEI_JWT_EXPIRATION_MINUTES" default:"60"`
}

// AccessTokenTTL returns the configured access token lifetime.
func (j JWTConfig) AccessTokenTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type PlatformConfig struct {
	FeeBps          int    `envconfig:"GARIMPEI_PLATFORM_FEE_BPS" default:"1000"`
	DefaultCurrency string `envconfig:"GARIMPEI_PLATFORM_CURRENCY" default:"BRL"`
}

type PayoutConfig struct {
	MinAmountCents       int64         `envconfig:"GARIMPEI_PAYOUT_MIN_AMOUNT_CENTS" default:"2000"`
	CodeTTL              time.Duration `envconfig:"GARIMPEI_PAYOUT_CODE_TTL" default:"30m"`
	MaxVerifyAttempts    int           `envconfig:"GARIMPEI_PAYOUT_MAX_VERIFY_ATTEMPTS" default:"5"`
	WhatsAppCodeFallback bool          `envconfig:"GARIMPEI_PAYOUT_WHATSAPP_FALLBACK" default:"true"`
}

type WebhookConfig struct {
	IdempotencyTTL time.Duration `envconfig:"GARIMPEI_WEBHOOK_IDEMPOTENCY_TTL" default:"720h"`
}

type CacheConfig struct {
	CouponTTL time.Duration `envconfig:"GARIMPEI_CACHE_COUPON_TTL" default:"30s"`
}

type SecurityConfig struct {
	ArgonMemoryKB    int `envconfig:"GARIMPEI_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"GARIMPEI_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"GARIMPEI_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"GARIMPEI_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"GARIMPEI_ARGON_KEY_LEN" default:"32"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	required := []struct {
		env   string
		value string
	}{
		{"GARIMPEI_DB_HOST", db.Host},
		{"GARIMPEI_DB_USER", db.User},
		{"GARIMPEI_DB_NAME", db.Name},
	}
	for _, entry := range required {
		if entry.value == "" {
			missing = append(missing, entry.env)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("either GARIMPEI_DB_DSN or %s are required", strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}
	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
