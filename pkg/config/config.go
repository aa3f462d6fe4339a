package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "VOLTRIDE"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "VOLTRIDE_DB_DSN"
	EnvDBHost = "VOLTRIDE_DB_HOST"
	EnvDBUser = "VOLTRIDE_DB_USER"
	EnvDBName = "VOLTRIDE_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Gateway      GatewayConfig
	Booking      BookingConfig
	Cron         CronConfig
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
	Env          string `envconfig:"VOLTRIDE_APP_ENV" required:"true"`
	Port         string `envconfig:"VOLTRIDE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"VOLTRIDE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"VOLTRIDE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"VOLTRIDE_DB_DSN"`
	Driver string `envconfig:"VOLTRIDE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"VOLTRIDE_DB_HOST"`
	LegacyPort     int    `envconfig:"VOLTRIDE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"VOLTRIDE_DB_USER"`
	LegacyPassword string `envconfig:"VOLTRIDE_DB_PASSWORD"`
	LegacyName     string `envconfig:"VOLTRIDE_DB_NAME"`
	LegacySSLMode  string `envconfig:"VOLTRIDE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"VOLTRIDE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"VOLTRIDE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"VOLTRIDE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"VOLTRIDE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"VOLTRIDE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"VOLTRIDE_REDIS_ADDR"`
	Password     string        `envconfig:"VOLTRIDE_REDIS_PASSWORD"`
	DB           int           `envconfig:"VOLTRIDE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"VOLTRIDE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"VOLTRIDE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"VOLTRIDE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"VOLTRIDE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"VOLTRIDE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"VOLTRIDE_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"VOLTRIDE_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"VOLTRIDE_JWT_EXPIRATION_MINUTES" required:"true"`
}

// GatewayConfig configures the external payment gateway integration.
type GatewayConfig struct {
	BaseURL        string `envconfig:"VOLTRIDE_GATEWAY_BASE_URL" required:"true"`
	MerchantID     string `envconfig:"VOLTRIDE_GATEWAY_MERCHANT_ID" required:"true"`
	SigningSecret  string `envconfig:"VOLTRIDE_GATEWAY_SIGNING_SECRET" required:"true"`
	DepositPercent int    `envconfig:"VOLTRIDE_GATEWAY_DEPOSIT_PERCENT" default:"30"`
}

// BookingConfig tunes rental order lifecycle policy.
type BookingConfig struct {
	// PendingTTL is how long a booking may sit unapproved before the
	// expiry job cancels it.
	PendingTTL time.Duration `envconfig:"VOLTRIDE_BOOKING_PENDING_TTL" default:"24h"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"VOLTRIDE_CRON_INTERVAL" default:"1h"`
	LockKey  string        `envconfig:"VOLTRIDE_CRON_LOCK_KEY" default:"cron:leader"`
	LockTTL  time.Duration `envconfig:"VOLTRIDE_CRON_LOCK_TTL" default:"65m"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"VOLTRIDE_AUTO_MIGRATE" default:"false"`
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
