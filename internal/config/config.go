package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

// Development defaults for the signing secrets; rejected in production.
const (
	devAccessSecret  = "dev-access-secret"
	devRefreshSecret = "dev-refresh-secret"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	SQLite       SQLiteConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	OTP          OTPConfig
	Notification NotificationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name           string        `env:"APP_NAME" envDefault:"telehealth-auth"`
	Env            string        `env:"APP_ENV" envDefault:"development"`
	Host           string        `env:"APP_HOST" envDefault:"0.0.0.0"`
	Port           string        `env:"APP_PORT" envDefault:"8080"`
	Version        string        `env:"APP_VERSION" envDefault:"dev"`
	RequestTimeout time.Duration `env:"HTTP_REQUEST_TIMEOUT" envDefault:"30s"`
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string `env:"POSTGRES_DSN"`
	MaxConns       int32  `env:"POSTGRES_MAX_CONNS" envDefault:"10"`
	MinConns       int32  `env:"POSTGRES_MIN_CONNS" envDefault:"2"`
	RunMigrations  bool   `env:"POSTGRES_RUN_MIGRATIONS" envDefault:"true"`
	ConnMaxIdleSec int32  `env:"POSTGRES_CONN_MAX_IDLE_SECONDS" envDefault:"30"`
	ConnMaxLifeSec int32  `env:"POSTGRES_CONN_MAX_LIFE_SECONDS" envDefault:"300"`
}

// SQLiteConfig points at the single-file identity store used by clinic deployments.
type SQLiteConfig struct {
	Path string `env:"SQLITE_PATH" envDefault:"data/identities.db"`
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" envDefault:"127.0.0.1:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string `env:"LOG_LEVEL" envDefault:"info"`
}

// Identity store backends.
const (
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
)

// Session transports.
const (
	TransportCookie = "cookie"
	TransportBody   = "body"
	TransportBoth   = "both"
)

// AuthConfig defines session and credential parameters.
type AuthConfig struct {
	AccessSecret     string        `env:"AUTH_ACCESS_SECRET" envDefault:"dev-access-secret"`
	RefreshSecret    string        `env:"AUTH_REFRESH_SECRET" envDefault:"dev-refresh-secret"`
	Issuer           string        `env:"AUTH_ISSUER" envDefault:"nabha-telehealth"`
	AccessTokenTTL   time.Duration `env:"AUTH_ACCESS_TOKEN_TTL" envDefault:"15m"`
	RefreshTokenTTL  time.Duration `env:"AUTH_REFRESH_TOKEN_TTL" envDefault:"168h"`
	BcryptCost       int           `env:"AUTH_BCRYPT_COST" envDefault:"12"`
	StoreTimeout     time.Duration `env:"AUTH_STORE_TIMEOUT" envDefault:"3s"`
	SessionTransport string        `env:"AUTH_SESSION_TRANSPORT" envDefault:"both"`
	IdentityStore    string        `env:"AUTH_IDENTITY_STORE" envDefault:"postgres"`
}

// OTP store backends.
const (
	OTPStoreMemory = "memory"
	OTPStoreRedis  = "redis"
)

// OTPConfig defines one-time code parameters.
type OTPConfig struct {
	Store         string        `env:"OTP_STORE" envDefault:"memory"`
	TTL           time.Duration `env:"OTP_TTL" envDefault:"5m"`
	Length        int           `env:"OTP_LENGTH" envDefault:"6"`
	MaxAttempts   int           `env:"OTP_MAX_ATTEMPTS" envDefault:"3"`
	SweepInterval time.Duration `env:"OTP_SWEEP_INTERVAL" envDefault:"1m"`
}

// NotificationConfig holds SMS delivery settings.
type NotificationConfig struct {
	TwilioAccountSID string        `env:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken  string        `env:"TWILIO_AUTH_TOKEN"`
	TwilioFromNumber string        `env:"TWILIO_FROM_NUMBER"`
	QueueSize        int           `env:"NOTIFY_QUEUE_SIZE" envDefault:"256"`
	Workers          int           `env:"NOTIFY_WORKERS" envDefault:"4"`
	SendTimeout      time.Duration `env:"NOTIFY_SEND_TIMEOUT" envDefault:"5s"`
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return nil, fmt.Errorf("load .env file: %w", err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the service cannot run safely with.
func (c *Config) Validate() error {
	if c.Auth.AccessSecret == "" || c.Auth.RefreshSecret == "" {
		return errors.New("access and refresh secrets are required")
	}
	if c.Auth.AccessSecret == c.Auth.RefreshSecret {
		return errors.New("access and refresh secrets must differ")
	}
	if c.App.IsProduction() && (c.Auth.AccessSecret == devAccessSecret || c.Auth.RefreshSecret == devRefreshSecret) {
		return errors.New("development signing secrets must not be used in production")
	}
	if c.Auth.BcryptCost < bcrypt.DefaultCost || c.Auth.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("AUTH_BCRYPT_COST must be between %d and %d", bcrypt.DefaultCost, bcrypt.MaxCost)
	}
	if c.Auth.AccessTokenTTL <= 0 || c.Auth.RefreshTokenTTL <= 0 {
		return errors.New("token TTLs must be positive")
	}
	if c.Auth.AccessTokenTTL > c.Auth.RefreshTokenTTL {
		return errors.New("access token TTL must not exceed refresh token TTL")
	}
	switch c.Auth.SessionTransport {
	case TransportCookie, TransportBody, TransportBoth:
	default:
		return fmt.Errorf("invalid AUTH_SESSION_TRANSPORT %q", c.Auth.SessionTransport)
	}
	switch c.Auth.IdentityStore {
	case StorePostgres, StoreSQLite:
	default:
		return fmt.Errorf("invalid AUTH_IDENTITY_STORE %q", c.Auth.IdentityStore)
	}
	switch c.OTP.Store {
	case OTPStoreMemory, OTPStoreRedis:
	default:
		return fmt.Errorf("invalid OTP_STORE %q", c.OTP.Store)
	}
	if c.OTP.TTL <= 0 || c.OTP.Length <= 0 || c.OTP.MaxAttempts <= 0 {
		return errors.New("OTP TTL, length and max attempts must be positive")
	}
	return nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// IsProduction reports whether the service runs in production mode.
func (a AppConfig) IsProduction() bool {
	return a.Env == "production"
}
