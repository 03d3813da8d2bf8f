package config

import (
	"context"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string `env:"APP_NAME, default=employee-service"`
	Env                   string `env:"APP_ENV, default=development"`
	Host                  string `env:"APP_HOST, default=0.0.0.0"`
	Port                  string `env:"APP_PORT, default=8080"`
	Version               string `env:"APP_VERSION, default=dev"`
	RequestTimeoutSeconds int    `env:"HTTP_REQUEST_TIMEOUT_SECONDS, default=30"`
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string `env:"POSTGRES_DSN"`
	MaxConns       int32  `env:"POSTGRES_MAX_CONNS, default=10"`
	MinConns       int32  `env:"POSTGRES_MIN_CONNS, default=2"`
	RunMigrations  bool   `env:"POSTGRES_RUN_MIGRATIONS, default=true"`
	ConnMaxIdleSec int32  `env:"POSTGRES_CONN_MAX_IDLE_SECONDS, default=30"`
	ConnMaxLifeSec int32  `env:"POSTGRES_CONN_MAX_LIFE_SECONDS, default=300"`
}

// RedisConfig holds Redis connection values. An empty Addr disables the
// login throttle.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB, default=0"`
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string `env:"LOG_LEVEL, default=info"`
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string `env:"AUTH_JWT_SECRET"`
	Algorithm             string `env:"AUTH_JWT_ALGORITHM, default=HS256"`
	AccessTokenTTLMinutes int    `env:"AUTH_ACCESS_TOKEN_TTL_MINUTES, default=30"`
	ClockSkewSeconds      int    `env:"AUTH_CLOCK_SKEW_SECONDS, default=0"`
	BcryptCost            int    `env:"AUTH_BCRYPT_COST, default=12"`
	MaxFailedLogins       int    `env:"AUTH_MAX_FAILED_LOGINS, default=5"`
	LoginLockoutMinutes   int    `env:"AUTH_LOGIN_LOCKOUT_MINUTES, default=15"`
}

// Load reads configuration from the environment (and a .env file when present),
// applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return LoadFrom(context.Background(), envconfig.OsLookuper())
}

// LoadFrom populates Config from the given lookuper.
func LoadFrom(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}
	return &cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// AccessTokenTTL returns the default lifetime of issued tokens.
func (a AuthConfig) AccessTokenTTL() time.Duration {
	return time.Duration(a.AccessTokenTTLMinutes) * time.Minute
}

// ClockSkew returns the tolerance applied to expiry checks.
func (a AuthConfig) ClockSkew() time.Duration {
	if a.ClockSkewSeconds <= 0 {
		return 0
	}
	return time.Duration(a.ClockSkewSeconds) * time.Second
}

// LoginLockout returns how long failed login attempts are remembered.
func (a AuthConfig) LoginLockout() time.Duration {
	return time.Duration(a.LoginLockoutMinutes) * time.Minute
}
