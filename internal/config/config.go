package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port                    string        `mapstructure:"PORT"`
	Env                     string        `mapstructure:"ENV"`
	DatabaseURL             string        `mapstructure:"DATABASE_URL"`
	DBMaxConns              int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns              int32         `mapstructure:"DB_MIN_CONNS"`
	MigrationsDir           string        `mapstructure:"MIGRATIONS_DIR"`
	JWTSecret               string        `mapstructure:"JWT_SECRET"`
	JWTRefreshSecret        string        `mapstructure:"JWT_REFRESH_SECRET"`
	AccessTokenTTL          time.Duration `mapstructure:"ACCESS_TOKEN_TTL"`
	RefreshTokenTTL         time.Duration `mapstructure:"REFRESH_TOKEN_TTL"`
	RedisURL                string        `mapstructure:"REDIS_URL"`
	CacheSize               int           `mapstructure:"CACHE_SIZE"`
	CacheTTL                time.Duration `mapstructure:"CACHE_TTL"`
	CORSOrigins             []string      `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS            float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst          int           `mapstructure:"RATE_LIMIT_BURST"`
	ReportStrictTransitions bool          `mapstructure:"REPORT_STRICT_TRANSITIONS"`
	LogLevel                string        `mapstructure:"LOG_LEVEL"`
	LogFile                 string        `mapstructure:"LOG_FILE"`
	LogFileMaxSizeMB        int           `mapstructure:"LOG_FILE_MAX_SIZE_MB"`
	LogFileMaxBackups       int           `mapstructure:"LOG_FILE_MAX_BACKUPS"`
	LogFileMaxAgeDays       int           `mapstructure:"LOG_FILE_MAX_AGE_DAYS"`
}

var keys = []string{
	"PORT", "ENV", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS", "MIGRATIONS_DIR",
	"JWT_SECRET", "JWT_REFRESH_SECRET", "ACCESS_TOKEN_TTL", "REFRESH_TOKEN_TTL",
	"REDIS_URL", "CACHE_SIZE", "CACHE_TTL", "CORS_ORIGINS",
	"RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "REPORT_STRICT_TRANSITIONS",
	"LOG_LEVEL", "LOG_FILE", "LOG_FILE_MAX_SIZE_MB", "LOG_FILE_MAX_BACKUPS", "LOG_FILE_MAX_AGE_DAYS",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("MIGRATIONS_DIR", "./migrations")
	v.SetDefault("ACCESS_TOKEN_TTL", "30m")
	v.SetDefault("REFRESH_TOKEN_TTL", "168h")
	v.SetDefault("CACHE_SIZE", 1024)
	v.SetDefault("CACHE_TTL", "5m")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)
	v.SetDefault("REPORT_STRICT_TRANSITIONS", false)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FILE_MAX_SIZE_MB", 100)
	v.SetDefault("LOG_FILE_MAX_BACKUPS", 5)
	v.SetDefault("LOG_FILE_MAX_AGE_DAYS", 30)

	// Bind explicitly so Unmarshal sees env-only keys.
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// .env is optional
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if len(cfg.CORSOrigins) <= 1 {
		if origins := v.GetString("CORS_ORIGINS"); origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// devSecret signs tokens in development when no secret is configured.
const devSecret = "lims-development-secret-do-not-use-in-prod"

// AccessSecret returns the access-token signing key.
func (c *Config) AccessSecret() []byte {
	if c.JWTSecret == "" && c.IsDev() {
		return []byte(devSecret)
	}
	return []byte(c.JWTSecret)
}

// RefreshSecret returns the refresh-token signing key.
func (c *Config) RefreshSecret() []byte {
	if c.JWTRefreshSecret == "" && c.IsDev() {
		return []byte(devSecret + "-refresh")
	}
	return []byte(c.JWTRefreshSecret)
}

// Validate checks that the configuration is safe to run. Outside development
// both signing secrets are required; in production they must be at least
// 32 bytes and distinct.
func (c *Config) Validate() error {
	if !c.IsDev() {
		if c.JWTSecret == "" || c.JWTRefreshSecret == "" {
			return fmt.Errorf("JWT_SECRET and JWT_REFRESH_SECRET are required when ENV=%q", c.Env)
		}
	}
	if c.IsProduction() {
		if len(c.JWTSecret) < 32 || len(c.JWTRefreshSecret) < 32 {
			return fmt.Errorf("JWT secrets must be at least 32 bytes in production")
		}
		if c.JWTSecret == c.JWTRefreshSecret {
			return fmt.Errorf("JWT_SECRET and JWT_REFRESH_SECRET must differ")
		}
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		return fmt.Errorf("token TTLs must be positive")
	}
	if c.AccessTokenTTL >= c.RefreshTokenTTL {
		return fmt.Errorf("ACCESS_TOKEN_TTL must be shorter than REFRESH_TOKEN_TTL")
	}
	if c.CacheSize <= 0 {
		return fmt.Errorf("CACHE_SIZE must be positive, got %d", c.CacheSize)
	}
	return nil
}
