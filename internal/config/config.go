package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

type Config struct {
	Env      string `mapstructure:"ENV"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	// Client side.
	APIBaseURL      string        `mapstructure:"API_BASE_URL"`
	APITimeout      time.Duration `mapstructure:"API_TIMEOUT"`
	APIRateLimitRPS float64       `mapstructure:"API_RATE_LIMIT_RPS"`
	APIRateBurst    int           `mapstructure:"API_RATE_LIMIT_BURST"`
	APIUsername     string        `mapstructure:"API_USERNAME"`
	APIPassword     string        `mapstructure:"API_PASSWORD"`
	AuthLoginPath   string        `mapstructure:"AUTH_LOGIN_PATH"`
	AuthRefreshPath string        `mapstructure:"AUTH_REFRESH_PATH"`
	AuthRefreshSkew time.Duration `mapstructure:"AUTH_REFRESH_SKEW"`
	ToastCapacity   int           `mapstructure:"TOAST_CAPACITY"`

	// Development backend.
	Port            string        `mapstructure:"PORT"`
	DatabaseURL     string        `mapstructure:"DATABASE_URL"`
	DBMaxConns      int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns      int32         `mapstructure:"DB_MIN_CONNS"`
	JWTSigningKey   string        `mapstructure:"JWT_SIGNING_KEY"`
	AccessTokenTTL  time.Duration `mapstructure:"ACCESS_TOKEN_TTL"`
	RefreshTokenTTL time.Duration `mapstructure:"REFRESH_TOKEN_TTL"`
	DevUsers        string        `mapstructure:"DEV_USERS"`
	CORSOrigins     []string      `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS    float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst  int           `mapstructure:"RATE_LIMIT_BURST"`
	BodyLimit       string        `mapstructure:"BODY_LIMIT"`
	UploadLimit     string        `mapstructure:"UPLOAD_LIMIT"`
}

var keys = []string{
	"ENV", "LOG_LEVEL",
	"API_BASE_URL", "API_TIMEOUT", "API_RATE_LIMIT_RPS", "API_RATE_LIMIT_BURST",
	"API_USERNAME", "API_PASSWORD", "AUTH_LOGIN_PATH", "AUTH_REFRESH_PATH", "AUTH_REFRESH_SKEW",
	"TOAST_CAPACITY",
	"PORT", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
	"JWT_SIGNING_KEY", "ACCESS_TOKEN_TTL", "REFRESH_TOKEN_TTL", "DEV_USERS",
	"CORS_ORIGINS", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "BODY_LIMIT", "UPLOAD_LIMIT",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("API_BASE_URL", "http://localhost:8080")
	v.SetDefault("API_TIMEOUT", "30s")
	v.SetDefault("AUTH_LOGIN_PATH", "/auth/login")
	v.SetDefault("AUTH_REFRESH_PATH", "/auth/refresh")
	v.SetDefault("AUTH_REFRESH_SKEW", "30s")
	v.SetDefault("TOAST_CAPACITY", 20)
	v.SetDefault("PORT", "8080")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("ACCESS_TOKEN_TTL", "15m")
	v.SetDefault("REFRESH_TOKEN_TTL", "24h")
	v.SetDefault("CORS_ORIGINS", "http://localhost:4200")
	v.SetDefault("RATE_LIMIT_RPS", 50)
	v.SetDefault("RATE_LIMIT_BURST", 100)
	v.SetDefault("BODY_LIMIT", "1M")
	v.SetDefault("UPLOAD_LIMIT", "25M")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if len(cfg.CORSOrigins) == 1 && strings.Contains(cfg.CORSOrigins[0], ",") {
		cfg.CORSOrigins = strings.Split(cfg.CORSOrigins[0], ",")
	}
	for i, o := range cfg.CORSOrigins {
		cfg.CORSOrigins[i] = strings.TrimSpace(o)
	}

	if cfg.APIBaseURL == "" {
		return nil, fmt.Errorf("API_BASE_URL is required")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when running against a production backend.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Users parses DEV_USERS ("name:password,name2:password2").
func (c *Config) Users() (map[string]string, error) {
	users := make(map[string]string)
	if strings.TrimSpace(c.DevUsers) == "" {
		return users, nil
	}
	for _, entry := range strings.Split(c.DevUsers, ",") {
		name, pass, ok := strings.Cut(strings.TrimSpace(entry), ":")
		if !ok || name == "" || pass == "" {
			return nil, fmt.Errorf("DEV_USERS entry %q must be name:password", entry)
		}
		users[name] = pass
	}
	return users, nil
}

// Level returns the zerolog level named by LOG_LEVEL, info when unknown.
func (c *Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// Validate checks the development backend settings. Outside development a
// signing key must be configured.
func (c *Config) Validate() error {
	if c.Env != "development" && c.Env != "test" && c.Env != "production" {
		return fmt.Errorf("ENV must be \"development\", \"test\", or \"production\", got %q", c.Env)
	}
	if !c.IsDev() && len(c.JWTSigningKey) < 32 {
		return fmt.Errorf("JWT_SIGNING_KEY must be at least 32 bytes when ENV=%s", c.Env)
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		return fmt.Errorf("token TTLs must be positive")
	}
	if c.AccessTokenTTL >= c.RefreshTokenTTL {
		return fmt.Errorf("ACCESS_TOKEN_TTL (%s) must be shorter than REFRESH_TOKEN_TTL (%s)", c.AccessTokenTTL, c.RefreshTokenTTL)
	}
	if _, err := c.Users(); err != nil {
		return err
	}

	if c.IsDev() && c.JWTSigningKey == "" {
		log.Println("WARNING: JWT_SIGNING_KEY not set, the development backend signs tokens with a random key.")
	}
	return nil
}
