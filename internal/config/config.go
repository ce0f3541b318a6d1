// Package config loads runtime settings from .env files and the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const defaultSessionSecret = "devsecret-change-me"

// Config holds application configuration values loaded from the environment.
type Config struct {
	Port              string        `mapstructure:"PORT"`
	Env               string        `mapstructure:"APP_ENV"`
	MongoURI          string        `mapstructure:"MONGODB_URI"`
	MongoDatabase     string        `mapstructure:"MONGODB_DATABASE"`
	MongoTransactions bool          `mapstructure:"MONGO_TRANSACTIONS"`
	SessionSecret     string        `mapstructure:"SESSION_SECRET"`
	SessionKeys       string        `mapstructure:"SESSION_KEYS"`
	SessionActiveKID  string        `mapstructure:"SESSION_ACTIVE_KID"`
	SessionStore      string        `mapstructure:"SESSION_STORE"`
	RedisURL          string        `mapstructure:"REDIS_URL"`
	SessionTTL        time.Duration `mapstructure:"SESSION_TTL"`
	CookieName        string        `mapstructure:"SESSION_COOKIE_NAME"`
	CookieSecure      bool          `mapstructure:"COOKIE_SECURE"`
	AllowedOrigins    string        `mapstructure:"ALLOWED_ORIGINS"`
	RateLimitRPM      int           `mapstructure:"RATE_LIMIT_RPM"`
	StaticDir         string        `mapstructure:"STATIC_DIR"`
	LogLevel          string        `mapstructure:"LOG_LEVEL"`
	LogFormat         string        `mapstructure:"LOG_FORMAT"`
}

// Load reads an optional env file (ENV_FILE, default ".env") and then the
// process environment. Environment variables win over file values.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("ENV_FILE", ".env")

	// a missing .env is normal outside local development
	_ = godotenv.Load(v.GetString("ENV_FILE"))

	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "3000")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("MONGODB_URI", "")
	v.SetDefault("MONGODB_DATABASE", "socialhub")
	v.SetDefault("MONGO_TRANSACTIONS", false)
	v.SetDefault("SESSION_SECRET", defaultSessionSecret)
	v.SetDefault("SESSION_KEYS", "")
	v.SetDefault("SESSION_ACTIVE_KID", "")
	v.SetDefault("SESSION_STORE", "mongo")
	v.SetDefault("REDIS_URL", "localhost:6379")
	v.SetDefault("SESSION_TTL", "168h")
	v.SetDefault("SESSION_COOKIE_NAME", "socialhub.sid")
	v.SetDefault("COOKIE_SECURE", false)
	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPM", 10)
	v.SetDefault("STATIC_DIR", "./public")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
}

// IsProduction reports whether APP_ENV names a production deployment.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// Validate ensures that required configuration values are present.
func (c *Config) Validate() error {
	if c.MongoURI == "" {
		return errors.New("MONGODB_URI is required")
	}
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	switch c.SessionStore {
	case "mongo", "redis":
	default:
		return fmt.Errorf("SESSION_STORE must be mongo or redis, got %q", c.SessionStore)
	}
	if c.SessionTTL <= 0 {
		return errors.New("SESSION_TTL must be positive")
	}
	if c.SessionKeys == "" && c.SessionSecret == "" {
		return errors.New("either SESSION_SECRET or SESSION_KEYS must be set")
	}
	if c.SessionKeys != "" {
		keys, err := c.SigningKeys()
		if err != nil {
			return err
		}
		if _, ok := keys[c.SessionActiveKID]; !ok {
			return fmt.Errorf("SESSION_ACTIVE_KID %q is not present in SESSION_KEYS", c.SessionActiveKID)
		}
	}
	if c.IsProduction() && c.SessionKeys == "" {
		if c.SessionSecret == defaultSessionSecret {
			return errors.New("SESSION_SECRET must be changed from the default value in production")
		}
		if len(c.SessionSecret) < 32 {
			return errors.New("SESSION_SECRET must be at least 32 characters in production")
		}
	}
	return nil
}

// SigningKeys parses SESSION_KEYS ("kid:secret,kid2:secret2").
func (c *Config) SigningKeys() (map[string]string, error) {
	keys := map[string]string{}
	for _, p := range strings.Split(c.SessionKeys, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		parts := strings.SplitN(p, ":", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("invalid SESSION_KEYS entry: %s", p)
		}
		keys[parts[0]] = parts[1]
	}
	return keys, nil
}

// Origins splits ALLOWED_ORIGINS into a list.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
