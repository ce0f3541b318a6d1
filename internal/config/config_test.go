package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ENV_FILE", "does-not-exist.env")
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, "socialhub", cfg.MongoDatabase)
	assert.Equal(t, "mongo", cfg.SessionStore)
	assert.Equal(t, 7*24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 10, cfg.RateLimitRPM)
	assert.False(t, cfg.MongoTransactions)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("ENV_FILE", "does-not-exist.env")
	t.Setenv("MONGODB_URI", "mongodb://db:27017")
	t.Setenv("PORT", "8080")
	t.Setenv("SESSION_STORE", "redis")
	t.Setenv("SESSION_TTL", "1h")
	t.Setenv("MONGO_TRANSACTIONS", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "redis", cfg.SessionStore)
	assert.Equal(t, time.Hour, cfg.SessionTTL)
	assert.True(t, cfg.MongoTransactions)
}

func TestLoad_MissingMongoURI(t *testing.T) {
	t.Setenv("ENV_FILE", "does-not-exist.env")
	t.Setenv("MONGODB_URI", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MONGODB_URI")
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			Port:          "3000",
			MongoURI:      "mongodb://localhost",
			SessionStore:  "mongo",
			SessionTTL:    time.Hour,
			SessionSecret: defaultSessionSecret,
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "ok", mutate: func(c *Config) {}},
		{name: "bad store", mutate: func(c *Config) { c.SessionStore = "memcached" }, wantErr: "SESSION_STORE"},
		{name: "prod default secret", mutate: func(c *Config) { c.Env = "production" }, wantErr: "default value"},
		{name: "prod short secret", mutate: func(c *Config) { c.Env = "production"; c.SessionSecret = "short" }, wantErr: "32 characters"},
		{name: "keys without active kid", mutate: func(c *Config) { c.SessionKeys = "k1:one" }, wantErr: "SESSION_ACTIVE_KID"},
		{name: "keys with active kid", mutate: func(c *Config) { c.SessionKeys = "k1:one,k2:two"; c.SessionActiveKID = "k2" }},
		{name: "malformed keys", mutate: func(c *Config) { c.SessionKeys = "k1"; c.SessionActiveKID = "k1" }, wantErr: "invalid SESSION_KEYS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestOrigins(t *testing.T) {
	c := Config{AllowedOrigins: "http://a.test, http://b.test,,"}
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, c.Origins())
}
