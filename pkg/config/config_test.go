package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, envs := range bindings {
		for _, e := range envs {
			t.Setenv(e, "")
		}
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg := FromViper(New())

	assert.Equal(t, DefaultKiteBaseURL, cfg.Kite.BaseURL)
	assert.Equal(t, DefaultKiteTimeout, cfg.Kite.Timeout)
	assert.Equal(t, "8080", cfg.HTTP.Port)
	assert.Equal(t, ":8080", cfg.HTTP.Addr())
	assert.Equal(t, []string{"*"}, cfg.HTTP.AllowedOrigins)
	assert.Equal(t, int64(DefaultMaxBodySize), cfg.HTTP.MaxBodySize)
	assert.Equal(t, 5, cfg.Database.MaxOpenConns)
	assert.Equal(t, 2, cfg.Database.MaxIdleConns)
	assert.Equal(t, 5*time.Minute, cfg.Database.ConnMaxLifetime)
	assert.Equal(t, "dev", cfg.Log.Level)
	assert.Empty(t, cfg.Database.URL)
}

func TestLoad_CredentialAliases(t *testing.T) {
	clearEnv(t)
	t.Setenv("ZERODHA_API_KEY", "zk")
	t.Setenv("ZERODHA_API_SECRET", "zs")
	t.Setenv("ZERODHA_ACCESS_TOKEN", "zt")

	cfg := FromViper(New())
	assert.Equal(t, "zk", cfg.Kite.APIKey)
	assert.Equal(t, "zs", cfg.Kite.APISecret)
	assert.Equal(t, "zt", cfg.Kite.AccessToken)
}

func TestLoad_KiteNamesWinOverZerodha(t *testing.T) {
	clearEnv(t)
	t.Setenv("KITE_API_KEY", "kk")
	t.Setenv("ZERODHA_API_KEY", "zk")

	cfg := FromViper(New())
	assert.Equal(t, "kk", cfg.Kite.APIKey)
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("KITE_BASE_URL", "http://localhost:9999/")
	t.Setenv("KITE_TIMEOUT", "3s")
	t.Setenv("PORT", "3001")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("MAX_BODY_SIZE", "2048")
	t.Setenv("LOG_LEVEL", "prod")

	cfg := FromViper(New())
	assert.Equal(t, "http://localhost:9999", cfg.Kite.BaseURL)
	assert.Equal(t, 3*time.Second, cfg.Kite.Timeout)
	assert.Equal(t, ":3001", cfg.HTTP.Addr())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.HTTP.AllowedOrigins)
	assert.Equal(t, int64(2048), cfg.HTTP.MaxBodySize)
	assert.Equal(t, "prod", cfg.Log.Level)
}

func TestValidate(t *testing.T) {
	clearEnv(t)
	cfg := FromViper(New())

	errs := cfg.Validate()
	require.Len(t, errs, 2)
	assert.Contains(t, errs[0].Error(), "api key")
	assert.Contains(t, errs[1].Error(), "api secret")

	cfg.Kite.APIKey = "k"
	cfg.Kite.APISecret = "s"
	assert.Empty(t, cfg.Validate())
}

func TestValidate_TimeoutNeedsUnit(t *testing.T) {
	clearEnv(t)
	t.Setenv("KITE_API_KEY", "k")
	t.Setenv("KITE_API_SECRET", "s")
	t.Setenv("KITE_TIMEOUT", "10")

	cfg := FromViper(New())
	assert.Equal(t, 10*time.Nanosecond, cfg.Kite.Timeout)

	errs := cfg.Validate()
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "kite timeout")

	cfg.Kite.Timeout = MinKiteTimeout
	assert.Empty(t, cfg.Validate())
}
