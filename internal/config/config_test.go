package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.RunAddress)
	assert.Equal(t, "Asia/Jakarta", cfg.ShiftTimezone)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Empty(t, cfg.RedisAddr)
	assert.Equal(t, 8*time.Hour, cfg.AccessTokenTTL())
	assert.Equal(t, 30*time.Second, cfg.HistoryCacheTTL())
}

func TestParseFlags(t *testing.T) {
	cfg, err := Parse([]string{
		"-a", ":9090",
		"-d", "postgres://localhost/orders",
		"-r", "localhost:6379",
		"-tz", "UTC",
	})
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.RunAddress)
	assert.Equal(t, "postgres://localhost/orders", cfg.DatabaseURL)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, "UTC", cfg.ShiftTimezone)
}

func TestParseEnvOverridesFlags(t *testing.T) {
	t.Setenv("RUN_ADDRESS", ":7070")
	t.Setenv("AUTH_SECRET", "env-secret")
	t.Setenv("ACCESS_TOKEN_TTL_MINUTES", "60")

	cfg, err := Parse([]string{"-a", ":9090"})
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.RunAddress)
	assert.Equal(t, "env-secret", cfg.AuthSecret)
	assert.Equal(t, time.Hour, cfg.AccessTokenTTL())
}

func TestParseRejectsUnknownFlag(t *testing.T) {
	_, err := Parse([]string{"-nope"})
	require.Error(t, err)
}
