package config

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testAccessSecret  = "access-secret-key-that-is-at-least-32-chars"
	testRefreshSecret = "refresh-secret-key-that-is-at-least-32-chars"
)

func setRequiredSecrets(t *testing.T) {
	t.Setenv("JWT_ACCESS_SECRET", testAccessSecret)
	t.Setenv("JWT_REFRESH_SECRET", testRefreshSecret)
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredSecrets(t)

	cfg, err := Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout.Duration)
	assert.Equal(t, "localhost", cfg.Postgres.Host)
	assert.Equal(t, "localhost", cfg.Redis.Host)
	assert.Equal(t, 24*time.Hour, cfg.JWT.AccessTokenExpiry.Duration)
	assert.Equal(t, 7*24*time.Hour, cfg.JWT.RefreshTokenExpiry.Duration)
	assert.Equal(t, 5, cfg.Lockout.Threshold)
	assert.Equal(t, 30*time.Minute, cfg.Lockout.Duration.Duration)
	assert.Equal(t, 12, cfg.Security.BCryptCost)
	assert.Equal(t, "development", cfg.Env)
	assert.NotEmpty(t, cfg.CORS.AllowedOrigins)
}

func TestLoad_MissingSecrets(t *testing.T) {
	t.Setenv("JWT_ACCESS_SECRET", "")
	t.Setenv("JWT_REFRESH_SECRET", "")

	_, err := Load(context.Background())
	assert.Error(t, err)
}

func TestLoad_ShortSecret(t *testing.T) {
	t.Setenv("JWT_ACCESS_SECRET", "too-short")
	t.Setenv("JWT_REFRESH_SECRET", testRefreshSecret)

	_, err := Load(context.Background())
	assert.Error(t, err)
}

func TestLoad_IdenticalSecrets(t *testing.T) {
	t.Setenv("JWT_ACCESS_SECRET", testAccessSecret)
	t.Setenv("JWT_REFRESH_SECRET", testAccessSecret)

	_, err := Load(context.Background())
	assert.Error(t, err)
}

func TestLoad_AccessExpiryMustBeShorter(t *testing.T) {
	setRequiredSecrets(t)
	t.Setenv("JWT_ACCESS_TOKEN_EXPIRY", "8d")

	_, err := Load(context.Background())
	assert.Error(t, err)
}

func TestDuration_DaysSuffix(t *testing.T) {
	var d Duration
	require.NoError(t, d.EnvDecode(context.Background(), "7d"))
	assert.Equal(t, 7*24*time.Hour, d.Duration)

	require.NoError(t, d.EnvDecode(context.Background(), "45m"))
	assert.Equal(t, 45*time.Minute, d.Duration)

	assert.Error(t, d.EnvDecode(context.Background(), "sevend"))
}
