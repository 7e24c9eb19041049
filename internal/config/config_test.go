package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 15*time.Minute, cfg.Auth.AccessTokenTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.RefreshTokenTTL)
	assert.Equal(t, 5*time.Minute, cfg.OTP.TTL)
	assert.Equal(t, 6, cfg.OTP.Length)
	assert.Equal(t, 3, cfg.OTP.MaxAttempts)
	assert.Equal(t, 12, cfg.Auth.BcryptCost)
	assert.Equal(t, TransportBoth, cfg.Auth.SessionTransport)
	assert.Equal(t, "0.0.0.0:8080", cfg.App.Addr())
	assert.False(t, cfg.App.IsProduction())
}

func TestLoadFromEnv(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("APP_ENV", "production")
	t.Setenv("AUTH_ACCESS_SECRET", "prod-access")
	t.Setenv("AUTH_REFRESH_SECRET", "prod-refresh")
	t.Setenv("OTP_STORE", "redis")
	t.Setenv("AUTH_SESSION_TRANSPORT", "cookie")
	t.Setenv("AUTH_IDENTITY_STORE", "sqlite")
	t.Setenv("OTP_TTL", "2m")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.App.IsProduction())
	assert.Equal(t, "prod-access", cfg.Auth.AccessSecret)
	assert.Equal(t, OTPStoreRedis, cfg.OTP.Store)
	assert.Equal(t, TransportCookie, cfg.Auth.SessionTransport)
	assert.Equal(t, StoreSQLite, cfg.Auth.IdentityStore)
	assert.Equal(t, 2*time.Minute, cfg.OTP.TTL)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Auth: AuthConfig{
				AccessSecret:     "a",
				RefreshSecret:    "b",
				AccessTokenTTL:   15 * time.Minute,
				RefreshTokenTTL:  7 * 24 * time.Hour,
				SessionTransport: TransportBoth,
				IdentityStore:    StorePostgres,
				BcryptCost:       12,
			},
			OTP: OTPConfig{Store: OTPStoreMemory, TTL: 5 * time.Minute, Length: 6, MaxAttempts: 3},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{
			name:    "shared secret",
			mutate:  func(c *Config) { c.Auth.RefreshSecret = c.Auth.AccessSecret },
			wantErr: "must differ",
		},
		{
			name:    "access outlives refresh",
			mutate:  func(c *Config) { c.Auth.AccessTokenTTL = 8 * 24 * time.Hour },
			wantErr: "must not exceed",
		},
		{
			name:    "unknown transport",
			mutate:  func(c *Config) { c.Auth.SessionTransport = "header" },
			wantErr: "AUTH_SESSION_TRANSPORT",
		},
		{
			name:    "unknown otp store",
			mutate:  func(c *Config) { c.OTP.Store = "memcached" },
			wantErr: "OTP_STORE",
		},
		{
			name:    "bcrypt cost too low",
			mutate:  func(c *Config) { c.Auth.BcryptCost = 4 },
			wantErr: "AUTH_BCRYPT_COST",
		},
		{
			name:    "bcrypt cost too high",
			mutate:  func(c *Config) { c.Auth.BcryptCost = 40 },
			wantErr: "AUTH_BCRYPT_COST",
		},
		{
			name: "dev secrets in production",
			mutate: func(c *Config) {
				c.App.Env = "production"
				c.Auth.AccessSecret = "dev-access-secret"
				c.Auth.RefreshSecret = "dev-refresh-secret"
			},
			wantErr: "production",
		},
		{
			name: "real secrets in production",
			mutate: func(c *Config) {
				c.App.Env = "production"
				c.Auth.AccessSecret = "9f2c7d1e-access"
				c.Auth.RefreshSecret = "4b8a0e6f-refresh"
			},
		},
		{
			name:    "zero attempts",
			mutate:  func(c *Config) { c.OTP.MaxAttempts = 0 },
			wantErr: "must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadRejectsDevSecretsInProduction(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("APP_ENV", "production")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "production")
}
