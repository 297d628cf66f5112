package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validConfig() *Config {
	return &Config{
		Port:            "8001",
		Env:             "test",
		JWTSecret:       "test-secret",
		DBDriver:        "sqlite",
		DBPath:          ":memory:",
		CatalogTTLHours: 24,
		StreamTTLHours:  1,
		GatewayMemoTTL:  "1h",
		AdminPassword:   "admin123",
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid test config",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing port",
			mutate:  func(c *Config) { c.Port = "" },
			wantErr: "PORT is required",
		},
		{
			name:    "missing jwt secret",
			mutate:  func(c *Config) { c.JWTSecret = "" },
			wantErr: "JWT_SECRET is required",
		},
		{
			name:    "unknown driver",
			mutate:  func(c *Config) { c.DBDriver = "mongo" },
			wantErr: "DB_DRIVER must be sqlite or postgres",
		},
		{
			name:    "zero catalog ttl",
			mutate:  func(c *Config) { c.CatalogTTLHours = 0 },
			wantErr: "must be positive",
		},
		{
			name: "production rejects default secret",
			mutate: func(c *Config) {
				c.Env = "production"
				c.JWTSecret = "change-me-in-production"
			},
			wantErr: "JWT_SECRET must be changed",
		},
		{
			name: "production rejects short secret",
			mutate: func(c *Config) {
				c.Env = "production"
				c.JWTSecret = "short"
			},
			wantErr: "at least 32 characters",
		},
		{
			name: "production requires tmdb key",
			mutate: func(c *Config) {
				c.Env = "production"
				c.JWTSecret = "0123456789abcdef0123456789abcdef"
				c.AdminPassword = "something-strong"
			},
			wantErr: "TMDB_API_KEY is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tt.wantErr)
			}
		})
	}
}

func TestMemoTTL(t *testing.T) {
	cfg := validConfig()
	assert.Equal(t, time.Hour, cfg.MemoTTL())

	cfg.GatewayMemoTTL = "30m"
	assert.Equal(t, 30*time.Minute, cfg.MemoTTL())

	cfg.GatewayMemoTTL = "nonsense"
	assert.Equal(t, time.Hour, cfg.MemoTTL())
}

func TestDerivedTTLs(t *testing.T) {
	cfg := validConfig()
	assert.Equal(t, 24*time.Hour, cfg.CatalogTTL())
	assert.Equal(t, time.Hour, cfg.StreamTTL())
}
