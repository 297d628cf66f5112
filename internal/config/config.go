// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	Port           string `mapstructure:"PORT"`
	Env            string `mapstructure:"APP_ENV"`
	JWTSecret      string `mapstructure:"JWT_SECRET"`
	TokenExpiryMin int    `mapstructure:"TOKEN_EXPIRY_MINUTES"`

	DBDriver   string `mapstructure:"DB_DRIVER"` // "sqlite" or "postgres"
	DBPath     string `mapstructure:"DB_PATH"`   // sqlite file path
	DBHost     string `mapstructure:"DB_HOST"`
	DBPort     string `mapstructure:"DB_PORT"`
	DBUser     string `mapstructure:"DB_USER"`
	DBPassword string `mapstructure:"DB_PASSWORD"`
	DBName     string `mapstructure:"DB_NAME"`
	DBSSLMode  string `mapstructure:"DB_SSLMODE"`

	RedisURL       string `mapstructure:"REDIS_URL"`
	AllowedOrigins string `mapstructure:"ALLOWED_ORIGINS"`

	TMDBAPIKey     string `mapstructure:"TMDB_API_KEY"`
	TMDBBaseURL    string `mapstructure:"TMDB_BASE_URL"`
	TMDBLanguage   string `mapstructure:"TMDB_LANGUAGE"`
	SourcesAPIBase string `mapstructure:"SOURCES_API_BASE"`

	CatalogTTLHours int    `mapstructure:"CATALOG_TTL_HOURS"`
	StreamTTLHours  int    `mapstructure:"STREAM_TTL_HOURS"`
	GatewayMemoTTL  string `mapstructure:"GATEWAY_MEMO_TTL"`
	SweepSchedule   string `mapstructure:"SWEEP_SCHEDULE"`

	AdminUsername string `mapstructure:"ADMIN_USERNAME"`
	AdminPassword string `mapstructure:"ADMIN_PASSWORD"`

	OTLPEndpoint string `mapstructure:"OTLP_ENDPOINT"`
}

// LoadConfig loads application configuration from file and environment variables.
func LoadConfig() (*Config, error) {
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	// Initial read to get APP_ENV if set in base config.
	// The config file is optional; env vars and defaults are enough to run.
	_ = viper.ReadInConfig()

	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	if env != "development" {
		viper.SetConfigName("config." + env)
		if err := viper.MergeInConfig(); err == nil {
			log.Printf("Loaded profile-specific configuration: config.%s.yml", env)
		}
	}

	viper.SetDefault("PORT", "8001")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("JWT_SECRET", "change-me-in-production")
	viper.SetDefault("TOKEN_EXPIRY_MINUTES", 1440)
	viper.SetDefault("DB_DRIVER", "sqlite")
	viper.SetDefault("DB_PATH", "onstream.db")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "user")
	viper.SetDefault("DB_PASSWORD", "password")
	viper.SetDefault("DB_NAME", "onstream")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("REDIS_URL", "localhost:6379")
	viper.SetDefault("ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173")
	viper.SetDefault("TMDB_BASE_URL", "https://api.themoviedb.org/3")
	viper.SetDefault("TMDB_LANGUAGE", "en-US")
	viper.SetDefault("SOURCES_API_BASE", "https://api.consumet.org")
	viper.SetDefault("CATALOG_TTL_HOURS", 24)
	viper.SetDefault("STREAM_TTL_HOURS", 1)
	viper.SetDefault("GATEWAY_MEMO_TTL", "1h")
	viper.SetDefault("SWEEP_SCHEDULE", "@every 1h")
	viper.SetDefault("ADMIN_USERNAME", "admin")
	viper.SetDefault("ADMIN_PASSWORD", "admin123")
	viper.SetDefault("OTLP_ENDPOINT", "")

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// MemoTTL returns the gateway memoization TTL as a duration, falling back to one hour.
func (c *Config) MemoTTL() time.Duration {
	d, err := time.ParseDuration(c.GatewayMemoTTL)
	if err != nil || d <= 0 {
		return time.Hour
	}
	return d
}

// CatalogTTL returns the persistent catalog cache lifetime.
func (c *Config) CatalogTTL() time.Duration {
	return time.Duration(c.CatalogTTLHours) * time.Hour
}

// StreamTTL returns the persistent stream bundle cache lifetime.
func (c *Config) StreamTTL() time.Duration {
	return time.Duration(c.StreamTTLHours) * time.Hour
}

// Validate ensures that required configuration values are present and meet security standards.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.DBDriver != "sqlite" && c.DBDriver != "postgres" {
		return fmt.Errorf("DB_DRIVER must be sqlite or postgres, got %q", c.DBDriver)
	}
	if c.CatalogTTLHours <= 0 || c.StreamTTLHours <= 0 {
		return errors.New("CATALOG_TTL_HOURS and STREAM_TTL_HOURS must be positive")
	}

	isProduction := c.Env == "production" || c.Env == "prod"

	if isProduction {
		if c.JWTSecret == "change-me-in-production" {
			return errors.New("JWT_SECRET must be changed from the default value in production")
		}
		if len(c.JWTSecret) < 32 {
			return errors.New("JWT_SECRET must be at least 32 characters in production")
		}
		if c.TMDBAPIKey == "" {
			return errors.New("TMDB_API_KEY is required in production")
		}
		if c.AdminPassword == "admin123" {
			return errors.New("ADMIN_PASSWORD must be changed from the default value in production")
		}
		if c.AllowedOrigins == "*" {
			log.Println("WARNING: ALLOWED_ORIGINS is set to '*' in production. This is insecure.")
		}
	} else {
		if c.TMDBAPIKey == "" {
			log.Println("WARNING: TMDB_API_KEY is not set. Upstream catalog fetches will degrade to empty results.")
		}
	}

	return nil
}
