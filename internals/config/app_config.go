package config

import (
	"fmt"
	"strings"
	"time"

	"exchange-widget/internals/core/domain"
	"exchange-widget/internals/helpers"

	"github.com/spf13/viper"
)

type Config struct {
	ServerPort      string          `mapstructure:"SERVER_PORT"`
	APIKey          string          `mapstructure:"API_KEY"`
	APIBaseURL      string          `mapstructure:"API_BASE_URL"`
	HTTPTimeout     time.Duration   `mapstructure:"HTTP_TIMEOUT"`
	DefaultRange    domain.RangeKey `mapstructure:"DEFAULT_RANGE"`
	RefreshInterval time.Duration   `mapstructure:"REFRESH_INTERVAL"`
	RedisAddr       string          `mapstructure:"REDIS_ADDR"`
	RedisPassword   string          `mapstructure:"REDIS_PASSWORD"`
	RedisDB         int             `mapstructure:"REDIS_DB"`
	Environment     string          `mapstructure:"ENVIRONMENT"`
}

// LoadConfig reads the environment over the defaults below.
func LoadConfig() (*Config, error) {
	v := viper.New()

	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("API_KEY", "")
	v.SetDefault("API_BASE_URL", helpers.DefaultBaseURL)
	v.SetDefault("HTTP_TIMEOUT", "30s")
	v.SetDefault("DEFAULT_RANGE", string(domain.Range1y))
	v.SetDefault("REFRESH_INTERVAL", domain.CacheDuration.String())

	// Redis is optional; an empty address runs refreshes unlocked.
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("ENVIRONMENT", "development")

	v.AutomaticEnv()

	cfg := &Config{}
	cfg.ServerPort = v.GetString("SERVER_PORT")
	cfg.APIKey = v.GetString("API_KEY")
	cfg.APIBaseURL = v.GetString("API_BASE_URL")
	cfg.HTTPTimeout = v.GetDuration("HTTP_TIMEOUT")
	cfg.RefreshInterval = v.GetDuration("REFRESH_INTERVAL")
	cfg.RedisAddr = v.GetString("REDIS_ADDR")
	cfg.RedisPassword = v.GetString("REDIS_PASSWORD")
	cfg.RedisDB = v.GetInt("REDIS_DB")
	cfg.Environment = strings.ToLower(v.GetString("ENVIRONMENT"))

	rangeKey, err := domain.ParseRangeKey(v.GetString("DEFAULT_RANGE"))
	if err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_RANGE: %w", err)
	}
	cfg.DefaultRange = rangeKey

	if cfg.HTTPTimeout <= 0 {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT %q", v.GetString("HTTP_TIMEOUT"))
	}
	if cfg.RefreshInterval <= 0 {
		return nil, fmt.Errorf("invalid REFRESH_INTERVAL %q", v.GetString("REFRESH_INTERVAL"))
	}

	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// RedisEnabled reports whether refreshes coordinate through Redis.
func (c *Config) RedisEnabled() bool {
	return c.RedisAddr != ""
}
