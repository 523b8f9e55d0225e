package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds the process-level settings. Engine thresholds and boosts
// live with their components; this covers the serving surface and the
// shared resources.
type Config struct {
	Port        string `mapstructure:"PORT"`
	Env         string `mapstructure:"ENV"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	RedisAddr   string `mapstructure:"REDIS_ADDR"`
	RedisDB     int    `mapstructure:"REDIS_DB"`
	RedisPass   string `mapstructure:"REDIS_PASSWORD"`

	TemplateDir  string `mapstructure:"TEMPLATE_DIR"`
	RegistryFile string `mapstructure:"REGISTRY_FILE"`

	CacheTTL       time.Duration `mapstructure:"CACHE_TTL"`
	MappingTimeout time.Duration `mapstructure:"MAPPING_TIMEOUT"`

	AuditMaxValueLength int `mapstructure:"AUDIT_MAX_VALUE_LENGTH"`
}

// Load reads configuration from the environment and an optional .env file.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("TEMPLATE_DIR", "config/templates")
	v.SetDefault("REGISTRY_FILE", "")
	v.SetDefault("CACHE_TTL", 30*time.Minute)
	v.SetDefault("MAPPING_TIMEOUT", 30*time.Second)
	v.SetDefault("AUDIT_MAX_VALUE_LENGTH", 50)
	v.SetDefault("REDIS_DB", 0)

	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("REDIS_ADDR")
	v.BindEnv("REDIS_DB")
	v.BindEnv("REDIS_PASSWORD")
	v.BindEnv("TEMPLATE_DIR")
	v.BindEnv("REGISTRY_FILE")
	v.BindEnv("CACHE_TTL")
	v.BindEnv("MAPPING_TIMEOUT")
	v.BindEnv("AUDIT_MAX_VALUE_LENGTH")

	// The .env file is optional; environment variables alone are fine.
	_ = v.ReadInConfig()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.TemplateDir == "" {
		return nil, fmt.Errorf("TEMPLATE_DIR is required")
	}

	return &cfg, nil
}
