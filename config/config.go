/*
Package config loads engine configuration from environment variables or a
local .env file via Viper.

Defaults make a bare `go run ./cmd/server` work: in-memory database, port
8080, a dev-only JWT secret that must be overridden in production.
*/
package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config stores all configuration for the engine.
type Config struct {
	ServerPort           string `mapstructure:"SERVER_PORT"`
	DBPath               string `mapstructure:"DB_PATH"` // ":memory:" allowed
	JWTSecret            string `mapstructure:"JWT_SECRET"`
	DefaultCommissionPct string `mapstructure:"DEFAULT_COMMISSION_PCT"`
	CORSOrigins          string `mapstructure:"CORS_ORIGINS"` // comma-separated
	LogLevel             string `mapstructure:"LOG_LEVEL"`
}

// Load reads configuration from a .env file if present, then the
// environment. Environment variables win.
func Load() (Config, error) {
	viper.AddConfigPath(".")
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("DB_PATH", ":memory:")
	viper.SetDefault("JWT_SECRET", "dev-secret-change-me")
	viper.SetDefault("DEFAULT_COMMISSION_PCT", "10")
	viper.SetDefault("CORS_ORIGINS", "*")
	viper.SetDefault("LOG_LEVEL", "info")

	for _, key := range []string{
		"SERVER_PORT", "DB_PATH", "JWT_SECRET",
		"DEFAULT_COMMISSION_PCT", "CORS_ORIGINS", "LOG_LEVEL",
	} {
		_ = viper.BindEnv(key)
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Origins splits the comma-separated CORS origin list.
func (c Config) Origins() []string {
	parts := strings.Split(c.CORSOrigins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
