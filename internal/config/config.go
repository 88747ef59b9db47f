package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the full service configuration, read from config.yaml if present
// and overridable through environment variables.
type Config struct {
	Server  ServerConfig
	Storage StorageConfig
	Auth    AuthConfig
	Log     LogConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type StorageConfig struct {
	// Backend selects the storage implementation: "in-memory" or "postgres".
	Backend     string
	DatabaseURL string `mapstructure:"database_url"`
}

type AuthConfig struct {
	// JWTSecret is the HS256 secret shared with the identity provider.
	JWTSecret string `mapstructure:"jwt_secret"`
}

type LogConfig struct {
	Mode string
}

func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("storage.backend", "in-memory")
	v.SetDefault("storage.database_url", "")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("log.mode", "dev")

	v.BindEnv("server.port", "PORT")
	v.BindEnv("storage.backend", "STORAGE_BACKEND")
	v.BindEnv("storage.database_url", "DATABASE_URL")
	v.BindEnv("auth.jwt_secret", "JWT_SECRET")
	v.BindEnv("log.mode", "LOG_MODE")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// No config file: rely on defaults and environment variables.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Storage.Backend == "postgres" && cfg.Storage.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL must be set for postgres storage")
	}
	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET must be set")
	}
	return &cfg, nil
}
