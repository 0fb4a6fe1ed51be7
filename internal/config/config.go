package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/plantware/blogcms/shared/db/sqlite"
)

// Config holds all application configuration
type Config struct {
	Server  ServerConfig
	Storage *sqlite.Config
	// LogLevel is a zerolog level name (debug, info, warn, error).
	LogLevel string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables, applying defaults
// for anything unset.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("BLOGCMS_HOST", "0.0.0.0"),
			Port:            getEnv("BLOGCMS_PORT", "8080"),
			ReadTimeout:     getEnvDuration("BLOGCMS_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("BLOGCMS_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvDuration("BLOGCMS_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("BLOGCMS_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Storage:  sqlite.NewConfig(),
		LogLevel: getEnv("BLOGCMS_LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration for obvious mistakes.
func (c *Config) Validate() error {
	port, err := strconv.Atoi(c.Server.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid port: %q", c.Server.Port)
	}
	if c.Storage.Path == "" {
		return fmt.Errorf("database path must not be empty")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown timeout must be positive")
	}
	return nil
}

// Addr returns the host:port the server listens on.
func (c *Config) Addr() string {
	return c.Server.Host + ":" + c.Server.Port
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
