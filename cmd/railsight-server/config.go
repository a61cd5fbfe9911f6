package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// serverConfig is everything the serve command needs. Values resolve in
// order: defaults, then the optional YAML file, then environment variables.
type serverConfig struct {
	Addr     string        `yaml:"addr"`
	LogLevel string        `yaml:"log_level"`
	TokenTTL time.Duration `yaml:"token_ttl"`
	// JWTSecret is intentionally not read from YAML; config files get
	// committed, secrets do not.
	JWTSecret string `yaml:"-"`

	CredentialMode string `yaml:"credential_mode"` // "accept-any" or "verify"

	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"-"`
	RedisDB       int    `yaml:"redis_db"`

	AuditLog string `yaml:"audit_log"` // file path, "stderr", or empty for off
}

func defaultServerConfig() serverConfig {
	return serverConfig{
		Addr:           ":8080",
		LogLevel:       "info",
		TokenTTL:       time.Hour,
		CredentialMode: "accept-any",
	}
}

func loadServerConfig(path string) (serverConfig, error) {
	cfg := defaultServerConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return serverConfig{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return serverConfig{}, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.Addr = envString("RAILSIGHT_ADDR", cfg.Addr)
	cfg.LogLevel = envString("RAILSIGHT_LOG_LEVEL", cfg.LogLevel)
	cfg.TokenTTL = envDuration("RAILSIGHT_TOKEN_TTL", cfg.TokenTTL)
	cfg.JWTSecret = envString("RAILSIGHT_JWT_SECRET", cfg.JWTSecret)
	cfg.CredentialMode = envString("RAILSIGHT_CREDENTIAL_MODE", cfg.CredentialMode)
	cfg.RedisAddr = envString("RAILSIGHT_REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisPassword = envString("RAILSIGHT_REDIS_PASSWORD", cfg.RedisPassword)
	cfg.RedisDB = envInt("RAILSIGHT_REDIS_DB", cfg.RedisDB)
	cfg.AuditLog = envString("RAILSIGHT_AUDIT_LOG", cfg.AuditLog)

	if cfg.JWTSecret == "" {
		return serverConfig{}, errors.New("RAILSIGHT_JWT_SECRET is required")
	}
	if cfg.TokenTTL <= 0 {
		return serverConfig{}, errors.New("token TTL must be positive")
	}
	switch cfg.CredentialMode {
	case "accept-any", "verify":
	default:
		return serverConfig{}, fmt.Errorf("unknown credential mode %q", cfg.CredentialMode)
	}

	return cfg, nil
}

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
