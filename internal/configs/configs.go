/*
Package configs is responsible for loading and parsing the application's configuration settings.

Settings come from an optional YAML file (CONFIG_PATH) and from environment variables;
environment variables always win over the file. Every setting has a development default.
*/
package configs

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// AuthModeTrust binds whatever identity the client presents in `authenticate`.
	AuthModeTrust = "trust"

	// AuthModeJWT requires an HS256 token signed with JWTSecret before binding.
	AuthModeJWT = "jwt"

	// OverflowDropOldest discards the oldest queued frame when a client's outbound queue is full.
	OverflowDropOldest = "drop-oldest"

	// OverflowDisconnect closes a client whose outbound queue is full.
	OverflowDisconnect = "disconnect"
)

// AppConfig contains all configuration parameters required for the application to run.
type AppConfig struct {
	// General Server Settings
	Environment string `yaml:"environment"`
	Port        int    `yaml:"port"`

	// Security Settings
	AllowedOrigins []string `yaml:"allowedOrigins"`
	JWTSecret      string   `yaml:"jwtSecret"`
	AuthMode       string   `yaml:"authMode"`

	// Fan-out mirror; empty disables it.
	RedisURL string `yaml:"redisUrl"`

	// Connection Settings
	SendQueueSize   int     `yaml:"sendQueueSize"`
	OverflowPolicy  string  `yaml:"overflowPolicy"`
	MaxMessageBytes int64   `yaml:"maxMessageBytes"`
	EventRate       float64 `yaml:"eventRate"`
	EventBurst      int     `yaml:"eventBurst"`
	UpgradeRate     float64 `yaml:"upgradeRate"`
	UpgradeBurst    int     `yaml:"upgradeBurst"`
}

// IsDevelopment reports whether the server runs in the development environment.
func (c *AppConfig) IsDevelopment() bool {
	return c.Environment == "development"
}

func defaults() *AppConfig {
	return &AppConfig{
		Environment:     "development",
		Port:            8080,
		AllowedOrigins:  []string{},
		AuthMode:        AuthModeTrust,
		SendQueueSize:   256,
		OverflowPolicy:  OverflowDropOldest,
		MaxMessageBytes: 64 << 10,
		EventRate:       50,
		EventBurst:      100,
		UpgradeRate:     1,
		UpgradeBurst:    10,
	}
}

// LoadConfig reads the optional YAML file named by CONFIG_PATH, applies environment
// variable overrides and validates the result.
func LoadConfig() (*AppConfig, error) {
	cfg := defaults()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func applyEnv(cfg *AppConfig) error {
	// --- General Server Settings ---
	if v := os.Getenv("ENVIRONMENT"); v != "" {
		cfg.Environment = v
	}

	if err := envInt("PORT", &cfg.Port); err != nil {
		return err
	}

	// --- Security Settings ---
	if originsStr := os.Getenv("ALLOWED_ORIGINS"); originsStr != "" {
		cfg.AllowedOrigins = cfg.AllowedOrigins[:0]
		for _, origin := range strings.Split(originsStr, ",") {
			if trimmed := strings.TrimSpace(origin); trimmed != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, trimmed)
			}
		}
	}

	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.JWTSecret = v
	}
	if v := os.Getenv("AUTH_MODE"); v != "" {
		cfg.AuthMode = strings.ToLower(v)
	}

	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.RedisURL = v
	}

	// --- Connection Settings ---
	if err := envInt("SEND_QUEUE_SIZE", &cfg.SendQueueSize); err != nil {
		return err
	}
	if v := os.Getenv("OVERFLOW_POLICY"); v != "" {
		cfg.OverflowPolicy = strings.ToLower(v)
	}
	if v := os.Getenv("MAX_MESSAGE_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid MAX_MESSAGE_BYTES environment variable: %w", err)
		}
		cfg.MaxMessageBytes = n
	}
	if err := envFloat("EVENT_RATE", &cfg.EventRate); err != nil {
		return err
	}
	if err := envInt("EVENT_BURST", &cfg.EventBurst); err != nil {
		return err
	}
	if err := envFloat("UPGRADE_RATE", &cfg.UpgradeRate); err != nil {
		return err
	}
	if err := envInt("UPGRADE_BURST", &cfg.UpgradeBurst); err != nil {
		return err
	}

	return nil
}

func (c *AppConfig) validate() error {
	if c.Port < 1024 || c.Port > 65535 {
		return fmt.Errorf("port number %d is outside the recommended range (%d-%d) to avoid privileged ports", c.Port, 1024, 65535)
	}

	switch c.AuthMode {
	case AuthModeTrust:
	case AuthModeJWT:
		if c.JWTSecret == "" {
			if !c.IsDevelopment() {
				return fmt.Errorf("JWT_SECRET environment variable is required in %s environment when AUTH_MODE=jwt", c.Environment)
			}
			c.JWTSecret = "your_default_insecure_secret_key_change_me"
		}
	default:
		return fmt.Errorf("unknown AUTH_MODE %q (want %q or %q)", c.AuthMode, AuthModeTrust, AuthModeJWT)
	}

	switch c.OverflowPolicy {
	case OverflowDropOldest, OverflowDisconnect:
	default:
		return fmt.Errorf("unknown OVERFLOW_POLICY %q (want %q or %q)", c.OverflowPolicy, OverflowDropOldest, OverflowDisconnect)
	}

	if c.SendQueueSize <= 0 {
		return errors.New("SEND_QUEUE_SIZE must be positive")
	}
	if c.MaxMessageBytes <= 0 {
		return errors.New("MAX_MESSAGE_BYTES must be positive")
	}
	if c.EventRate <= 0 || c.EventBurst <= 0 {
		return errors.New("EVENT_RATE and EVENT_BURST must be positive")
	}
	if c.UpgradeRate <= 0 || c.UpgradeBurst <= 0 {
		return errors.New("UPGRADE_RATE and UPGRADE_BURST must be positive")
	}

	return nil
}

func envInt(key string, dst *int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	*dst = n
	return nil
}

func envFloat(key string, dst *float64) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	*dst = f
	return nil
}
