// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP session API listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// GRPCAddr is the address the gRPC server (health, session interceptor) listens on.
	GRPCAddr string `mapstructure:"GRPC_ADDR"`
	// DatabaseURL is the Postgres DSN; empty selects the in-memory stores.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// RedisURL enables the session policy cache (e.g. redis://localhost:6379/0); empty disables it.
	RedisURL string `mapstructure:"REDIS_URL"`
	// Env is the application environment (e.g. "development", "production"). Cookies are Secure in production.
	Env string `mapstructure:"APP_ENV"`

	// SessionDefaultTimeout is the sliding session timeout in seconds for users without a stored policy.
	SessionDefaultTimeout int `mapstructure:"SESSION_DEFAULT_TIMEOUT"`
	// SessionDefaultMaxConcurrent is the concurrent-session limit for users without a stored policy.
	SessionDefaultMaxConcurrent int `mapstructure:"SESSION_DEFAULT_MAX_CONCURRENT"`
	// SessionDefaultRememberMe is whether remember-me is allowed for users without a stored policy.
	SessionDefaultRememberMe bool `mapstructure:"SESSION_DEFAULT_REMEMBER_ME"`
	// RememberTokenTTLRaw is the remember-token lifetime (e.g. "720h").
	RememberTokenTTLRaw string `mapstructure:"REMEMBER_TOKEN_TTL"`
	// RememberTokenRotateOnUse revokes a remember token when it is exchanged and mints a replacement.
	RememberTokenRotateOnUse bool `mapstructure:"REMEMBER_TOKEN_ROTATE_ON_USE"`

	// RiskFailedLoginWindowRaw is the lookback for failed logins (e.g. "15m").
	RiskFailedLoginWindowRaw string `mapstructure:"RISK_FAILED_LOGIN_WINDOW"`
	// RiskActivityWindowRaw is the lookback for suspicious activity and IP churn (e.g. "24h").
	RiskActivityWindowRaw string `mapstructure:"RISK_ACTIVITY_WINDOW"`
	// RiskHardBlockFailedLogins is the failed-login count that blocks outright.
	RiskHardBlockFailedLogins int `mapstructure:"RISK_HARD_BLOCK_FAILED_LOGINS"`
	// RiskBlockScore is the score at or above which the block policy blocks.
	RiskBlockScore int `mapstructure:"RISK_BLOCK_SCORE"`
	// RiskPolicyFile is an optional Rego file replacing the built-in block policy.
	RiskPolicyFile string `mapstructure:"RISK_POLICY_FILE"`

	// PolicyCacheTTLRaw is how long a cached user policy lives in Redis (e.g. "5m").
	PolicyCacheTTLRaw string `mapstructure:"POLICY_CACHE_TTL"`
	// CleanupIntervalRaw is how often the worker sweeps expired sessions and remember tokens (e.g. "10m").
	CleanupIntervalRaw string `mapstructure:"CLEANUP_INTERVAL"`

	// OTel (optional). Empty endpoint keeps local providers without exporters.
	OTelEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// OTelInsecure disables TLS for https endpoints.
	OTelInsecure bool `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	// OTelServiceName is the service.name resource attribute.
	OTelServiceName string `mapstructure:"OTEL_SERVICE_NAME"`

	// Security events (optional). When Kafka brokers are set, stored events are also published to Kafka.
	// KafkaBrokers is a comma-separated list of Kafka broker addresses (e.g. "localhost:9092").
	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// SecurityEventsTopic is the Kafka topic for security events.
	SecurityEventsTopic string `mapstructure:"SECURITY_EVENTS_KAFKA_TOPIC"`
	// KafkaGroupID is the consumer group ID for the worker.
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`
}

// Bounds mirrored from the per-user session policy; defaults must satisfy them.
const (
	minSessionTimeout = 300
	maxSessionTimeout = 86400
	minMaxConcurrent  = 1
	maxMaxConcurrent  = 10
)

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if a field is invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("GRPC_ADDR", ":9090")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("APP_ENV", "")
	v.SetDefault("SESSION_DEFAULT_TIMEOUT", 86400)
	v.SetDefault("SESSION_DEFAULT_MAX_CONCURRENT", 5)
	v.SetDefault("SESSION_DEFAULT_REMEMBER_ME", true)
	v.SetDefault("REMEMBER_TOKEN_TTL", "720h") // 30d
	v.SetDefault("REMEMBER_TOKEN_ROTATE_ON_USE", false)
	v.SetDefault("RISK_FAILED_LOGIN_WINDOW", "15m")
	v.SetDefault("RISK_ACTIVITY_WINDOW", "24h")
	v.SetDefault("RISK_HARD_BLOCK_FAILED_LOGINS", 5)
	v.SetDefault("RISK_BLOCK_SCORE", 90)
	v.SetDefault("RISK_POLICY_FILE", "")
	v.SetDefault("POLICY_CACHE_TTL", "5m")
	v.SetDefault("CLEANUP_INTERVAL", "10m")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("OTEL_SERVICE_NAME", "sessionguard")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("SECURITY_EVENTS_KAFKA_TOPIC", "sessionguard-security-events")
	v.SetDefault("KAFKA_GROUP_ID", "sessionguard-worker")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.HTTPAddr == "" {
		return errors.New("config: HTTP_ADDR must be set")
	}
	if c.GRPCAddr == "" {
		return errors.New("config: GRPC_ADDR must be set")
	}
	if c.SessionDefaultTimeout < minSessionTimeout || c.SessionDefaultTimeout > maxSessionTimeout {
		return fmt.Errorf("config: SESSION_DEFAULT_TIMEOUT must be between %d and %d", minSessionTimeout, maxSessionTimeout)
	}
	if c.SessionDefaultMaxConcurrent < minMaxConcurrent || c.SessionDefaultMaxConcurrent > maxMaxConcurrent {
		return fmt.Errorf("config: SESSION_DEFAULT_MAX_CONCURRENT must be between %d and %d", minMaxConcurrent, maxMaxConcurrent)
	}
	if c.RiskHardBlockFailedLogins < 1 {
		return errors.New("config: RISK_HARD_BLOCK_FAILED_LOGINS must be at least 1")
	}
	if c.RiskBlockScore < 1 || c.RiskBlockScore > 100 {
		return errors.New("config: RISK_BLOCK_SCORE must be between 1 and 100")
	}
	return nil
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// RememberTokenTTL parses RememberTokenTTLRaw. Returns 720h if unset or invalid.
func (c *Config) RememberTokenTTL() time.Duration {
	return parseDuration(c.RememberTokenTTLRaw, 720*time.Hour)
}

// RiskFailedLoginWindow parses RiskFailedLoginWindowRaw. Returns 15m if unset or invalid.
func (c *Config) RiskFailedLoginWindow() time.Duration {
	return parseDuration(c.RiskFailedLoginWindowRaw, 15*time.Minute)
}

// RiskActivityWindow parses RiskActivityWindowRaw. Returns 24h if unset or invalid.
func (c *Config) RiskActivityWindow() time.Duration {
	return parseDuration(c.RiskActivityWindowRaw, 24*time.Hour)
}

// PolicyCacheTTL parses PolicyCacheTTLRaw. Returns 5m if unset or invalid.
func (c *Config) PolicyCacheTTL() time.Duration {
	return parseDuration(c.PolicyCacheTTLRaw, 5*time.Minute)
}

// CleanupInterval parses CleanupIntervalRaw. Returns 10m if unset or invalid.
func (c *Config) CleanupInterval() time.Duration {
	return parseDuration(c.CleanupIntervalRaw, 10*time.Minute)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// KafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// Used to decide if event publishing is enabled (non-empty list) and to create the producer.
func (c *Config) KafkaBrokersList() []string {
	if c == nil || c.KafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.KafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
