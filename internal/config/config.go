package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Port                             string `mapstructure:"PORT"`
	GinMode                          string `mapstructure:"GIN_MODE"`
	FirebaseProjectID                string `mapstructure:"FIREBASE_PROJECT_ID"`
	GoogleApplicationCredentials     string `mapstructure:"GOOGLE_APPLICATION_CREDENTIALS"`
	FirebaseServiceAccountJSONBase64 string `mapstructure:"FIREBASE_SERVICE_ACCOUNT_JSON_BASE64"`
	ClientURL                        string `mapstructure:"CLIENT_URL"`

	// AdminEmails is a comma-separated allow-list of identities that
	// are granted admin on profile creation and normalization.
	AdminEmails string `mapstructure:"ADMIN_EMAILS"`

	// Optional integrations. An empty address/URL disables the feature.
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`
	RabbitMQURL   string `mapstructure:"RABBITMQ_URL"`

	// StoreTimeoutSeconds bounds the two store round-trips (first
	// snapshot after subscribe, and write acknowledgment). Past the
	// budget the flow reports a connectivity error instead of hanging.
	StoreTimeoutSeconds int `mapstructure:"STORE_TIMEOUT_SECONDS"`

	// SessionIdleMinutes caps how long a reconciliation session (and
	// its document watch) survives without a profile read. Zero
	// disables the idle sweep; sessions then live until sign-out or
	// shutdown.
	SessionIdleMinutes int `mapstructure:"SESSION_IDLE_MINUTES"`
}

var appConfig *Config

// LoadConfig loads configuration from environment variables using Viper.
func LoadConfig() (*Config, error) {
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("GIN_MODE", "debug")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("STORE_TIMEOUT_SECONDS", 8)
	viper.SetDefault("SESSION_IDLE_MINUTES", 30)

	// Bind environment variables
	viper.BindEnv("PORT")
	viper.BindEnv("GIN_MODE")
	viper.BindEnv("FIREBASE_PROJECT_ID")
	viper.BindEnv("GOOGLE_APPLICATION_CREDENTIALS")
	viper.BindEnv("FIREBASE_SERVICE_ACCOUNT_JSON_BASE64")
	viper.BindEnv("CLIENT_URL")
	viper.BindEnv("ADMIN_EMAILS")
	viper.BindEnv("REDIS_ADDR")
	viper.BindEnv("REDIS_PASSWORD")
	viper.BindEnv("REDIS_DB")
	viper.BindEnv("RABBITMQ_URL")
	viper.BindEnv("STORE_TIMEOUT_SECONDS")
	viper.BindEnv("SESSION_IDLE_MINUTES")

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, errors.New("failed to unmarshal config: " + err.Error())
	}

	// Validate required fields
	if cfg.FirebaseProjectID == "" {
		return nil, errors.New("FIREBASE_PROJECT_ID is required")
	}
	if cfg.GoogleApplicationCredentials == "" && cfg.FirebaseServiceAccountJSONBase64 == "" {
		return nil, errors.New("either GOOGLE_APPLICATION_CREDENTIALS or FIREBASE_SERVICE_ACCOUNT_JSON_BASE64 is required")
	}
	if cfg.StoreTimeoutSeconds <= 0 {
		return nil, errors.New("STORE_TIMEOUT_SECONDS must be positive")
	}
	if cfg.SessionIdleMinutes < 0 {
		return nil, errors.New("SESSION_IDLE_MINUTES must not be negative")
	}

	appConfig = &cfg
	return appConfig, nil
}

// AdminAllowList returns the ADMIN_EMAILS entries, trimmed and
// lowercased, with empties dropped.
func (c *Config) AdminAllowList() []string {
	if c.AdminEmails == "" {
		return nil
	}
	parts := strings.Split(c.AdminEmails, ",")
	emails := make([]string, 0, len(parts))
	for _, p := range parts {
		if e := strings.ToLower(strings.TrimSpace(p)); e != "" {
			emails = append(emails, e)
		}
	}
	return emails
}

// StoreTimeout returns the store round-trip budget as a duration.
func (c *Config) StoreTimeout() time.Duration {
	return time.Duration(c.StoreTimeoutSeconds) * time.Second
}

// SessionIdleTTL returns the idle-session cap as a duration; zero
// disables the sweep.
func (c *Config) SessionIdleTTL() time.Duration {
	return time.Duration(c.SessionIdleMinutes) * time.Minute
}

// GetConfig returns the loaded application configuration.
// It will panic if LoadConfig has not been called successfully.
func GetConfig() *Config {
	if appConfig == nil {
		panic("config not loaded; call LoadConfig first")
	}
	return appConfig
}
