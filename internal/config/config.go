package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Database  DatabaseConfig  `mapstructure:"database"`
	Server    ServerConfig    `mapstructure:"server"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Retention RetentionConfig `mapstructure:"retention"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // sqlite only for now
	DSN    string `mapstructure:"dsn"`    // Connection string
}

// ServerConfig holds the control surface HTTP settings
type ServerConfig struct {
	Addr           string   `mapstructure:"addr"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// SchedulerConfig holds delivery loop settings
type SchedulerConfig struct {
	// DefaultInterval is used when a cycle finds no active configuration
	DefaultInterval string `mapstructure:"default_interval"`
	// Tick is the sleep slice between stop-signal checks
	Tick string `mapstructure:"tick"`
	// FaultCooldown is the back-off after a recovered cycle fault
	FaultCooldown string `mapstructure:"fault_cooldown"`
}

// RetentionConfig holds delivery log retention settings
type RetentionConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	CleanupCron string `mapstructure:"cleanup_cron"`
	MaxAgeDays  int    `mapstructure:"max_age_days"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json or console
	Output string `mapstructure:"output"` // stdout or file path
}

// Credentials holds the upstream secrets. They are read from the
// process environment at call time, never cached in Config, so a key
// rotated under a running daemon is picked up on the next cycle.
type Credentials struct {
	NewsDataAPIKey  string
	TwilioSID       string
	TwilioAuthToken string
	TwilioFrom      string // Format: "whatsapp:+14155238886"
}

// Environment variable names for upstream credentials
const (
	EnvNewsDataAPIKey  = "NEWSDATA_API_KEY"
	EnvTwilioSID       = "TWILIO_ACCOUNT_SID"
	EnvTwilioAuthToken = "TWILIO_AUTH_TOKEN"
	EnvTwilioFrom      = "TWILIO_WHATSAPP_NUMBER"
)

// CredentialsFromEnv reads the upstream credentials from the process
// environment.
func CredentialsFromEnv() Credentials {
	return Credentials{
		NewsDataAPIKey:  os.Getenv(EnvNewsDataAPIKey),
		TwilioSID:       os.Getenv(EnvTwilioSID),
		TwilioAuthToken: os.Getenv(EnvTwilioAuthToken),
		TwilioFrom:      os.Getenv(EnvTwilioFrom),
	}
}

// Missing returns the names of absent credential variables. An empty
// result means the scheduler's start precondition is satisfied.
func (c Credentials) Missing() []string {
	var missing []string
	if c.NewsDataAPIKey == "" {
		missing = append(missing, EnvNewsDataAPIKey)
	}
	if c.TwilioSID == "" {
		missing = append(missing, EnvTwilioSID)
	}
	if c.TwilioAuthToken == "" {
		missing = append(missing, EnvTwilioAuthToken)
	}
	if c.TwilioFrom == "" {
		missing = append(missing, EnvTwilioFrom)
	}
	return missing
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	// Load .env file if present (ignore errors if not found)
	_ = godotenv.Load()
	_ = godotenv.Load(".env.local")

	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Look for config in current directory and configs folder
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")

		// Also check user's home directory
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".newsbot"))
		}
	}

	// Environment variables
	v.SetEnvPrefix("NEWSBOT")
	v.AutomaticEnv()

	// Explicit bindings for nested keys (Viper doesn't auto-bind underscored nested keys)
	v.BindEnv("database.driver", "NEWSBOT_DATABASE_DRIVER")
	v.BindEnv("database.dsn", "NEWSBOT_DATABASE_DSN")
	v.BindEnv("server.addr", "NEWSBOT_SERVER_ADDR")
	v.BindEnv("logging.level", "NEWSBOT_LOGGING_LEVEL")
	v.BindEnv("logging.format", "NEWSBOT_LOGGING_FORMAT")
	v.BindEnv("retention.enabled", "NEWSBOT_RETENTION_ENABLED")
	v.BindEnv("retention.max_age_days", "NEWSBOT_RETENTION_MAX_AGE_DAYS")

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "./data/newsbot.db")

	// Server defaults
	v.SetDefault("server.addr", ":5000")
	v.SetDefault("server.allowed_origins", []string{"*"})

	// Scheduler defaults
	v.SetDefault("scheduler.default_interval", "1h")
	v.SetDefault("scheduler.tick", "10s")
	v.SetDefault("scheduler.fault_cooldown", "1m")

	// Retention defaults
	v.SetDefault("retention.enabled", true)
	v.SetDefault("retention.cleanup_cron", "0 0 * * 0") // Weekly cleanup
	v.SetDefault("retention.max_age_days", 30)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.output", "stdout")
}
