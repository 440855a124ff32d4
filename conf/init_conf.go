package conf

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Config application configuration structure
type Config struct {
	// Network configuration
	Port string // HTTP service port

	// Database configuration
	Database DatabaseConfig

	// Media platform configuration
	Platform PlatformConfig

	// Uploader configuration
	Uploader UploaderConfig

	// Redis configuration
	Redis RedisConfig
}

// DatabaseConfig database configuration
type DatabaseConfig struct {
	Dsn          string // MySQL DSN
	MaxOpenConns int    // MySQL max open connections
	MaxIdleConns int    // MySQL max idle connections
}

// PlatformConfig remote media platform configuration
type PlatformConfig struct {
	Endpoint       string // Admin GraphQL endpoint URL
	AccessToken    string // Access token sent on every request
	TimeoutSeconds int    // Request timeout in seconds
}

// UploaderConfig upload pipeline configuration
type UploaderConfig struct {
	PollIntervalMs     int // Readiness poll interval in milliseconds
	PollMaxAttempts    int // Poll attempts before the session times out
	RetentionHours     int // Finished session rows older than this are deleted
	CleanupIntervalMin int // Cleanup processor run interval in minutes
}

// RedisConfig redis configuration
type RedisConfig struct {
	Enabled  bool   // Enable Redis cache
	Host     string // Redis host
	Port     int    // Redis port
	Password string // Redis password (optional)
	DB       int    // Redis database number
	CacheTTL int    // Cache TTL in seconds (default: 300)
}

// Cfg global configuration instance
var Cfg *Config

// GetYaml resolves the config file path: CONFIG_PATH env first, then ./config.yaml
func GetYaml() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return "./config.yaml"
}

// InitConfig initialize configuration
func InitConfig(path string) error {
	if path == "" {
		path = GetYaml()
	}
	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("Fatal error config file: %s", err)
	}

	// Create configuration instance
	Cfg = &Config{
		Port: viper.GetString("port"),

		Database: DatabaseConfig{
			Dsn:          viper.GetString("database.dsn"),
			MaxOpenConns: viper.GetInt("database.max_open_conns"),
			MaxIdleConns: viper.GetInt("database.max_idle_conns"),
		},

		Platform: PlatformConfig{
			Endpoint:       viper.GetString("platform.endpoint"),
			AccessToken:    viper.GetString("platform.access_token"),
			TimeoutSeconds: viper.GetInt("platform.timeout_seconds"),
		},

		Uploader: UploaderConfig{
			PollIntervalMs:     viper.GetInt("uploader.poll_interval_ms"),
			PollMaxAttempts:    viper.GetInt("uploader.poll_max_attempts"),
			RetentionHours:     viper.GetInt("uploader.retention_hours"),
			CleanupIntervalMin: viper.GetInt("uploader.cleanup_interval_min"),
		},

		Redis: RedisConfig{
			Enabled:  viper.GetBool("redis.enabled"),
			Host:     viper.GetString("redis.host"),
			Port:     viper.GetInt("redis.port"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
			CacheTTL: viper.GetInt("redis.cache_ttl"),
		},
	}

	// Set default values
	if Cfg.Port == "" {
		Cfg.Port = "7080"
	}
	if Cfg.Database.MaxOpenConns == 0 {
		Cfg.Database.MaxOpenConns = 100
	}
	if Cfg.Database.MaxIdleConns == 0 {
		Cfg.Database.MaxIdleConns = 10
	}
	if Cfg.Platform.TimeoutSeconds == 0 {
		Cfg.Platform.TimeoutSeconds = 30
	}
	if Cfg.Uploader.PollIntervalMs == 0 {
		Cfg.Uploader.PollIntervalMs = 3000
	}
	if Cfg.Uploader.PollMaxAttempts == 0 {
		Cfg.Uploader.PollMaxAttempts = 60
	}
	if Cfg.Uploader.RetentionHours == 0 {
		Cfg.Uploader.RetentionHours = 24
	}
	if Cfg.Uploader.CleanupIntervalMin == 0 {
		Cfg.Uploader.CleanupIntervalMin = 60
	}
	if Cfg.Redis.CacheTTL == 0 {
		Cfg.Redis.CacheTTL = 300
	}

	return nil
}
