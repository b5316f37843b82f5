// Package config provides configuration management for the mining service.
package config

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Mining   MiningConfig   `mapstructure:"mining"`
	Sources  []SourceConfig `mapstructure:"sources"`
	Database DatabaseConfig `mapstructure:"database"`
	Storage  StorageConfig  `mapstructure:"storage"`
	WebUI    WebUIConfig    `mapstructure:"webui"`
	Log      LogConfig      `mapstructure:"log"`
}

// MiningConfig holds the sliding-window mining session configuration.
type MiningConfig struct {
	Engine           string `mapstructure:"engine"`            // diu, mfci, or streamfci
	WindowSize       int    `mapstructure:"window_size"`       // number of transactions kept in the sliding window
	Threshold        int    `mapstructure:"threshold"`         // minimum support for ClosedFrequent queries
	SnapshotEvery    int    `mapstructure:"snapshot_every"`    // take a WindowSnapshot every N transactions
	CrossCheck       bool   `mapstructure:"cross_check"`       // drive a second/third engine and assert agreement
	EventBuffer      int    `mapstructure:"event_buffer"`      // aggregator output channel size
	ProfileSnapshots bool   `mapstructure:"profile_snapshots"` // log a phase-by-phase timing breakdown of each snapshot
}

// SourceConfig describes one configured transaction source instance.
type SourceConfig struct {
	Type    string                 `mapstructure:"type"`
	Name    string                 `mapstructure:"name"`
	Enabled bool                   `mapstructure:"enabled"`
	Options map[string]interface{} `mapstructure:"options"`
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	Type     string `mapstructure:"type"` // postgres or mysql
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	MaxConns int    `mapstructure:"max_conns"`
}

// StorageConfig holds object storage configuration.
type StorageConfig struct {
	Type      string `mapstructure:"type"` // cos or local
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	SecretID  string `mapstructure:"secret_id"`
	SecretKey string `mapstructure:"secret_key"`
	Domain    string `mapstructure:"domain"`     // e.g., "myqcloud.com"
	Scheme    string `mapstructure:"scheme"`     // e.g., "https" or "http"
	LocalPath string `mapstructure:"local_path"` // for local storage
	Prefix    string `mapstructure:"prefix"`     // object key namespace for COS ("cfiminer" when unset)
	Compress  bool   `mapstructure:"compress"`   // compress snapshot exports
	Codec     string `mapstructure:"codec"`      // gzip or zstd (gzip when unset)
}

// WebUIConfig holds the minimal observability web server configuration.
type WebUIConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	ListenAddr string `mapstructure:"listen_addr"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"` // json or text
}

// Load reads configuration from the specified file path.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set default values
	setDefaults(v)

	// Determine config file path
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Look for config in standard locations
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/cfiminer")
	}

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		// Check if it's a "file not found" error (either viper's type or os error)
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found, use defaults
			fmt.Println("Config file not found, using defaults")
		} else if os.IsNotExist(err) {
			// File specified but doesn't exist, use defaults
			fmt.Printf("Config file %s not found, using defaults\n", configPath)
		} else {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Allow environment variables to override config
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadFromReader loads configuration from an io.Reader (useful for testing).
func LoadFromReader(configType string, content []byte) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType(configType)
	if err := v.ReadConfig(bytes.NewReader(content)); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Mining defaults
	v.SetDefault("mining.engine", "diu")
	v.SetDefault("mining.window_size", 1000)
	v.SetDefault("mining.threshold", 2)
	v.SetDefault("mining.snapshot_every", 100)
	v.SetDefault("mining.cross_check", false)
	v.SetDefault("mining.event_buffer", 256)

	// Database defaults
	v.SetDefault("database.type", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.max_conns", 10)

	// Storage defaults
	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.local_path", "./storage")
	v.SetDefault("storage.prefix", "cfiminer")
	v.SetDefault("storage.codec", "gzip")

	// WebUI defaults
	v.SetDefault("webui.enabled", true)
	v.SetDefault("webui.listen_addr", ":8090")

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.output_path", "./logs")
	v.SetDefault("log.format", "text")
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	// Validate database config
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Database.Type != "postgres" && c.Database.Type != "mysql" {
		return fmt.Errorf("unsupported database type: %s", c.Database.Type)
	}

	// Storage config validation is delegated to the storage package

	// Validate mining config
	if c.Mining.WindowSize < 1 {
		return fmt.Errorf("window size must be at least 1")
	}
	switch c.Mining.Engine {
	case "diu", "mfci", "streamfci":
	default:
		return fmt.Errorf("unsupported mining engine: %s", c.Mining.Engine)
	}

	return nil
}
