package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Environment variables that override values loaded from the config file
const (
	EnvDatabasePath = "ALBUMSERVER_DATABASE_PATH"
	EnvTemplatesDir = "ALBUMSERVER_TEMPLATES_DIR"
	EnvHost         = "ALBUMSERVER_HOST"
	EnvPort         = "ALBUMSERVER_PORT"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Database  DatabaseConfig  `toml:"database"`
	Templates TemplatesConfig `toml:"templates"`
	Logging   LoggingConfig   `toml:"logging"`
	Metrics   MetricsConfig   `toml:"metrics"`
}

// ServerConfig contains server-related configuration
type ServerConfig struct {
	Host           string `toml:"host"`
	Port           string `toml:"port"`
	ReadTimeout    int    `toml:"read_timeout_seconds"`
	RequestLogging bool   `toml:"request_logging"`
}

// DatabaseConfig contains database-related configuration
type DatabaseConfig struct {
	Path   string `toml:"path"`
	Driver string `toml:"driver"` // sqlite3 (mattn, cgo) or sqlite (modernc, pure Go)
}

// TemplatesConfig selects where HTML templates are loaded from. An empty Dir
// means the templates embedded in the binary are used.
type TemplatesConfig struct {
	Dir   string `toml:"dir"`
	Watch bool   `toml:"watch"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	File   string `toml:"file"`
}

// MetricsConfig toggles the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool `toml:"enabled"`
}

// DefaultConfig returns a configuration matching the historical fixed
// constants (localhost:9000, ../database/albums.db)
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "localhost",
			Port:           "9000",
			ReadTimeout:    30,
			RequestLogging: true,
		},
		Database: DatabaseConfig{
			Path:   filepath.Join("..", "database", "albums.db"),
			Driver: "sqlite3",
		},
		Templates: TemplatesConfig{
			Dir:   "",
			Watch: false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			File:   "",
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// LoadConfig loads configuration from a TOML file, creating it with
// defaults when it does not exist yet. Environment overrides (including
// those from a .env file next to the working directory) are applied last.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := cfg.SaveToFile(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config file: %w", err)
		}
	} else if _, err := toml.DecodeFile(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := LoadDotEnv(".env"); err != nil {
		return nil, err
	}
	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// LoadDotEnv loads environment variables from path if the file exists.
// Variables already present in the environment are not overwritten.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides paths and the listen address from the environment
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvDatabasePath); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv(EnvTemplatesDir); v != "" {
		c.Templates.Dir = v
	}
	if v := os.Getenv(EnvHost); v != "" {
		c.Server.Host = v
	}
	if v := os.Getenv(EnvPort); v != "" {
		c.Server.Port = v
	}
}

// SaveToFile saves the configuration to a TOML file
func (c *Config) SaveToFile(configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.Create(configPath)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	header := `# Album Server Configuration
# Listening address, database location and template directory for the
# album catalog web app. Paths may also be set through ALBUMSERVER_* variables.

`
	if _, err := file.WriteString(header); err != nil {
		return fmt.Errorf("failed to write config header: %w", err)
	}

	encoder := toml.NewEncoder(file)
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("failed to encode config to TOML: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port cannot be empty")
	}
	if c.Server.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Server.ReadTimeout < 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database path cannot be empty")
	}
	validDrivers := map[string]bool{"sqlite3": true, "sqlite": true}
	if !validDrivers[c.Database.Driver] {
		return fmt.Errorf("invalid database driver: %s (must be sqlite3 or sqlite)", c.Database.Driver)
	}

	if c.Templates.Watch && c.Templates.Dir == "" {
		return fmt.Errorf("templates.watch requires templates.dir")
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	validLogFormats := map[string]bool{
		"text": true, "json": true,
	}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("invalid log format: %s (must be text or json)", c.Logging.Format)
	}

	return nil
}

// GetAddress returns the full server address
func (c *Config) GetAddress() string {
	return c.Server.Host + ":" + c.Server.Port
}

// BaseURL returns the absolute URL used in generated navigation links,
// including the trailing slash
func (c *Config) BaseURL() string {
	return "http://" + c.GetAddress() + "/"
}

// NewLogger builds a logrus logger from the logging section. The returned
// closer releases the log file, if any.
func (c *Config) NewLogger() (*logrus.Logger, io.Closer, error) {
	logger := logrus.New()

	level, err := logrus.ParseLevel(c.Logging.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid log level: %w", err)
	}
	logger.SetLevel(level)

	if c.Logging.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	if c.Logging.File == "" {
		return logger, nopCloser{}, nil
	}

	file, err := os.OpenFile(c.Logging.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	logger.SetOutput(file)
	return logger, file, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
