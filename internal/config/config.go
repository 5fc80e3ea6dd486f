package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

const (
	// DefaultEndpoint is the SiliconFlow account info endpoint
	DefaultEndpoint = "https://api.siliconflow.cn/v1/user/info"

	// DefaultPluginConfigPath is where the host keeps the plugin's config file
	DefaultPluginConfigPath = "config/plugins/siliconflow_balance_plugin/config.toml"
)

// Config holds all configuration for the application
type Config struct {
	API        APIConfig        `json:"api" toml:"api"`
	Plugin     PluginConfig     `json:"plugin" toml:"plugin"`
	Permission PermissionConfig `json:"permission" toml:"permission"`
	Server     ServerConfig     `json:"server" toml:"server"`
	Logging    LoggingConfig    `json:"logging" toml:"logging"`
}

// APIConfig holds the SiliconFlow API configuration
type APIConfig struct {
	APIKey   string        `json:"-" toml:"api_key"`
	Endpoint string        `json:"endpoint" toml:"endpoint"`
	Timeout  time.Duration `json:"timeout" toml:"timeout"`
}

// PluginConfig holds plugin lifecycle settings
type PluginConfig struct {
	Enabled         bool     `json:"enabled" toml:"enabled"`
	CommandPrefixes []string `json:"command_prefixes" toml:"command_prefixes"`
}

// PermissionConfig lists the users granted the query_balance node.
// An empty list grants it to everyone.
type PermissionConfig struct {
	AllowedUsers []string `json:"allowed_users" toml:"allowed_users"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         string        `json:"port" toml:"port"`
	Host         string        `json:"host" toml:"host"`
	ReadTimeout  time.Duration `json:"read_timeout" toml:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout" toml:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout" toml:"idle_timeout"`
	AuthToken    string        `json:"-" toml:"auth_token"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level       string   `json:"level" toml:"level"`
	Environment string   `json:"environment" toml:"environment"`
	OutputPaths []string `json:"output_paths" toml:"output_paths"`
}

// fileConfig mirrors the TOML layout. Durations are strings there.
type fileConfig struct {
	API struct {
		APIKey   *string `toml:"api_key"`
		Endpoint *string `toml:"endpoint"`
		Timeout  *string `toml:"timeout"`
	} `toml:"api"`
	Plugin struct {
		Enabled         *bool    `toml:"enabled"`
		CommandPrefixes []string `toml:"command_prefixes"`
	} `toml:"plugin"`
	Permission struct {
		AllowedUsers []string `toml:"allowed_users"`
	} `toml:"permission"`
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		API: APIConfig{
			APIKey:   "",
			Endpoint: DefaultEndpoint,
			Timeout:  30 * time.Second,
		},
		Plugin: PluginConfig{
			Enabled:         true,
			CommandPrefixes: []string{"/"},
		},
		Server: ServerConfig{
			Port:         "8080",
			Host:         "0.0.0.0",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 40 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Logging: LoggingConfig{
			Level:       "info",
			Environment: "development",
			OutputPaths: []string{"stdout"},
		},
	}
}

// LoadConfig loads configuration from defaults, an optional .env file, the
// plugin TOML file and finally environment variables.
// A missing .env or TOML file is not an error.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()

	if path == "" {
		path = getEnv("PLUGIN_CONFIG_PATH", DefaultPluginConfigPath)
	}
	if err := cfg.mergeFile(path); err != nil {
		return nil, err
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return c.mergeTOML(data)
}

func (c *Config) mergeTOML(data []byte) error {
	var fc fileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	if fc.API.APIKey != nil {
		c.API.APIKey = strings.TrimSpace(*fc.API.APIKey)
	}
	if fc.API.Endpoint != nil && *fc.API.Endpoint != "" {
		c.API.Endpoint = *fc.API.Endpoint
	}
	if fc.API.Timeout != nil {
		d, err := time.ParseDuration(*fc.API.Timeout)
		if err != nil {
			return fmt.Errorf("invalid api.timeout %q: %w", *fc.API.Timeout, err)
		}
		c.API.Timeout = d
	}
	if fc.Plugin.Enabled != nil {
		c.Plugin.Enabled = *fc.Plugin.Enabled
	}
	if len(fc.Plugin.CommandPrefixes) > 0 {
		c.Plugin.CommandPrefixes = fc.Plugin.CommandPrefixes
	}
	if len(fc.Permission.AllowedUsers) > 0 {
		c.Permission.AllowedUsers = fc.Permission.AllowedUsers
	}
	return nil
}

func (c *Config) applyEnv() {
	c.API.APIKey = strings.TrimSpace(getEnv("SILICONFLOW_API_KEY", c.API.APIKey))
	c.API.Endpoint = getEnv("SILICONFLOW_ENDPOINT", c.API.Endpoint)
	c.API.Timeout = getDurationEnv("SILICONFLOW_TIMEOUT", c.API.Timeout)

	c.Plugin.Enabled = getBoolEnv("PLUGIN_ENABLED", c.Plugin.Enabled)
	c.Plugin.CommandPrefixes = getStringSliceEnv("COMMAND_PREFIXES", c.Plugin.CommandPrefixes)

	c.Permission.AllowedUsers = getStringSliceEnv("PERMISSION_ALLOWED_USERS", c.Permission.AllowedUsers)

	c.Server.Port = getEnv("SERVER_PORT", c.Server.Port)
	c.Server.Host = getEnv("SERVER_HOST", c.Server.Host)
	c.Server.ReadTimeout = getDurationEnv("SERVER_READ_TIMEOUT", c.Server.ReadTimeout)
	c.Server.WriteTimeout = getDurationEnv("SERVER_WRITE_TIMEOUT", c.Server.WriteTimeout)
	c.Server.IdleTimeout = getDurationEnv("SERVER_IDLE_TIMEOUT", c.Server.IdleTimeout)
	c.Server.AuthToken = getEnv("SERVER_AUTH_TOKEN", c.Server.AuthToken)

	c.Logging.Level = getEnv("LOG_LEVEL", c.Logging.Level)
	c.Logging.Environment = getEnv("LOG_ENVIRONMENT", c.Logging.Environment)
	c.Logging.OutputPaths = getStringSliceEnv("LOG_OUTPUT_PATHS", c.Logging.OutputPaths)
}

// Lookup reads a string setting by its dotted path, the way host plugins
// ask for "api.api_key". Unknown paths and empty values return def.
func (c *Config) Lookup(path, def string) string {
	var value string
	switch path {
	case "api.api_key":
		value = c.API.APIKey
	case "api.endpoint":
		value = c.API.Endpoint
	case "api.timeout":
		value = c.API.Timeout.String()
	case "server.host":
		value = c.Server.Host
	case "server.port":
		value = c.Server.Port
	case "logging.level":
		value = c.Logging.Level
	case "logging.environment":
		value = c.Logging.Environment
	}
	if value == "" {
		return def
	}
	return value
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getStringSliceEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
