package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const envPrefix = "VKGEO_"

// Config holds all configuration options for vkgeo
type Config struct {
	VK        VKConfig        `yaml:"vk" json:"vk"`
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`
	Retry     RetryConfig     `yaml:"retry" json:"retry"`
	Fetch     FetchConfig     `yaml:"fetch" json:"fetch"`
	Cache     CacheConfig     `yaml:"cache" json:"cache"`
	Server    ServerConfig    `yaml:"server" json:"server"`
	Batch     BatchConfig     `yaml:"batch" json:"batch"`
	Logging   LoggingConfig   `yaml:"logging" json:"logging"`
}

// VKConfig holds VK API access settings
type VKConfig struct {
	AccessToken string        `yaml:"access_token" json:"access_token"`
	APIVersion  string        `yaml:"api_version" json:"api_version"`
	BaseURL     string        `yaml:"base_url" json:"base_url"`
	Timeout     time.Duration `yaml:"timeout" json:"timeout"`
	UserAgent   string        `yaml:"user_agent" json:"user_agent"`
}

// RateLimitConfig bounds outgoing API calls. VK allows three requests per second per token.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" json:"requests_per_second"`
	Burst             int     `yaml:"burst" json:"burst"`
}

// RetryConfig controls client-level retries of transient API failures
type RetryConfig struct {
	Enabled      bool          `yaml:"enabled" json:"enabled"`
	MaxAttempts  int           `yaml:"max_attempts" json:"max_attempts"`
	InitialDelay time.Duration `yaml:"initial_delay" json:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay" json:"max_delay"`
	Multiplier   float64       `yaml:"multiplier" json:"multiplier"`
}

// FetchConfig holds page and batch sizes for the VK methods
type FetchConfig struct {
	PageSize        int `yaml:"page_size" json:"page_size"`
	FriendsPageSize int `yaml:"friends_page_size" json:"friends_page_size"`
	BatchSize       int `yaml:"batch_size" json:"batch_size"`
}

// CacheConfig selects and configures the location cache backend
type CacheConfig struct {
	Backend    string        `yaml:"backend" json:"backend"`
	Directory  string        `yaml:"directory" json:"directory"`
	SQLitePath string        `yaml:"sqlite_path" json:"sqlite_path"`
	MemoryTTL  time.Duration `yaml:"memory_ttl" json:"memory_ttl"`
	Layered    bool          `yaml:"layered" json:"layered"`
}

// ServerConfig holds the HTTP presenter settings
type ServerConfig struct {
	Host         string        `yaml:"host" json:"host"`
	Port         int           `yaml:"port" json:"port"`
	CorsOrigins  []string      `yaml:"cors_origins" json:"cors_origins"`
	ReadTimeout  time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout"`
}

// BatchConfig holds settings for locating many profiles at once
type BatchConfig struct {
	Workers int `yaml:"workers" json:"workers"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// Cache backends
const (
	BackendCSV    = "csv"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		VK: VKConfig{
			APIVersion: "5.131",
			BaseURL:    "https://api.vk.com/method",
			Timeout:    30 * time.Second,
			UserAgent:  "vkgeo/1.0",
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 3,
			Burst:             1,
		},
		Retry: RetryConfig{
			Enabled:      true,
			MaxAttempts:  3,
			InitialDelay: 500 * time.Millisecond,
			MaxDelay:     10 * time.Second,
			Multiplier:   2.0,
		},
		Fetch: FetchConfig{
			PageSize:        200,
			FriendsPageSize: 5000,
			BatchSize:       100,
		},
		Cache: CacheConfig{
			Backend:    BackendCSV,
			Directory:  filepath.Join(os.TempDir(), "vkgeo"),
			SQLitePath: filepath.Join(os.TempDir(), "vkgeo", "locations.db"),
			MemoryTTL:  10 * time.Minute,
			Layered:    false,
		},
		Server: ServerConfig{
			Host:         "127.0.0.1",
			Port:         8050,
			CorsOrigins:  []string{"*"},
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 120 * time.Second,
		},
		Batch: BatchConfig{
			Workers: 2,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	if v := os.Getenv(envPrefix + "ACCESS_TOKEN"); v != "" {
		c.VK.AccessToken = v
	}
	if v := os.Getenv(envPrefix + "API_VERSION"); v != "" {
		c.VK.APIVersion = v
	}
	if v := os.Getenv(envPrefix + "BASE_URL"); v != "" {
		c.VK.BaseURL = v
	}
	if v := os.Getenv(envPrefix + "REQUESTS_PER_SECOND"); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sREQUESTS_PER_SECOND: %w", envPrefix, err))
		} else {
			c.RateLimit.RequestsPerSecond = rps
		}
	}
	if v := os.Getenv(envPrefix + "PAGE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sPAGE_SIZE: %w", envPrefix, err))
		} else {
			c.Fetch.PageSize = n
		}
	}
	if v := os.Getenv(envPrefix + "CACHE_BACKEND"); v != "" {
		c.Cache.Backend = strings.ToLower(v)
	}
	if v := os.Getenv(envPrefix + "CACHE_DIR"); v != "" {
		c.Cache.Directory = v
	}
	if v := os.Getenv(envPrefix + "PORT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sPORT: %w", envPrefix, err))
		} else {
			c.Server.Port = n
		}
	}
	if v := os.Getenv(envPrefix + "LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}

	return errors.Join(errs...)
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		".vkgeo.yaml",
		".vkgeo.yml",
		filepath.Join(home, ".config", "vkgeo", "config.yaml"),
		filepath.Join(home, ".config", "vkgeo", "config.yml"),
		filepath.Join(home, ".vkgeo.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid. The access token is not
// required here because it may come from the credential store later.
func (c *Config) Validate() error {
	var errs []error

	if c.VK.APIVersion == "" {
		errs = append(errs, errors.New("VK API version is required"))
	}
	if c.VK.BaseURL == "" {
		errs = append(errs, errors.New("VK base URL is required"))
	}
	if c.VK.Timeout <= 0 {
		errs = append(errs, errors.New("VK timeout must be positive"))
	}

	if c.RateLimit.RequestsPerSecond <= 0 {
		errs = append(errs, errors.New("requests per second must be positive"))
	}
	if c.RateLimit.Burst <= 0 {
		errs = append(errs, errors.New("burst size must be positive"))
	}

	if c.Retry.MaxAttempts < 1 {
		errs = append(errs, errors.New("retry max attempts must be at least 1"))
	}
	if c.Retry.Multiplier < 1 {
		errs = append(errs, errors.New("retry multiplier must be at least 1"))
	}

	if c.Fetch.PageSize <= 0 || c.Fetch.PageSize > 200 {
		errs = append(errs, errors.New("page size must be between 1 and 200"))
	}
	if c.Fetch.FriendsPageSize <= 0 || c.Fetch.FriendsPageSize > 5000 {
		errs = append(errs, errors.New("friends page size must be between 1 and 5000"))
	}
	if c.Fetch.BatchSize <= 0 {
		errs = append(errs, errors.New("batch size must be positive"))
	}

	switch strings.ToLower(c.Cache.Backend) {
	case BackendCSV:
		if c.Cache.Directory == "" {
			errs = append(errs, errors.New("cache directory is required for the csv backend"))
		}
	case BackendSQLite:
		if c.Cache.SQLitePath == "" {
			errs = append(errs, errors.New("sqlite path is required for the sqlite backend"))
		}
	case BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown cache backend %q", c.Cache.Backend))
	}
	if (c.Cache.Layered || strings.ToLower(c.Cache.Backend) == BackendMemory) && c.Cache.MemoryTTL <= 0 {
		errs = append(errs, errors.New("memory TTL must be positive"))
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, errors.New("server port must be between 1 and 65535"))
	}
	if c.Batch.Workers <= 0 {
		errs = append(errs, errors.New("batch workers must be positive"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "disabled": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	return errors.Join(errs...)
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if token, ok := flags["access-token"].(string); ok && token != "" {
		c.VK.AccessToken = token
	}
	if backend, ok := flags["cache-backend"].(string); ok && backend != "" {
		c.Cache.Backend = strings.ToLower(backend)
	}
	if dir, ok := flags["cache-dir"].(string); ok && dir != "" {
		c.Cache.Directory = dir
	}
	if pageSize, ok := flags["page-size"].(int); ok && pageSize > 0 {
		c.Fetch.PageSize = pageSize
	}
	if workers, ok := flags["workers"].(int); ok && workers > 0 {
		c.Batch.Workers = workers
	}
	if port, ok := flags["port"].(int); ok && port > 0 {
		c.Server.Port = port
	}
	if host, ok := flags["host"].(string); ok && host != "" {
		c.Server.Host = host
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".vkgeo.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}
	config.Cache.Backend = strings.ToLower(config.Cache.Backend)

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
