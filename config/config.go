package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"settler/database"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL  string `yaml:"database_url"`
	DatabaseName string `yaml:"database_name"`

	// Messaging and coordination
	NATSServers string `yaml:"nats_servers"` // empty disables NATS publishing
	RedisAddr   string `yaml:"redis_addr"`   // empty falls back to an in-process scan lock

	// Trigger surface
	HTTPPort    string `yaml:"http_port"`
	MetricsPort string `yaml:"metrics_port"`
	CronSecret  string `yaml:"cron_secret"` // bearer token required by the manual trigger

	// Settlement policy
	PremiumDivisor int64 `yaml:"premium_divisor"` // premium reward = round(stake * odds / PremiumDivisor)

	// Scan worker
	ScanInterval time.Duration `yaml:"-"`
	ScanLockTTL  time.Duration `yaml:"-"`

	ScanIntervalSeconds int `yaml:"scan_interval_seconds"`
	ScanLockTTLSeconds  int `yaml:"scan_lock_ttl_seconds"`

	LogLevel string `yaml:"log_level"`

	// Environment
	Environment string `yaml:"environment"` // "development", "production" or "test"
}

var (
	instance *Config
	once     sync.Once
	mu       sync.Mutex // Protects instance for test setup
)

// Get returns the global configuration instance
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()

	if instance != nil {
		return instance
	}

	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			if os.Getenv("ENVIRONMENT") == "test" {
				instance = NewTestConfig()
			} else {
				panic(fmt.Sprintf("failed to load config: %v", err))
			}
		}
	})
	return instance
}

// GetDatabaseURL constructs the full database URL by combining base URL and database name
func (c *Config) GetDatabaseURL() string {
	return database.ConstructDatabaseURL(c.DatabaseURL, c.DatabaseName)
}

// IsProduction reports whether the service runs in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func defaults() *Config {
	return &Config{
		HTTPPort:            "8080",
		MetricsPort:         "9095",
		PremiumDivisor:      10,
		ScanIntervalSeconds: 60,
		ScanLockTTLSeconds:  300,
		LogLevel:            "info",
	}
}

// load loads configuration from an optional YAML file and then environment variables
func load() (*Config, error) {
	config := defaults()

	if path := os.Getenv("SETTLER_CONFIG_FILE"); path != "" {
		if err := loadFile(config, path); err != nil {
			return nil, err
		}
	}

	config.DatabaseURL = getEnvWithDefault("DATABASE_URL", config.DatabaseURL)
	config.DatabaseName = getEnvWithDefault("DATABASE_NAME", config.DatabaseName)
	config.NATSServers = getEnvWithDefault("NATS_SERVERS", config.NATSServers)
	config.RedisAddr = getEnvWithDefault("REDIS_ADDR", config.RedisAddr)
	config.HTTPPort = getEnvWithDefault("HTTP_PORT", config.HTTPPort)
	config.MetricsPort = getEnvWithDefault("METRICS_PORT", config.MetricsPort)
	config.CronSecret = getEnvWithDefault("CRON_SECRET", config.CronSecret)
	config.LogLevel = getEnvWithDefault("LOG_LEVEL", config.LogLevel)
	config.Environment = getEnvWithDefault("ENVIRONMENT", config.Environment)

	if divisor := os.Getenv("PREMIUM_DIVISOR"); divisor != "" {
		parsed, err := strconv.ParseInt(divisor, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid PREMIUM_DIVISOR: %w", err)
		}
		config.PremiumDivisor = parsed
	}
	if interval := os.Getenv("SCAN_INTERVAL_SECONDS"); interval != "" {
		parsed, err := strconv.Atoi(interval)
		if err != nil {
			return nil, fmt.Errorf("invalid SCAN_INTERVAL_SECONDS: %w", err)
		}
		config.ScanIntervalSeconds = parsed
	}
	if ttl := os.Getenv("SCAN_LOCK_TTL_SECONDS"); ttl != "" {
		parsed, err := strconv.Atoi(ttl)
		if err != nil {
			return nil, fmt.Errorf("invalid SCAN_LOCK_TTL_SECONDS: %w", err)
		}
		config.ScanLockTTLSeconds = parsed
	}

	config.ScanInterval = time.Duration(config.ScanIntervalSeconds) * time.Second
	config.ScanLockTTL = time.Duration(config.ScanLockTTLSeconds) * time.Second

	// Set default environment if not specified
	if config.Environment == "" {
		config.Environment = "development"
	}

	if config.Environment != "test" {
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
		if config.DatabaseName != "" && strings.TrimSpace(config.DatabaseName) == "" {
			return nil, fmt.Errorf("DATABASE_NAME cannot be empty when provided")
		}
	}
	if config.PremiumDivisor <= 0 {
		return nil, fmt.Errorf("PREMIUM_DIVISOR must be positive, got %d", config.PremiumDivisor)
	}
	if config.ScanIntervalSeconds <= 0 {
		return nil, fmt.Errorf("SCAN_INTERVAL_SECONDS must be positive, got %d", config.ScanIntervalSeconds)
	}
	if config.ScanLockTTLSeconds <= 0 {
		return nil, fmt.Errorf("SCAN_LOCK_TTL_SECONDS must be positive, got %d", config.ScanLockTTLSeconds)
	}

	return config, nil
}

// loadFile overlays values from a YAML file onto config
func loadFile(config *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// getEnvWithDefault returns the environment variable value or a default if not set
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Test helpers - only use in tests

// SetTestConfig overrides the global config instance for testing
func SetTestConfig(testConfig *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = testConfig
}

// ResetConfig resets the global config instance and sync.Once for testing
func ResetConfig() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	once = sync.Once{}
}

// NewTestConfig creates a minimal config suitable for unit tests
func NewTestConfig() *Config {
	config := defaults()
	config.Environment = "test"
	config.CronSecret = "test-secret"
	config.ScanInterval = time.Duration(config.ScanIntervalSeconds) * time.Second
	config.ScanLockTTL = time.Duration(config.ScanLockTTLSeconds) * time.Second
	return config
}
