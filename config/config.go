package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type (
	// Config holds configuration settings for the offboarding service
	Config struct {
		// API Server
		APIHost  string `yaml:"api_host"`
		APIPort  int    `yaml:"api_port"`
		LogLevel string `yaml:"log_level"`

		// Persistence
		StoreBackend string      `yaml:"store_backend"`
		Redis        RedisConfig `yaml:"redis"`

		// Engine
		MachineID       int           `yaml:"machine_id"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	}

	// RedisConfig configures the Redis store backend
	RedisConfig struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix"`
		PoolSize int    `yaml:"pool_size"`
	}
)

// Store backends
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

const (
	DefaultShutdownTimeout = 10 * time.Second

	DefaultAPIPort = 8080
	DefaultAPIHost = "0.0.0.0"
	MaxTCPPort     = 65535

	DefaultRedisEndpoint = "localhost:6379"
	DefaultRedisPrefix   = "offboarding"
	DefaultRedisDB       = 0
	DefaultRedisPoolSize = 10
	MaxRedisDB           = 15
	MaxRedisPoolSize     = 1000

	DefaultMachineID = 1
	MaxMachineID     = 65535
)

var (
	ErrInvalidAPIPort         = errors.New("invalid API port")
	ErrInvalidStoreBackend    = errors.New("invalid store backend")
	ErrMissingRedisAddr       = errors.New("redis address is required")
	ErrInvalidMachineID       = errors.New("invalid machine ID")
	ErrInvalidShutdownTimeout = errors.New(
		"shutdown timeout must be positive",
	)
)

// NewDefaultConfig creates a configuration with sensible defaults: an
// in-memory store and the API on port 8080
func NewDefaultConfig() *Config {
	return &Config{
		APIHost:      DefaultAPIHost,
		APIPort:      DefaultAPIPort,
		LogLevel:     "info",
		StoreBackend: BackendMemory,
		Redis: RedisConfig{
			Addr:     DefaultRedisEndpoint,
			DB:       DefaultRedisDB,
			Prefix:   DefaultRedisPrefix,
			PoolSize: DefaultRedisPoolSize,
		},
		MachineID:       DefaultMachineID,
		ShutdownTimeout: DefaultShutdownTimeout,
	}
}

// LoadFile overlays the values of a YAML file onto the configuration.
// Keys missing from the file keep their current value.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return nil
}

// LoadFromEnv populates configuration values from environment variables.
// Returns an error if any env var cannot be parsed.
func (c *Config) LoadFromEnv() error {
	if apiHost := os.Getenv("API_HOST"); apiHost != "" {
		c.APIHost = apiHost
	}
	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		c.LogLevel = logLevel
	}
	if backend := os.Getenv("STORE_BACKEND"); backend != "" {
		c.StoreBackend = backend
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		c.Redis.Addr = addr
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		c.Redis.Password = password
	}
	if prefix := os.Getenv("REDIS_PREFIX"); prefix != "" {
		c.Redis.Prefix = prefix
	}

	if err := loadEnvInt("API_PORT", &c.APIPort, 0, MaxTCPPort); err != nil {
		return err
	}
	if err := loadEnvInt("REDIS_DB", &c.Redis.DB, -1, MaxRedisDB); err != nil {
		return err
	}
	if err := loadEnvInt(
		"REDIS_POOL_SIZE", &c.Redis.PoolSize, 0, MaxRedisPoolSize,
	); err != nil {
		return err
	}
	if err := loadEnvInt(
		"MACHINE_ID", &c.MachineID, -1, MaxMachineID,
	); err != nil {
		return err
	}

	if s := os.Getenv("SHUTDOWN_TIMEOUT"); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %q", s)
		}
		c.ShutdownTimeout = d
	}

	return nil
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	if c.APIPort <= 0 || c.APIPort > MaxTCPPort {
		return fmt.Errorf("%w: %d", ErrInvalidAPIPort, c.APIPort)
	}

	switch c.StoreBackend {
	case BackendMemory:
	case BackendRedis:
		if c.Redis.Addr == "" {
			return ErrMissingRedisAddr
		}
	default:
		return fmt.Errorf("%w: %s", ErrInvalidStoreBackend, c.StoreBackend)
	}

	if c.MachineID < 0 || c.MachineID > MaxMachineID {
		return fmt.Errorf("%w: %d", ErrInvalidMachineID, c.MachineID)
	}

	if c.ShutdownTimeout <= 0 {
		return ErrInvalidShutdownTimeout
	}

	return nil
}

// loadEnvInt reads key from the environment, parses it as an integer, and
// sets *dst if the value is in the range (min, max]. Returns an error if
// the value cannot be parsed or falls outside the valid range.
func loadEnvInt[T ~int | ~int64](key string, dst *T, min, max T) error {
	s := os.Getenv(key)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %q", key, s)
	}
	tv := T(v)
	if tv <= min || tv > max {
		return fmt.Errorf("invalid %s: %d out of range [%d, %d]",
			key, tv, min+1, max)
	}
	*dst = tv
	return nil
}
