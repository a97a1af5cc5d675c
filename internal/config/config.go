package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"domebooking/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App     AppConfig     `yaml:"app"`
	Backend BackendConfig `yaml:"backend"`
	Redis   RedisConfig   `yaml:"redis"`
	Logging LoggingConfig `yaml:"logging"`
	Server  ServerConfig  `yaml:"server"`
	Portal  PortalConfig  `yaml:"portal"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type BackendConfig struct {
	BaseURL                string `yaml:"base_url"`
	APIKey                 string `yaml:"api_key"`
	TimeoutSeconds         int    `yaml:"timeout_seconds"`
	CacheTTLSeconds        int    `yaml:"cache_ttl_seconds"`
	AvailabilityTTLSeconds int    `yaml:"availability_ttl_seconds"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type ServerConfig struct {
	Enabled      bool            `yaml:"enabled"`
	Port         int             `yaml:"port"`
	HeaderAPIKey string          `yaml:"header_api_key"`
	APIKeys      []APIClientKey  `yaml:"api_keys"`
	RateLimit    RateLimitConfig `yaml:"rate_limit"`
}

type APIClientKey struct {
	Key  string `yaml:"key"`
	Name string `yaml:"name"`
}

type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type PortalConfig struct {
	// Timezone is the facility's wall clock. Weekend/weekday decisions,
	// past-slot checks and the date key sent to the backend all use it.
	Timezone          string `yaml:"timezone"`
	DefaultFacility   string `yaml:"default_facility"`
	SessionTTLSeconds int    `yaml:"session_ttl_seconds"`
}

func Load(configPath string) (*Config, error) {
	// .env дополняет переменные окружения, если файл существует
	_ = godotenv.Load(".env")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	// Предварительная замена переменных окружения в YAML
	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Backend.BaseURL == "" {
		return errors.New("backend base_url is required")
	}

	if _, err := time.LoadLocation(c.Portal.Timezone); err != nil {
		return fmt.Errorf("invalid portal timezone %q: %w", c.Portal.Timezone, err)
	}

	if c.Server.Enabled && c.Server.Port <= 0 {
		return errors.New("server port is required when server is enabled")
	}

	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "dome-booking"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.HeaderAPIKey == "" {
		c.Server.HeaderAPIKey = "x-api-key"
	}
	if c.Server.RateLimit.RPS == 0 {
		c.Server.RateLimit.RPS = models.RateLimitRPS
	}
	if c.Server.RateLimit.Burst == 0 {
		c.Server.RateLimit.Burst = models.RateLimitBurst
	}
	if c.Backend.TimeoutSeconds == 0 {
		c.Backend.TimeoutSeconds = models.DefaultBackendTimeout
	}
	if c.Backend.CacheTTLSeconds == 0 {
		c.Backend.CacheTTLSeconds = models.FacilityCacheTTL
	}
	if c.Backend.AvailabilityTTLSeconds == 0 {
		c.Backend.AvailabilityTTLSeconds = models.AvailabilityCacheTTL
	}
	if c.Portal.Timezone == "" {
		c.Portal.Timezone = "Local"
	}
	if c.Portal.SessionTTLSeconds == 0 {
		c.Portal.SessionTTLSeconds = models.DefaultSessionTTL
	}
}

// Location resolves the portal timezone. Call after Validate.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Portal.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func (c *Config) BackendTimeout() time.Duration {
	return time.Duration(c.Backend.TimeoutSeconds) * time.Second
}

func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Portal.SessionTTLSeconds) * time.Second
}
