// Package config loads the evaluation processor configuration from a YAML
// file with environment variable overrides for secrets.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/navchetna/whispey-sub001/internal/llm/cache"
)

// Env var names honored as overrides. Secrets should come from the
// environment rather than the config file.
const (
	EnvConfigPath    = "EVALPROC_CONFIG_PATH"
	EnvDatabaseURL   = "EVALPROC_DATABASE_URL"
	EnvRedisAddr     = "EVALPROC_REDIS_ADDR"
	EnvRedisPassword = "EVALPROC_REDIS_PASSWORD"
	EnvOpenAIKey     = "OPENAI_API_KEY"
	EnvGoogleKey     = "GOOGLE_API_KEY"
	EnvGroqKey       = "GROQ_API_KEY"
)

// Config is the root configuration.
type Config struct {
	Database  DatabaseConfig            `yaml:"database"`
	Redis     RedisConfig               `yaml:"redis"`
	Temporal  TemporalConfig            `yaml:"temporal"`
	Worker    WorkerConfig              `yaml:"worker"`
	Metrics   MetricsConfig             `yaml:"metrics"`
	Providers map[string]ProviderConfig `yaml:"providers"`
}

// DatabaseConfig configures the Postgres connection.
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// RedisConfig configures the LLM response cache.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

// TemporalConfig configures the workflow client.
type TemporalConfig struct {
	HostPort  string `yaml:"host_port"`
	Namespace string `yaml:"namespace"`
	TaskQueue string `yaml:"task_queue"`
}

// WorkerConfig configures evaluation execution.
type WorkerConfig struct {
	// Concurrency bounds parallel unit evaluation within one job. Zero or
	// one means sequential.
	Concurrency int `yaml:"concurrency"`

	// HTTPTimeout bounds each provider round-trip.
	HTTPTimeout time.Duration `yaml:"http_timeout"`
}

// MetricsConfig configures the Prometheus exposition endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// ProviderConfig holds per-provider fallback credentials, used when a
// prompt carries no key of its own.
type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// Default values applied when the file leaves fields unset.
const (
	DefaultTaskQueue   = "evaluation-jobs"
	DefaultNamespace   = "default"
	DefaultHostPort    = "localhost:7233"
	DefaultMetricsAddr = ":9090"
	DefaultHTTPTimeout = 60 * time.Second
)

// Load reads the config file at path, or at EVALPROC_CONFIG_PATH when path
// is empty, then applies environment overrides and defaults. A missing file
// with an empty path yields a default config; an explicit path must exist.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if path == "" {
		path = os.Getenv(EnvConfigPath)
		explicit = path != ""
	}

	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if explicit || !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvDatabaseURL); v != "" {
		c.Database.URL = v
	}
	if v := os.Getenv(EnvRedisAddr); v != "" {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}
	if v := os.Getenv(EnvRedisPassword); v != "" {
		c.Redis.Password = v
	}
	for provider, env := range map[string]string{
		"openai": EnvOpenAIKey,
		"google": EnvGoogleKey,
		"groq":   EnvGroqKey,
	} {
		v := os.Getenv(env)
		if v == "" {
			continue
		}
		if c.Providers == nil {
			c.Providers = make(map[string]ProviderConfig)
		}
		pc := c.Providers[provider]
		if pc.APIKey == "" {
			pc.APIKey = v
			c.Providers[provider] = pc
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Temporal.HostPort == "" {
		c.Temporal.HostPort = DefaultHostPort
	}
	if c.Temporal.Namespace == "" {
		c.Temporal.Namespace = DefaultNamespace
	}
	if c.Temporal.TaskQueue == "" {
		c.Temporal.TaskQueue = DefaultTaskQueue
	}
	if c.Worker.HTTPTimeout <= 0 {
		c.Worker.HTTPTimeout = DefaultHTTPTimeout
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = DefaultMetricsAddr
	}
	if c.Redis.TTL <= 0 {
		c.Redis.TTL = cache.DefaultTTL
	}
}

// APIKeys returns the per-provider fallback keys for the LLM gateway.
func (c *Config) APIKeys() map[string]string {
	keys := make(map[string]string, len(c.Providers))
	for provider, pc := range c.Providers {
		if pc.APIKey != "" {
			keys[provider] = pc.APIKey
		}
	}
	return keys
}

// CacheConfig returns the Redis cache settings in the gateway's form.
func (c *Config) CacheConfig() cache.Config {
	return cache.Config{
		Enabled:  c.Redis.Enabled,
		Addr:     c.Redis.Addr,
		Password: c.Redis.Password,
		DB:       c.Redis.DB,
		TTL:      c.Redis.TTL,
	}
}
