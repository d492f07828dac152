package config

import (
	"errors"
	"fmt"
	"os"

	"fixam/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Logging    LoggingConfig    `yaml:"logging"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Agent      AgentConfig      `yaml:"agent"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type ServerConfig struct {
	Port      int             `yaml:"port"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
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

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

// AgentConfig configures the offline sync agent: where the API lives, which
// hosts count as CDNs, what belongs to the app shell, and how caches are
// versioned.
type AgentConfig struct {
	APIBase           string   `yaml:"api_base"`
	APIToken          string   `yaml:"api_token"`
	LocalStorePath    string   `yaml:"local_store_path"`
	CacheVersion      string   `yaml:"cache_version"`
	StaticAssets      []string `yaml:"static_assets"`
	CDNHosts          []string `yaml:"cdn_hosts"`
	APIPrefixes       []string `yaml:"api_prefixes"`
	LiveOnlyPatterns  []string `yaml:"live_only_patterns"`
	CDNTimeoutSeconds int      `yaml:"cdn_timeout_seconds"`
	ReplayBatch       int      `yaml:"replay_batch"`
}

func Load(configPath string) (*Config, error) {
	// .env is optional outside of local development.
	_ = godotenv.Load(".env")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	// Expand ${VAR} references before parsing.
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
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}
	if c.Server.Port <= 0 {
		return errors.New("server port is required")
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "fixam"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.RateLimit.RPS == 0 {
		c.Server.RateLimit.RPS = models.DefaultRateLimitRPS
	}
	if c.Server.RateLimit.Burst == 0 {
		c.Server.RateLimit.Burst = models.DefaultRateLimitBurst
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.Agent.CacheVersion == "" {
		c.Agent.CacheVersion = "v1"
	}
	if c.Agent.CDNTimeoutSeconds == 0 {
		c.Agent.CDNTimeoutSeconds = models.DefaultCDNTimeout
	}
	if c.Agent.ReplayBatch == 0 {
		c.Agent.ReplayBatch = models.DefaultReplayBatch
	}
	if len(c.Agent.APIPrefixes) == 0 {
		c.Agent.APIPrefixes = []string{"/api/"}
	}
	if len(c.Agent.LiveOnlyPatterns) == 0 {
		c.Agent.LiveOnlyPatterns = []string{"/api/artisans/", "/api/users/"}
	}
}
