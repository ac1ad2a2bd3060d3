package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"callbridge/pkg/descriptor"
)

// ServiceConfig describes one remote target: where it lives, which HTTP
// engine talks to it and the client-side policies applied to it.
type ServiceConfig struct {
	Name           string            `yaml:"name"`
	BaseURL        string            `yaml:"base_url"`
	Engine         string            `yaml:"engine"` // nethttp (default) | fasthttp
	ConnectTimeout string            `yaml:"connect_timeout"`
	ReadTimeout    string            `yaml:"read_timeout"`
	DefaultHeaders map[string]string `yaml:"default_headers"`
	RateLimit      struct {
		RPS   float64 `yaml:"rps"`
		Burst int     `yaml:"burst"`
	} `yaml:"rate_limit"`
	Retry struct {
		MaxAttempts int    `yaml:"max_attempts"`
		BaseDelay   string `yaml:"base_delay"`
		MaxDelay    string `yaml:"max_delay"`
	} `yaml:"retry"`
}

// ProbeConfig schedules a synthetic invocation of one operation.
type ProbeConfig struct {
	Cron      string         `yaml:"cron"`
	Operation string         `yaml:"operation"`
	Args      map[string]any `yaml:"args"`
}

type Config struct {
	Server struct {
		Address string `yaml:"address"`
		Port    int    `yaml:"port"`
		TLS     struct {
			CertFile string `yaml:"cert_file"`
			KeyFile  string `yaml:"key_file"`
		} `yaml:"tls"`
	} `yaml:"server"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"` // text|json
	} `yaml:"logging"`
	Engine struct {
		PoolCapacity int `yaml:"pool_capacity"`
		PoolWorkers  int `yaml:"pool_workers"`
	} `yaml:"engine"`
	Services       []ServiceConfig            `yaml:"services"`
	Operations     []descriptor.OperationSpec `yaml:"operations"`
	OperationsFile string                     `yaml:"operations_file"`
	Record         struct {
		Enabled bool   `yaml:"enabled"`
		DBPath  string `yaml:"db_path"`
		Keep    int    `yaml:"keep"`
	} `yaml:"record"`
	Probes []ProbeConfig `yaml:"probes"`
}

// Addr returns host:port for the gateway HTTP server.
func (c *Config) Addr() string {
	addr := c.Server.Address
	if addr == "" {
		addr = "0.0.0.0"
	}
	p := c.Server.Port
	if p == 0 {
		p = 8080
	}
	return fmt.Sprintf("%s:%d", addr, p)
}

// Service returns the config block for name, or nil.
func (c *Config) Service(name string) *ServiceConfig {
	for i := range c.Services {
		if c.Services[i].Name == name {
			return &c.Services[i]
		}
	}
	return nil
}

// Load reads and parses the YAML config at path.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &cfg, nil
}

// Duration parses a config duration string, falling back to def when the
// field is empty or malformed.
func Duration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}
