package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"corral/internal/bus"
)

type Config struct {
	Listen          string        `yaml:"listen"`
	Version         string        `yaml:"version"`
	DatabaseURL     string        `yaml:"database_url"`
	AuthToken       string        `yaml:"auth_token"`
	LogLevel        string        `yaml:"log_level"`
	BackendTimeout  time.Duration `yaml:"backend_timeout"`
	StatusTTL       time.Duration `yaml:"status_ttl"`
	ConflictRetries int           `yaml:"conflict_retries"`
	Bus             bus.Config    `yaml:"bus"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Listen == "" {
		cfg.Listen = ":8585"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.BackendTimeout == 0 {
		cfg.BackendTimeout = 30 * time.Second
	}
	if cfg.StatusTTL == 0 {
		cfg.StatusTTL = 15 * time.Second
	}
	if cfg.ConflictRetries == 0 {
		cfg.ConflictRetries = 3
	}

	def := bus.DefaultConfig()
	if cfg.Bus.URL == "" {
		cfg.Bus.URL = def.URL
	}
	if cfg.Bus.ConnectTimeout == 0 {
		cfg.Bus.ConnectTimeout = def.ConnectTimeout
	}
	if cfg.Bus.ReconnectWait == 0 {
		cfg.Bus.ReconnectWait = def.ReconnectWait
	}
	if cfg.Bus.MaxReconnects == 0 {
		cfg.Bus.MaxReconnects = def.MaxReconnects
	}
}
