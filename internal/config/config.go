// Package config loads YAML configuration with ${ENV_VAR} expansion.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	LockingLocal = "local"
	LockingRedis = "redis"
)

// BackupConfig controls the periodic database file backup.
type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	IntervalHours int    `yaml:"interval_hours"`
	Path          string `yaml:"path"`
	RetentionDays int    `yaml:"retention_days"`
}

type Config struct {
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Backup BackupConfig `yaml:"backup"`

	Booking struct {
		DefaultCapacity int `yaml:"default_capacity"`
	} `yaml:"booking"`

	Pricing struct {
		// Units maps a calculation unit ("hour", "day", "fixed") to the
		// pricing strategy that serves it.
		Units map[string]string `yaml:"units"`
	} `yaml:"pricing"`

	Locking struct {
		Mode string `yaml:"mode"`
	} `yaml:"locking"`

	Redis struct {
		Address        string `yaml:"address"`
		Password       string `yaml:"password"`
		DB             int    `yaml:"db"`
		LockTTLSeconds int    `yaml:"lock_ttl_seconds"`
	} `yaml:"redis"`

	API struct {
		Port           int     `yaml:"port"`
		RateLimitRPS   float64 `yaml:"rate_limit_rps"`
		RateLimitBurst int     `yaml:"rate_limit_burst"`
	} `yaml:"api"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/bookflow.db"
	}
	if cfg.Booking.DefaultCapacity <= 0 {
		cfg.Booking.DefaultCapacity = 1
	}
	if cfg.Locking.Mode == "" {
		cfg.Locking.Mode = LockingLocal
	}
	if cfg.Locking.Mode != LockingLocal && cfg.Locking.Mode != LockingRedis {
		return nil, fmt.Errorf("unknown locking mode %q", cfg.Locking.Mode)
	}
	if cfg.Locking.Mode == LockingRedis && cfg.Redis.Address == "" {
		return nil, fmt.Errorf("locking mode %q requires redis.address", LockingRedis)
	}
	if cfg.API.Port <= 0 {
		cfg.API.Port = 8080
	}
	if cfg.API.RateLimitRPS <= 0 {
		cfg.API.RateLimitRPS = 20
	}
	if cfg.API.RateLimitBurst <= 0 {
		cfg.API.RateLimitBurst = 40
	}
	if cfg.Monitoring.HealthCheckPort <= 0 {
		cfg.Monitoring.HealthCheckPort = 8090
	}

	if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// RedisLockTTL returns the redis lock TTL with a ten second default.
func (c *Config) RedisLockTTL() time.Duration {
	if c.Redis.LockTTLSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.Redis.LockTTLSeconds) * time.Second
}

// BackupInterval returns the backup period with a daily default.
func (c *Config) BackupInterval() time.Duration {
	if c.Backup.IntervalHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.Backup.IntervalHours) * time.Hour
}
