package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"mediahub/internal/mediaclient"
)

const defaultConfigName = "mediactl.yaml"

// Config is the client configuration loaded from mediactl.yaml.
type Config struct {
	APIURL   string `yaml:"apiURL"`
	DataDir  string `yaml:"dataDir"`
	Storage  string `yaml:"storage"`
	LogLevel string `yaml:"logLevel"`

	RedisAddr     string `yaml:"redisAddr"`
	RedisPassword string `yaml:"redisPassword"`
	RedisPrefix   string `yaml:"redisPrefix"`

	StrictLogin   bool   `yaml:"strictLogin"`
	SessionSecret string `yaml:"sessionSecret"`
	SessionTTL    string `yaml:"sessionTTL"`

	SyncInterval     string `yaml:"syncInterval"`
	BreakerThreshold uint32 `yaml:"breakerThreshold"`
	BreakerTimeout   string `yaml:"breakerTimeout"`
}

// LoadConfig reads path when it exists, then applies MEDIAHUB_* overrides and defaults.
// An empty path looks for mediactl.yaml in the working directory.
func LoadConfig(path string) (Config, error) {
	cfg := Config{}
	explicit := path != ""
	if !explicit {
		path = defaultConfigName
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return cfg, fmt.Errorf("read config: %w", err)
	}
	applyEnv(&cfg)
	if err := applyDefaults(&cfg); err != nil {
		return cfg, err
	}
	return cfg, validateConfig(cfg)
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("MEDIAHUB_API"); v != "" {
		cfg.APIURL = v
	}
	if v := os.Getenv("MEDIAHUB_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("MEDIAHUB_STORAGE"); v != "" {
		cfg.Storage = v
	}
	if v := os.Getenv("MEDIAHUB_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("MEDIAHUB_REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("MEDIAHUB_REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	if v := os.Getenv("MEDIAHUB_SESSION_SECRET"); v != "" {
		cfg.SessionSecret = v
	}
	if v := os.Getenv("MEDIAHUB_STRICT_LOGIN"); v == "true" {
		cfg.StrictLogin = true
	}
}

func applyDefaults(cfg *Config) error {
	if cfg.APIURL == "" {
		cfg.APIURL = mediaclient.DefaultBaseURL
	}
	if cfg.Storage == "" {
		cfg.Storage = "dir"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "warn"
	}
	if cfg.DataDir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return fmt.Errorf("resolve data dir: %w", err)
		}
		cfg.DataDir = filepath.Join(base, "mediahub")
	}
	if cfg.SyncInterval == "" {
		cfg.SyncInterval = "1m"
	}
	if cfg.BreakerThreshold == 0 {
		cfg.BreakerThreshold = 3
	}
	if cfg.BreakerTimeout == "" {
		cfg.BreakerTimeout = "30s"
	}
	if cfg.SessionTTL == "" {
		cfg.SessionTTL = "720h"
	}
	return nil
}

func validateConfig(cfg Config) error {
	switch cfg.Storage {
	case "dir", "badger", "memory":
	case "redis":
		if strings.TrimSpace(cfg.RedisAddr) == "" {
			return errors.New("config: redisAddr is required for storage redis (set in mediactl.yaml or MEDIAHUB_REDIS_ADDR)")
		}
	default:
		return fmt.Errorf("config: unknown storage %q (dir, badger, redis, memory)", cfg.Storage)
	}
	for name, value := range map[string]string{
		"syncInterval":   cfg.SyncInterval,
		"breakerTimeout": cfg.BreakerTimeout,
		"sessionTTL":     cfg.SessionTTL,
	} {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("config: invalid %s: %w", name, err)
		}
	}
	if cfg.SessionSecret != "" && len(cfg.SessionSecret) < 16 {
		return errors.New("config: sessionSecret must be at least 16 bytes")
	}
	return nil
}

func mustDuration(value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
