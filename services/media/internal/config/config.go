package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigPath is the default config location, overridable with MEDIA_CONFIG.
var ConfigPath = envOr("MEDIA_CONFIG", "config.yaml")

const defaultMaxUploadBytes int64 = 2 << 30

var defaultCORSOrigins = []string{
	"http://localhost:3000",
	"http://localhost:3001",
	"http://127.0.0.1:3000",
	"http://127.0.0.1:3001",
}

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	Port     string `yaml:"port"`
	Host     string `yaml:"host"`
	LogLevel string `yaml:"logLevel"`

	// StoreDriver selects the metadata store: mongo, postgres or memory.
	StoreDriver     string `yaml:"storeDriver"`
	MongoURI        string `yaml:"mongoURI"`
	MongoDatabase   string `yaml:"mongoDatabase"`
	MongoCollection string `yaml:"mongoCollection"`
	DatabaseURL     string `yaml:"databaseURL"`

	// BlobDriver selects upload storage: file or minio.
	BlobDriver     string `yaml:"blobDriver"`
	UploadDir      string `yaml:"uploadDir"`
	FileBaseURL    string `yaml:"fileBaseURL"`
	MinioEndpoint  string `yaml:"minioEndpoint"`
	MinioAccessKey string `yaml:"minioAccessKey"`
	MinioSecretKey string `yaml:"minioSecretKey"`
	MinioBucket    string `yaml:"minioBucket"`
	MinioUseSSL    bool   `yaml:"minioUseSSL"`

	MaxUploadBytes int64    `yaml:"maxUploadBytes"`
	CORSOrigins    []string `yaml:"corsOrigins"`

	RedisAddr         string   `yaml:"redisAddr"`
	RedisPassword     string   `yaml:"redisPassword"`
	UploadRateLimit   int      `yaml:"uploadRateLimit"`
	UploadRateWindow  string   `yaml:"uploadRateWindow"`
	TrustedProxyCIDRs []string `yaml:"trustedProxyCIDRs"`

	AMQPURL      string `yaml:"amqpURL"`
	AMQPExchange string `yaml:"amqpExchange"`
	// EventsStream publishes media events to a Redis stream when set with redisAddr.
	EventsStream string `yaml:"eventsStream"`
}

// Load reads config from path (defaults to config.yaml).
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *FileConfig) {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv("HOST"); v != "" {
		cfg.Host = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("STORE_DRIVER"); v != "" {
		cfg.StoreDriver = v
	}
	if v := os.Getenv("MONGO_URI"); v != "" {
		cfg.MongoURI = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("BLOB_DRIVER"); v != "" {
		cfg.BlobDriver = v
	}
	if v := os.Getenv("UPLOAD_DIR"); v != "" {
		cfg.UploadDir = v
	}
	if v := os.Getenv("FILE_BASE_URL"); v != "" {
		cfg.FileBaseURL = v
	}
	if v := os.Getenv("MINIO_ENDPOINT"); v != "" {
		cfg.MinioEndpoint = v
	}
	if v := os.Getenv("MINIO_ACCESS_KEY"); v != "" {
		cfg.MinioAccessKey = v
	}
	if v := os.Getenv("MINIO_SECRET_KEY"); v != "" {
		cfg.MinioSecretKey = v
	}
	if v := os.Getenv("MINIO_BUCKET"); v != "" {
		cfg.MinioBucket = v
	}
	if v := os.Getenv("MINIO_USE_SSL"); v == "true" {
		cfg.MinioUseSSL = true
	}
	if v := os.Getenv("MEDIA_MAX_UPLOAD_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.MaxUploadBytes = n
		}
	}
	if v := os.Getenv("CORS_ORIGIN"); v != "" {
		cfg.CORSOrigins = splitCSV(v)
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	if v := os.Getenv("AMQP_URL"); v != "" {
		cfg.AMQPURL = v
	}
	if v := os.Getenv("MEDIA_EVENTS_STREAM"); v != "" {
		cfg.EventsStream = v
	}
}

func applyDefaults(cfg *FileConfig) {
	if cfg.Port == "" {
		cfg.Port = "4000"
	}
	if cfg.Host == "" {
		cfg.Host = "0.0.0.0"
	}
	if cfg.StoreDriver == "" {
		cfg.StoreDriver = "mongo"
	}
	if cfg.MongoDatabase == "" {
		cfg.MongoDatabase = "mediahub"
	}
	if cfg.MongoCollection == "" {
		cfg.MongoCollection = "media"
	}
	if cfg.BlobDriver == "" {
		cfg.BlobDriver = "file"
	}
	if cfg.UploadDir == "" {
		cfg.UploadDir = "uploads"
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUploadBytes
	}
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = append([]string(nil), defaultCORSOrigins...)
	}
	if cfg.UploadRateLimit <= 0 {
		cfg.UploadRateLimit = 30
	}
	if cfg.UploadRateWindow == "" {
		cfg.UploadRateWindow = "1m"
	}
	if cfg.AMQPExchange == "" {
		cfg.AMQPExchange = "mediahub.media"
	}
}

func validateConfig(cfg FileConfig) error {
	switch cfg.StoreDriver {
	case "mongo":
		if cfg.MongoURI == "" {
			return errors.New("config: mongoURI is required for storeDriver mongo (set in config.yaml or MONGO_URI)")
		}
	case "postgres":
		if cfg.DatabaseURL == "" {
			return errors.New("config: databaseURL is required for storeDriver postgres (set in config.yaml or DATABASE_URL)")
		}
	case "memory":
	default:
		return fmt.Errorf("config: unknown storeDriver %q", cfg.StoreDriver)
	}
	switch cfg.BlobDriver {
	case "file":
	case "minio":
		if cfg.MinioEndpoint == "" || cfg.MinioBucket == "" {
			return errors.New("config: minioEndpoint and minioBucket are required for blobDriver minio")
		}
		if cfg.MinioAccessKey == "" || cfg.MinioSecretKey == "" {
			return errors.New("config: minioAccessKey and minioSecretKey are required for blobDriver minio")
		}
	default:
		return fmt.Errorf("config: unknown blobDriver %q", cfg.BlobDriver)
	}
	if cfg.EventsStream != "" && cfg.RedisAddr == "" {
		return errors.New("config: redisAddr is required when eventsStream is set")
	}
	if _, err := time.ParseDuration(cfg.UploadRateWindow); err != nil {
		return fmt.Errorf("config: invalid uploadRateWindow: %w", err)
	}
	return nil
}

// RateWindow returns the parsed upload rate limit window.
func (c FileConfig) RateWindow() time.Duration {
	d, err := time.ParseDuration(c.UploadRateWindow)
	if err != nil {
		return time.Minute
	}
	return d
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
