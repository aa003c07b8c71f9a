package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port     string `yaml:"port"`
	LogLevel string `yaml:"log_level"`

	DatabasePath string `yaml:"database_path"`
	CachePath    string `yaml:"cache_path"`

	// Storage: "local" keeps uploads under StorageDir, "s3" uses the bucket.
	StorageBackend string `yaml:"storage_backend"`
	StorageDir     string `yaml:"storage_dir"`

	// S3
	S3Endpoint        string `yaml:"s3_endpoint"`
	S3AccessKeyID     string `yaml:"s3_access_key_id"`
	S3SecretAccessKey string `yaml:"s3_secret_access_key"`
	S3BucketName      string `yaml:"s3_bucket_name"`
	S3UseSSL          bool   `yaml:"s3_use_ssl"`

	// Upload limits
	MaxFileSize int64         `yaml:"max_file_size"`
	UploadTTL   time.Duration `yaml:"upload_ttl"`

	Extract ExtractConfig `yaml:"extract"`
}

// ExtractConfig holds the ruling-line tolerances, in PDF points.
type ExtractConfig struct {
	SnapTolerance         float64 `yaml:"snap_tolerance"`
	JoinTolerance         float64 `yaml:"join_tolerance"`
	IntersectionTolerance float64 `yaml:"intersection_tolerance"`
	MinEdgeLength         float64 `yaml:"min_edge_length"`
}

func defaults() *Config {
	return &Config{
		Port:           "8080",
		LogLevel:       "info",
		DatabasePath:   "data/tables.db",
		CachePath:      "data/cache.bolt",
		StorageBackend: "local",
		StorageDir:     "data/uploads",
		S3Endpoint:     "localhost:9000",
		S3BucketName:   "uploads",
		MaxFileSize:    20 * 1024 * 1024,
		UploadTTL:      time.Hour,
		Extract: ExtractConfig{
			SnapTolerance:         3,
			JoinTolerance:         3,
			IntersectionTolerance: 3,
			MinEdgeLength:         3,
		},
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// CONFIG_FILE if set, then environment variables.
func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.loadEnv(); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) loadEnv() error {
	c.Port = getEnv("PORT", c.Port)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.DatabasePath = getEnv("DATABASE_PATH", c.DatabasePath)
	c.CachePath = getEnv("CACHE_PATH", c.CachePath)
	c.StorageBackend = getEnv("STORAGE_BACKEND", c.StorageBackend)
	c.StorageDir = getEnv("STORAGE_DIR", c.StorageDir)
	c.S3Endpoint = getEnv("S3_ENDPOINT", c.S3Endpoint)
	c.S3AccessKeyID = getEnv("S3_ACCESS_KEY_ID", c.S3AccessKeyID)
	c.S3SecretAccessKey = getEnv("S3_SECRET_ACCESS_KEY", c.S3SecretAccessKey)
	c.S3BucketName = getEnv("S3_BUCKET_NAME", c.S3BucketName)
	c.S3UseSSL = getEnv("S3_USE_SSL", strconv.FormatBool(c.S3UseSSL)) == "true"

	var err error
	if c.MaxFileSize, err = getEnvInt("MAX_FILE_SIZE", c.MaxFileSize); err != nil {
		return err
	}
	if c.UploadTTL, err = getEnvDuration("UPLOAD_TTL", c.UploadTTL); err != nil {
		return err
	}
	if c.Extract.SnapTolerance, err = getEnvFloat("EXTRACT_SNAP_TOLERANCE", c.Extract.SnapTolerance); err != nil {
		return err
	}
	if c.Extract.JoinTolerance, err = getEnvFloat("EXTRACT_JOIN_TOLERANCE", c.Extract.JoinTolerance); err != nil {
		return err
	}
	if c.Extract.IntersectionTolerance, err = getEnvFloat("EXTRACT_INTERSECTION_TOLERANCE", c.Extract.IntersectionTolerance); err != nil {
		return err
	}
	if c.Extract.MinEdgeLength, err = getEnvFloat("EXTRACT_MIN_EDGE_LENGTH", c.Extract.MinEdgeLength); err != nil {
		return err
	}

	return nil
}

func (c *Config) validate() error {
	switch c.StorageBackend {
	case "local":
		if c.StorageDir == "" {
			return fmt.Errorf("STORAGE_DIR is required for local storage")
		}
	case "s3":
		if c.S3AccessKeyID == "" || c.S3SecretAccessKey == "" {
			return fmt.Errorf("S3_ACCESS_KEY_ID and S3_SECRET_ACCESS_KEY are required for s3 storage")
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend)
	}

	if c.MaxFileSize <= 0 {
		return fmt.Errorf("MAX_FILE_SIZE must be positive")
	}
	if c.UploadTTL <= 0 {
		return fmt.Errorf("UPLOAD_TTL must be positive")
	}

	e := c.Extract
	if e.SnapTolerance < 0 || e.JoinTolerance < 0 || e.IntersectionTolerance < 0 || e.MinEdgeLength < 0 {
		return fmt.Errorf("extraction tolerances must not be negative")
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int64) (int64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
