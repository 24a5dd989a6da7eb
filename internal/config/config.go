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

// ConfigPath is the default config file location.
const ConfigPath = "config.yaml"

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	Port     string `yaml:"port"`
	LogLevel string `yaml:"logLevel"`

	DatabaseURL string `yaml:"databaseURL"`

	RedisAddr     string `yaml:"redisAddr"`
	RedisPassword string `yaml:"redisPassword"`
	CacheTTL      string `yaml:"cacheTTL"`

	AuthServiceURL string `yaml:"authServiceURL"`
	AuthJWKSURL    string `yaml:"authJwksURL"`
	JWTIssuer      string `yaml:"jwtIssuer"`
	JWTAudience    string `yaml:"jwtAudience"`
	JWTLeeway      string `yaml:"jwtLeeway"`

	DraftsDir string `yaml:"draftsDir"`

	MinioEndpoint      string `yaml:"minioEndpoint"`
	MinioAccessKey     string `yaml:"minioAccessKey"`
	MinioSecretKey     string `yaml:"minioSecretKey"`
	MinioBucket        string `yaml:"minioBucket"`
	MinioPublicBaseURL string `yaml:"minioPublicBaseURL"`
	MinioUseSSL        bool   `yaml:"minioUseSSL"`

	MaxUploadBytes           int64    `yaml:"maxUploadBytes"`
	AllowedImageExtensions   []string `yaml:"allowedImageExtensions"`
	SubmitRateLimitPerMinute int      `yaml:"submitRateLimitPerMinute"`
}

// Load reads config from path (defaults to config.yaml) and applies
// environment overrides.
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if v := os.Getenv("MANZIL_PORT"); v != "" {
		cfg.Port = strings.TrimSpace(v)
	}
	if v := os.Getenv("MANZIL_LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.TrimSpace(v)
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	if v := os.Getenv("MANZIL_AUTH_SERVICE_URL"); v != "" {
		cfg.AuthServiceURL = strings.TrimSpace(v)
	}
	if v := os.Getenv("MANZIL_AUTH_JWKS_URL"); v != "" {
		cfg.AuthJWKSURL = strings.TrimSpace(v)
	}
	if v := os.Getenv("JWT_ISSUER"); v != "" {
		cfg.JWTIssuer = v
	}
	if v := os.Getenv("JWT_AUDIENCE"); v != "" {
		cfg.JWTAudience = v
	}
	if v := os.Getenv("JWT_LEEWAY"); v != "" {
		cfg.JWTLeeway = v
	}
	if v := os.Getenv("MANZIL_DRAFTS_DIR"); v != "" {
		cfg.DraftsDir = strings.TrimSpace(v)
	}
	if v := os.Getenv("MINIO_ENDPOINT"); v != "" {
		cfg.MinioEndpoint = strings.TrimSpace(v)
	}
	if v := os.Getenv("MINIO_ACCESS_KEY"); v != "" {
		cfg.MinioAccessKey = v
	}
	if v := os.Getenv("MINIO_SECRET_KEY"); v != "" {
		cfg.MinioSecretKey = v
	}
	if v := os.Getenv("MINIO_BUCKET"); v != "" {
		cfg.MinioBucket = strings.TrimSpace(v)
	}
	if v := os.Getenv("MINIO_PUBLIC_BASE_URL"); v != "" {
		cfg.MinioPublicBaseURL = strings.TrimSpace(v)
	}
	if v := os.Getenv("MINIO_USE_SSL"); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			cfg.MinioUseSSL = b
		}
	}
	if v := os.Getenv("MANZIL_MAX_UPLOAD_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.MaxUploadBytes = n
		}
	}
	if v := os.Getenv("MANZIL_ALLOWED_IMAGE_EXTENSIONS"); v != "" {
		cfg.AllowedImageExtensions = splitCSV(v)
	}
	if v := os.Getenv("MANZIL_SUBMIT_RATE_LIMIT_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.SubmitRateLimitPerMinute = n
		}
	}
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func validateConfig(cfg FileConfig) error {
	if cfg.Port == "" {
		return errors.New("config: port is required (set in config.yaml)")
	}
	if cfg.AuthServiceURL == "" {
		return errors.New("config: authServiceURL is required (set in config.yaml or MANZIL_AUTH_SERVICE_URL)")
	}
	if strings.TrimSpace(cfg.AuthJWKSURL) == "" {
		return errors.New("config: authJwksURL is required (set in config.yaml or MANZIL_AUTH_JWKS_URL)")
	}
	if strings.TrimSpace(cfg.RedisAddr) == "" {
		return errors.New("config: redisAddr is required for the listing cache and submit limiter")
	}
	if strings.TrimSpace(cfg.DraftsDir) == "" {
		return errors.New("config: draftsDir is required")
	}
	if cfg.SubmitRateLimitPerMinute < 0 {
		return errors.New("config: submitRateLimitPerMinute must be >= 0")
	}
	return nil
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

// ParseCacheTTL parses the optional cache TTL duration string.
func ParseCacheTTL(raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	dur, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid cacheTTL duration: %w", err)
	}
	return dur, nil
}

// ParseJWTLeeway parses the optional JWT leeway duration string.
func ParseJWTLeeway(raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	dur, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid jwtLeeway duration: %w", err)
	}
	return dur, nil
}
