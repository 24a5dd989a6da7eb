package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const validYAML = `
port: "8084"
logLevel: info
authServiceURL: http://auth.local
authJwksURL: http://auth.local/jwks
redisAddr: localhost:6379
draftsDir: /tmp/manzil-drafts
minioEndpoint: localhost:9000
minioBucket: manzil-images
submitRateLimitPerMinute: 5
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadValidConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8084" || cfg.AuthServiceURL != "http://auth.local" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.SubmitRateLimitPerMinute != 5 {
		t.Fatalf("submit rate limit not parsed: %d", cfg.SubmitRateLimitPerMinute)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("MANZIL_PORT", "9001")
	t.Setenv("DATABASE_URL", "postgres://override")
	t.Setenv("MANZIL_ALLOWED_IMAGE_EXTENSIONS", ".jpg, .png")
	cfg, err := Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "9001" {
		t.Fatalf("env port override not applied: %q", cfg.Port)
	}
	if cfg.DatabaseURL != "postgres://override" {
		t.Fatalf("env database override not applied: %q", cfg.DatabaseURL)
	}
	if len(cfg.AllowedImageExtensions) != 2 || cfg.AllowedImageExtensions[1] != ".png" {
		t.Fatalf("csv env override not applied: %v", cfg.AllowedImageExtensions)
	}
}

func TestValidationErrors(t *testing.T) {
	cases := map[string]string{
		"missing port":    "authServiceURL: x\nauthJwksURL: y\nredisAddr: z\ndraftsDir: d\n",
		"missing auth":    "port: \"1\"\nauthJwksURL: y\nredisAddr: z\ndraftsDir: d\n",
		"missing jwks":    "port: \"1\"\nauthServiceURL: x\nredisAddr: z\ndraftsDir: d\n",
		"missing redis":   "port: \"1\"\nauthServiceURL: x\nauthJwksURL: y\ndraftsDir: d\n",
		"missing drafts":  "port: \"1\"\nauthServiceURL: x\nauthJwksURL: y\nredisAddr: z\n",
		"negative limit":  "port: \"1\"\nauthServiceURL: x\nauthJwksURL: y\nredisAddr: z\ndraftsDir: d\nsubmitRateLimitPerMinute: -1\n",
	}
	for name, content := range cases {
		if _, err := Load(writeConfig(t, content)); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestParseDurations(t *testing.T) {
	if d, err := ParseCacheTTL("90s"); err != nil || d != 90*time.Second {
		t.Fatalf("cache ttl: d=%v err=%v", d, err)
	}
	if _, err := ParseCacheTTL("soon"); err == nil {
		t.Fatalf("invalid cache ttl must fail")
	}
	if d, err := ParseJWTLeeway(""); err != nil || d != 0 {
		t.Fatalf("empty leeway must parse to zero: d=%v err=%v", d, err)
	}
}
