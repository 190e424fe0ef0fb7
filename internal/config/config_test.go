package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.test.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Tracking.RetentionPeriod != 30*24*time.Hour {
		t.Errorf("retention = %s, want 720h", cfg.Tracking.RetentionPeriod)
	}
	if cfg.Tracking.AggregationWindow != 5*time.Minute {
		t.Errorf("aggregation window = %s, want 5m", cfg.Tracking.AggregationWindow)
	}
	if cfg.Tracking.BucketWidth != time.Minute {
		t.Errorf("bucket width = %s, want 1m", cfg.Tracking.BucketWidth)
	}
	if cfg.Tracking.MaxOccurrences != 100 {
		t.Errorf("max occurrences = %d, want 100", cfg.Tracking.MaxOccurrences)
	}
	if cfg.Tracking.MaxStackTraceDepth != 50 {
		t.Errorf("max stack depth = %d, want 50", cfg.Tracking.MaxStackTraceDepth)
	}
}

func TestLoad_YAMLValues(t *testing.T) {
	path := writeConfigFile(t, `
server:
  port: 9999
tracking:
  environment: staging
  retention_period: 168h
  analysis_interval: 5m
ingest:
  requests_per_minute: 120
  api_keys:
    - key: "k1"
      name: "ci"
      scopes: "ingest,read"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.Tracking.Environment != "staging" {
		t.Errorf("environment = %s", cfg.Tracking.Environment)
	}
	if cfg.Tracking.RetentionPeriod != 7*24*time.Hour {
		t.Errorf("retention = %s", cfg.Tracking.RetentionPeriod)
	}
	if cfg.Ingest.RequestsPerMinute != 120 {
		t.Errorf("requests per minute = %d", cfg.Ingest.RequestsPerMinute)
	}
	if len(cfg.Ingest.APIKeys) != 1 || cfg.Ingest.APIKeys[0].Scopes != "ingest,read" {
		t.Errorf("api keys = %+v", cfg.Ingest.APIKeys)
	}

	// Unset fields still get defaults
	if cfg.Tracking.MaxOccurrences != 100 {
		t.Errorf("max occurrences = %d, want default 100", cfg.Tracking.MaxOccurrences)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "7070")
	t.Setenv("REDIS_HOST", "redis.internal")
	t.Setenv("TRACKING_ENVIRONMENT", "canary")
	t.Setenv("TRACKING_RETENTION_PERIOD", "48h")
	t.Setenv("INGEST_API_KEY", "secret-key")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 7070 {
		t.Errorf("port = %d, want 7070", cfg.Server.Port)
	}
	if cfg.Redis.Host != "redis.internal" || !cfg.Redis.Enabled {
		t.Errorf("redis = %s enabled=%t", cfg.Redis.Host, cfg.Redis.Enabled)
	}
	if cfg.Tracking.Environment != "canary" {
		t.Errorf("environment = %s", cfg.Tracking.Environment)
	}
	if cfg.Tracking.RetentionPeriod != 48*time.Hour {
		t.Errorf("retention = %s", cfg.Tracking.RetentionPeriod)
	}
	if len(cfg.Ingest.APIKeys) != 1 || cfg.Ingest.APIKeys[0].Key != "secret-key" {
		t.Errorf("api keys = %+v", cfg.Ingest.APIKeys)
	}
}

func TestLoad_BadYAMLFails(t *testing.T) {
	path := writeConfigFile(t, "server: [not a map")
	if _, err := Load(path); err == nil {
		t.Error("malformed YAML should fail")
	}
}
