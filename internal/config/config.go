package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/errwatch/errwatch-backend/pkg/logger"
)

// Config is the resolved application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	CORS     CORSConfig     `yaml:"cors"`
	Redis    RedisConfig    `yaml:"redis"`
	Ingest   IngestConfig   `yaml:"ingest"`
	Tracking TrackingConfig `yaml:"tracking"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// CORSConfig holds CORS settings
type CORSConfig struct {
	AllowOrigins string `yaml:"allow_origins"`
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

// IngestConfig holds capture endpoint settings
type IngestConfig struct {
	APIKeys           []APIKey `yaml:"api_keys"`
	RequestsPerMinute int      `yaml:"requests_per_minute"`
}

// APIKey is a static ingest/management credential
type APIKey struct {
	Key    string `yaml:"key"`
	Name   string `yaml:"name"`
	Scopes string `yaml:"scopes"` // comma-separated: "ingest", "read", "admin"
}

// TrackingConfig holds the error tracking engine settings
type TrackingConfig struct {
	Environment            string        `yaml:"environment"`
	Version                string        `yaml:"version"`
	MaxStackTraceDepth     int           `yaml:"max_stack_trace_depth"`
	AggregationWindow      time.Duration `yaml:"aggregation_window"`
	BucketWidth            time.Duration `yaml:"bucket_width"`
	RetentionPeriod        time.Duration `yaml:"retention_period"`
	RetentionSweepInterval time.Duration `yaml:"retention_sweep_interval"`
	AnalysisInterval       time.Duration `yaml:"analysis_interval"`
	MaxOccurrences         int           `yaml:"max_occurrences"`
}

// UnmarshalYAML accepts duration strings like "10s" for shutdown_timeout
func (c *ServerConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Port            int    `yaml:"port"`
		ShutdownTimeout string `yaml:"shutdown_timeout"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	c.Port = raw.Port
	return setDuration(&c.ShutdownTimeout, raw.ShutdownTimeout, "shutdown_timeout")
}

// UnmarshalYAML accepts duration strings like "5m" or "720h" for the
// window, retention, and interval fields
func (c *TrackingConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Environment            string `yaml:"environment"`
		Version                string `yaml:"version"`
		MaxStackTraceDepth     int    `yaml:"max_stack_trace_depth"`
		AggregationWindow      string `yaml:"aggregation_window"`
		BucketWidth            string `yaml:"bucket_width"`
		RetentionPeriod        string `yaml:"retention_period"`
		RetentionSweepInterval string `yaml:"retention_sweep_interval"`
		AnalysisInterval       string `yaml:"analysis_interval"`
		MaxOccurrences         int    `yaml:"max_occurrences"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	c.Environment = raw.Environment
	c.Version = raw.Version
	c.MaxStackTraceDepth = raw.MaxStackTraceDepth
	c.MaxOccurrences = raw.MaxOccurrences

	for _, f := range []struct {
		dst  *time.Duration
		src  string
		name string
	}{
		{&c.AggregationWindow, raw.AggregationWindow, "aggregation_window"},
		{&c.BucketWidth, raw.BucketWidth, "bucket_width"},
		{&c.RetentionPeriod, raw.RetentionPeriod, "retention_period"},
		{&c.RetentionSweepInterval, raw.RetentionSweepInterval, "retention_sweep_interval"},
		{&c.AnalysisInterval, raw.AnalysisInterval, "analysis_interval"},
	} {
		if err := setDuration(f.dst, f.src, f.name); err != nil {
			return err
		}
	}
	return nil
}

func setDuration(dst *time.Duration, src, name string) error {
	if src == "" {
		return nil
	}
	d, err := time.ParseDuration(src)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", name, src, err)
	}
	*dst = d
	return nil
}

// Load reads the YAML config file, fills defaults, and applies env overrides.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	applyEnvOverrides(cfg)
	fillDefaults(cfg)
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ShutdownTimeout: 10 * time.Second,
		},
		Redis: RedisConfig{
			Host:     "localhost",
			Port:     6379,
			PoolSize: 10,
		},
		Ingest: IngestConfig{
			RequestsPerMinute: 600,
		},
		Tracking: TrackingConfig{
			Environment:            "production",
			Version:                "1.0.0",
			MaxStackTraceDepth:     50,
			AggregationWindow:      5 * time.Minute,
			BucketWidth:            time.Minute,
			RetentionPeriod:        30 * 24 * time.Hour,
			RetentionSweepInterval: time.Hour,
			AnalysisInterval:       15 * time.Minute,
			MaxOccurrences:         100,
		},
	}
}

// applyEnvOverrides lets deployment env vars win over file values
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("CORS_ALLOW_ORIGINS"); v != "" {
		cfg.CORS.AllowOrigins = v
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		cfg.Redis.Host = v
		cfg.Redis.Enabled = true
	}
	if v := os.Getenv("REDIS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Redis.Port = port
		}
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("TRACKING_ENVIRONMENT"); v != "" {
		cfg.Tracking.Environment = v
	}
	if v := os.Getenv("TRACKING_VERSION"); v != "" {
		cfg.Tracking.Version = v
	}
	if v := os.Getenv("TRACKING_RETENTION_PERIOD"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Tracking.RetentionPeriod = d
		}
	}
	if v := os.Getenv("INGEST_API_KEY"); v != "" {
		cfg.Ingest.APIKeys = append(cfg.Ingest.APIKeys, APIKey{
			Key:    v,
			Name:   "env",
			Scopes: "ingest,read,admin",
		})
	}
}

// fillDefaults guards against zero values from partial YAML files
func fillDefaults(cfg *Config) {
	def := defaultConfig()
	if cfg.Server.Port == 0 {
		cfg.Server.Port = def.Server.Port
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = def.Server.ShutdownTimeout
	}
	if cfg.Redis.PoolSize == 0 {
		cfg.Redis.PoolSize = def.Redis.PoolSize
	}
	if cfg.Ingest.RequestsPerMinute == 0 {
		cfg.Ingest.RequestsPerMinute = def.Ingest.RequestsPerMinute
	}
	t := &cfg.Tracking
	dt := def.Tracking
	if t.Environment == "" {
		t.Environment = dt.Environment
	}
	if t.Version == "" {
		t.Version = dt.Version
	}
	if t.MaxStackTraceDepth == 0 {
		t.MaxStackTraceDepth = dt.MaxStackTraceDepth
	}
	if t.AggregationWindow == 0 {
		t.AggregationWindow = dt.AggregationWindow
	}
	if t.BucketWidth == 0 {
		t.BucketWidth = dt.BucketWidth
	}
	if t.RetentionPeriod == 0 {
		t.RetentionPeriod = dt.RetentionPeriod
	}
	if t.RetentionSweepInterval == 0 {
		t.RetentionSweepInterval = dt.RetentionSweepInterval
	}
	if t.AnalysisInterval == 0 {
		t.AnalysisInterval = dt.AnalysisInterval
	}
	if t.MaxOccurrences == 0 {
		t.MaxOccurrences = dt.MaxOccurrences
	}
}

// LogResolved logs the effective configuration (secrets omitted)
func LogResolved(cfg *Config) {
	logger.Info("config: port=%d redis=%s:%d(enabled=%t) env=%s version=%s retention=%s window=%s",
		cfg.Server.Port,
		cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Enabled,
		cfg.Tracking.Environment, cfg.Tracking.Version,
		cfg.Tracking.RetentionPeriod, cfg.Tracking.AggregationWindow,
	)
}
