// Package config loads and validates scanner configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Upstream UpstreamConfig `mapstructure:"upstream"`
	Probe    ProbeConfig    `mapstructure:"probe"`
	Scan     ScanConfig     `mapstructure:"scan"`
	State    StateConfig    `mapstructure:"state"`
	Registry RegistryConfig `mapstructure:"registry"`
	PubSub   PubSubConfig   `mapstructure:"pubsub"`
	Headless HeadlessConfig `mapstructure:"headless"`
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// UpstreamConfig identifies the shared video platform and our tenant on it.
type UpstreamConfig struct {
	BaseURL       string `mapstructure:"base_url"`
	ListingURL    string `mapstructure:"listing_url"`
	TenantSegment string `mapstructure:"tenant_segment"`
	UserAgent     string `mapstructure:"user_agent"`
}

// ProbeConfig governs per-probe timeout and retry behavior.
type ProbeConfig struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
	Retries        int `mapstructure:"retries"`
	BackoffMs      int `mapstructure:"backoff_ms"`
}

// ScanConfig governs batch sizing, pacing, and termination heuristics.
type ScanConfig struct {
	BatchSize          int   `mapstructure:"batch_size"`
	BatchDelayMs       int   `mapstructure:"batch_delay_ms"`
	TimeoutRunSoft     int   `mapstructure:"timeout_run_soft"`
	TimeoutRunHard     int   `mapstructure:"timeout_run_hard"`
	MaxRange           int64 `mapstructure:"max_range"`
	OverlapMargin      int64 `mapstructure:"overlap_margin"`
	MonthIDBuffer      int64 `mapstructure:"month_id_buffer"`
	AbsoluteFloor      int64 `mapstructure:"absolute_floor"`
	FastPathProbeCap   int   `mapstructure:"fast_path_probe_cap"`
	StateFreshnessDays int   `mapstructure:"state_freshness_days"`
}

// StateConfig selects and configures the checkpoint stores.
type StateConfig struct {
	// Backend is "http" or "gcs".
	Backend        string `mapstructure:"backend"`
	RemoteURL      string `mapstructure:"remote_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	GCSBucket      string `mapstructure:"gcs_bucket"`
	GCSObject      string `mapstructure:"gcs_object"`
	FilePath       string `mapstructure:"file_path"`
}

// RegistryConfig locates the downstream pipeline's processed-videos table.
type RegistryConfig struct {
	// Backend is "postgres" or "memory".
	Backend  string `mapstructure:"backend"`
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// PubSubConfig holds metadata for discovery event publishing.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// HeadlessConfig configures the headless listing renderer.
type HeadlessConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	NavTimeoutSec int  `mapstructure:"nav_timeout_seconds"`
	SettleDelayMs int  `mapstructure:"settle_delay_ms"`
}

// ServerConfig controls the serve-mode HTTP server.
type ServerConfig struct {
	Port       int `mapstructure:"port"`
	QueueDepth int `mapstructure:"queue_depth"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("VIDEOSCAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("upstream.user_agent", "videoscan/1.0")
	v.SetDefault("probe.timeout_seconds", 3)
	v.SetDefault("probe.retries", 1)
	v.SetDefault("probe.backoff_ms", 500)
	v.SetDefault("scan.batch_size", 100)
	v.SetDefault("scan.batch_delay_ms", 10)
	v.SetDefault("scan.timeout_run_soft", 200)
	v.SetDefault("scan.timeout_run_hard", 400)
	v.SetDefault("scan.max_range", 5000)
	v.SetDefault("scan.overlap_margin", 100)
	v.SetDefault("scan.month_id_buffer", 2000)
	v.SetDefault("scan.absolute_floor", 1)
	v.SetDefault("scan.fast_path_probe_cap", 30)
	v.SetDefault("scan.state_freshness_days", 7)
	v.SetDefault("state.backend", "http")
	v.SetDefault("state.timeout_seconds", 5)
	v.SetDefault("state.gcs_object", "scan-state.json")
	v.SetDefault("state.file_path", "data/scan-state.json")
	v.SetDefault("registry.backend", "postgres")
	v.SetDefault("registry.table", "meeting_videos")
	v.SetDefault("registry.max_conns", 2)
	v.SetDefault("headless.enabled", true)
	v.SetDefault("headless.nav_timeout_seconds", 45)
	v.SetDefault("headless.settle_delay_ms", 500)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.queue_depth", 16)
	v.SetDefault("logging.development", false)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Upstream.BaseURL) == "" {
		return fmt.Errorf("upstream.base_url is required")
	}
	if strings.TrimSpace(c.Upstream.TenantSegment) == "" {
		return fmt.Errorf("upstream.tenant_segment is required")
	}
	if c.Probe.TimeoutSeconds <= 0 {
		return fmt.Errorf("probe.timeout_seconds must be > 0")
	}
	if c.Scan.BatchSize <= 0 {
		return fmt.Errorf("scan.batch_size must be > 0")
	}
	if c.Scan.TimeoutRunHard < c.Scan.TimeoutRunSoft {
		return fmt.Errorf("scan.timeout_run_hard must be >= scan.timeout_run_soft")
	}
	switch c.State.Backend {
	case "http":
		if strings.TrimSpace(c.State.RemoteURL) == "" {
			return fmt.Errorf("state.remote_url is required for the http backend")
		}
	case "gcs":
		if strings.TrimSpace(c.State.GCSBucket) == "" {
			return fmt.Errorf("state.gcs_bucket is required for the gcs backend")
		}
	default:
		return fmt.Errorf("unknown state backend %q", c.State.Backend)
	}
	switch c.Registry.Backend {
	case "postgres":
		if strings.TrimSpace(c.Registry.DSN) == "" {
			return fmt.Errorf("registry.dsn is required for the postgres backend")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown registry backend %q", c.Registry.Backend)
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	return nil
}

// ProbeTimeout returns the per-probe timeout as a duration.
func (c Config) ProbeTimeout() time.Duration {
	return time.Duration(c.Probe.TimeoutSeconds) * time.Second
}

// StateFreshness returns the maximum checkpoint age to resume from.
func (c Config) StateFreshness() time.Duration {
	return time.Duration(c.Scan.StateFreshnessDays) * 24 * time.Hour
}
