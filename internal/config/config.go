// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Browser   BrowserConfig   `mapstructure:"browser"`
	Timeouts  TimeoutConfig   `mapstructure:"timeouts"`
	Image     ImageConfig     `mapstructure:"image"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Events    EventsConfig    `mapstructure:"events"`
	History   HistoryConfig   `mapstructure:"history"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// BrowserConfig governs the shared browser pool.
type BrowserConfig struct {
	MaxConcurrent   int    `mapstructure:"max_concurrent"`
	PostLoadDelayMs int    `mapstructure:"post_load_delay_ms"`
	UserAgent       string `mapstructure:"user_agent"`
}

// TimeoutConfig holds the per-request timeout budgets, in milliseconds.
type TimeoutConfig struct {
	NavigationMs int `mapstructure:"navigation_ms"`
	OperationMs  int `mapstructure:"operation_ms"`
	CaptureMs    int `mapstructure:"capture_ms"`
	ExtractionMs int `mapstructure:"extraction_ms"`
	UploadMs     int `mapstructure:"upload_ms"`
}

// ImageConfig sets extraction filter defaults.
type ImageConfig struct {
	MinWidth           int  `mapstructure:"min_width"`
	MinHeight          int  `mapstructure:"min_height"`
	MaxImages          int  `mapstructure:"max_images"`
	IncludeBackgrounds bool `mapstructure:"include_backgrounds"`
}

// StorageConfig selects and configures the screenshot upload sink.
type StorageConfig struct {
	Provider           string `mapstructure:"provider"`
	Bucket             string `mapstructure:"bucket"`
	PublicAccess       bool   `mapstructure:"public_access"`
	SignedURLExpirySec int    `mapstructure:"signed_url_expiry_seconds"`
}

// EventsConfig configures the completion-event publisher.
type EventsConfig struct {
	Provider  string `mapstructure:"provider"`
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// HistoryConfig controls the optional capture-history store.
type HistoryConfig struct {
	DSN   string `mapstructure:"dsn"`
	Table string `mapstructure:"table"`
}

// RateLimitConfig bounds inbound request rates per client.
type RateLimitConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	RPS     float64 `mapstructure:"rps"`
	Burst   int     `mapstructure:"burst"`
}

// CORSConfig lists origins allowed to call the API from a browser.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PAGECAPTURE")
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
	v.SetDefault("server.port", 8080)
	v.SetDefault("browser.max_concurrent", 3)
	v.SetDefault("browser.post_load_delay_ms", 5000)
	v.SetDefault("browser.user_agent",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36")
	v.SetDefault("timeouts.navigation_ms", 60000)
	v.SetDefault("timeouts.operation_ms", 300000)
	v.SetDefault("timeouts.capture_ms", 60000)
	v.SetDefault("timeouts.extraction_ms", 60000)
	v.SetDefault("timeouts.upload_ms", 15000)
	v.SetDefault("image.min_width", 100)
	v.SetDefault("image.min_height", 100)
	v.SetDefault("image.max_images", 100)
	v.SetDefault("image.include_backgrounds", false)
	v.SetDefault("storage.provider", "memory")
	v.SetDefault("storage.public_access", true)
	v.SetDefault("storage.signed_url_expiry_seconds", 3600)
	v.SetDefault("events.provider", "memory")
	v.SetDefault("history.table", "captures")
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.rps", 0.11)
	v.SetDefault("rate_limit.burst", 20)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Browser.MaxConcurrent <= 0 {
		return fmt.Errorf("browser.max_concurrent must be > 0")
	}
	if c.Timeouts.NavigationMs <= 0 || c.Timeouts.OperationMs <= 0 {
		return fmt.Errorf("timeouts.navigation_ms and timeouts.operation_ms must be > 0")
	}
	if c.Timeouts.CaptureMs <= 0 || c.Timeouts.ExtractionMs <= 0 {
		return fmt.Errorf("timeouts.capture_ms and timeouts.extraction_ms must be > 0")
	}
	if c.Image.MaxImages < 1 || c.Image.MaxImages > 500 {
		return fmt.Errorf("image.max_images must be between 1 and 500")
	}
	switch c.Storage.Provider {
	case "gcs":
		if c.Storage.Bucket == "" {
			return fmt.Errorf("storage.bucket is required when storage.provider is gcs")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown storage.provider %q", c.Storage.Provider)
	}
	switch c.Events.Provider {
	case "pubsub":
		if c.Events.ProjectID == "" || c.Events.TopicName == "" {
			return fmt.Errorf("events.project_id and events.topic_name are required when events.provider is pubsub")
		}
	case "memory", "":
	default:
		return fmt.Errorf("unknown events.provider %q", c.Events.Provider)
	}
	return nil
}

// NavigationTimeout returns the page navigation budget as a duration.
func (c Config) NavigationTimeout() time.Duration {
	return time.Duration(c.Timeouts.NavigationMs) * time.Millisecond
}

// OperationTimeout returns the end-to-end screenshot budget as a duration.
func (c Config) OperationTimeout() time.Duration {
	return time.Duration(c.Timeouts.OperationMs) * time.Millisecond
}

// CaptureTimeout returns the budget for the final screenshot encode.
func (c Config) CaptureTimeout() time.Duration {
	return time.Duration(c.Timeouts.CaptureMs) * time.Millisecond
}

// ExtractionTimeout returns the end-to-end image extraction budget.
func (c Config) ExtractionTimeout() time.Duration {
	return time.Duration(c.Timeouts.ExtractionMs) * time.Millisecond
}

// UploadTimeout returns the budget for persisting a screenshot.
func (c Config) UploadTimeout() time.Duration {
	return time.Duration(c.Timeouts.UploadMs) * time.Millisecond
}

// PostLoadDelay returns the configured settle delay applied after the
// readiness pipeline, before capture.
func (c Config) PostLoadDelay() time.Duration {
	return time.Duration(c.Browser.PostLoadDelayMs) * time.Millisecond
}
