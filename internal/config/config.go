// internal/config/config.go
package config

import (
	"fmt"
	"runtime"
	"time"

	"github.com/spf13/viper"

	"github.com/nullbytefox/posterhound/internal/records"
)

// Config holds the entire application configuration.
type Config struct {
	Logger  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`
	Scraper ScraperConfig `mapstructure:"scraper" yaml:"scraper"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig holds settings for the shared headless browser process.
type BrowserConfig struct {
	Headless          bool          `mapstructure:"headless" yaml:"headless"`
	IgnoreTLSErrors   bool          `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	Args              []string      `mapstructure:"args" yaml:"args"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	// SettleTimeout bounds the site-specific readiness wait after navigation.
	SettleTimeout time.Duration `mapstructure:"settle_timeout" yaml:"settle_timeout"`
}

// ScraperConfig tunes request pacing, humanization, and extraction behavior.
type ScraperConfig struct {
	// UseBrowser selects the stealth browser pipeline. When false, server
	// rendered pages are fetched with a plain HTTP collector instead; pages
	// that need script execution fail with ContentUnavailable.
	UseBrowser bool `mapstructure:"use_browser" yaml:"use_browser"`

	InitialDelay time.Duration `mapstructure:"initial_delay" yaml:"initial_delay"`
	MinDelay     time.Duration `mapstructure:"min_delay" yaml:"min_delay"`
	MaxDelay     time.Duration `mapstructure:"max_delay" yaml:"max_delay"`
	BatchDelay   time.Duration `mapstructure:"batch_delay" yaml:"batch_delay"`
	BatchSize    int           `mapstructure:"batch_size" yaml:"batch_size"`

	// PageWaitMin/Max bound the jittered settle wait applied after navigation.
	PageWaitMin time.Duration `mapstructure:"page_wait_min" yaml:"page_wait_min"`
	PageWaitMax time.Duration `mapstructure:"page_wait_max" yaml:"page_wait_max"`

	// AssetKindFilter keeps only the listed asset kinds in JSON-adapter output.
	// Empty means no filtering.
	AssetKindFilter []string `mapstructure:"asset_kind_filter" yaml:"asset_kind_filter"`

	MaxWorkers   int `mapstructure:"max_workers" yaml:"max_workers"`
	MaxUserPages int `mapstructure:"max_user_pages" yaml:"max_user_pages"`
}

// AssetFilter converts the configured filter strings into a typed set.
// An invalid name is a configuration error.
func (s ScraperConfig) AssetFilter() (map[records.AssetKind]struct{}, error) {
	if len(s.AssetKindFilter) == 0 {
		return nil, nil
	}
	out := make(map[records.AssetKind]struct{}, len(s.AssetKindFilter))
	for _, raw := range s.AssetKindFilter {
		k, err := records.ParseAssetKind(raw)
		if err != nil {
			return nil, fmt.Errorf("scraper.asset_kind_filter: %w", err)
		}
		out[k] = struct{}{}
	}
	return out, nil
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "posterhound")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.ignore_tls_errors", false)
	v.SetDefault("browser.navigation_timeout", "60s")
	v.SetDefault("browser.settle_timeout", "5s")

	// -- Scraper --
	v.SetDefault("scraper.use_browser", true)
	v.SetDefault("scraper.initial_delay", "0s")
	v.SetDefault("scraper.min_delay", "100ms")
	v.SetDefault("scraper.max_delay", "500ms")
	v.SetDefault("scraper.batch_delay", "2s")
	v.SetDefault("scraper.batch_size", 10)
	v.SetDefault("scraper.page_wait_min", "0s")
	v.SetDefault("scraper.page_wait_max", "500ms")
	v.SetDefault("scraper.max_workers", runtime.NumCPU())
	v.SetDefault("scraper.max_user_pages", 50)
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	s := c.Scraper
	if s.MaxWorkers <= 0 {
		return fmt.Errorf("scraper.max_workers must be a positive integer")
	}
	if s.MaxWorkers > runtime.NumCPU() {
		return fmt.Errorf("scraper.max_workers must not exceed the CPU core count (%d)", runtime.NumCPU())
	}
	if s.BatchSize <= 0 {
		return fmt.Errorf("scraper.batch_size must be a positive integer")
	}
	if s.MinDelay < 0 || s.MaxDelay < 0 {
		return fmt.Errorf("scraper delays must not be negative")
	}
	if s.MaxDelay < s.MinDelay {
		return fmt.Errorf("scraper.max_delay must be >= scraper.min_delay")
	}
	if s.PageWaitMax < s.PageWaitMin {
		return fmt.Errorf("scraper.page_wait_max must be >= scraper.page_wait_min")
	}
	if s.MaxUserPages <= 0 {
		return fmt.Errorf("scraper.max_user_pages must be a positive integer")
	}
	if _, err := s.AssetFilter(); err != nil {
		return err
	}
	if c.Browser.SettleTimeout <= 0 {
		return fmt.Errorf("browser.settle_timeout must be a positive duration")
	}
	return nil
}
