// internal/config/config_test.go
package config

import (
	"runtime"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nullbytefox/posterhound/internal/records"
)

func TestNewDefaultConfigValidates(t *testing.T) {
	cfg := NewDefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.True(t, cfg.Browser.Headless)
	assert.True(t, cfg.Scraper.UseBrowser)
	assert.Equal(t, 60*time.Second, cfg.Browser.NavigationTimeout)
	assert.Equal(t, runtime.NumCPU(), cfg.Scraper.MaxWorkers)
	assert.Equal(t, 10, cfg.Scraper.BatchSize)
	assert.Equal(t, 50, cfg.Scraper.MaxUserPages)
}

func TestNewConfigFromViperAppliesOverrides(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("scraper.min_delay", "1s")
	v.Set("scraper.max_delay", "3s")
	v.Set("scraper.max_workers", 1)
	v.Set("logger.level", "debug")

	cfg, err := NewConfigFromViper(v)
	require.NoError(t, err)
	assert.Equal(t, time.Second, cfg.Scraper.MinDelay)
	assert.Equal(t, 3*time.Second, cfg.Scraper.MaxDelay)
	assert.Equal(t, 1, cfg.Scraper.MaxWorkers)
	assert.Equal(t, "debug", cfg.Logger.Level)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"zero workers", func(c *Config) { c.Scraper.MaxWorkers = 0 }, "max_workers"},
		{"too many workers", func(c *Config) { c.Scraper.MaxWorkers = runtime.NumCPU() + 1 }, "max_workers"},
		{"zero batch size", func(c *Config) { c.Scraper.BatchSize = 0 }, "batch_size"},
		{"negative delay", func(c *Config) { c.Scraper.MinDelay = -time.Second }, "delays"},
		{"inverted delays", func(c *Config) {
			c.Scraper.MinDelay = 2 * time.Second
			c.Scraper.MaxDelay = time.Second
		}, "max_delay"},
		{"inverted page waits", func(c *Config) {
			c.Scraper.PageWaitMin = time.Second
			c.Scraper.PageWaitMax = 0
		}, "page_wait_max"},
		{"zero user pages", func(c *Config) { c.Scraper.MaxUserPages = 0 }, "max_user_pages"},
		{"bad asset kind", func(c *Config) { c.Scraper.AssetKindFilter = []string{"thumbnail"} }, "asset"},
		{"zero settle timeout", func(c *Config) { c.Browser.SettleTimeout = 0 }, "settle_timeout"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestAssetFilter(t *testing.T) {
	var s ScraperConfig
	filter, err := s.AssetFilter()
	require.NoError(t, err)
	assert.Nil(t, filter, "an empty filter admits everything")

	s.AssetKindFilter = []string{"show_cover", "title_card"}
	filter, err = s.AssetFilter()
	require.NoError(t, err)
	require.Len(t, filter, 2)
	assert.Contains(t, filter, records.AssetShowCover)
	assert.Contains(t, filter, records.AssetTitleCard)

	s.AssetKindFilter = []string{"show_cover", "bogus"}
	_, err = s.AssetFilter()
	require.Error(t, err)
}
