package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration
type Config struct {
	Ebay     EbayConfig     `mapstructure:"ebay"`
	Scraper  ScraperConfig  `mapstructure:"scraper"`
	Research ResearchConfig `mapstructure:"research"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// EbayConfig holds credentials and endpoints for the official Browse API
type EbayConfig struct {
	AuthURL       string        `mapstructure:"auth_url"`
	BrowseURL     string        `mapstructure:"browse_url"`
	ClientID      string        `mapstructure:"client_id"`
	ClientSecret  string        `mapstructure:"client_secret"`
	MarketplaceID string        `mapstructure:"marketplace_id"`
	Scope         string        `mapstructure:"scope"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// ScraperConfig holds the fetch-capability configuration for scraped sources
type ScraperConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Mode    string        `mapstructure:"mode"` // http or chrome
	Timeout time.Duration `mapstructure:"timeout"`
}

// ResearchConfig holds coordinator behavior configuration
type ResearchConfig struct {
	SourceTimeout time.Duration `mapstructure:"source_timeout"`
	// Timeout is the optional overall research deadline; 0 disables it and
	// each source runs against its own SourceTimeout only.
	Timeout   time.Duration `mapstructure:"timeout"`
	Countries []string      `mapstructure:"countries"`
}

// StorageConfig holds the research-run archive configuration
type StorageConfig struct {
	DBPath  string `mapstructure:"db_path"`
	MaxRuns int    `mapstructure:"max_runs"`
}

// TelegramConfig holds Telegram notification configuration
type TelegramConfig struct {
	BotToken       string        `mapstructure:"bot_token"`
	ChatID         string        `mapstructure:"chat_id"`
	Enabled        bool          `mapstructure:"enabled"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)
	setDefaults(v)

	// Enable environment variable override
	v.SetEnvPrefix("PRICESIGHT")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	// eBay defaults
	v.SetDefault("ebay.auth_url", "https://api.ebay.com/identity/v1/oauth2/token")
	v.SetDefault("ebay.browse_url", "https://api.ebay.com/buy/browse/v1")
	v.SetDefault("ebay.marketplace_id", "EBAY_IT")
	v.SetDefault("ebay.scope", "https://api.ebay.com/oauth/api_scope")
	v.SetDefault("ebay.timeout", "30s")

	// Scraper defaults
	v.SetDefault("scraper.base_url", "https://api.scraperapi.com")
	v.SetDefault("scraper.mode", "http")
	v.SetDefault("scraper.timeout", "30s")

	// Research defaults
	v.SetDefault("research.source_timeout", "30s")
	v.SetDefault("research.timeout", "0s") // 0 = no overall deadline
	v.SetDefault("research.countries", []string{"IT", "US", "UK", "DE", "JP"})

	// Storage defaults
	v.SetDefault("storage.db_path", "./data/pricesight.db")
	v.SetDefault("storage.max_runs", 500)

	// Telegram defaults
	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.max_retries", 3)
	v.SetDefault("telegram.retry_delay_base", "1s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	if c.Ebay.AuthURL == "" {
		return fmt.Errorf("ebay.auth_url is required")
	}
	if c.Ebay.BrowseURL == "" {
		return fmt.Errorf("ebay.browse_url is required")
	}
	if c.Ebay.MarketplaceID == "" {
		return fmt.Errorf("ebay.marketplace_id is required")
	}
	if c.Ebay.Timeout < time.Second {
		return fmt.Errorf("ebay.timeout must be at least 1 second")
	}

	if c.Scraper.BaseURL == "" {
		return fmt.Errorf("scraper.base_url is required")
	}
	if c.Scraper.Mode != "http" && c.Scraper.Mode != "chrome" {
		return fmt.Errorf("scraper.mode must be one of: http, chrome")
	}
	if c.Scraper.Timeout < time.Second {
		return fmt.Errorf("scraper.timeout must be at least 1 second")
	}

	if c.Research.SourceTimeout < time.Second {
		return fmt.Errorf("research.source_timeout must be at least 1 second")
	}
	if c.Research.Timeout < 0 {
		return fmt.Errorf("research.timeout must not be negative")
	}
	if len(c.Research.Countries) == 0 {
		return fmt.Errorf("research.countries must contain at least one country code")
	}

	if c.Storage.DBPath == "" {
		return fmt.Errorf("storage.db_path is required")
	}
	if c.Storage.MaxRuns < 1 {
		return fmt.Errorf("storage.max_runs must be at least 1")
	}

	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}
