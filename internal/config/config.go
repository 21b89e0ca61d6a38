package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration
type Config struct {
	NSE      NSEConfig      `mapstructure:"nse"`
	Monitor  MonitorConfig  `mapstructure:"monitor"`
	Server   ServerConfig   `mapstructure:"server"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// NSEConfig holds upstream option-chain API configuration
type NSEConfig struct {
	BaseURL       string        `mapstructure:"base_url"`
	Symbol        string        `mapstructure:"symbol"`
	Index         bool          `mapstructure:"index"`
	Timeout       time.Duration `mapstructure:"timeout"`
	WarmupTimeout time.Duration `mapstructure:"warmup_timeout"`
	CacheTTL      time.Duration `mapstructure:"cache_ttl"`
	RatePerMinute int           `mapstructure:"rate_per_minute"`
	UserAgent     string        `mapstructure:"user_agent"`
}

// MonitorConfig holds cycle and filtering configuration
type MonitorConfig struct {
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	DisplayTopK     int           `mapstructure:"display_top_k"`
	HistoryTopK     int           `mapstructure:"history_top_k"`
	TableRows       int           `mapstructure:"table_rows"`
}

// ServerConfig holds dashboard HTTP server configuration
type ServerConfig struct {
	ListenAddr   string        `mapstructure:"listen_addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// TelegramConfig holds Telegram notification configuration
type TelegramConfig struct {
	BotToken       string        `mapstructure:"bot_token"`
	ChatID         string        `mapstructure:"chat_id"`
	Enabled        bool          `mapstructure:"enabled"`
	SendSummary    bool          `mapstructure:"send_summary"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// StorageConfig holds history persistence configuration
type StorageConfig struct {
	DBPath string `mapstructure:"db_path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
}

// Load reads configuration from file and environment variables
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)

	setDefaults(v)

	v.SetEnvPrefix("CHAINPULSE")
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
	// NSE defaults mirror the public option-chain endpoints
	v.SetDefault("nse.base_url", "https://www.nseindia.com")
	v.SetDefault("nse.symbol", "NIFTY")
	v.SetDefault("nse.index", true)
	v.SetDefault("nse.timeout", "20s")
	v.SetDefault("nse.warmup_timeout", "20s")
	v.SetDefault("nse.cache_ttl", "60s")
	v.SetDefault("nse.rate_per_minute", 30)
	v.SetDefault("nse.user_agent",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/115.0.0.0 Safari/537.36")

	// Monitor defaults
	v.SetDefault("monitor.refresh_interval", "60s")
	v.SetDefault("monitor.display_top_k", 20)
	v.SetDefault("monitor.history_top_k", 10)
	v.SetDefault("monitor.table_rows", 5)

	// Server defaults
	v.SetDefault("server.listen_addr", ":8080")
	v.SetDefault("server.read_timeout", "5s")
	v.SetDefault("server.write_timeout", "15s")

	// Telegram defaults
	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.send_summary", false)
	v.SetDefault("telegram.max_retries", 3)
	v.SetDefault("telegram.retry_delay_base", "1s")

	// Storage defaults
	v.SetDefault("storage.db_path", "./data/chainpulse.db")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.max_size_mb", 50)
	v.SetDefault("logging.max_backups", 3)
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	if c.NSE.BaseURL == "" {
		return fmt.Errorf("nse.base_url is required")
	}
	if c.NSE.Symbol == "" {
		return fmt.Errorf("nse.symbol is required")
	}
	if c.NSE.Timeout < time.Second {
		return fmt.Errorf("nse.timeout must be at least 1 second")
	}
	if c.NSE.WarmupTimeout < time.Second {
		return fmt.Errorf("nse.warmup_timeout must be at least 1 second")
	}
	if c.NSE.CacheTTL < time.Second {
		return fmt.Errorf("nse.cache_ttl must be at least 1 second")
	}
	if c.NSE.RatePerMinute < 1 {
		return fmt.Errorf("nse.rate_per_minute must be at least 1")
	}

	if c.Monitor.RefreshInterval < 10*time.Second {
		return fmt.Errorf("monitor.refresh_interval must be at least 10 seconds")
	}
	if c.Monitor.DisplayTopK < 1 {
		return fmt.Errorf("monitor.display_top_k must be at least 1")
	}
	if c.Monitor.HistoryTopK < 1 {
		return fmt.Errorf("monitor.history_top_k must be at least 1")
	}
	if c.Monitor.HistoryTopK > c.Monitor.DisplayTopK {
		return fmt.Errorf("monitor.history_top_k must not exceed monitor.display_top_k")
	}
	if c.Monitor.TableRows < 1 {
		return fmt.Errorf("monitor.table_rows must be at least 1")
	}

	if c.Server.ListenAddr == "" {
		return fmt.Errorf("server.listen_addr is required")
	}

	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}

	if c.Storage.DBPath == "" {
		return fmt.Errorf("storage.db_path is required")
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
