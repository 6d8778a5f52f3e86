package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	OIFlow      OIFlowConfig      `yaml:"oiflow"`
	Logging     LoggingConfig     `yaml:"logging"`
	Channels    ChannelsConfig    `yaml:"channels"`
	Feed        FeedConfig        `yaml:"feed"`
	Watchlist   WatchlistConfig   `yaml:"watchlist"`
	Alerts      AlertsConfig      `yaml:"alerts"`
	Aggregation AggregationConfig `yaml:"aggregation"`
	Telegram    TelegramConfig    `yaml:"telegram"`
	Storage     StorageConfig     `yaml:"storage"`
	Metrics     MetricsConfig     `yaml:"metrics"`
}

type OIFlowConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
	MaxAge int    `yaml:"max_age"`
}

type ChannelsConfig struct {
	RawBuffer      int `yaml:"raw_buffer"`
	OutboundBuffer int `yaml:"outbound_buffer"`
}

type FeedConfig struct {
	URL                string        `yaml:"url"`
	Exchange           string        `yaml:"exchange"`
	APIKey             string        `yaml:"api_key"`
	PingInterval       time.Duration `yaml:"ping_interval"`
	ReconnectDelay     time.Duration `yaml:"reconnect_delay"`
	AuthRetryDelay     time.Duration `yaml:"auth_retry_delay"`
	InsecureSkipVerify bool          `yaml:"insecure_skip_verify"`
}

type WatchlistConfig struct {
	DefaultLotSize int64              `yaml:"default_lot_size"`
	Underlyings    []UnderlyingConfig `yaml:"underlyings"`
}

type UnderlyingConfig struct {
	Name    string   `yaml:"name"`
	LotSize int64    `yaml:"lot_size"`
	ATMBand float64  `yaml:"atm_band"`
	Symbols []string `yaml:"symbols"`
}

type AlertsConfig struct {
	FuturesMinLots int64   `yaml:"futures_min_lots"`
	OptionsEnabled bool    `yaml:"options_enabled"`
	OptionsMinLots int64   `yaml:"options_min_lots"`
	MinOIRocPct    float64 `yaml:"min_oi_roc_pct"`
}

type AggregationConfig struct {
	Window            time.Duration `yaml:"window"`
	FutureLotNotional float64       `yaml:"future_lot_notional"`
}

type TelegramConfig struct {
	Enabled       bool          `yaml:"enabled"`
	BotToken      string        `yaml:"bot_token"`
	AlertChatID   string        `yaml:"alert_chat_id"`
	SummaryChatID string        `yaml:"summary_chat_id"`
	RatePerSec    float64       `yaml:"rate_per_sec"`
	Burst         int           `yaml:"burst"`
	Timeout       time.Duration `yaml:"timeout"`
}

type StorageConfig struct {
	Kafka KafkaConfig `yaml:"kafka"`
	S3    S3Config    `yaml:"s3"`
}

type KafkaConfig struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type S3Config struct {
	Enabled         bool          `yaml:"enabled"`
	Bucket          string        `yaml:"bucket"`
	Region          string        `yaml:"region"`
	Endpoint        string        `yaml:"endpoint"`
	PathStyle       bool          `yaml:"path_style"`
	Prefix          string        `yaml:"prefix"`
	FlushInterval   time.Duration `yaml:"flush_interval"`
	AccessKeyID     string        `yaml:"access_key_id"`
	SecretAccessKey string        `yaml:"secret_access_key"`
}

type MetricsConfig struct {
	CloudWatchEnabled bool   `yaml:"cloudwatch_enabled"`
	Namespace         string `yaml:"namespace"`
	DashboardName     string `yaml:"dashboard_name"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Config{
		Watchlist:   WatchlistConfig{DefaultLotSize: 1},
		Alerts:      AlertsConfig{FuturesMinLots: 50, OptionsMinLots: 1},
		Aggregation: AggregationConfig{Window: 2 * time.Minute, FutureLotNotional: 100000},
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	creds, err := loadCredentials()
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials from environment: %w", err)
	}
	applyCredentials(&config, creds)

	config.Storage.S3.Bucket = strings.TrimSpace(config.Storage.S3.Bucket)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

func validateConfig(cfg *Config) error {
	if cfg.OIFlow.Name == "" {
		return fmt.Errorf("oiflow.name is required")
	}
	if cfg.OIFlow.Version == "" {
		return fmt.Errorf("oiflow.version is required")
	}

	if cfg.Channels.RawBuffer <= 0 {
		return fmt.Errorf("channels.raw_buffer must be greater than 0")
	}
	if cfg.Channels.OutboundBuffer <= 0 {
		return fmt.Errorf("channels.outbound_buffer must be greater than 0")
	}

	if cfg.Feed.URL == "" {
		return fmt.Errorf("feed.url is required")
	}
	if cfg.Feed.Exchange == "" {
		cfg.Feed.Exchange = "NFO"
	}
	if cfg.Feed.PingInterval <= 0 {
		cfg.Feed.PingInterval = 20 * time.Second
	}
	if cfg.Feed.ReconnectDelay <= 0 {
		cfg.Feed.ReconnectDelay = 30 * time.Second
	}
	if cfg.Feed.AuthRetryDelay <= 0 {
		cfg.Feed.AuthRetryDelay = time.Minute
	}

	if len(cfg.Watchlist.Underlyings) == 0 {
		return fmt.Errorf("watchlist.underlyings must not be empty")
	}
	if cfg.Watchlist.DefaultLotSize <= 0 {
		return fmt.Errorf("watchlist.default_lot_size must be greater than 0")
	}
	for _, u := range cfg.Watchlist.Underlyings {
		if u.Name == "" {
			return fmt.Errorf("watchlist underlying name is required")
		}
		if u.LotSize < 0 {
			return fmt.Errorf("watchlist.%s.lot_size must not be negative", u.Name)
		}
		if u.ATMBand < 0 {
			return fmt.Errorf("watchlist.%s.atm_band must not be negative", u.Name)
		}
		if len(u.Symbols) == 0 {
			return fmt.Errorf("watchlist.%s.symbols must not be empty", u.Name)
		}
	}

	if cfg.Alerts.FuturesMinLots < 0 {
		return fmt.Errorf("alerts.futures_min_lots must not be negative")
	}
	if cfg.Alerts.MinOIRocPct < 0 {
		return fmt.Errorf("alerts.min_oi_roc_pct must not be negative")
	}

	if cfg.Aggregation.Window <= 0 {
		return fmt.Errorf("aggregation.window must be greater than 0")
	}
	if cfg.Aggregation.FutureLotNotional <= 0 {
		return fmt.Errorf("aggregation.future_lot_notional must be greater than 0")
	}

	if cfg.Telegram.Enabled {
		if cfg.Telegram.BotToken == "" {
			return fmt.Errorf("telegram bot token is required when telegram is enabled (set TELEGRAM_BOT_TOKEN)")
		}
		if cfg.Telegram.AlertChatID == "" && cfg.Telegram.SummaryChatID == "" {
			return fmt.Errorf("telegram.alert_chat_id or telegram.summary_chat_id is required when telegram is enabled")
		}
		if cfg.Telegram.RatePerSec <= 0 {
			cfg.Telegram.RatePerSec = 1
		}
		if cfg.Telegram.Burst <= 0 {
			cfg.Telegram.Burst = 5
		}
		if cfg.Telegram.Timeout <= 0 {
			cfg.Telegram.Timeout = 10 * time.Second
		}
	}

	if cfg.Storage.Kafka.Enabled {
		if len(cfg.Storage.Kafka.Brokers) == 0 {
			return fmt.Errorf("storage.kafka.brokers is required when kafka is enabled")
		}
		if cfg.Storage.Kafka.Topic == "" {
			return fmt.Errorf("storage.kafka.topic is required when kafka is enabled")
		}
	}

	if cfg.Storage.S3.Enabled {
		if cfg.Storage.S3.Bucket == "" {
			return fmt.Errorf("storage.s3.bucket is required when S3 is enabled")
		}
		if cfg.Storage.S3.Region == "" {
			return fmt.Errorf("storage.s3.region is required when S3 is enabled")
		}
		if cfg.Storage.S3.AccessKeyID == "" || cfg.Storage.S3.SecretAccessKey == "" {
			return fmt.Errorf("storage.s3.access_key_id and storage.s3.secret_access_key are required when S3 is enabled")
		}
		if !isValidS3Bucket(cfg.Storage.S3.Bucket) {
			return fmt.Errorf("storage.s3.bucket '%s' is invalid", cfg.Storage.S3.Bucket)
		}
		if cfg.Storage.S3.FlushInterval <= 0 {
			cfg.Storage.S3.FlushInterval = time.Minute
		}
	}

	return nil
}

var s3BucketRegexp = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]{1,61}[a-z0-9]$`)

func isValidS3Bucket(name string) bool {
	if len(name) < 3 || len(name) > 63 {
		return false
	}
	if strings.Contains(name, "..") || strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".") {
		return false
	}
	return s3BucketRegexp.MatchString(name)
}
