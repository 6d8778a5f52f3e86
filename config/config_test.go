package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

// writeTempConfig creates a minimal configuration file required for LoadConfig
// and returns its path.
func writeTempConfig(t *testing.T) string {
	t.Helper()
	content := `oiflow:
  name: "TestApp"
  version: "1.0"
channels:
  raw_buffer: 1
  outbound_buffer: 1
feed:
  url: "wss://example.com/"
watchlist:
  default_lot_size: 1
  underlyings:
    - name: BANKNIFTY
      lot_size: 15
      atm_band: 100
      symbols: ["BANKNIFTY-I.NFO"]
`
	f, err := os.CreateTemp("", "cfg-*.yml")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close temp file: %v", err)
	}
	return f.Name()
}

func TestLoadConfig(t *testing.T) {
	path := writeTempConfig(t)
	defer os.Remove(path)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.OIFlow.Name != "TestApp" {
		t.Errorf("unexpected name: %s", cfg.OIFlow.Name)
	}
	if cfg.Watchlist.Underlyings[0].LotSize != 15 {
		t.Errorf("unexpected lot size: %d", cfg.Watchlist.Underlyings[0].LotSize)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeTempConfig(t)
	defer os.Remove(path)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Alerts.FuturesMinLots != 50 {
		t.Errorf("unexpected futures_min_lots default: %d", cfg.Alerts.FuturesMinLots)
	}
	if cfg.Alerts.OptionsEnabled {
		t.Error("options alerting should default to disabled")
	}
	if cfg.Aggregation.Window != 2*time.Minute {
		t.Errorf("unexpected aggregation window default: %v", cfg.Aggregation.Window)
	}
	if cfg.Aggregation.FutureLotNotional != 100000 {
		t.Errorf("unexpected future_lot_notional default: %v", cfg.Aggregation.FutureLotNotional)
	}
	if cfg.Feed.ReconnectDelay != 30*time.Second {
		t.Errorf("unexpected reconnect delay default: %v", cfg.Feed.ReconnectDelay)
	}
}

func TestLoadConfigRequiresWatchlist(t *testing.T) {
	content := `oiflow:
  name: "TestApp"
  version: "1.0"
channels:
  raw_buffer: 1
  outbound_buffer: 1
feed:
  url: "wss://example.com/"
watchlist:
  underlyings: []
`
	f, err := os.CreateTemp("", "cfg-*.yml")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	f.Close()
	defer os.Remove(f.Name())

	if _, err := LoadConfig(f.Name()); err == nil {
		t.Fatal("expected error for empty watchlist")
	} else if !strings.Contains(err.Error(), "watchlist.underlyings") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestCredentialOverrides(t *testing.T) {
	path := writeTempConfig(t)
	defer os.Remove(path)

	t.Setenv("GFDL_API_KEY", "feed-key")
	t.Setenv("TELEGRAM_BOT_TOKEN", "bot-token")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Feed.APIKey != "feed-key" {
		t.Errorf("GFDL_API_KEY not applied: %q", cfg.Feed.APIKey)
	}
	if cfg.Telegram.BotToken != "bot-token" {
		t.Errorf("TELEGRAM_BOT_TOKEN not applied: %q", cfg.Telegram.BotToken)
	}
}

func TestResolveConfigPath(t *testing.T) {
	t.Setenv("APP_ENV", "production")

	dir := t.TempDir()
	base := dir + "/config.yml"
	if got := ResolveConfigPath(base); got != base {
		t.Errorf("expected base path when no env file exists, got %s", got)
	}

	envPath := dir + "/config.production.yml"
	if err := os.WriteFile(envPath, []byte("{}"), 0o644); err != nil {
		t.Fatalf("write env config: %v", err)
	}
	if got := ResolveConfigPath(base); got != envPath {
		t.Errorf("expected %s, got %s", envPath, got)
	}
}
