package writer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	appconfig "oiflow/config"
	"oiflow/logger"
	"oiflow/models"
)

func TestGenerateS3Key(t *testing.T) {
	cfg := &appconfig.Config{}
	cfg.Storage.S3.Prefix = "oiflow/events"

	w := &ArchiveWriter{config: cfg, log: logger.GetLogger()}
	ts := time.Date(2025, 8, 28, 14, 5, 30, 0, time.UTC)

	key := w.generateS3Key("SBIN", ts)
	expected := "oiflow/events/underlying=SBIN/date=2025-08-28/hour=14/events_SBIN_20250828140530.parquet"
	if key != expected {
		t.Errorf("generateS3Key = %q, expected %q", key, expected)
	}
}

func TestGenerateS3KeyNoPrefix(t *testing.T) {
	w := &ArchiveWriter{config: &appconfig.Config{}, log: logger.GetLogger()}
	ts := time.Date(2025, 8, 28, 9, 0, 0, 0, time.UTC)

	key := w.generateS3Key("HDFCBANK", ts)
	expected := "underlying=HDFCBANK/date=2025-08-28/hour=09/events_HDFCBANK_20250828090000.parquet"
	if key != expected {
		t.Errorf("generateS3Key = %q, expected %q", key, expected)
	}
}

func TestCreateParquetFile(t *testing.T) {
	w := &ArchiveWriter{config: &appconfig.Config{}, log: logger.GetLogger()}

	events := []models.ClassifiedEvent{
		{
			Symbol:     "SBIN-I.NFO",
			Underlying: "SBIN",
			Kind:       models.KindFuture,
			Flow:       "FUT BUY",
			Zone:       models.ZoneNA,
			Bucket:     models.BucketLow,
			Price:      805,
			OIDelta:    750,
			Lots:       1,
			Turnover:   100000,
			Timestamp:  time.Now(),
		},
	}

	data, size, err := w.createParquetFile(events)
	if err != nil {
		t.Fatalf("createParquetFile failed: %v", err)
	}
	if size == 0 || int64(len(data)) != size {
		t.Errorf("inconsistent parquet size: len=%d size=%d", len(data), size)
	}
}

func telegramConfig() *appconfig.Config {
	cfg := &appconfig.Config{}
	cfg.Telegram.Enabled = true
	cfg.Telegram.BotToken = "test-token"
	cfg.Telegram.AlertChatID = "-100"
	cfg.Telegram.SummaryChatID = "-200"
	cfg.Telegram.RatePerSec = 100
	cfg.Telegram.Burst = 10
	cfg.Telegram.Timeout = time.Second
	return cfg
}

func TestTelegramWriterDeliversAlertsAndReports(t *testing.T) {
	var mu sync.Mutex
	received := make(map[string]string)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("bad form: %v", err)
		}
		mu.Lock()
		received[r.FormValue("chat_id")] = r.FormValue("parse_mode")
		mu.Unlock()
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	alerts := make(chan models.AlertEvent, 1)
	reports := make(chan models.ReportEvent, 1)

	tw, err := NewTelegramWriter(telegramConfig(), alerts, reports)
	if err != nil {
		t.Fatalf("NewTelegramWriter failed: %v", err)
	}
	tw.apiBase = server.URL

	ctx, cancel := context.WithCancel(context.Background())
	if err := tw.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	alerts <- models.AlertEvent{
		Event: models.ClassifiedEvent{Symbol: "SBIN-I.NFO", Flow: "FUT BUY"},
		Text:  "alert text",
	}
	reports <- models.ReportEvent{
		ReportID: "r1",
		Text:     "<pre>report</pre>",
	}

	deadline := time.After(3 * time.Second)
	for {
		mu.Lock()
		done := len(received) == 2
		mu.Unlock()
		if done {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for deliveries")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	tw.Stop()

	mu.Lock()
	defer mu.Unlock()
	if received["-100"] != "Markdown" {
		t.Errorf("alert chat parse mode = %q, expected Markdown", received["-100"])
	}
	if received["-200"] != "HTML" {
		t.Errorf("summary chat parse mode = %q, expected HTML", received["-200"])
	}
}

func TestTelegramWriterDeliversFinalReportOnShutdown(t *testing.T) {
	var mu sync.Mutex
	var delivered []string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("bad form: %v", err)
		}
		mu.Lock()
		delivered = append(delivered, r.FormValue("text"))
		mu.Unlock()
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	alerts := make(chan models.AlertEvent, 4)
	reports := make(chan models.ReportEvent, 4)

	tw, err := NewTelegramWriter(telegramConfig(), alerts, reports)
	if err != nil {
		t.Fatalf("NewTelegramWriter failed: %v", err)
	}
	tw.apiBase = server.URL

	// The writer runs on its own delivery context, which outlives the run
	// context during shutdown so buffered output still drains.
	deliveryCtx, deliveryCancel := context.WithCancel(context.Background())
	defer deliveryCancel()

	if err := tw.Start(deliveryCtx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// The engine's shutdown flush lands after the feed has stopped.
	reports <- models.ReportEvent{ReportID: "final", Text: "<pre>final window</pre>"}
	close(alerts)
	close(reports)

	tw.Stop()

	mu.Lock()
	defer mu.Unlock()
	if len(delivered) != 1 || delivered[0] != "<pre>final window</pre>" {
		t.Fatalf("final report not delivered, got %v", delivered)
	}
}

func TestTelegramWriterRequiresToken(t *testing.T) {
	cfg := &appconfig.Config{}
	if _, err := NewTelegramWriter(cfg, nil, nil); err == nil {
		t.Fatal("expected error for missing bot token")
	}
}

func TestKafkaWriterRequiresBrokers(t *testing.T) {
	cfg := &appconfig.Config{}
	if _, err := NewKafkaWriter(cfg, nil); err == nil {
		t.Fatal("expected error for missing brokers")
	}
}
