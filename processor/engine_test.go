package processor

import (
	"sync"
	"testing"
	"time"

	appconfig "oiflow/config"
	"oiflow/internal/channel/outbound"
	"oiflow/internal/instrument"
	"oiflow/models"
)

func testConfig() *appconfig.Config {
	cfg := &appconfig.Config{}
	cfg.Watchlist = appconfig.WatchlistConfig{
		DefaultLotSize: 1,
		Underlyings: []appconfig.UnderlyingConfig{
			{
				Name:    "SBIN",
				LotSize: 750,
				ATMBand: 10,
				Symbols: []string{"SBIN-I.NFO", "SBIN800CE.NFO", "SBIN800PE.NFO"},
			},
		},
	}
	cfg.Alerts = appconfig.AlertsConfig{FuturesMinLots: 50, OptionsMinLots: 1}
	cfg.Aggregation = appconfig.AggregationConfig{Window: 2 * time.Minute, FutureLotNotional: 100000}
	return cfg
}

func testEngine(cfg *appconfig.Config) *Engine {
	registry := instrument.FromConfig(&cfg.Watchlist)
	raw := make(chan models.RawFeedMessage)
	out := outbound.NewChannels(16)
	return NewEngine(cfg, registry, raw, out)
}

func tick(symbol string, price float64, oi int64) models.Tick {
	return models.Tick{
		Symbol:       symbol,
		Price:        price,
		OpenInterest: oi,
		ServerTime:   time.Now(),
		Received:     time.Now(),
	}
}

func TestProcessFirstTickSeedsBaseline(t *testing.T) {
	engine := testEngine(testConfig())

	if event := engine.Process(tick("SBIN-I.NFO", 100, 1000)); event != nil {
		t.Fatalf("first tick should only seed the baseline, got event %+v", event)
	}
}

func TestProcessUnchangedOIProducesNothing(t *testing.T) {
	engine := testEngine(testConfig())

	engine.Process(tick("SBIN-I.NFO", 100, 1000))
	if event := engine.Process(tick("SBIN-I.NFO", 107, 1000)); event != nil {
		t.Fatalf("price move with unchanged oi should produce no event, got %+v", event)
	}
}

func TestProcessUnknownSymbolDropped(t *testing.T) {
	engine := testEngine(testConfig())

	engine.Process(tick("RELIANCE-I.NFO", 1400, 5000))
	if event := engine.Process(tick("RELIANCE-I.NFO", 1410, 6000)); event != nil {
		t.Fatalf("symbols outside the watch-list must be dropped, got %+v", event)
	}
}

func TestProcessFutureBuy(t *testing.T) {
	engine := testEngine(testConfig())

	engine.Process(tick("SBIN-I.NFO", 100, 1000))
	event := engine.Process(tick("SBIN-I.NFO", 105, 1750))
	if event == nil {
		t.Fatal("expected a classified event")
	}

	if event.Action != models.ActionBuyerLong {
		t.Errorf("expected %s, got %s", models.ActionBuyerLong, event.Action)
	}
	if event.Flow != "FUT BUY" {
		t.Errorf("expected flow FUT BUY, got %s", event.Flow)
	}
	if event.OIDelta != 750 {
		t.Errorf("expected oi delta 750, got %d", event.OIDelta)
	}
	if event.Lots != 1 {
		t.Errorf("expected 1 lot, got %d", event.Lots)
	}
	if event.Bucket != models.BucketLow {
		t.Errorf("expected LOW bucket, got %s", event.Bucket)
	}
	if event.OIRocPct != 75 {
		t.Errorf("expected oi roc 75%%, got %v", event.OIRocPct)
	}
	if event.Zone != models.ZoneNA {
		t.Errorf("future moneyness should be NA, got %s", event.Zone)
	}
	if event.Turnover != 100000 {
		t.Errorf("expected 1 lot x notional turnover, got %v", event.Turnover)
	}
}

func TestProcessZeroPriorOIRoc(t *testing.T) {
	engine := testEngine(testConfig())

	engine.Process(tick("SBIN-I.NFO", 100, 0))
	event := engine.Process(tick("SBIN-I.NFO", 101, 1500))
	if event == nil {
		t.Fatal("expected a classified event")
	}
	if event.OIRocPct != 0 {
		t.Errorf("zero prior oi must yield roc 0.0, got %v", event.OIRocPct)
	}
}

func TestProcessOptionMoneynessFromFuture(t *testing.T) {
	engine := testEngine(testConfig())

	// Seed the future so the option has a reference price.
	engine.Process(tick("SBIN-I.NFO", 805, 1000))

	engine.Process(tick("SBIN800CE.NFO", 12, 3000))
	event := engine.Process(tick("SBIN800CE.NFO", 14, 4500))
	if event == nil {
		t.Fatal("expected a classified event")
	}

	// Strike 800 sits below future 805 but inside the 10-point band.
	if event.Zone != models.ZoneATM {
		t.Errorf("expected ATM, got %s", event.Zone)
	}
	if !event.FuturePriceKnown {
		t.Error("future price was observed, flag should be true")
	}
	if event.Flow != "CALL BUY" {
		t.Errorf("expected flow CALL BUY, got %s", event.Flow)
	}
	if event.Turnover != 1500*14 {
		t.Errorf("option turnover should be |oi delta| x price, got %v", event.Turnover)
	}
}

func TestProcessOptionBeforeFutureObserved(t *testing.T) {
	engine := testEngine(testConfig())

	engine.Process(tick("SBIN800PE.NFO", 8, 2000))
	event := engine.Process(tick("SBIN800PE.NFO", 7, 2900))
	if event == nil {
		t.Fatal("expected a classified event")
	}

	if event.Zone != models.ZoneOTM {
		t.Errorf("unknown future price defaults to OTM, got %s", event.Zone)
	}
	if event.FuturePriceKnown {
		t.Error("flag must be false until a future price is seen")
	}
	if event.Flow != "PUT WRITER" {
		t.Errorf("expected flow PUT WRITER, got %s", event.Flow)
	}
}

func TestProcessEventTimestampsNonDecreasing(t *testing.T) {
	engine := testEngine(testConfig())

	base := time.Date(2025, 8, 28, 10, 0, 0, 0, time.UTC)
	ticks := []models.Tick{
		{Symbol: "SBIN-I.NFO", Price: 100, OpenInterest: 1000, ServerTime: base},
		{Symbol: "SBIN-I.NFO", Price: 101, OpenInterest: 1750, ServerTime: base.Add(time.Second)},
		{Symbol: "SBIN-I.NFO", Price: 102, OpenInterest: 2500, ServerTime: base.Add(2 * time.Second)},
		{Symbol: "SBIN-I.NFO", Price: 101, OpenInterest: 1750, ServerTime: base.Add(3 * time.Second)},
	}

	var last time.Time
	for _, tk := range ticks {
		event := engine.Process(tk)
		if event == nil {
			continue
		}
		if event.Timestamp.Before(last) {
			t.Fatalf("event timestamps went backwards: %v after %v", event.Timestamp, last)
		}
		last = event.Timestamp
	}
}

func TestProcessPerSymbolStateIsolation(t *testing.T) {
	engine := testEngine(testConfig())

	engine.Process(tick("SBIN-I.NFO", 805, 1000))
	engine.Process(tick("SBIN800CE.NFO", 12, 3000))

	// The future unwinds while the option builds; both classify off their
	// own state.
	futEvent := engine.Process(tick("SBIN-I.NFO", 800, 250))
	optEvent := engine.Process(tick("SBIN800CE.NFO", 13, 3750))

	if futEvent == nil || optEvent == nil {
		t.Fatal("expected events from both instruments")
	}
	if futEvent.Action != models.ActionRemoveFromLong {
		t.Errorf("expected %s for future, got %s", models.ActionRemoveFromLong, futEvent.Action)
	}
	if optEvent.Action != models.ActionBuyerLong {
		t.Errorf("expected %s for option, got %s", models.ActionBuyerLong, optEvent.Action)
	}
}

func TestEngineCountersConcurrentWithMetrics(t *testing.T) {
	engine := testEngine(testConfig())

	// Counters are bumped by the ingest path while the metrics reporter
	// reads them; run both at once so the race detector covers it.
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		oi := int64(1000)
		for i := 0; i < 500; i++ {
			oi += 750
			engine.Process(tick("SBIN-I.NFO", 800+float64(i%5), oi))
		}
	}()

	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			engine.reportMetrics()
		}
	}()

	wg.Wait()

	if got := engine.ticksProcessed.Load(); got != 500 {
		t.Errorf("ticksProcessed = %d, expected 500", got)
	}
}
