package instrument

import (
	"testing"

	"oiflow/config"
	"oiflow/models"
)

func testWatchlist() *config.WatchlistConfig {
	return &config.WatchlistConfig{
		DefaultLotSize: 1,
		Underlyings: []config.UnderlyingConfig{
			{
				Name:    "BANKNIFTY",
				LotSize: 15,
				ATMBand: 100,
				Symbols: []string{
					"BANKNIFTY-I.NFO",
					"BANKNIFTY45000CE.NFO",
					"BANKNIFTY45000PE.NFO",
				},
			},
			{
				Name:    "HDFCBANK",
				LotSize: 550,
				ATMBand: 5,
				Symbols: []string{"HDFCBANK-I.NFO", "HDFCBANKCE.NFO"},
			},
		},
	}
}

func TestParseFutureSymbol(t *testing.T) {
	r := FromConfig(testWatchlist())

	d, ok := r.Lookup("BANKNIFTY-I.NFO")
	if !ok {
		t.Fatal("future symbol not found")
	}
	if d.Kind != models.KindFuture {
		t.Errorf("expected future, got %s", d.Kind)
	}
	if d.Underlying != "BANKNIFTY" {
		t.Errorf("unexpected underlying: %s", d.Underlying)
	}
	if d.LotSize != 15 {
		t.Errorf("unexpected lot size: %d", d.LotSize)
	}
}

func TestParseOptionSymbol(t *testing.T) {
	r := FromConfig(testWatchlist())

	call, ok := r.Lookup("BANKNIFTY45000CE.NFO")
	if !ok {
		t.Fatal("call symbol not found")
	}
	if call.Kind != models.KindOption || call.OptionType != models.OptionCall {
		t.Errorf("unexpected descriptor: %+v", call)
	}
	if !call.StrikeKnown || call.Strike != 45000 {
		t.Errorf("unexpected strike: %+v", call)
	}

	put, _ := r.Lookup("BANKNIFTY45000PE.NFO")
	if put.OptionType != models.OptionPut {
		t.Errorf("expected put, got %+v", put)
	}
	if put.ATMBand != 100 {
		t.Errorf("unexpected ATM band: %v", put.ATMBand)
	}
}

func TestParseOptionWithoutStrike(t *testing.T) {
	r := FromConfig(testWatchlist())

	d, ok := r.Lookup("HDFCBANKCE.NFO")
	if !ok {
		t.Fatal("symbol not found")
	}
	if d.Kind != models.KindOption {
		t.Errorf("expected option, got %s", d.Kind)
	}
	if d.StrikeKnown {
		t.Error("strike should be unknown")
	}
}

func TestLookupUnknownSymbol(t *testing.T) {
	r := FromConfig(testWatchlist())

	if _, ok := r.Lookup("RELIANCE-I.NFO"); ok {
		t.Error("unexpected hit for unwatched symbol")
	}
	if got := r.LotSize("RELIANCE-I.NFO"); got != 1 {
		t.Errorf("expected default lot size 1, got %d", got)
	}
}

func TestSymbolsOrder(t *testing.T) {
	r := FromConfig(testWatchlist())

	symbols := r.Symbols()
	if len(symbols) != 5 {
		t.Fatalf("expected 5 symbols, got %d", len(symbols))
	}
	if symbols[0] != "BANKNIFTY-I.NFO" {
		t.Errorf("watch-list order not preserved: %v", symbols)
	}

	unders := r.Underlyings()
	if len(unders) != 2 || unders[0] != "BANKNIFTY" || unders[1] != "HDFCBANK" {
		t.Errorf("unexpected underlyings: %v", unders)
	}
}
