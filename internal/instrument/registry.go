package instrument

import (
	"regexp"
	"strconv"
	"strings"

	"oiflow/config"
	"oiflow/logger"
	"oiflow/models"
)

// Descriptor is the static identity of one watched instrument, resolved once
// from the configuration watch-list.
type Descriptor struct {
	Symbol     string
	Underlying string
	Kind       models.Kind
	OptionType models.OptionType
	Strike     int64
	// StrikeKnown is false for symbols that carry an option marker but no
	// parseable strike; such instruments classify with moneyness NA.
	StrikeKnown bool
	LotSize     int64
	ATMBand     float64
}

// Registry maps instrument symbols to their descriptors. Read-only after
// construction.
type Registry struct {
	descriptors    map[string]Descriptor
	symbols        []string
	underlyings    []string
	defaultLotSize int64
}

var strikeRegexp = regexp.MustCompile(`([0-9]+)(CE|PE)$`)
var optionRegexp = regexp.MustCompile(`(CE|PE)$`)

// FromConfig builds the registry from the watch-list section. Option symbols
// are parsed with the NFO naming convention: trailing "<strike>CE" or
// "<strike>PE" before the exchange suffix marks an option; everything else
// on the list is a future.
func FromConfig(cfg *config.WatchlistConfig) *Registry {
	log := logger.GetLogger().WithComponent("instrument_registry")

	r := &Registry{
		descriptors:    make(map[string]Descriptor),
		defaultLotSize: cfg.DefaultLotSize,
	}

	for _, u := range cfg.Underlyings {
		lotSize := u.LotSize
		if lotSize <= 0 {
			lotSize = cfg.DefaultLotSize
		}
		r.underlyings = append(r.underlyings, u.Name)

		for _, symbol := range u.Symbols {
			desc := parseSymbol(symbol, u.Name)
			desc.LotSize = lotSize
			desc.ATMBand = u.ATMBand
			r.descriptors[symbol] = desc
			r.symbols = append(r.symbols, symbol)

			if desc.Kind == models.KindOption && !desc.StrikeKnown {
				log.WithFields(logger.Fields{"symbol": symbol}).Warn("option symbol without parseable strike, moneyness will be NA")
			}
		}
	}

	log.WithFields(logger.Fields{
		"symbols":     len(r.symbols),
		"underlyings": len(r.underlyings),
	}).Info("instrument registry loaded")

	return r
}

// parseSymbol extracts kind, strike and option type from an NFO symbol such
// as "BANKNIFTY-I.NFO" or "BANKNIFTY45000CE.NFO".
func parseSymbol(symbol, underlying string) Descriptor {
	desc := Descriptor{
		Symbol:     symbol,
		Underlying: underlying,
		Kind:       models.KindFuture,
	}

	body := strings.TrimSuffix(symbol, ".NFO")

	if m := strikeRegexp.FindStringSubmatch(body); m != nil {
		desc.Kind = models.KindOption
		if strike, err := strconv.ParseInt(m[1], 10, 64); err == nil {
			desc.Strike = strike
			desc.StrikeKnown = true
		}
		if m[2] == "PE" {
			desc.OptionType = models.OptionPut
		} else {
			desc.OptionType = models.OptionCall
		}
		return desc
	}

	// CE/PE marker with no strike digits still identifies an option.
	if m := optionRegexp.FindStringSubmatch(body); m != nil {
		desc.Kind = models.KindOption
		if m[1] == "PE" {
			desc.OptionType = models.OptionPut
		} else {
			desc.OptionType = models.OptionCall
		}
	}

	return desc
}

// Lookup returns the descriptor for symbol. The boolean reports whether the
// symbol is on the watch-list.
func (r *Registry) Lookup(symbol string) (Descriptor, bool) {
	d, ok := r.descriptors[symbol]
	return d, ok
}

// LotSize returns the configured lot size for symbol, falling back to the
// watch-list default for unmapped symbols.
func (r *Registry) LotSize(symbol string) int64 {
	if d, ok := r.descriptors[symbol]; ok && d.LotSize > 0 {
		return d.LotSize
	}
	return r.defaultLotSize
}

// Symbols returns every watched symbol in watch-list order.
func (r *Registry) Symbols() []string {
	out := make([]string, len(r.symbols))
	copy(out, r.symbols)
	return out
}

// Underlyings returns the configured underlying names in watch-list order.
func (r *Registry) Underlyings() []string {
	out := make([]string, len(r.underlyings))
	copy(out, r.underlyings)
	return out
}
