package models

import (
	"time"
)

// Kind distinguishes futures from option contracts.
type Kind string

const (
	KindFuture Kind = "FUTURE"
	KindOption Kind = "OPTION"
)

// OptionType is the option side, CE or PE in NFO symbols.
type OptionType string

const (
	OptionCall OptionType = "CALL"
	OptionPut  OptionType = "PUT"
)

// Action is the market-activity category derived from the signs of the
// open-interest and price deltas.
type Action string

const (
	ActionBuyerLong       Action = "BUYER_LONG"
	ActionWriterShort     Action = "WRITER_SHORT"
	ActionRemoveFromShort Action = "REMOVE_FROM_SHORT"
	ActionRemoveFromLong  Action = "REMOVE_FROM_LONG"
	ActionHedging         Action = "HEDGING"
	ActionRemoveFromHedge Action = "REMOVE_FROM_HEDGE"
	ActionIndecisive      Action = "INDECISIVE"
)

// Zone is the moneyness of an option strike relative to the underlying's
// future price. Futures always carry ZoneNA.
type Zone string

const (
	ZoneITM Zone = "ITM"
	ZoneATM Zone = "ATM"
	ZoneOTM Zone = "OTM"
	ZoneNA  Zone = "NA"
	// ZoneTotal is the aggregation column for events without a moneyness
	// zone (futures and options with an unparseable strike).
	ZoneTotal Zone = "TOTAL"
)

// SizeBucket classifies the lot count of an open-interest change.
type SizeBucket string

const (
	BucketExtremeHigh SizeBucket = "EXTREME_HIGH"
	BucketExtraHigh   SizeBucket = "EXTRA_HIGH"
	BucketHigh        SizeBucket = "HIGH"
	BucketMedium      SizeBucket = "MEDIUM"
	BucketLow         SizeBucket = "LOW"
	BucketIgnore      SizeBucket = "IGNORE"
)

// ClassifiedEvent is the immutable output of the engine for one tick that
// carried a non-zero open-interest change.
type ClassifiedEvent struct {
	Symbol     string     `json:"symbol"`
	Underlying string     `json:"underlying"`
	Kind       Kind       `json:"kind"`
	OptionType OptionType `json:"option_type,omitempty"`
	Strike     int64      `json:"strike,omitempty"`

	Action Action `json:"action"`
	Flow   string `json:"flow"`
	Zone   Zone   `json:"zone"`
	// FuturePriceKnown is false when the underlying's future price had not
	// been observed yet; the OTM zone is then a conservative default, not a
	// computed value.
	FuturePriceKnown bool `json:"future_price_known"`

	Price      float64 `json:"price"`
	PriceDelta float64 `json:"price_delta"`
	PriorOI    int64   `json:"prior_oi"`
	OIDelta    int64   `json:"oi_delta"`
	OIRocPct   float64 `json:"oi_roc_pct"`

	Lots     int64      `json:"lots"`
	Bucket   SizeBucket `json:"bucket"`
	Turnover float64    `json:"turnover"`

	Timestamp time.Time `json:"timestamp"`
}

// FlowLabel maps an action to the per-instrument row label used for
// aggregation and report rendering, e.g. "CALL WRITER" or "FUT SC".
func FlowLabel(action Action, kind Kind, opt OptionType) string {
	if action == ActionIndecisive {
		return string(ActionIndecisive)
	}

	var prefix string
	switch {
	case kind == KindFuture:
		prefix = "FUT"
	case opt == OptionPut:
		prefix = "PUT"
	default:
		prefix = "CALL"
	}

	var verb string
	switch action {
	case ActionBuyerLong:
		verb = "BUY"
	case ActionWriterShort:
		verb = "WRITER"
		if kind == KindFuture {
			verb = "SELL"
		}
	case ActionRemoveFromShort:
		verb = "SC"
	case ActionRemoveFromLong:
		verb = "UNW"
	case ActionHedging:
		verb = "HEDGE"
	case ActionRemoveFromHedge:
		verb = "UNHEDGE"
	}

	return prefix + " " + verb
}

// Direction returns the price-direction symbol used in alert headers.
func (e *ClassifiedEvent) Direction() string {
	if e.PriceDelta > 0 {
		return "\U0001F53A" // red triangle up
	}
	return "\U0001F53B" // red triangle down
}

// AlertEvent is the terminal value handed to the delivery layer for one
// gated classified event.
type AlertEvent struct {
	Event ClassifiedEvent `json:"event"`
	Text  string          `json:"text"`
}

// BucketKey addresses one turnover cell inside an aggregation window.
type BucketKey struct {
	Underlying string `json:"underlying"`
	Flow       string `json:"flow"`
	Zone       Zone   `json:"zone"`
}

// ReportEvent is one flushed aggregation window: per-underlying turnover
// cells plus the latest future price seen during the window.
type ReportEvent struct {
	ReportID    string                `json:"report_id"`
	WindowStart time.Time             `json:"window_start"`
	WindowEnd   time.Time             `json:"window_end"`
	Window      time.Duration         `json:"window"`
	Buckets     map[BucketKey]float64 `json:"-"`
	LastFuture  map[string]float64    `json:"last_future"`
	Events      int64                 `json:"events"`
	Text        string                `json:"-"`
}

// Empty reports whether the window recorded no classified events.
func (r *ReportEvent) Empty() bool {
	return len(r.Buckets) == 0
}

// Turnover returns the accumulated value for one cell, 0 when absent.
func (r *ReportEvent) Turnover(underlying, flow string, zone Zone) float64 {
	return r.Buckets[BucketKey{Underlying: underlying, Flow: flow, Zone: zone}]
}

// ZoneTotal sums the ITM, ATM and OTM cells of one flow row.
func (r *ReportEvent) ZoneTotal(underlying, flow string) float64 {
	return r.Turnover(underlying, flow, ZoneITM) +
		r.Turnover(underlying, flow, ZoneATM) +
		r.Turnover(underlying, flow, ZoneOTM)
}
