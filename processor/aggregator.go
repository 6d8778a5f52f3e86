package processor

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"oiflow/config"
	"oiflow/models"
)

// Aggregator accumulates classified events into turnover buckets for one
// flush window. Record and Flush share one mutex so the buffer swap is
// atomic: no event is lost or counted into two windows.
type Aggregator struct {
	mu          sync.Mutex
	buckets     map[models.BucketKey]float64
	lastFuture  map[string]float64
	events      int64
	windowStart time.Time

	window   time.Duration
	notional float64
}

func NewAggregator(cfg config.AggregationConfig) *Aggregator {
	return &Aggregator{
		buckets:     make(map[models.BucketKey]float64),
		lastFuture:  make(map[string]float64),
		windowStart: time.Now(),
		window:      cfg.Window,
		notional:    cfg.FutureLotNotional,
	}
}

// Window returns the configured flush interval.
func (a *Aggregator) Window() time.Duration {
	return a.window
}

// TurnoverContribution computes the notional value one event adds to its
// bucket: options contribute the absolute open-interest quantity times the
// last trade price, futures contribute lots times the fixed per-lot
// contract value.
func (a *Aggregator) TurnoverContribution(event *models.ClassifiedEvent) float64 {
	if event.Kind == models.KindOption {
		oiQty := event.OIDelta
		if oiQty < 0 {
			oiQty = -oiQty
		}
		return float64(oiQty) * event.Price
	}
	return float64(event.Lots) * a.notional
}

// Record adds one classified event to the open window.
func (a *Aggregator) Record(event models.ClassifiedEvent) {
	zone := event.Zone
	if zone == models.ZoneNA {
		zone = models.ZoneTotal
	}
	key := models.BucketKey{
		Underlying: event.Underlying,
		Flow:       event.Flow,
		Zone:       zone,
	}
	contribution := a.TurnoverContribution(&event)

	a.mu.Lock()
	a.buckets[key] += contribution
	a.events++
	if event.Kind == models.KindFuture && event.Price > 0 {
		a.lastFuture[event.Underlying] = event.Price
	}
	a.mu.Unlock()
}

// Flush atomically swaps the open window for an empty one and returns the
// prior contents. A window with no recorded events yields an empty report.
func (a *Aggregator) Flush(now time.Time) models.ReportEvent {
	a.mu.Lock()
	buckets := a.buckets
	lastFuture := a.lastFuture
	events := a.events
	start := a.windowStart

	a.buckets = make(map[models.BucketKey]float64)
	a.lastFuture = make(map[string]float64)
	a.events = 0
	a.windowStart = now
	a.mu.Unlock()

	return models.ReportEvent{
		ReportID:    uuid.New().String(),
		WindowStart: start,
		WindowEnd:   now,
		Window:      a.window,
		Buckets:     buckets,
		LastFuture:  lastFuture,
		Events:      events,
	}
}
