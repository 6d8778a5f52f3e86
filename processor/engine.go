package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	appconfig "oiflow/config"
	"oiflow/internal/channel/outbound"
	"oiflow/internal/format"
	"oiflow/internal/instrument"
	"oiflow/logger"
	"oiflow/models"
)

// Engine is the stateful tick-classification core: it consumes raw feed
// frames, maintains per-instrument state, classifies open-interest changes
// and fans alerts, reports and classified events into the outbound
// channels. Ticks are processed strictly sequentially by a single ingest
// worker; the flush timer is the only concurrent writer and it touches only
// the aggregator, which carries its own lock.
type Engine struct {
	config     *appconfig.Config
	registry   *instrument.Registry
	rawChan    <-chan models.RawFeedMessage
	out        *outbound.Channels
	states     *stateStore
	futures    *futurePriceTable
	gate       *AlertGate
	aggregator *Aggregator

	ctx     context.Context
	wg      *sync.WaitGroup
	mu      sync.RWMutex
	running bool
	log     *logger.Log

	// Counters are written by the ingest and flush workers and read by the
	// metrics reporter, so they use atomics.
	ticksProcessed  atomic.Int64
	ticksDropped    atomic.Int64
	eventsProduced  atomic.Int64
	alertsGated     atomic.Int64
	reportsFlushed  atomic.Int64
	baselinesSeeded atomic.Int64
}

func NewEngine(cfg *appconfig.Config, registry *instrument.Registry, rawChan <-chan models.RawFeedMessage, out *outbound.Channels) *Engine {
	return &Engine{
		config:     cfg,
		registry:   registry,
		rawChan:    rawChan,
		out:        out,
		states:     newStateStore(),
		futures:    newFuturePriceTable(),
		gate:       NewAlertGate(cfg.Alerts),
		aggregator: NewAggregator(cfg.Aggregation),
		wg:         &sync.WaitGroup{},
		log:        logger.GetLogger(),
	}
}

func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return fmt.Errorf("engine already running")
	}
	e.running = true
	e.ctx = ctx
	e.mu.Unlock()

	log := e.log.WithComponent("engine").WithFields(logger.Fields{"operation": "start"})
	log.Info("starting engine")

	e.wg.Add(1)
	go e.ingestWorker()

	e.wg.Add(1)
	go e.flushWorker()

	go e.metricsReporter(ctx)

	log.WithFields(logger.Fields{
		"symbols": len(e.registry.Symbols()),
		"window":  e.aggregator.Window().String(),
	}).Info("engine started successfully")
	return nil
}

func (e *Engine) Stop() {
	e.mu.Lock()
	e.running = false
	e.mu.Unlock()

	e.log.WithComponent("engine").Info("stopping engine")
	e.wg.Wait()

	// Emit whatever the open window holds so shutdown loses no turnover.
	report := e.aggregator.Flush(time.Now())
	if !report.Empty() {
		report.Text = format.Report(&report, e.registry.Underlyings())
		e.out.SendReport(context.Background(), report)
	}

	e.log.WithComponent("engine").Info("engine stopped")
}

func (e *Engine) ingestWorker() {
	defer e.wg.Done()

	log := e.log.WithComponent("engine").WithFields(logger.Fields{"worker": "ingest"})
	log.Info("starting ingest worker")

	for {
		select {
		case <-e.ctx.Done():
			log.Info("ingest worker stopped due to context cancellation")
			return
		case raw, ok := <-e.rawChan:
			if !ok {
				log.Info("raw channel closed, ingest worker stopping")
				return
			}
			e.handleFrame(raw)
		}
	}
}

func (e *Engine) handleFrame(raw models.RawFeedMessage) {
	var frame models.GFDLRealtime
	if err := json.Unmarshal(raw.Data, &frame); err != nil {
		e.ticksDropped.Add(1)
		e.log.WithComponent("engine").WithError(err).Warn("failed to unmarshal feed frame")
		return
	}
	if frame.MessageType != "" && frame.MessageType != "RealtimeResult" {
		return
	}
	if frame.InstrumentIdentifier == "" || frame.LastTradePrice == nil || frame.OpenInterest == nil {
		e.ticksDropped.Add(1)
		return
	}

	tick := models.Tick{
		Symbol:       frame.InstrumentIdentifier,
		Price:        *frame.LastTradePrice,
		OpenInterest: int64(*frame.OpenInterest),
		Received:     raw.Timestamp,
	}
	if frame.ServerTime != nil {
		tick.ServerTime = time.Unix(*frame.ServerTime, 0)
	} else {
		tick.ServerTime = raw.Timestamp
	}

	event := e.Process(tick)
	if event == nil {
		return
	}

	e.aggregator.Record(*event)
	e.out.SendEvent(e.ctx, *event)

	if e.gate.Decide(event) {
		e.alertsGated.Add(1)
		e.out.SendAlert(e.ctx, models.AlertEvent{
			Event: *event,
			Text:  format.Alert(event),
		})
	}
}

// Process consumes one normalized tick. It returns nil for symbols outside
// the watch-list, for the first tick of a symbol (baseline only) and for
// ticks whose open interest did not change.
func (e *Engine) Process(tick models.Tick) *models.ClassifiedEvent {
	desc, ok := e.registry.Lookup(tick.Symbol)
	if !ok {
		e.ticksDropped.Add(1)
		return nil
	}
	e.ticksProcessed.Add(1)

	if desc.Kind == models.KindFuture && tick.Price > 0 {
		e.futures.Set(desc.Underlying, tick.Price)
	}

	st := e.states.get(tick.Symbol)
	if !st.initialized {
		st.price = tick.Price
		st.oi = tick.OpenInterest
		st.initialized = true
		e.baselinesSeeded.Add(1)
		e.log.WithComponent("engine").WithFields(logger.Fields{
			"symbol": tick.Symbol,
			"price":  tick.Price,
			"oi":     tick.OpenInterest,
		}).Info("first data received, baseline established")
		return nil
	}

	st.pricePrev = st.price
	st.oiPrev = st.oi
	st.price = tick.Price
	st.oi = tick.OpenInterest

	oiDelta := st.oi - st.oiPrev
	if oiDelta == 0 {
		return nil
	}

	priceDelta := st.price - st.pricePrev
	oiRoc := 0.0
	if st.oiPrev != 0 {
		oiRoc = float64(oiDelta) / float64(st.oiPrev) * 100
	}

	action := classifyAction(oiDelta, priceDelta)
	zone, futureKnown := moneyness(desc, e.futures.Get(desc.Underlying))
	lots := lotsFromOIDelta(oiDelta, desc.LotSize)

	event := &models.ClassifiedEvent{
		Symbol:           tick.Symbol,
		Underlying:       desc.Underlying,
		Kind:             desc.Kind,
		OptionType:       desc.OptionType,
		Strike:           desc.Strike,
		Action:           action,
		Flow:             models.FlowLabel(action, desc.Kind, desc.OptionType),
		Zone:             zone,
		FuturePriceKnown: futureKnown,
		Price:            tick.Price,
		PriceDelta:       priceDelta,
		PriorOI:          st.oiPrev,
		OIDelta:          oiDelta,
		OIRocPct:         oiRoc,
		Lots:             lots,
		Bucket:           lotBucket(lots),
		Timestamp:        tick.ServerTime,
	}
	event.Turnover = e.aggregator.TurnoverContribution(event)
	e.eventsProduced.Add(1)

	return event
}

func (e *Engine) flushWorker() {
	defer e.wg.Done()

	log := e.log.WithComponent("engine").WithFields(logger.Fields{"worker": "flush"})
	log.Info("starting flush worker")

	ticker := time.NewTicker(e.aggregator.Window())
	defer ticker.Stop()

	for {
		select {
		case <-e.ctx.Done():
			log.Info("flush worker stopped due to context cancellation")
			return
		case now := <-ticker.C:
			report := e.aggregator.Flush(now)
			e.reportsFlushed.Add(1)
			if report.Empty() {
				log.Debug("window flushed with no activity")
				continue
			}
			report.Text = format.Report(&report, e.registry.Underlyings())
			if e.out.SendReport(e.ctx, report) {
				log.WithFields(logger.Fields{
					"report_id": report.ReportID,
					"events":    report.Events,
					"buckets":   len(report.Buckets),
				}).Info("turnover window flushed")
			} else {
				log.Warn("report channel full, report not sent")
			}
		}
	}
}

func (e *Engine) metricsReporter(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.reportMetrics()
		}
	}
}

func (e *Engine) reportMetrics() {
	ticksProcessed := e.ticksProcessed.Load()
	ticksDropped := e.ticksDropped.Load()
	eventsProduced := e.eventsProduced.Load()
	alertsGated := e.alertsGated.Load()
	reportsFlushed := e.reportsFlushed.Load()
	baselinesSeeded := e.baselinesSeeded.Load()

	e.log.LogMetric("engine", "ticks_processed", ticksProcessed, "counter", logger.Fields{})
	e.log.LogMetric("engine", "ticks_dropped", ticksDropped, "counter", logger.Fields{})
	e.log.LogMetric("engine", "events_produced", eventsProduced, "counter", logger.Fields{})
	e.log.LogMetric("engine", "alerts_gated", alertsGated, "counter", logger.Fields{})
	e.log.LogMetric("engine", "reports_flushed", reportsFlushed, "counter", logger.Fields{})

	e.log.WithComponent("engine").WithFields(logger.Fields{
		"ticks_processed":  ticksProcessed,
		"ticks_dropped":    ticksDropped,
		"events_produced":  eventsProduced,
		"alerts_gated":     alertsGated,
		"reports_flushed":  reportsFlushed,
		"baselines_seeded": baselinesSeeded,
		"raw_channel_len":  len(e.rawChan),
		"raw_channel_cap":  cap(e.rawChan),
	}).Info("engine metrics")
}
