package outbound

import (
	"context"
	"sync"

	"oiflow/logger"
	"oiflow/models"
)

type ChannelStats struct {
	AlertsSent     int64
	AlertsDropped  int64
	ReportsSent    int64
	ReportsDropped int64
	EventsSent     int64
	EventsDropped  int64
}

// Channels fans engine output to the delivery writers. Stream and Archive
// carry the same classified events to independent consumers (Kafka and S3).
type Channels struct {
	Alerts  chan models.AlertEvent
	Reports chan models.ReportEvent
	Stream  chan models.ClassifiedEvent
	Archive chan models.ClassifiedEvent

	stats      ChannelStats
	statsMutex sync.RWMutex
	log        *logger.Log
}

func NewChannels(bufferSize int) *Channels {
	log := logger.GetLogger()
	c := &Channels{
		Alerts:  make(chan models.AlertEvent, bufferSize),
		Reports: make(chan models.ReportEvent, bufferSize),
		Stream:  make(chan models.ClassifiedEvent, bufferSize),
		Archive: make(chan models.ClassifiedEvent, bufferSize),
		log:     log,
	}

	log.WithComponent("outbound_channels").WithFields(logger.Fields{
		"buffer_size": bufferSize,
	}).Info("outbound channels initialized")

	return c
}

func (c *Channels) Close() {
	close(c.Alerts)
	close(c.Reports)
	close(c.Stream)
	close(c.Archive)
	c.log.WithComponent("outbound_channels").Info("outbound channels closed")
}

// SendAlert forwards an alert without blocking the ingestion path.
func (c *Channels) SendAlert(ctx context.Context, alert models.AlertEvent) bool {
	select {
	case c.Alerts <- alert:
		c.increment(func(s *ChannelStats) { s.AlertsSent++ })
		return true
	case <-ctx.Done():
		return false
	default:
		c.increment(func(s *ChannelStats) { s.AlertsDropped++ })
		return false
	}
}

// SendReport forwards a flushed turnover report.
func (c *Channels) SendReport(ctx context.Context, report models.ReportEvent) bool {
	select {
	case c.Reports <- report:
		c.increment(func(s *ChannelStats) { s.ReportsSent++ })
		return true
	case <-ctx.Done():
		return false
	default:
		c.increment(func(s *ChannelStats) { s.ReportsDropped++ })
		return false
	}
}

// SendEvent fans one classified event to the stream and archive channels.
// Each destination drops independently when its buffer is full.
func (c *Channels) SendEvent(ctx context.Context, event models.ClassifiedEvent) bool {
	sent := false

	select {
	case c.Stream <- event:
		sent = true
	case <-ctx.Done():
		return false
	default:
	}

	select {
	case c.Archive <- event:
		sent = true
	case <-ctx.Done():
		return sent
	default:
	}

	if sent {
		c.increment(func(s *ChannelStats) { s.EventsSent++ })
	} else {
		c.increment(func(s *ChannelStats) { s.EventsDropped++ })
	}
	return sent
}

func (c *Channels) increment(fn func(*ChannelStats)) {
	c.statsMutex.Lock()
	fn(&c.stats)
	c.statsMutex.Unlock()
}

func (c *Channels) GetStats() ChannelStats {
	c.statsMutex.RLock()
	defer c.statsMutex.RUnlock()
	return c.stats
}
