package channel

import (
	"context"
	"time"

	"oiflow/internal/channel/outbound"
	"oiflow/internal/channel/tick"
	"oiflow/logger"
)

type Channels struct {
	Tick     *tick.Channels
	Outbound *outbound.Channels

	log *logger.Log
}

func NewChannels(rawBufferSize, outboundBufferSize int) *Channels {
	return &Channels{
		Tick:     tick.NewChannels(rawBufferSize),
		Outbound: outbound.NewChannels(outboundBufferSize),
		log:      logger.GetLogger(),
	}
}

func (c *Channels) Close() {
	if c.Tick != nil {
		c.Tick.Close()
	}
	if c.Outbound != nil {
		c.Outbound.Close()
	}
	c.log.WithComponent("channels").Info("all channels closed")
}

// StartMetricsReporting logs channel statistics every 30 seconds until the
// context is cancelled. It spawns its own goroutine and returns immediately.
func (c *Channels) StartMetricsReporting(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.logChannelStats()
			}
		}
	}()
}

func (c *Channels) logChannelStats() {
	tickStats := c.Tick.GetStats()
	outStats := c.Outbound.GetStats()

	c.log.WithComponent("channels").WithFields(logger.Fields{
		"raw_sent":             tickStats.RawSent,
		"raw_dropped":          tickStats.RawDropped,
		"raw_channel_len":      len(c.Tick.Raw),
		"raw_channel_cap":      cap(c.Tick.Raw),
		"alerts_sent":          outStats.AlertsSent,
		"alerts_dropped":       outStats.AlertsDropped,
		"reports_sent":         outStats.ReportsSent,
		"reports_dropped":      outStats.ReportsDropped,
		"events_sent":          outStats.EventsSent,
		"events_dropped":       outStats.EventsDropped,
		"alert_channel_len":    len(c.Outbound.Alerts),
		"alert_channel_cap":    cap(c.Outbound.Alerts),
		"report_channel_len":   len(c.Outbound.Reports),
		"report_channel_cap":   cap(c.Outbound.Reports),
		"stream_channel_len":   len(c.Outbound.Stream),
		"stream_channel_cap":   cap(c.Outbound.Stream),
		"archive_channel_len":  len(c.Outbound.Archive),
		"archive_channel_cap":  cap(c.Outbound.Archive),
	}).Info("channel statistics")
}
