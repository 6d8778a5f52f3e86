package tick

import (
	"context"
	"sync"

	"oiflow/logger"
	"oiflow/models"
)

type ChannelStats struct {
	RawSent    int64
	RawDropped int64
}

// Channels carries raw feed frames from the reader to the engine.
type Channels struct {
	Raw chan models.RawFeedMessage

	stats      ChannelStats
	statsMutex sync.RWMutex
	log        *logger.Log
}

func NewChannels(rawBufferSize int) *Channels {
	log := logger.GetLogger()
	c := &Channels{
		Raw: make(chan models.RawFeedMessage, rawBufferSize),
		log: log,
	}

	log.WithComponent("tick_channels").WithFields(logger.Fields{
		"raw_buffer_size": rawBufferSize,
	}).Info("tick channels initialized")

	return c
}

func (c *Channels) Close() {
	close(c.Raw)
	c.log.WithComponent("tick_channels").Info("tick channels closed")
}

func (c *Channels) IncrementRawSent() {
	c.statsMutex.Lock()
	c.stats.RawSent++
	c.statsMutex.Unlock()
}

func (c *Channels) IncrementRawDropped() {
	c.statsMutex.Lock()
	c.stats.RawDropped++
	c.statsMutex.Unlock()
}

// SendRaw forwards one frame without blocking; a full buffer drops the frame
// and bumps the drop counter.
func (c *Channels) SendRaw(ctx context.Context, msg models.RawFeedMessage) bool {
	select {
	case c.Raw <- msg:
		c.IncrementRawSent()
		return true
	case <-ctx.Done():
		return false
	default:
		c.IncrementRawDropped()
		return false
	}
}

func (c *Channels) GetStats() ChannelStats {
	c.statsMutex.RLock()
	defer c.statsMutex.RUnlock()
	return c.stats
}
