package tick

import (
	"context"
	"testing"
	"time"

	"oiflow/models"
)

func TestChannelsStats(t *testing.T) {
	ch := NewChannels(1)
	ctx := context.Background()

	if !ch.SendRaw(ctx, models.RawFeedMessage{Source: "gfdl", Timestamp: time.Now()}) {
		t.Fatal("send into empty buffer should succeed")
	}
	// buffer full now
	if ch.SendRaw(ctx, models.RawFeedMessage{Source: "gfdl", Timestamp: time.Now()}) {
		t.Fatal("send into full buffer should drop")
	}

	stats := ch.GetStats()
	if stats.RawSent != 1 || stats.RawDropped != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestChannelsClose(t *testing.T) {
	ch := NewChannels(1)
	ch.Close()
	if _, ok := <-ch.Raw; ok {
		t.Fatal("raw channel should be closed")
	}
}
