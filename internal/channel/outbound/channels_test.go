package outbound

import (
	"context"
	"testing"

	"oiflow/models"
)

func TestSendAlertAndReport(t *testing.T) {
	ch := NewChannels(1)
	ctx := context.Background()

	if !ch.SendAlert(ctx, models.AlertEvent{Text: "a"}) {
		t.Fatal("alert send should succeed")
	}
	if ch.SendAlert(ctx, models.AlertEvent{Text: "b"}) {
		t.Fatal("alert send into full buffer should drop")
	}
	if !ch.SendReport(ctx, models.ReportEvent{ReportID: "r"}) {
		t.Fatal("report send should succeed")
	}

	stats := ch.GetStats()
	if stats.AlertsSent != 1 || stats.AlertsDropped != 1 || stats.ReportsSent != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestSendEventFansOut(t *testing.T) {
	ch := NewChannels(1)
	ctx := context.Background()

	if !ch.SendEvent(ctx, models.ClassifiedEvent{Symbol: "X"}) {
		t.Fatal("event send should succeed")
	}

	select {
	case e := <-ch.Stream:
		if e.Symbol != "X" {
			t.Errorf("unexpected stream event: %+v", e)
		}
	default:
		t.Error("stream channel empty")
	}
	select {
	case e := <-ch.Archive:
		if e.Symbol != "X" {
			t.Errorf("unexpected archive event: %+v", e)
		}
	default:
		t.Error("archive channel empty")
	}
}
