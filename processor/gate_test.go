package processor

import (
	"testing"

	"oiflow/config"
	"oiflow/models"
)

func TestGateFuturesThreshold(t *testing.T) {
	gate := NewAlertGate(config.AlertsConfig{FuturesMinLots: 50})

	event := &models.ClassifiedEvent{
		Kind:   models.KindFuture,
		Lots:   50,
		Bucket: models.BucketLow,
	}
	if gate.Decide(event) {
		t.Error("lots equal to the threshold should not alert")
	}

	event.Lots = 51
	if !gate.Decide(event) {
		t.Error("lots above the threshold should alert")
	}
}

func TestGateIgnoreBucket(t *testing.T) {
	gate := NewAlertGate(config.AlertsConfig{FuturesMinLots: 0})

	event := &models.ClassifiedEvent{
		Kind:   models.KindFuture,
		Lots:   1000,
		Bucket: models.BucketIgnore,
	}
	if gate.Decide(event) {
		t.Error("ignore bucket must never alert")
	}
}

func TestGateOptionsDisabledByDefault(t *testing.T) {
	gate := NewAlertGate(config.AlertsConfig{FuturesMinLots: 50, OptionsMinLots: 1})

	event := &models.ClassifiedEvent{
		Kind:       models.KindOption,
		OptionType: models.OptionCall,
		Lots:       500,
		Bucket:     models.BucketExtremeHigh,
	}
	if gate.Decide(event) {
		t.Error("option events should be suppressed until options alerting is enabled")
	}

	gate = NewAlertGate(config.AlertsConfig{OptionsEnabled: true, OptionsMinLots: 10})
	event.Lots = 10
	if !gate.Decide(event) {
		t.Error("option lots at the minimum should alert when enabled")
	}
	event.Lots = 9
	if gate.Decide(event) {
		t.Error("option lots below the minimum should not alert")
	}
}

func TestGateMinOIRoc(t *testing.T) {
	gate := NewAlertGate(config.AlertsConfig{FuturesMinLots: 0, MinOIRocPct: 5})

	event := &models.ClassifiedEvent{
		Kind:     models.KindFuture,
		Lots:     100,
		Bucket:   models.BucketHigh,
		OIRocPct: 2.5,
	}
	if gate.Decide(event) {
		t.Error("oi roc below the floor should not alert")
	}

	event.OIRocPct = -7.5
	if !gate.Decide(event) {
		t.Error("oi roc is compared by magnitude")
	}
}
