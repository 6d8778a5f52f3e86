package processor

import (
	"oiflow/config"
	"oiflow/models"
)

// AlertGate applies the size-bucket and threshold rules that decide whether
// a classified event becomes an immediate alert. Suppressed events still
// flow to aggregation.
type AlertGate struct {
	cfg config.AlertsConfig
}

func NewAlertGate(cfg config.AlertsConfig) *AlertGate {
	return &AlertGate{cfg: cfg}
}

// Decide reports whether the event should be alerted.
func (g *AlertGate) Decide(event *models.ClassifiedEvent) bool {
	if event.Bucket == models.BucketIgnore {
		return false
	}

	if g.cfg.MinOIRocPct > 0 {
		roc := event.OIRocPct
		if roc < 0 {
			roc = -roc
		}
		if roc < g.cfg.MinOIRocPct {
			return false
		}
	}

	if event.Kind == models.KindFuture {
		return event.Lots > g.cfg.FuturesMinLots
	}

	if !g.cfg.OptionsEnabled {
		return false
	}
	return event.Lots >= g.cfg.OptionsMinLots
}
