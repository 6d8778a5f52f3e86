package processor

import (
	"oiflow/internal/instrument"
	"oiflow/models"
)

// classifyAction maps the signs of the open-interest and price deltas to a
// market-activity category. The price-unchanged branches are checked first
// and take priority over the sign branches; the order is significant.
func classifyAction(oiDelta int64, priceDelta float64) models.Action {
	switch {
	case priceDelta == 0 && oiDelta > 0:
		return models.ActionHedging
	case priceDelta == 0 && oiDelta < 0:
		return models.ActionRemoveFromHedge
	case oiDelta > 0 && priceDelta > 0:
		return models.ActionBuyerLong
	case oiDelta > 0 && priceDelta <= 0:
		return models.ActionWriterShort
	case oiDelta < 0 && priceDelta > 0:
		return models.ActionRemoveFromShort
	case oiDelta < 0 && priceDelta <= 0:
		return models.ActionRemoveFromLong
	default:
		return models.ActionIndecisive
	}
}

// moneyness places an option strike relative to the underlying's latest
// future price. Futures and options without a parseable strike return NA.
// When the future price has not been observed yet the zone is OTM as a
// conservative default and the second return value is false, so callers can
// tell a defaulted OTM from a computed one.
func moneyness(desc instrument.Descriptor, futurePrice float64) (models.Zone, bool) {
	if desc.Kind != models.KindOption || !desc.StrikeKnown {
		return models.ZoneNA, true
	}

	if futurePrice <= 0 {
		return models.ZoneOTM, false
	}

	strike := float64(desc.Strike)
	band := desc.ATMBand

	diff := strike - futurePrice
	if diff < 0 {
		diff = -diff
	}
	if diff <= band {
		return models.ZoneATM, true
	}

	if desc.OptionType == models.OptionCall {
		if strike < futurePrice-band {
			return models.ZoneITM, true
		}
		return models.ZoneOTM, true
	}

	if strike > futurePrice+band {
		return models.ZoneITM, true
	}
	return models.ZoneOTM, true
}
