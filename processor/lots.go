package processor

import (
	"oiflow/models"
)

// lotsFromOIDelta converts an absolute open-interest change into whole lots,
// integer division.
func lotsFromOIDelta(oiDelta, lotSize int64) int64 {
	if lotSize <= 0 {
		lotSize = 1
	}
	if oiDelta < 0 {
		oiDelta = -oiDelta
	}
	return oiDelta / lotSize
}

// lotBucket classifies a lot count into the five-tier size buckets,
// evaluated high to low, first match wins.
func lotBucket(lots int64) models.SizeBucket {
	switch {
	case lots >= 200:
		return models.BucketExtremeHigh
	case lots >= 150:
		return models.BucketExtraHigh
	case lots >= 100:
		return models.BucketHigh
	case lots >= 75:
		return models.BucketMedium
	case lots >= 1:
		return models.BucketLow
	default:
		return models.BucketIgnore
	}
}
