package format

import (
	"fmt"
	"strings"
	"time"

	"oiflow/models"
)

var ist = loadIST()

func loadIST() *time.Location {
	if loc, err := time.LoadLocation("Asia/Kolkata"); err == nil {
		return loc
	}
	return time.FixedZone("IST", 5*3600+1800)
}

// Alert renders a classified event as a Telegram Markdown alert, the shape
// the delivery channel expects: header with the price-direction arrow, then
// one labelled line per field.
func Alert(e *models.ClassifiedEvent) string {
	var b strings.Builder

	fmt.Fprintf(&b, "\U0001F514 *ALERT: %s* %s\n", e.Symbol, e.Direction())
	fmt.Fprintf(&b, "Action: %s (%s)\n", e.Flow, e.Bucket)
	fmt.Fprintf(&b, "Lots: %d\n", e.Lots)
	if e.Kind == models.KindOption {
		zone := string(e.Zone)
		if !e.FuturePriceKnown {
			zone += " (future price unknown)"
		}
		fmt.Fprintf(&b, "Zone: %s\n", zone)
	}
	fmt.Fprintf(&b, "Existing OI: %s\n", Indian(float64(e.PriorOI)))
	fmt.Fprintf(&b, "OI Change: %s\n", SignedCount(e.OIDelta))
	fmt.Fprintf(&b, "OI RoC: %.2f%%\n", e.OIRocPct)
	fmt.Fprintf(&b, "Price: %.2f\n", e.Price)
	fmt.Fprintf(&b, "Time: %s", e.Timestamp.In(ist).Format("15:04:05"))

	return b.String()
}
