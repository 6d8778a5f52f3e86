package format

import (
	"fmt"
	"strings"

	"oiflow/models"
)

const ruleWidth = 56

// optionFlows is the report row order for option activity.
var optionFlows = []string{
	"CALL WRITER", "PUT WRITER",
	"CALL BUY", "PUT BUY",
	"CALL SC", "PUT SC",
	"CALL UNW", "PUT UNW",
	"CALL HEDGE", "PUT HEDGE",
	"CALL UNHEDGE", "PUT UNHEDGE",
}

// futureFlows is the report row order for future totals.
var futureFlows = []string{
	"FUT BUY", "FUT SELL",
	"FUT SC", "FUT UNW",
	"FUT HEDGE", "FUT UNHEDGE",
}

// Report renders a flushed aggregation window as the fixed-width turnover
// table, wrapped in <pre> for Telegram HTML delivery. Underlyings render in
// the given order; ones with no recorded activity are skipped.
func Report(r *models.ReportEvent, underlyings []string) string {
	active := make(map[string]bool, len(underlyings))
	for key := range r.Buckets {
		active[key.Underlying] = true
	}

	mins := int(r.Window.Minutes())
	if mins < 1 {
		mins = 1
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<pre>\U0001F4B0 %d MIN TURNOVER FLOW\n\n", mins)

	rule := strings.Repeat("-", ruleWidth)

	for _, underlying := range underlyings {
		if !active[underlying] {
			continue
		}

		futPrice := "N/A"
		if p, ok := r.LastFuture[underlying]; ok && p > 0 {
			futPrice = fmt.Sprintf("%.2f", p)
		}
		fmt.Fprintf(&b, "%s (FUT: %s)\n", underlying, futPrice)
		b.WriteString(rule + "\n")
		fmt.Fprintf(&b, "%-14s%10s%10s%10s%10s\n", "TYPE", "ITM", "ATM", "OTM", "TOT")
		b.WriteString(rule + "\n")

		for _, flow := range optionFlows {
			itm := Indian(r.Turnover(underlying, flow, models.ZoneITM))
			atm := Indian(r.Turnover(underlying, flow, models.ZoneATM))
			otm := Indian(r.Turnover(underlying, flow, models.ZoneOTM))
			tot := Indian(r.ZoneTotal(underlying, flow))
			fmt.Fprintf(&b, "%-14s%10s%10s%10s%10s\n", flow, itm, atm, otm, tot)
		}

		b.WriteString(rule + "\n")
		for _, flow := range futureFlows {
			fmt.Fprintf(&b, "%-14s%10s\n", flow, Indian(r.Turnover(underlying, flow, models.ZoneTotal)))
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Validity: Next %d Minutes Only</pre>", mins)
	return b.String()
}
