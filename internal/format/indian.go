package format

import (
	"fmt"
	"math"
	"strconv"
)

// Indian renders a value in the two-tier Indian convention: crores above
// 1,00,00,000, lakhs above 1,00,000, otherwise a thousands-grouped integer.
// Tiers are chosen on the absolute value so negatives keep their sign.
func Indian(val float64) string {
	abs := math.Abs(val)
	if abs >= 1e7 {
		return fmt.Sprintf("%.2f Cr", val/1e7)
	}
	if abs >= 1e5 {
		return fmt.Sprintf("%.2f L", val/1e5)
	}
	return groupThousands(int64(math.Round(val)))
}

func groupThousands(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := false
	if n < 0 {
		neg = true
		s = s[1:]
	}

	if len(s) > 3 {
		var out []byte
		lead := len(s) % 3
		if lead > 0 {
			out = append(out, s[:lead]...)
		}
		for i := lead; i < len(s); i += 3 {
			if len(out) > 0 {
				out = append(out, ',')
			}
			out = append(out, s[i:i+3]...)
		}
		s = string(out)
	}

	if neg {
		return "-" + s
	}
	return s
}

// SignedCount renders an integer with an explicit sign and grouping, for
// open-interest change fields.
func SignedCount(n int64) string {
	if n > 0 {
		return "+" + groupThousands(n)
	}
	return groupThousands(n)
}
