package util

import (
	"fmt"
	"strings"
	"time"
)

// FormatTokenCount renders a token count the way the meter shows it:
// whole thousands below a million ("42k"), one decimal above ("1.2M").
func FormatTokenCount(n int) string {
	if n >= 1_000_000 {
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	}
	return fmt.Sprintf("%dk", n/1000)
}

// FormatTokenUsage renders "used / limit"; a zero limit renders as "—".
func FormatTokenUsage(used, limit int) string {
	if limit <= 0 {
		return FormatTokenCount(used) + " / —"
	}
	return FormatTokenCount(used) + " / " + FormatTokenCount(limit)
}

// FormatDuration renders "42m" or "1h 5m".
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60

	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}

// FormatCostBurnRate renders dollars per minute.
func FormatCostBurnRate(perMinute float64) string {
	return fmt.Sprintf("$%.2f/min", perMinute)
}

// FormatPercent renders a 0..1 ratio as a whole percentage.
func FormatPercent(ratio float64) string {
	return fmt.Sprintf("%d%%", int(ratio*100))
}

// FormatCurrency formats dollars with thousands separators, e.g. $1,234.50.
func FormatCurrency(amount float64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}

	str := fmt.Sprintf("%.2f", amount)
	intPart, decPart, _ := strings.Cut(str, ".")

	if len(intPart) > 3 {
		var b strings.Builder
		lead := len(intPart) % 3
		if lead > 0 {
			b.WriteString(intPart[:lead])
		}
		for i := lead; i < len(intPart); i += 3 {
			if b.Len() > 0 {
				b.WriteByte(',')
			}
			b.WriteString(intPart[i : i+3])
		}
		intPart = b.String()
	}

	return fmt.Sprintf("%s$%s.%s", sign, intPart, decPart)
}
