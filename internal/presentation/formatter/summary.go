package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/penwyp/go-molty-meter/internal/core/model"
	"github.com/penwyp/go-molty-meter/internal/util"
)

// SummaryFormatter prints a short month-to-date digest.
type SummaryFormatter struct {
	w io.Writer
}

// NewSummaryFormatter creates a new instance of SummaryFormatter.
func NewSummaryFormatter(w io.Writer) *SummaryFormatter {
	return &SummaryFormatter{w: w}
}

// Format writes date range, totals, the daily average and the most
// expensive day.
func (f *SummaryFormatter) Format(data []model.DailySpend) error {
	rule := strings.Repeat("=", 60)
	fmt.Fprintln(f.w, rule)
	fmt.Fprintln(f.w, "Monthly Spend Summary")
	fmt.Fprintln(f.w, rule)
	fmt.Fprintln(f.w)

	if len(data) == 0 {
		fmt.Fprintln(f.w, "No spend recorded this month")
		fmt.Fprintln(f.w)
		fmt.Fprintln(f.w, rule)
		return nil
	}

	firstDate := data[0].Date
	lastDate := data[len(data)-1].Date
	if firstDate == lastDate {
		fmt.Fprintf(f.w, "Date Range: %s\n", firstDate)
	} else {
		fmt.Fprintf(f.w, "Date Range: %s to %s\n", firstDate, lastDate)
	}
	fmt.Fprintln(f.w)

	sessions, cost := totals(data)
	top := data[0]
	for _, row := range data[1:] {
		if row.Cost > top.Cost {
			top = row
		}
	}

	fmt.Fprintf(f.w, "  Total Cost:       %s USD\n", util.FormatCurrency(cost))
	fmt.Fprintf(f.w, "  Sessions:         %s\n", formatNumber(sessions))
	fmt.Fprintf(f.w, "  Active Days:      %d\n", len(data))
	fmt.Fprintf(f.w, "  Average / Day:    %s USD\n", util.FormatCurrency(cost/float64(len(data))))
	fmt.Fprintf(f.w, "  Busiest Day:      %s (%s USD)\n", top.Date, util.FormatCurrency(top.Cost))

	fmt.Fprintln(f.w)
	fmt.Fprintln(f.w, rule)
	return nil
}
