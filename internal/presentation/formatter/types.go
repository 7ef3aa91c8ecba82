package formatter

import (
	"fmt"
	"io"
	"os"

	"github.com/penwyp/go-molty-meter/internal/core/model"
)

// Formatter renders daily spend rows.
type Formatter interface {
	Format(data []model.DailySpend) error
}

// Outputs lists the accepted --output values.
var Outputs = []string{"table", "json", "csv", "summary"}

// New returns the formatter for output writing to w (stdout when nil).
func New(output string, w io.Writer) (Formatter, error) {
	if w == nil {
		w = os.Stdout
	}
	switch output {
	case "", "table":
		return NewTableFormatter(w), nil
	case "json":
		return NewJSONFormatter(w), nil
	case "csv":
		return NewCSVFormatter(w), nil
	case "summary":
		return NewSummaryFormatter(w), nil
	default:
		return nil, fmt.Errorf("unknown output format %q (want one of %v)", output, Outputs)
	}
}

func totals(data []model.DailySpend) (sessions int, cost float64) {
	for _, row := range data {
		sessions += row.Sessions
		cost += row.Cost
	}
	return sessions, cost
}
