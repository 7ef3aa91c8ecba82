package formatter

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/penwyp/go-molty-meter/internal/core/model"
)

type CSVFormatter struct {
	w io.Writer
}

func NewCSVFormatter(w io.Writer) *CSVFormatter {
	return &CSVFormatter{w: w}
}

func (f *CSVFormatter) Format(data []model.DailySpend) error {
	w := csv.NewWriter(f.w)

	if err := w.Write([]string{"Date", "Sessions", "Cost (USD)"}); err != nil {
		return err
	}

	for _, row := range data {
		record := []string{
			row.Date,
			fmt.Sprintf("%d", row.Sessions),
			fmt.Sprintf("%.2f", row.Cost),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}
