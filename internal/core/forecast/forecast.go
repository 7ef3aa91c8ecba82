package forecast

import (
	"fmt"
	"math"
	"time"

	"github.com/penwyp/go-molty-meter/internal/util"
)

// Status is the outcome of a month-end projection.
type Status int

const (
	Unknown Status = iota
	OnTrack
	Exhaustion
)

// Forecast projects month-end spend from the month-to-date burn rate.
type Forecast struct {
	Status    Status
	Date      time.Time // budget exhaustion day, set for Exhaustion
	DailyRate float64
	Projected float64
}

// Project forecasts spend for now's calendar month. Zero spend or a
// non-positive budget yields Unknown.
func Project(spend, budget float64, now time.Time) Forecast {
	if spend <= 0 || budget <= 0 {
		return Forecast{Status: Unknown}
	}

	elapsed := now.Day()
	if elapsed < 1 {
		elapsed = 1
	}
	days := util.DaysInMonth(now)

	f := Forecast{DailyRate: spend / float64(elapsed)}
	f.Projected = f.DailyRate * float64(days)

	if f.Projected <= budget {
		f.Status = OnTrack
		return f
	}

	day := int(math.Ceil(budget / f.DailyRate))
	if day > days {
		// rounding overshoot
		f.Status = OnTrack
		return f
	}
	if day < 1 {
		day = 1
	}

	f.Status = Exhaustion
	f.Date = time.Date(now.Year(), now.Month(), day, 0, 0, 0, 0, now.Location())
	return f
}

// String renders the forecast for a status line.
func (f Forecast) String() string {
	switch f.Status {
	case OnTrack:
		return "On track"
	case Exhaustion:
		return fmt.Sprintf("Budget runs out %s", f.Date.Format("Jan 2"))
	}
	return "—"
}
