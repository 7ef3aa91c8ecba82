package display

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/penwyp/go-molty-meter/internal/application/meter"
	"github.com/penwyp/go-molty-meter/internal/core/health"
	"github.com/penwyp/go-molty-meter/internal/core/model"
	"github.com/penwyp/go-molty-meter/internal/util"
)

const (
	labelWidth = 14
	barWidth   = 20
)

// StatusPrinter renders meter snapshots as text.
type StatusPrinter struct {
	w     io.Writer
	color bool
	width int
	live  bool
}

// NewStatusPrinter writes to w. Color and in-place line updates are used
// only when w is a terminal.
func NewStatusPrinter(w io.Writer) *StatusPrinter {
	tty := isTerminal(w)
	return &StatusPrinter{
		w:     w,
		color: tty,
		width: terminalWidth(w),
		live:  tty,
	}
}

func tierColor(t health.Tier) string {
	switch t {
	case health.Watching:
		return util.ColorYellow
	case health.Warning:
		return util.ColorOrange
	case health.Heavy:
		return util.ColorRed
	default:
		return util.ColorGreen
	}
}

func budgetColor(used float64) string {
	switch {
	case used >= 0.9:
		return util.ColorRed
	case used >= 0.7:
		return util.ColorOrange
	case used >= 0.5:
		return util.ColorYellow
	default:
		return util.ColorGreen
	}
}

func statusLabel(reconciled, reconciling bool, lastError string, fetchedAt, now time.Time) string {
	switch {
	case reconciled && reconciling:
		return "billing API (refreshing)"
	case reconciled:
		return fmt.Sprintf("billing API, %s ago", util.FormatDuration(now.Sub(fetchedAt)))
	case reconciling:
		return "local estimate (reconciling)"
	case lastError != "":
		return "local estimate (billing API unavailable)"
	default:
		return "local estimate"
	}
}

// sourceLabel describes where the monthly figure comes from, per provider
// when more than one is reconciled.
func sourceLabel(s *meter.Snapshot, now time.Time) string {
	if len(s.Sources) <= 1 {
		label := statusLabel(s.Reconciled, s.Reconciling, s.LastError, s.FetchedAt, now)
		if s.Filter != "" {
			label += " · " + s.Filter
		}
		return label
	}

	parts := make([]string, 0, len(s.Sources))
	for _, src := range s.Sources {
		label := model.Provider{Kind: src.Provider}.DisplayName() + " " +
			statusLabel(src.Reconciled, src.Reconciling, src.LastError, src.FetchedAt, now)
		if src.Filter != "" {
			label += " · " + src.Filter
		}
		parts = append(parts, label)
	}
	return strings.Join(parts, "; ")
}

func (p *StatusPrinter) row(b *strings.Builder, label, value string) {
	b.WriteString(util.PadRight(label, labelWidth))
	b.WriteString(value)
	b.WriteByte('\n')
}

// RenderBlock renders a multi-line status report.
func (p *StatusPrinter) RenderBlock(s *meter.Snapshot) string {
	var b strings.Builder
	if s == nil {
		return "No data yet\n"
	}

	title := "Molty Meter · " + s.GeneratedAt.Format("January 2006")
	b.WriteString(util.Colorize(title, util.ColorBold, p.color))
	b.WriteByte('\n')

	spend := fmt.Sprintf("%s of %s (%s) %s",
		util.FormatCurrency(s.MonthlySpend),
		util.FormatCurrency(s.Budget),
		util.FormatPercent(s.BudgetUsed),
		util.Colorize(util.CreateProgressBar(s.BudgetUsed, barWidth), budgetColor(s.BudgetUsed), p.color))
	p.row(&b, "Month", spend)
	p.row(&b, "Source", sourceLabel(s, s.GeneratedAt))
	if s.Reconciled {
		p.row(&b, "Local est.", util.FormatCurrency(s.LocalEstimate))
	}
	p.row(&b, "Forecast", s.Forecast.String())

	if !s.HasSession() {
		p.row(&b, "Session", "no active session")
		return b.String()
	}

	v := s.Session
	session := v.DisplayModel
	if v.Project != "" {
		session += " · " + v.Project
	}
	session += " · " + util.FormatDuration(v.Duration)
	p.row(&b, "Session", session)

	cost := util.FormatCurrency(v.Cost)
	if arrow := v.Trend.Arrow(); arrow != "" {
		cost += " " + arrow
	}
	p.row(&b, "Cost", cost)
	p.row(&b, "Tokens", util.FormatTokenCount(v.TotalTokens))
	if v.ContextWindow > 0 {
		p.row(&b, "Context", fmt.Sprintf("%s of %s (%s)",
			util.FormatTokenCount(v.ContextTokens),
			util.FormatTokenCount(v.ContextWindow),
			util.FormatPercent(v.ContextUsed)))
	}
	p.row(&b, "Burn rate", util.FormatCostBurnRate(v.BurnRate)+" "+util.CreateProgressBar(v.BurnRateProgress, 10))

	tier := util.Colorize(s.Tier.Label(), tierColor(s.Tier), p.color)
	gauge := util.CreateProgressBar(s.GaugeFill, 10)
	p.row(&b, "Health", fmt.Sprintf("%s %s %s", tier, gauge, s.Advice))

	return b.String()
}

// RenderLine renders a one-line status, truncated to the terminal width.
func (p *StatusPrinter) RenderLine(s *meter.Snapshot) string {
	if s == nil {
		return "waiting for data"
	}

	parts := []string{
		s.GeneratedAt.Format("15:04:05"),
		fmt.Sprintf("month %s/%s", util.FormatCurrency(s.MonthlySpend), util.FormatCurrency(s.Budget)),
		s.Forecast.String(),
	}
	if !s.Reconciled {
		parts = append(parts, "est.")
	}
	if s.HasSession() {
		v := s.Session
		session := fmt.Sprintf("%s %s %s %s",
			v.DisplayModel,
			util.FormatCurrency(v.Cost),
			util.FormatTokenCount(v.TotalTokens),
			util.FormatCostBurnRate(v.BurnRate))
		if arrow := v.Trend.Arrow(); arrow != "" {
			session += " " + arrow
		}
		parts = append(parts, session, s.Tier.Label())
	}

	return util.Truncate(strings.Join(parts, " | "), p.width-1)
}

// PrintBlock writes RenderBlock.
func (p *StatusPrinter) PrintBlock(s *meter.Snapshot) error {
	_, err := io.WriteString(p.w, p.RenderBlock(s))
	return err
}

// PrintLine writes RenderLine, overwriting the previous line on a
// terminal.
func (p *StatusPrinter) PrintLine(s *meter.Snapshot) error {
	line := p.RenderLine(s)
	if p.live {
		color := ""
		if s != nil {
			color = tierColor(s.Tier)
		}
		_, err := fmt.Fprintf(p.w, "\r%s%s", util.ClearLine, util.Colorize(line, color, p.color))
		return err
	}
	_, err := fmt.Fprintln(p.w, line)
	return err
}
