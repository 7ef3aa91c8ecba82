package util

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// Terminal color sequences
const (
	ColorReset  = "\033[0m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorRed    = "\033[31m"
	ColorOrange = "\033[38;5;208m"
	ColorCyan   = "\033[36m"
	ColorBold   = "\033[1m"

	ClearLine = "\033[2K"
)

// GetDisplayWidth calculates the display width of a string, accounting for
// wide runes and emoji.
func GetDisplayWidth(text string) int {
	return runewidth.StringWidth(text)
}

// PadRight pads text with spaces to the given display width.
func PadRight(text string, width int) string {
	return runewidth.FillRight(text, width)
}

// PadLeft right-aligns text within the given display width.
func PadLeft(text string, width int) string {
	return runewidth.FillLeft(text, width)
}

// Truncate shortens text to width columns, marking the cut with an ellipsis.
func Truncate(text string, width int) string {
	return runewidth.Truncate(text, width, "…")
}

// CreateProgressBar renders fraction (0..1) as a bar of width cells.
func CreateProgressBar(fraction float64, width int) string {
	if width < 1 {
		width = 10
	}
	filled := int(fraction * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", width-filled) + "]"
}

// Colorize wraps text in a color sequence when enabled.
func Colorize(text, color string, enabled bool) string {
	if !enabled || color == "" {
		return text
	}
	return color + text + ColorReset
}
