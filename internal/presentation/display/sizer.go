package display

import (
	"io"
	"os"

	"golang.org/x/term"

	"github.com/penwyp/go-molty-meter/internal/util"
)

const fallbackWidth = 80

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// terminalWidth returns the column count of w, or a fallback when w is not
// a terminal.
func terminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok {
		return fallbackWidth
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width < 40 {
		return fallbackWidth
	}
	util.LogDebugf("terminal width %d", width)
	return width
}
