package scanner

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/penwyp/go-molty-meter/internal/util"
)

// SessionLocator picks the session log the meter should follow.
type SessionLocator struct {
	claudeHome string // usually ~/.claude
	scanner    *FileScanner
}

// NewSessionLocator creates a locator. claudeHome may be empty when no
// Claude Code install is expected.
func NewSessionLocator(claudeHome string, scanner *FileScanner) *SessionLocator {
	return &SessionLocator{claudeHome: claudeHome, scanner: scanner}
}

// ActiveSessionPath resolves the debug/latest symlink to its session log
// under projects/, falling back to the newest log below the scan roots.
func (l *SessionLocator) ActiveSessionPath() (string, bool) {
	if path, ok := l.fromLatestLink(); ok {
		return path, true
	}
	if l.scanner == nil {
		return "", false
	}
	return l.scanner.Latest()
}

// ActiveSessionID returns the id the debug/latest symlink points at.
func (l *SessionLocator) ActiveSessionID() (string, bool) {
	if l.claudeHome == "" {
		return "", false
	}
	target, err := os.Readlink(filepath.Join(l.claudeHome, "debug", "latest"))
	if err != nil {
		return "", false
	}
	// target looks like ~/.claude/debug/<session-id>.txt
	base := filepath.Base(target)
	id := strings.TrimSuffix(base, filepath.Ext(base))
	return id, id != ""
}

func (l *SessionLocator) fromLatestLink() (string, bool) {
	id, ok := l.ActiveSessionID()
	if !ok {
		return "", false
	}

	projectsDir := filepath.Join(l.claudeHome, "projects")
	entries, err := os.ReadDir(projectsDir)
	if err != nil {
		return "", false
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		candidate := filepath.Join(projectsDir, entry.Name(), id+".jsonl")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true
		}
	}
	util.LogDebug("Active session has no log yet", util.F("session", id))
	return "", false
}
