package fixtures

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bytedance/sonic"
)

// Schema selects the session log dialect a builder writes.
type Schema int

const (
	ClaudeCode Schema = iota
	OpenClaw
)

// Usage is the token usage written on an assistant line.
type Usage struct {
	Input      int
	Output     int
	CacheRead  int
	CacheWrite int
	Cost       *float64 // OpenClaw pre-computed total
}

// SessionBuilder assembles the lines of one session log.
type SessionBuilder struct {
	schema    Schema
	sessionID string
	lines     []string
}

// NewClaudeSession starts a Claude Code style log.
func NewClaudeSession(sessionID string) *SessionBuilder {
	return &SessionBuilder{schema: ClaudeCode, sessionID: sessionID}
}

// NewOpenClawSession starts an OpenClaw style log.
func NewOpenClawSession(sessionID string) *SessionBuilder {
	return &SessionBuilder{schema: OpenClaw, sessionID: sessionID}
}

// SessionID returns the id the builder stamps on its lines.
func (b *SessionBuilder) SessionID() string {
	return b.sessionID
}

// Start appends the line that marks the session start.
func (b *SessionBuilder) Start(ts time.Time) *SessionBuilder {
	if b.schema == OpenClaw {
		return b.add(map[string]interface{}{
			"type":      "session",
			"id":        b.sessionID,
			"timestamp": formatTime(ts),
		})
	}
	return b.User(ts, "hello")
}

// User appends a user prompt line.
func (b *SessionBuilder) User(ts time.Time, content string) *SessionBuilder {
	if b.schema == OpenClaw {
		return b.add(map[string]interface{}{
			"type":      "message",
			"timestamp": formatTime(ts),
			"message":   map[string]interface{}{"role": "user", "content": content},
		})
	}
	return b.add(map[string]interface{}{
		"type":      "user",
		"sessionId": b.sessionID,
		"timestamp": formatTime(ts),
		"message":   map[string]interface{}{"role": "user", "content": content},
	})
}

// Assistant appends a model response carrying usage. Repeating msgID
// simulates a streamed update of the same message.
func (b *SessionBuilder) Assistant(msgID, modelName string, ts time.Time, u Usage) *SessionBuilder {
	if b.schema == OpenClaw {
		usage := map[string]interface{}{
			"input":      u.Input,
			"output":     u.Output,
			"cacheRead":  u.CacheRead,
			"cacheWrite": u.CacheWrite,
		}
		if u.Cost != nil {
			usage["cost"] = map[string]interface{}{"total": *u.Cost}
		}
		line := map[string]interface{}{
			"type":      "message",
			"timestamp": formatTime(ts),
			"message": map[string]interface{}{
				"role":  "assistant",
				"model": modelName,
				"usage": usage,
			},
		}
		if msgID != "" {
			line["id"] = msgID
		}
		return b.add(line)
	}

	return b.add(map[string]interface{}{
		"type":      "assistant",
		"sessionId": b.sessionID,
		"timestamp": formatTime(ts),
		"message": map[string]interface{}{
			"id":    msgID,
			"role":  "assistant",
			"model": modelName,
			"usage": map[string]interface{}{
				"input_tokens":                u.Input,
				"output_tokens":               u.Output,
				"cache_read_input_tokens":     u.CacheRead,
				"cache_creation_input_tokens": u.CacheWrite,
				"service_tier":                "standard",
			},
		},
	})
}

// Raw appends a line verbatim, e.g. a malformed one.
func (b *SessionBuilder) Raw(line string) *SessionBuilder {
	b.lines = append(b.lines, line)
	return b
}

// Content returns the log as it would appear on disk.
func (b *SessionBuilder) Content() string {
	return strings.Join(b.lines, "\n") + "\n"
}

func (b *SessionBuilder) add(v map[string]interface{}) *SessionBuilder {
	data, err := sonic.Marshal(v)
	if err != nil {
		panic(err)
	}
	b.lines = append(b.lines, string(data))
	return b
}

func formatTime(ts time.Time) string {
	return ts.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

// TestDataGenerator writes session logs under a base directory laid out
// like the real agents do.
type TestDataGenerator struct {
	baseDir string
}

// NewTestDataGenerator creates a new test data generator
func NewTestDataGenerator(baseDir string) *TestDataGenerator {
	return &TestDataGenerator{
		baseDir: baseDir,
	}
}

// ClaudeRoot is the directory holding Claude Code projects.
func (g *TestDataGenerator) ClaudeRoot() string {
	return filepath.Join(g.baseDir, ".claude", "projects")
}

// OpenClawRoot is the directory holding OpenClaw agents.
func (g *TestDataGenerator) OpenClawRoot() string {
	return filepath.Join(g.baseDir, ".openclaw", "agents")
}

// Write stores a session and returns its path. Claude Code logs land in
// projects/<group>/<id>.jsonl, OpenClaw logs in agents/<group>/sessions/<id>.jsonl.
func (g *TestDataGenerator) Write(group string, b *SessionBuilder) (string, error) {
	var dir string
	if b.schema == OpenClaw {
		dir = filepath.Join(g.OpenClawRoot(), group, "sessions")
	} else {
		dir = filepath.Join(g.ClaudeRoot(), group)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}

	path := filepath.Join(dir, b.sessionID+".jsonl")
	if err := os.WriteFile(path, []byte(b.Content()), 0644); err != nil {
		return "", err
	}
	return path, nil
}

// Touch sets a file's modification time.
func Touch(path string, mtime time.Time) error {
	return os.Chtimes(path, mtime, mtime)
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}
