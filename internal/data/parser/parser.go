package parser

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"

	"github.com/penwyp/go-molty-meter/internal/core/model"
	"github.com/penwyp/go-molty-meter/internal/util"
)

// ErrNoSession is returned when a log file yields nothing to show: it is
// missing, unreadable, or holds no recognizable lines.
var ErrNoSession = errors.New("no session data")

const maxLineSize = 32 * 1024 * 1024

// Parser turns session log files into deduplicated ParsedSessions.
// Every call reparses from scratch; nothing is cached between calls.
type Parser struct {
	concurrency int
	now         func() time.Time
}

// ParseResult represents the result of parsing a single file.
type ParseResult struct {
	File    string
	Session *model.ParsedSession
	Error   error
}

// NewParser creates a new Parser instance.
func NewParser(concurrency int) *Parser {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Parser{
		concurrency: concurrency,
		now:         time.Now,
	}
}

// WithClock sets the clock used for lines that carry no usable timestamp.
func (p *Parser) WithClock(now func() time.Time) *Parser {
	p.now = now
	return p
}

// ParseFile parses the log at path. Any failure to read the file is
// reported as ErrNoSession.
func (p *Parser) ParseFile(path string) (*model.ParsedSession, error) {
	util.LogDebug(fmt.Sprintf("Start parsing file: %s", path))

	file, err := os.Open(path)
	if err != nil {
		util.LogDebug(fmt.Sprintf("Failed to open file: %s - %v", path, err))
		return nil, fmt.Errorf("%w: %v", ErrNoSession, err)
	}
	defer file.Close()

	return p.Parse(file, path)
}

// Parse reads newline-delimited JSON from r. Malformed lines are skipped
// one at a time; only a read failure or an input with no recognizable
// line yields ErrNoSession.
func (p *Parser) Parse(r io.Reader, path string) (*model.ParsedSession, error) {
	now := p.now()
	acc := newAccumulator()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	lineCount := 0
	for scanner.Scan() {
		lineCount++
		raw := scanner.Bytes()
		if len(bytes.TrimSpace(raw)) == 0 {
			continue
		}

		var line model.LogLine
		if err := sonic.Unmarshal(raw, &line); err != nil {
			util.LogDebug(fmt.Sprintf("Skip invalid JSON line %s:%d - %v", path, lineCount, err))
			continue
		}
		acc.add(&line, lineCount, now)
	}

	if err := scanner.Err(); err != nil {
		util.LogDebug(fmt.Sprintf("Error scanning file: %s - %v", path, err))
		return nil, fmt.Errorf("%w: %v", ErrNoSession, err)
	}

	if !acc.recognized {
		return nil, ErrNoSession
	}

	sessionID := acc.sessionID
	if sessionID == "" {
		sessionID = SessionIDFromPath(path)
	}

	return &model.ParsedSession{
		SessionID: sessionID,
		Events:    acc.events(),
		StartTime: acc.start,
		Path:      path,
		Project:   ProjectName(path),
	}, nil
}

// ParseFiles parses multiple files concurrently and returns a channel of ParseResult.
func (p *Parser) ParseFiles(files []string) <-chan ParseResult {
	start := time.Now()
	results := make(chan ParseResult, len(files))
	var wg sync.WaitGroup

	util.LogDebug(fmt.Sprintf("Start concurrent parsing of %d files, concurrency: %d", len(files), p.concurrency))

	semaphore := make(chan struct{}, p.concurrency)

	for _, file := range files {
		wg.Add(1)
		go func(f string) {
			defer wg.Done()

			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			session, err := p.ParseFile(f)
			results <- ParseResult{
				File:    f,
				Session: session,
				Error:   err,
			}
		}(file)
	}

	go func() {
		wg.Wait()
		close(results)
		util.LogDebug(fmt.Sprintf("Concurrent parsing finished, total duration: %v", time.Since(start)))
	}()

	return results
}

// accumulator keeps the last-seen event per message id.
type accumulator struct {
	recognized bool
	sessionID  string
	start      *time.Time
	byID       map[string]model.UsageEvent
	order      []string // first-seen order, tie-break for equal timestamps
}

func newAccumulator() *accumulator {
	return &accumulator{byID: make(map[string]model.UsageEvent)}
}

func (a *accumulator) add(line *model.LogLine, lineNo int, now time.Time) {
	if a.sessionID == "" && line.SessionId != "" {
		a.sessionID = line.SessionId
	}

	if isStartLine(line) {
		a.recognized = true
		if a.start == nil {
			if ts, ok := parseTimestamp(line.Timestamp); ok {
				a.start = &ts
			}
		}
		// OpenClaw session lines carry the session id in the top-level id
		if line.Type == model.EntrySession && a.sessionID == "" && line.ID != "" {
			a.sessionID = line.ID
		}
		return
	}

	if !isUsageLine(line) {
		return
	}
	a.recognized = true

	msg := line.Message
	in, out, cacheRead, cacheWrite := msg.Usage.Tokens()

	ts, ok := parseTimestamp(line.Timestamp)
	if !ok {
		ts = now
	}

	modelName := msg.Model
	if modelName == "" {
		modelName = model.UnknownModel
	}

	event := model.UsageEvent{
		MessageID:        messageKey(line, lineNo),
		Model:            modelName,
		InputTokens:      in,
		OutputTokens:     out,
		CacheReadTokens:  cacheRead,
		CacheWriteTokens: cacheWrite,
		Timestamp:        ts,
	}
	if cost, ok := msg.Usage.PrecomputedCost(); ok {
		event.Cost = &cost
	}

	if _, seen := a.byID[event.MessageID]; !seen {
		a.order = append(a.order, event.MessageID)
	}
	a.byID[event.MessageID] = event
}

func (a *accumulator) events() []model.UsageEvent {
	events := make([]model.UsageEvent, 0, len(a.order))
	for _, id := range a.order {
		events = append(events, a.byID[id])
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.Before(events[j].Timestamp)
	})
	return events
}

func isStartLine(line *model.LogLine) bool {
	switch line.Type {
	case model.EntrySession, model.EntryUser:
		return true
	case model.EntryMessage:
		return line.Message != nil && line.Message.Role == model.RoleUser
	}
	return false
}

func isUsageLine(line *model.LogLine) bool {
	if line.Message == nil || line.Message.Usage == nil {
		return false
	}
	switch line.Type {
	case model.EntryAssistant:
		return true
	case model.EntryMessage:
		return line.Message.Role != model.RoleUser
	}
	return false
}

// messageKey prefers the message id, then the line id. Lines carrying
// neither get a key of their own and are never merged.
func messageKey(line *model.LogLine, lineNo int) string {
	if line.Message.Id != "" {
		return line.Message.Id
	}
	if line.ID != "" {
		return line.ID
	}
	return fmt.Sprintf("line:%d", lineNo)
}

func parseTimestamp(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// SessionIDFromPath returns the file name without its extension.
func SessionIDFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ProjectName extracts the project name from the file path. OpenClaw keeps
// logs under agents/<agent>/sessions, which reports the agent name.
func ProjectName(path string) string {
	dir := filepath.Dir(path)
	projectName := filepath.Base(dir)

	if projectName == "sessions" {
		return filepath.Base(filepath.Dir(dir))
	}

	if isUUID(projectName) {
		parentDir := filepath.Dir(dir)
		parentName := filepath.Base(parentDir)
		if parentName != "projects" && parentName != "." {
			projectName = parentName + "/" + projectName
		}
	}

	return projectName
}

// isUUID checks if the given string is a UUID.
func isUUID(s string) bool {
	if len(s) != 36 {
		return false
	}

	parts := strings.Split(s, "-")
	if len(parts) != 5 {
		return false
	}

	return len(parts[0]) == 8 && len(parts[1]) == 4 &&
		len(parts[2]) == 4 && len(parts[3]) == 4 &&
		len(parts[4]) == 12
}
