package parser

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/penwyp/go-molty-meter/internal/core/model"
	"github.com/penwyp/go-molty-meter/internal/testing/fixtures"
)

var base = time.Date(2026, 10, 3, 9, 0, 0, 0, time.UTC)

func writeSession(t *testing.T, group string, b *fixtures.SessionBuilder) string {
	t.Helper()
	path, err := fixtures.NewTestDataGenerator(t.TempDir()).Write(group, b)
	require.NoError(t, err)
	return path
}

func TestNewParser(t *testing.T) {
	parser := NewParser(4)
	assert.Equal(t, 4, parser.concurrency)

	assert.Equal(t, 1, NewParser(0).concurrency)
}

func TestParseFileClaudeCode(t *testing.T) {
	b := fixtures.NewClaudeSession("abc").
		Start(base).
		Assistant("msg_1", model.ModelSonnet45, base.Add(time.Minute), fixtures.Usage{Input: 10, Output: 20, CacheRead: 30, CacheWrite: 40}).
		Assistant("msg_2", model.ModelOpus46, base.Add(2*time.Minute), fixtures.Usage{Input: 1, Output: 2})
	path := writeSession(t, "my-project", b)

	session, err := NewParser(1).ParseFile(path)
	require.NoError(t, err)

	assert.Equal(t, "abc", session.SessionID)
	assert.Equal(t, path, session.Path)
	assert.Equal(t, "my-project", session.Project)
	require.NotNil(t, session.StartTime)
	assert.True(t, base.Equal(*session.StartTime))

	require.Len(t, session.Events, 2)
	assert.Equal(t, "msg_1", session.Events[0].MessageID)
	assert.Equal(t, 10, session.Events[0].InputTokens)
	assert.Equal(t, 20, session.Events[0].OutputTokens)
	assert.Equal(t, 30, session.Events[0].CacheReadTokens)
	assert.Equal(t, 40, session.Events[0].CacheWriteTokens)
	assert.Nil(t, session.Events[0].Cost)
	assert.Equal(t, model.ModelOpus46, session.PrimaryModel())
}

func TestParseFileOpenClaw(t *testing.T) {
	b := fixtures.NewOpenClawSession("oc-1").
		Start(base).
		User(base.Add(time.Second), "do it").
		Assistant("m1", model.ModelHaiku45, base.Add(time.Minute), fixtures.Usage{Input: 5, Output: 6, CacheRead: 7, CacheWrite: 8, Cost: fixtures.Float(0.25)}).
		Assistant("", model.ModelHaiku45, base.Add(2*time.Minute), fixtures.Usage{Input: 1}).
		Assistant("", model.ModelHaiku45, base.Add(3*time.Minute), fixtures.Usage{Input: 1})
	path := writeSession(t, "main", b)

	session, err := NewParser(1).ParseFile(path)
	require.NoError(t, err)

	assert.Equal(t, "oc-1", session.SessionID)
	assert.Equal(t, "main", session.Project)
	require.NotNil(t, session.StartTime)
	assert.True(t, base.Equal(*session.StartTime))

	// lines without any id are never merged
	require.Len(t, session.Events, 3)
	require.NotNil(t, session.Events[0].Cost)
	assert.InDelta(t, 0.25, *session.Events[0].Cost, 1e-12)
	assert.Equal(t, model.TokenTotals{Input: 7, Output: 6, CacheRead: 7, CacheWrite: 8}, session.Totals())
}

func TestParseKeepsLastLinePerMessage(t *testing.T) {
	b := fixtures.NewClaudeSession("dup").
		Start(base).
		Assistant("msg_1", model.ModelSonnet45, base.Add(time.Minute), fixtures.Usage{Input: 100, Output: 1}).
		Assistant("msg_2", model.ModelSonnet45, base.Add(2*time.Minute), fixtures.Usage{Input: 5}).
		Assistant("msg_1", model.ModelSonnet45, base.Add(3*time.Minute), fixtures.Usage{Input: 7, Output: 300, CacheRead: 9})
	path := writeSession(t, "p", b)

	session, err := NewParser(1).ParseFile(path)
	require.NoError(t, err)
	require.Len(t, session.Events, 2)

	// the streamed update moves msg_1 after msg_2 in time
	assert.Equal(t, "msg_2", session.Events[0].MessageID)
	last := session.Events[1]
	assert.Equal(t, "msg_1", last.MessageID)
	assert.Equal(t, 7, last.InputTokens)
	assert.Equal(t, 300, last.OutputTokens)
	assert.Equal(t, 9, last.CacheReadTokens)
}

func TestParseIsIdempotent(t *testing.T) {
	b := fixtures.NewClaudeSession("same").
		Start(base).
		Assistant("a", model.ModelOpus46, base.Add(time.Minute), fixtures.Usage{Input: 1, Output: 2, CacheRead: 3, CacheWrite: 4}).
		Assistant("b", model.ModelHaiku45, base.Add(time.Minute), fixtures.Usage{Input: 9}).
		Assistant("a", model.ModelOpus46, base.Add(90*time.Second), fixtures.Usage{Input: 10, Output: 20})
	path := writeSession(t, "p", b)

	parser := NewParser(1)
	first, err := parser.ParseFile(path)
	require.NoError(t, err)
	second, err := parser.ParseFile(path)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestParseSkipsMalformedLines(t *testing.T) {
	b := fixtures.NewClaudeSession("messy").
		Raw("not json at all").
		Start(base).
		Raw(`{"type":"assistant","message":"oops"}`).
		Raw(``).
		Raw(`{"type":"assistant","timestamp":"2026-10-03T09:05:00Z","message":{"id":"x","model":"claude-sonnet-4-5","usage":{"input_tokens":"abc","output_tokens":12}}}`).
		Raw(`{"type":"assistant","timestamp":"2026-10-03T09:06:00Z","message":{"id":"no-usage","model":"claude-sonnet-4-5"}}`)
	path := writeSession(t, "p", b)

	session, err := NewParser(1).ParseFile(path)
	require.NoError(t, err)
	require.Len(t, session.Events, 1)
	assert.Equal(t, 0, session.Events[0].InputTokens)
	assert.Equal(t, 12, session.Events[0].OutputTokens)
}

func TestParseDefaultsMissingTimestampToNow(t *testing.T) {
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	input := `{"type":"assistant","timestamp":"yesterday","message":{"id":"m","model":"claude-opus-4-6","usage":{"input_tokens":1}}}
{"type":"assistant","message":{"id":"n","model":"","usage":{"input_tokens":2}}}`

	session, err := NewParser(1).
		WithClock(func() time.Time { return now }).
		Parse(strings.NewReader(input), "/tmp/s.jsonl")
	require.NoError(t, err)
	require.Len(t, session.Events, 2)
	for _, e := range session.Events {
		assert.True(t, now.Equal(e.Timestamp))
	}
	assert.Equal(t, model.UnknownModel, session.Events[1].Model)
	assert.Nil(t, session.StartTime)
	assert.Equal(t, "s", session.SessionID)
}

func TestParseStartTimeUsesFirstValidUserLine(t *testing.T) {
	input := `{"type":"user","timestamp":"garbage"}
{"type":"user","timestamp":"2026-10-03T09:00:00.123Z"}
{"type":"user","timestamp":"2026-10-03T10:00:00Z"}`

	session, err := NewParser(1).Parse(strings.NewReader(input), "s.jsonl")
	require.NoError(t, err)
	require.NotNil(t, session.StartTime)
	assert.Equal(t, 123*time.Millisecond, time.Duration(session.StartTime.Nanosecond()))
	assert.Equal(t, 9, session.StartTime.Hour())
	assert.Empty(t, session.Events)
}

func TestParseFileNoSession(t *testing.T) {
	dir := t.TempDir()

	_, err := NewParser(1).ParseFile(filepath.Join(dir, "missing.jsonl"))
	assert.True(t, errors.Is(err, ErrNoSession))

	empty := filepath.Join(dir, "empty.jsonl")
	require.NoError(t, os.WriteFile(empty, nil, 0644))
	_, err = NewParser(1).ParseFile(empty)
	assert.True(t, errors.Is(err, ErrNoSession))

	binary := filepath.Join(dir, "binary.jsonl")
	require.NoError(t, os.WriteFile(binary, []byte{0xff, 0xfe, 0x00, 0x01, '\n', 0x80}, 0644))
	_, err = NewParser(1).ParseFile(binary)
	assert.True(t, errors.Is(err, ErrNoSession))
}

func TestParseFilesConcurrently(t *testing.T) {
	gen := fixtures.NewTestDataGenerator(t.TempDir())
	var files []string
	for _, id := range []string{"s1", "s2", "s3"} {
		path, err := gen.Write("proj", fixtures.NewClaudeSession(id).
			Start(base).
			Assistant("m", model.ModelSonnet45, base.Add(time.Minute), fixtures.Usage{Input: 1}))
		require.NoError(t, err)
		files = append(files, path)
	}
	files = append(files, filepath.Join(t.TempDir(), "gone.jsonl"))

	seen := map[string]bool{}
	failures := 0
	for result := range NewParser(2).ParseFiles(files) {
		if result.Error != nil {
			failures++
			continue
		}
		seen[result.Session.SessionID] = true
	}

	assert.Equal(t, 1, failures)
	assert.Equal(t, map[string]bool{"s1": true, "s2": true, "s3": true}, seen)
}

func TestProjectName(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/home/u/.claude/projects/-Users-me-code/abc.jsonl", "-Users-me-code"},
		{"/home/u/.openclaw/agents/main/sessions/abc.jsonl", "main"},
		{"/logs/team/123e4567-e89b-12d3-a456-426614174000/x.jsonl", "team/123e4567-e89b-12d3-a456-426614174000"},
		{"/logs/projects/123e4567-e89b-12d3-a456-426614174000/x.jsonl", "123e4567-e89b-12d3-a456-426614174000"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ProjectName(tt.path), tt.path)
	}
}
