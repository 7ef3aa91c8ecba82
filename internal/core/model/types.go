package model

import (
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
)

// LogLine is one line of a session log. Claude Code and OpenClaw share the
// envelope; usage naming differs and both spellings are decoded.
type LogLine struct {
	Type      string      `json:"type"`
	ID        string      `json:"id,omitempty"`
	SessionId string      `json:"sessionId,omitempty"`
	Timestamp string      `json:"timestamp"`
	Message   *LogMessage `json:"message,omitempty"`
}

type LogMessage struct {
	Id    string    `json:"id,omitempty"`
	Model string    `json:"model,omitempty"`
	Role  string    `json:"role,omitempty"`
	Usage *LogUsage `json:"usage,omitempty"`
}

type LogUsage struct {
	// Claude Code spelling
	InputTokens              FlexInt `json:"input_tokens"`
	OutputTokens             FlexInt `json:"output_tokens"`
	CacheReadInputTokens     FlexInt `json:"cache_read_input_tokens"`
	CacheCreationInputTokens FlexInt `json:"cache_creation_input_tokens"`

	// OpenClaw spelling
	Input      FlexInt `json:"input"`
	Output     FlexInt `json:"output"`
	CacheRead  FlexInt `json:"cacheRead"`
	CacheWrite FlexInt `json:"cacheWrite"`

	Cost *LogCost `json:"cost,omitempty"`
}

// LogCost is the pre-computed cost OpenClaw writes next to the usage.
type LogCost struct {
	Total *FlexFloat `json:"total,omitempty"`
}

// Tokens returns the four token classes, preferring the Claude Code
// spelling when both are present.
func (u *LogUsage) Tokens() (input, output, cacheRead, cacheWrite int) {
	input = pick(u.InputTokens, u.Input)
	output = pick(u.OutputTokens, u.Output)
	cacheRead = pick(u.CacheReadInputTokens, u.CacheRead)
	cacheWrite = pick(u.CacheCreationInputTokens, u.CacheWrite)
	return
}

// PrecomputedCost returns the logged cost total, if any.
func (u *LogUsage) PrecomputedCost() (float64, bool) {
	if u.Cost == nil || u.Cost.Total == nil {
		return 0, false
	}
	return float64(*u.Cost.Total), true
}

func pick(primary, fallback FlexInt) int {
	if primary != 0 {
		return int(primary)
	}
	return int(fallback)
}

// FlexInt decodes a token count from a number or numeric string. Anything
// else (null, bool, garbage, negative) decodes as zero instead of failing
// the whole line.
type FlexInt int

func (f *FlexInt) UnmarshalJSON(data []byte) error {
	*f = 0

	var n float64
	if err := sonic.Unmarshal(data, &n); err == nil {
		if n > 0 {
			*f = FlexInt(n)
		}
		return nil
	}

	var s string
	if err := sonic.Unmarshal(data, &s); err == nil {
		if v, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil && v > 0 {
			*f = FlexInt(v)
		}
	}
	return nil
}

// FlexFloat decodes a dollar amount from a number or numeric string,
// defaulting to zero.
type FlexFloat float64

func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	*f = 0

	var n float64
	if err := sonic.Unmarshal(data, &n); err == nil {
		*f = FlexFloat(n)
		return nil
	}

	var s string
	if err := sonic.Unmarshal(data, &s); err == nil {
		if v, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			*f = FlexFloat(v)
		}
	}
	return nil
}
