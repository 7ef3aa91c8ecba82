package model

// Log entry types
const (
	EntrySession   = "session"
	EntryUser      = "user"
	EntryAssistant = "assistant"
	EntryMessage   = "message"
)

// Message roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Model identifiers used in tests and the built-in rate card
const (
	ModelOpus46   = "claude-opus-4-6"
	ModelOpus45   = "claude-opus-4-5"
	ModelSonnet45 = "claude-sonnet-4-5"
	ModelHaiku45  = "claude-haiku-4-5"
)

// UnknownModel is reported when a session has no priced events.
const UnknownModel = "unknown"
