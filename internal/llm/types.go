package llm

import "log/slog"

// LevelTrace is below Debug, used for wire-level payload logging.
const LevelTrace = slog.Level(-8)

// Message is one turn of a conversation transcript.
type Message struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// Sampling parameters shared by all providers.
const (
	defaultTemperature = 0.7
	defaultMaxTokens   = 500
)

// tail returns up to n most recent messages.
func tail(history []Message, n int) []Message {
	if len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}
