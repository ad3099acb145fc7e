// Package llm provides LLM provider client implementations.
package llm

import "context"

// Client is the interface every provider backend implements.
type Client interface {
	// Complete sends the conversation to the provider and returns the
	// assistant's reply text. history is the full stored transcript;
	// each provider applies its own recency window before sending.
	Complete(ctx context.Context, system string, history []Message, user string) (string, error)

	// Model returns the model identifier requests are sent with.
	Model() string
}
