package llm

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/tharoslabs/superintendent/internal/httpkit"
)

const deepseekAPIURL = "https://api.deepseek.com/v1/chat/completions"

// DeepSeekClient talks to the DeepSeek API, which speaks the OpenAI
// chat completions protocol.
type DeepSeekClient struct {
	apiKey     string
	model      string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewDeepSeekClient creates a new DeepSeek client.
func NewDeepSeekClient(apiKey, model string, logger *slog.Logger) *DeepSeekClient {
	if logger == nil {
		logger = slog.Default()
	}
	t := httpkit.NewTransport()
	t.ResponseHeaderTimeout = 120 * time.Second

	return &DeepSeekClient{
		apiKey: apiKey,
		model:  model,
		logger: logger.With("provider", "deepseek"),
		httpClient: httpkit.NewClient(
			httpkit.WithTimeout(0),
			httpkit.WithTransport(t),
		),
	}
}

// Model returns the configured model identifier.
func (c *DeepSeekClient) Model() string { return c.model }

// Complete sends a chat completion request.
func (c *DeepSeekClient) Complete(ctx context.Context, system string, history []Message, user string) (string, error) {
	return completeChatCompletions(ctx, c.httpClient, c.logger, "deepseek", deepseekAPIURL, c.apiKey, c.model, system, history, user)
}
