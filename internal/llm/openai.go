package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/tharoslabs/superintendent/internal/httpkit"
)

const openaiAPIURL = "https://api.openai.com/v1/chat/completions"

// openaiHistoryWindow is how many stored messages are replayed per
// request.
const openaiHistoryWindow = 5

// OpenAIClient is a client for the OpenAI chat completions API.
type OpenAIClient struct {
	apiKey     string
	model      string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewOpenAIClient creates a new OpenAI client.
func NewOpenAIClient(apiKey, model string, logger *slog.Logger) *OpenAIClient {
	if logger == nil {
		logger = slog.Default()
	}
	// Completions can take a while before headers arrive. Rely on ctx
	// deadlines for overall timeout control.
	t := httpkit.NewTransport()
	t.ResponseHeaderTimeout = 120 * time.Second

	return &OpenAIClient{
		apiKey: apiKey,
		model:  model,
		logger: logger.With("provider", "openai"),
		httpClient: httpkit.NewClient(
			httpkit.WithTimeout(0),
			httpkit.WithTransport(t),
		),
	}
}

// Chat completions wire types, shared with the DeepSeek client.

type chatCompletionsRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

type chatCompletionsResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

// Model returns the configured model identifier.
func (c *OpenAIClient) Model() string { return c.model }

// Complete sends a chat completion request.
func (c *OpenAIClient) Complete(ctx context.Context, system string, history []Message, user string) (string, error) {
	return completeChatCompletions(ctx, c.httpClient, c.logger, "openai", openaiAPIURL, c.apiKey, c.model, system, history, user)
}

// completeChatCompletions implements the OpenAI-compatible wire
// protocol: a system message, a recency window of the transcript, then
// the new user message.
func completeChatCompletions(ctx context.Context, httpClient *http.Client, logger *slog.Logger, provider, url, apiKey, model, system string, history []Message, user string) (string, error) {
	window := tail(history, openaiHistoryWindow)

	messages := make([]Message, 0, len(window)+2)
	messages = append(messages, Message{Role: "system", Content: system})
	messages = append(messages, window...)
	messages = append(messages, Message{Role: "user", Content: user})

	req := chatCompletionsRequest{
		Model:       model,
		Messages:    messages,
		Temperature: defaultTemperature,
		MaxTokens:   defaultMaxTokens,
	}

	jsonData, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	logger.Debug("preparing request", "model", model, "messages", len(messages))
	logger.Log(ctx, LevelTrace, "request payload", "json", string(jsonData))

	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody := httpkit.ReadErrorBody(resp.Body, 4096)
		logger.Error("API error", "status", resp.StatusCode, "body", errBody)
		return "", newProviderError(provider, resp.StatusCode, errBody)
	}

	var parsed chatCompletionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%s: empty choices in response", provider)
	}

	content := parsed.Choices[0].Message.Content
	logger.Debug("response received", "content_len", len(content))
	logger.Log(ctx, LevelTrace, "response content", "content", content)

	return content, nil
}
