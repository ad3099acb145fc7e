package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tharoslabs/superintendent/internal/httpkit"
)

const geminiAPIBase = "https://generativelanguage.googleapis.com/v1beta/models"

// geminiHistoryWindow is smaller than the chat completions window; the
// transcript is inlined into a single prompt rather than sent as
// structured turns.
const geminiHistoryWindow = 3

// GeminiClient is a client for the Gemini generateContent API.
type GeminiClient struct {
	apiKey     string
	model      string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewGeminiClient creates a new Gemini client.
func NewGeminiClient(apiKey, model string, logger *slog.Logger) *GeminiClient {
	if logger == nil {
		logger = slog.Default()
	}
	t := httpkit.NewTransport()
	t.ResponseHeaderTimeout = 120 * time.Second

	return &GeminiClient{
		apiKey: apiKey,
		model:  model,
		logger: logger.With("provider", "gemini"),
		httpClient: httpkit.NewClient(
			httpkit.WithTimeout(0),
			httpkit.WithTransport(t),
		),
	}
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// Model returns the configured model identifier.
func (c *GeminiClient) Model() string { return c.model }

// Complete sends a generateContent request. Gemini has no system role,
// so the system prompt and recent transcript are folded into one
// text prompt.
func (c *GeminiClient) Complete(ctx context.Context, system string, history []Message, user string) (string, error) {
	prompt := c.buildPrompt(system, history, user)

	req := geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
		GenerationConfig: geminiGenerationConfig{
			Temperature:     defaultTemperature,
			MaxOutputTokens: defaultMaxTokens,
		},
	}

	jsonData, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	c.logger.Debug("preparing request", "model", c.model, "prompt_len", len(prompt))
	c.logger.Log(ctx, LevelTrace, "request payload", "json", string(jsonData))

	endpoint := fmt.Sprintf("%s/%s:generateContent?key=%s", geminiAPIBase, c.model, url.QueryEscape(c.apiKey))
	httpReq, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody := httpkit.ReadErrorBody(resp.Body, 4096)
		c.logger.Error("API error", "status", resp.StatusCode, "body", errBody)
		return "", newProviderError("gemini", resp.StatusCode, errBody)
	}

	var parsed geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini: empty candidates in response")
	}

	var text strings.Builder
	for _, part := range parsed.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}

	c.logger.Debug("response received", "content_len", text.Len())
	c.logger.Log(ctx, LevelTrace, "response content", "content", text.String())

	return text.String(), nil
}

func (c *GeminiClient) buildPrompt(system string, history []Message, user string) string {
	window := tail(history, geminiHistoryWindow)
	if len(window) == 0 {
		return fmt.Sprintf("%s\n\nUser: %s", system, user)
	}

	lines := make([]string, 0, len(window))
	for _, m := range window {
		lines = append(lines, fmt.Sprintf("%s: %s", m.Role, m.Content))
	}
	return fmt.Sprintf("%s\n\nPrevious context:\n%s\n\nUser: %s", system, strings.Join(lines, "\n"), user)
}
