package llm

import "fmt"

// ErrorType classifies provider failures for response mapping.
type ErrorType string

const (
	ErrorTypeAuth         ErrorType = "auth"          // 401/403 - bad or missing API key
	ErrorTypeRateLimit    ErrorType = "rate_limit"    // 429 - too many requests
	ErrorTypeProviderDown ErrorType = "provider_down" // 5xx - upstream issue
	ErrorTypeBadRequest   ErrorType = "bad_request"   // 4xx - malformed request
	ErrorTypeUnknown      ErrorType = "unknown"       // Fallback
)

// ProviderError is a structured error returned by LLM clients.
type ProviderError struct {
	Type       ErrorType
	Provider   string // "openai", "gemini", "deepseek"
	StatusCode int
	Message    string // Truncated upstream error body
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: API error %d: %s", e.Provider, e.StatusCode, e.Message)
}

// newProviderError classifies an HTTP error response by status code.
func newProviderError(provider string, status int, body string) *ProviderError {
	t := ErrorTypeUnknown
	switch {
	case status == 401 || status == 403:
		t = ErrorTypeAuth
	case status == 429:
		t = ErrorTypeRateLimit
	case status >= 500:
		t = ErrorTypeProviderDown
	case status >= 400:
		t = ErrorTypeBadRequest
	}
	return &ProviderError{
		Type:       t,
		Provider:   provider,
		StatusCode: status,
		Message:    body,
	}
}
