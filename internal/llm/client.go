package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderGemini    = "gemini"

	defaultTimeout   = 60 * time.Second
	defaultMaxTokens = 2048
	retryBaseDelay   = 500 * time.Millisecond
	maxRequestSize   = 200000 // ~200KB limit for safety
	maxErrorBody     = 500
)

type Client interface {
	Generate(ctx context.Context, req Request) (Response, error)
	Name() string
}

type Request struct {
	System      string
	Messages    []Message
	Temperature float32
	MaxTokens   int
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// User is a convenience for single-turn requests.
func User(content string) Message { return Message{Role: "user", Content: content} }

type Response struct {
	Text string
}

// Config selects and configures a provider. Empty APIKey and Model fall
// back to the provider's environment variables.
type Config struct {
	Provider   string
	Model      string
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
}

type providerInfo struct {
	envKey       string
	envModel     string
	defaultModel string
	defaultURL   string
}

var providers = map[string]providerInfo{
	ProviderAnthropic: {
		envKey:       "ANTHROPIC_API_KEY",
		envModel:     "ANTHROPIC_MODEL",
		defaultModel: "claude-sonnet-4-5-20250929",
		defaultURL:   "https://api.anthropic.com",
	},
	ProviderOpenAI: {
		envKey:       "OPENAI_API_KEY",
		envModel:     "OPENAI_MODEL",
		defaultModel: "gpt-4o-mini",
		defaultURL:   "https://api.openai.com",
	},
	ProviderGemini: {
		envKey:       "GEMINI_API_KEY",
		envModel:     "GEMINI_MODEL",
		defaultModel: "gemini-1.5-flash",
		defaultURL:   "https://generativelanguage.googleapis.com",
	},
}

// New builds the client for cfg.Provider.
func New(cfg Config, logger zerolog.Logger) (Client, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" {
		provider = ProviderGemini
	}
	info, ok := providers[provider]
	if !ok {
		return nil, fmt.Errorf("unknown LLM provider: %s (use 'anthropic', 'openai' or 'gemini')", provider)
	}

	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		key = strings.TrimSpace(os.Getenv(info.envKey))
	}
	if key == "" {
		return nil, fmt.Errorf("missing %s", info.envKey)
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = strings.TrimSpace(os.Getenv(info.envModel))
	}
	if model == "" {
		model = info.defaultModel
	}
	model = strings.Trim(model, "\"'")

	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = info.defaultURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	t := transport{
		name:       provider,
		http:       &http.Client{Timeout: timeout},
		maxRetries: max(cfg.MaxRetries, 0),
		logger:     logger.With().Str("provider", provider).Str("model", model).Logger(),
	}
	switch provider {
	case ProviderAnthropic:
		return &anthropicClient{apiKey: key, model: model, baseURL: base, t: t}, nil
	case ProviderOpenAI:
		return &openAIClient{apiKey: key, model: model, baseURL: base, t: t}, nil
	default:
		return &geminiClient{apiKey: key, model: model, baseURL: base, t: t}, nil
	}
}

// validate rejects empty requests and truncates oversized content in place.
func validate(req *Request, logger zerolog.Logger) error {
	if len(req.Messages) == 0 {
		return errors.New("no messages")
	}
	for i, m := range req.Messages {
		if len(m.Content) > maxRequestSize {
			logger.Warn().Int("message_idx", i).Int("size", len(m.Content)).Msg("message too large, truncating")
			req.Messages[i].Content = m.Content[:maxRequestSize] + "... [truncated]"
		}
	}
	if len(req.System) > maxRequestSize {
		logger.Warn().Int("size", len(req.System)).Msg("system prompt too large, truncating")
		req.System = req.System[:maxRequestSize] + "... [truncated]"
	}
	return nil
}

// apiError is a non-2xx reply. Retryable covers rate limits and server
// errors.
type apiError struct {
	Provider string
	Status   int
	Message  string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("%s %d: %s", e.Provider, e.Status, e.Message)
}

func (e *apiError) retryable() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= 500
}

type transport struct {
	name       string
	http       *http.Client
	maxRetries int
	logger     zerolog.Logger
}

// post sends payload as JSON and returns the 2xx body. parseErr extracts the
// provider's error message from a failed reply body.
func (t transport) post(ctx context.Context, url string, headers map[string]string, payload any, parseErr func([]byte) string) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= t.maxRetries; attempt++ {
		if attempt > 0 {
			delay := retryBaseDelay * time.Duration(1<<uint(attempt-1))
			t.logger.Info().Int("attempt", attempt).Dur("delay", delay).Msg("retrying API call")
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		t.logger.Debug().Int("payload_size", len(body)).Int("attempt", attempt).Msg("API request")
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		for k, v := range headers {
			httpReq.Header.Set(k, v)
		}

		resp, err := t.http.Do(httpReq)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}
		data, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}
		t.logger.Debug().Int("status", resp.StatusCode).Int("response_size", len(data)).Msg("API response")

		if resp.StatusCode >= 400 {
			msg := parseErr(data)
			if msg == "" {
				msg = truncate(string(data), maxErrorBody)
			}
			apiErr := &apiError{Provider: t.name, Status: resp.StatusCode, Message: msg}
			t.logger.Error().Int("status", resp.StatusCode).Str("error_msg", msg).Int("attempt", attempt).Msg("API error")
			if !apiErr.retryable() {
				return nil, apiErr
			}
			lastErr = apiErr
			continue
		}
		return data, nil
	}
	if t.maxRetries == 0 {
		return nil, lastErr
	}
	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
