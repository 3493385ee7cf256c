package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

const anthropicVersion = "2023-06-01"

type anthropicClient struct {
	apiKey  string
	model   string
	baseURL string
	t       transport
}

type anthropicPayload struct {
	Model       string             `json:"model"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature"`
}

type anthropicMessage struct {
	Role    string             `json:"role"`
	Content []anthropicContent `json:"content"`
}

type anthropicContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type anthropicResponse struct {
	Content    []anthropicContent `json:"content"`
	StopReason string             `json:"stop_reason"`
}

type anthropicError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *anthropicClient) Name() string { return c.model }

func (c *anthropicClient) Generate(ctx context.Context, req Request) (Response, error) {
	if err := validate(&req, c.t.logger); err != nil {
		return Response{}, err
	}

	payload := anthropicPayload{
		Model:       c.model,
		System:      req.System,
		MaxTokens:   maxTokens(req.MaxTokens),
		Temperature: float64(req.Temperature),
	}
	for _, m := range req.Messages {
		payload.Messages = append(payload.Messages, anthropicMessage{
			Role:    m.Role,
			Content: []anthropicContent{{Type: "text", Text: m.Content}},
		})
	}

	data, err := c.t.post(ctx, c.baseURL+"/v1/messages", map[string]string{
		"x-api-key":         c.apiKey,
		"anthropic-version": anthropicVersion,
	}, payload, func(body []byte) string {
		var e anthropicError
		if json.Unmarshal(body, &e) != nil || e.Error.Message == "" {
			return ""
		}
		return e.Error.Message + " (type: " + e.Error.Type + ")"
	})
	if err != nil {
		return Response{}, err
	}

	var ar anthropicResponse
	if err := json.Unmarshal(data, &ar); err != nil {
		return Response{}, fmt.Errorf("parse response: %w", err)
	}
	var b strings.Builder
	for _, content := range ar.Content {
		if content.Type == "text" {
			b.WriteString(content.Text)
		}
	}
	if b.Len() == 0 {
		return Response{}, fmt.Errorf("empty response content (stop reason %q)", ar.StopReason)
	}
	c.t.logger.Debug().Int("response_length", b.Len()).Msg("API success")
	return Response{Text: b.String()}, nil
}

func maxTokens(n int) int {
	if n <= 0 {
		return defaultMaxTokens
	}
	return n
}
