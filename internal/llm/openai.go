package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

type openAIClient struct {
	apiKey  string
	model   string
	baseURL string
	t       transport
}

type openAIPayload struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Temperature float64         `json:"temperature"`
	MaxTokens   int             `json:"max_tokens"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

func (c *openAIClient) Name() string { return c.model }

func (c *openAIClient) Generate(ctx context.Context, req Request) (Response, error) {
	if err := validate(&req, c.t.logger); err != nil {
		return Response{}, err
	}

	// the system prompt travels as the first message
	messages := make([]openAIMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, openAIMessage{Role: "system", Content: req.System})
	}
	for _, m := range req.Messages {
		messages = append(messages, openAIMessage{Role: m.Role, Content: m.Content})
	}
	payload := openAIPayload{
		Model:       c.model,
		Messages:    messages,
		Temperature: float64(req.Temperature),
		MaxTokens:   maxTokens(req.MaxTokens),
	}

	data, err := c.t.post(ctx, c.baseURL+"/v1/chat/completions", map[string]string{
		"Authorization": "Bearer " + c.apiKey,
	}, payload, func(body []byte) string {
		var r openAIResponse
		if json.Unmarshal(body, &r) != nil || r.Error == nil {
			return ""
		}
		return r.Error.Message + " (type: " + r.Error.Type + ")"
	})
	if err != nil {
		return Response{}, err
	}

	var r openAIResponse
	if err := json.Unmarshal(data, &r); err != nil {
		return Response{}, fmt.Errorf("parse response: %w (raw: %s)", err, truncate(string(data), maxErrorBody))
	}
	if len(r.Choices) == 0 {
		return Response{}, errors.New("no choices in response")
	}
	choice := r.Choices[0]
	if choice.Message.Content == "" {
		return Response{}, errors.New("empty response content")
	}
	c.t.logger.Debug().
		Str("finish_reason", choice.FinishReason).
		Int("prompt_tokens", r.Usage.PromptTokens).
		Int("completion_tokens", r.Usage.CompletionTokens).
		Str("response_preview", truncate(choice.Message.Content, 200)).
		Msg("API success")
	return Response{Text: choice.Message.Content}, nil
}
