package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

type geminiClient struct {
	apiKey  string
	model   string
	baseURL string
	t       transport
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPayload struct {
	SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
	GenerationConfig  struct {
		Temperature     float64 `json:"temperature"`
		MaxOutputTokens int     `json:"maxOutputTokens"`
	} `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

type geminiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func (c *geminiClient) Name() string { return c.model }

func (c *geminiClient) Generate(ctx context.Context, req Request) (Response, error) {
	if err := validate(&req, c.t.logger); err != nil {
		return Response{}, err
	}

	var payload geminiPayload
	if req.System != "" {
		payload.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: req.System}}}
	}
	for _, m := range req.Messages {
		role := m.Role
		if role == "assistant" {
			role = "model"
		}
		payload.Contents = append(payload.Contents, geminiContent{Role: role, Parts: []geminiPart{{Text: m.Content}}})
	}
	payload.GenerationConfig.Temperature = float64(req.Temperature)
	payload.GenerationConfig.MaxOutputTokens = maxTokens(req.MaxTokens)

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, url.PathEscape(c.model))
	data, err := c.t.post(ctx, endpoint, map[string]string{
		"x-goog-api-key": c.apiKey,
	}, payload, func(body []byte) string {
		var e geminiError
		if json.Unmarshal(body, &e) != nil || e.Error.Message == "" {
			return ""
		}
		return e.Error.Message + " (status: " + e.Error.Status + ")"
	})
	if err != nil {
		return Response{}, err
	}

	var r geminiResponse
	if err := json.Unmarshal(data, &r); err != nil {
		return Response{}, fmt.Errorf("parse response: %w", err)
	}
	if r.PromptFeedback.BlockReason != "" {
		return Response{}, fmt.Errorf("prompt blocked: %s", r.PromptFeedback.BlockReason)
	}
	if len(r.Candidates) == 0 {
		return Response{}, errors.New("no candidates in response")
	}
	var b strings.Builder
	for _, p := range r.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	if b.Len() == 0 {
		return Response{}, fmt.Errorf("empty response content (finish reason %q)", r.Candidates[0].FinishReason)
	}
	c.t.logger.Debug().Str("finish_reason", r.Candidates[0].FinishReason).Int("response_length", b.Len()).Msg("API success")
	return Response{Text: b.String()}, nil
}
