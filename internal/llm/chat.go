package llm

import (
	"context"
	"fmt"
	"time"

	"bear-kitchen/internal/config"
	"bear-kitchen/internal/shared"

	"github.com/go-resty/resty/v2"
)

// ChatClient talks to an OpenAI-compatible chat completions endpoint.
type ChatClient struct {
	http  *resty.Client
	url   string
	model string
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	Temperature    float64           `json:"temperature"`
	ResponseFormat map[string]string `json:"response_format"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// NewChatClient creates a client for cfg.TextAIURL.
func NewChatClient(cfg *config.Config) *ChatClient {
	timeout := cfg.NetworkTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	client := resty.New().
		SetHeader("Content-Type", "application/json").
		SetTimeout(timeout)
	if cfg.TextAIKey != "" {
		client.SetAuthToken(cfg.TextAIKey)
	}

	return &ChatClient{http: client, url: cfg.TextAIURL, model: cfg.TextAIModel}
}

// GenerateContent sends a prompt to the chat model and returns the generated text.
func (c *ChatClient) GenerateContent(ctx context.Context, prompt string) (ContentResponse, error) {
	body := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "user", Content: prompt},
		},
		Temperature:    0.1,
		ResponseFormat: map[string]string{"type": "json_object"},
	}

	var out chatResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&out).
		ForceContentType("application/json").
		Post(c.url)
	if err != nil {
		return ContentResponse{}, fmt.Errorf("failed to send request: %w: %w", shared.ErrNetwork, err)
	}
	if resp.StatusCode() != 200 {
		return ContentResponse{}, fmt.Errorf("chat api error: status=%d body=%s: %w",
			resp.StatusCode(), resp.String(), shared.ErrNetwork)
	}

	if len(out.Choices) == 0 {
		return ContentResponse{}, fmt.Errorf("no content generated: %w", shared.ErrParse)
	}

	model := out.Model
	if model == "" {
		model = c.model
	}
	return ContentResponse{
		Content: out.Choices[0].Message.Content,
		Usage: shared.TokenUsage{
			PromptTokens:     out.Usage.PromptTokens,
			CompletionTokens: out.Usage.CompletionTokens,
			TotalTokens:      out.Usage.TotalTokens,
			Model:            model,
		},
	}, nil
}
