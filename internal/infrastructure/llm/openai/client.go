package openai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/kirillkom/writing-assistant/internal/core/domain"
	"github.com/kirillkom/writing-assistant/internal/infrastructure/llm"
)

// Client sends completions to an OpenAI-compatible chat endpoint.
type Client struct {
	client *goopenai.Client
	model  string
}

func New(apiKey, baseURL, model string) *Client {
	cfg := goopenai.DefaultConfig(apiKey)
	if strings.TrimSpace(baseURL) != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return &Client{
		client: goopenai.NewClientWithConfig(cfg),
		model:  model,
	}
}

func (c *Client) Complete(ctx context.Context, req domain.CompletionRequest) (string, error) {
	messages := make([]goopenai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleSystem, Content: req.System})
	}
	messages = append(messages, goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleUser, Content: req.Prompt})

	chatReq := goopenai.ChatCompletionRequest{
		Model:     c.model,
		Messages:  messages,
		MaxTokens: req.MaxTokens,
	}
	if req.Temperature != nil {
		chatReq.Temperature = float32(*req.Temperature)
		if chatReq.Temperature == 0 {
			// A zero value is dropped by omitempty.
			chatReq.Temperature = math.SmallestNonzeroFloat32
		}
	}
	if req.JSON {
		chatReq.ResponseFormat = &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := c.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return "", translateError(err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai chat completion: no choices returned")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// translateError exposes the HTTP status of provider failures so the shared
// classifier can decide on retries.
func translateError(err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode > 0 {
		return &llm.HTTPStatusError{
			Provider:   "openai",
			Operation:  "chat",
			StatusCode: apiErr.HTTPStatusCode,
			Status:     statusText(apiErr.HTTPStatusCode),
			Body:       apiErr.Message,
			Err:        err,
		}
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode > 0 {
		return &llm.HTTPStatusError{
			Provider:   "openai",
			Operation:  "chat",
			StatusCode: reqErr.HTTPStatusCode,
			Status:     statusText(reqErr.HTTPStatusCode),
			Body:       string(reqErr.Body),
			Err:        err,
		}
	}
	return fmt.Errorf("openai chat completion: %w", err)
}

func statusText(code int) string {
	return fmt.Sprintf("%d %s", code, http.StatusText(code))
}
