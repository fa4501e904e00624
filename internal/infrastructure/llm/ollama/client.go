package ollama

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/writing-assistant/internal/core/domain"
)

// Client talks to a self-hosted Ollama server through /api/generate.
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

func New(baseURL, model string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

type generateOptions struct {
	Temperature *float64 `json:"temperature,omitempty"`
	NumPredict  int      `json:"num_predict,omitempty"`
}

type generateRequest struct {
	Model   string           `json:"model"`
	Prompt  string           `json:"prompt"`
	System  string           `json:"system,omitempty"`
	Stream  bool             `json:"stream"`
	Format  string           `json:"format,omitempty"`
	Options *generateOptions `json:"options,omitempty"`
}

func (c *Client) Complete(ctx context.Context, req domain.CompletionRequest) (string, error) {
	body := generateRequest{
		Model:  c.model,
		Prompt: req.Prompt,
		System: req.System,
		Stream: false,
	}
	if req.JSON {
		body.Format = "json"
	}
	if req.Temperature != nil || req.MaxTokens > 0 {
		body.Options = &generateOptions{
			Temperature: req.Temperature,
			NumPredict:  req.MaxTokens,
		}
	}

	var response struct {
		Response string `json:"response"`
	}
	if err := c.postJSON(ctx, "/api/generate", body, &response, "generate"); err != nil {
		return "", err
	}
	return strings.TrimSpace(response.Response), nil
}
