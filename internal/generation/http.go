package generation

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// DefaultTimeout bounds one generation request.
const DefaultTimeout = 30 * time.Second

// HTTPClient implements Client against the generation service REST API.
type HTTPClient struct {
	client *resty.Client
}

// NewHTTPClient creates a generation service client.
func NewHTTPClient(baseURL, apiKey string) *HTTPClient {
	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(DefaultTimeout)
	if apiKey != "" {
		client.SetAuthToken(apiKey)
	}
	return &HTTPClient{client: client}
}

// Compile-time interface check.
var _ Client = (*HTTPClient)(nil)

type generateRequest struct {
	Prompt        string   `json:"prompt"`
	RecentHistory []string `json:"recent_history,omitempty"`
}

type replyRequest struct {
	Prompt       string `json:"prompt"`
	IncomingText string `json:"incoming_text"`
	AuthorHandle string `json:"author_handle"`
}

type generateResponse struct {
	Text string `json:"text"`
}

// Generate produces standalone content from the agent's prompt.
func (c *HTTPClient) Generate(ctx context.Context, prompt string, recentHistory []string) (string, error) {
	var result generateResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(generateRequest{Prompt: prompt, RecentHistory: recentHistory}).
		SetResult(&result).
		Post("/v1/generate")
	if err != nil {
		return "", fmt.Errorf("generation request: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("generation service status %d", resp.StatusCode())
	}
	// Empty text is the service's "no usable output" signal, passed
	// through as-is.
	return result.Text, nil
}

// GenerateReply produces a contextual reply to an inbound message.
func (c *HTTPClient) GenerateReply(ctx context.Context, prompt, incomingText, authorHandle string) (string, error) {
	var result generateResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(replyRequest{Prompt: prompt, IncomingText: incomingText, AuthorHandle: authorHandle}).
		SetResult(&result).
		Post("/v1/reply")
	if err != nil {
		return "", fmt.Errorf("reply generation request: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("generation service status %d", resp.StatusCode())
	}
	return result.Text, nil
}
