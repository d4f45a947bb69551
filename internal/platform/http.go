package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Default configuration values.
const (
	DefaultTimeout    = 15 * time.Second
	DefaultMaxRetries = 2
	DefaultRetryDelay = 500 * time.Millisecond
	DefaultMaxDelay   = 5 * time.Second
	DefaultRetryAfter = 15 * time.Minute
)

// HTTPClient implements Client over the platform's JSON REST API.
// Transient failures (network, 5xx) are retried with exponential
// backoff; auth and rate-limit responses are mapped to typed errors and
// never retried here — that policy belongs to the calling loop.
type HTTPClient struct {
	baseURL    string
	appToken   string // application credential for bulk search
	client     *http.Client
	maxRetries int
	retryDelay time.Duration
	maxDelay   time.Duration
}

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts for transient failures.
func WithMaxRetries(n int) ClientOption {
	return func(c *HTTPClient) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.retryDelay = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.client = client
	}
}

// NewHTTPClient creates a new platform API client. appToken is the
// application-level credential used for bulk search; per-agent calls
// carry their own access tokens.
func NewHTTPClient(baseURL, appToken string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		baseURL:    baseURL,
		appToken:   appToken,
		client:     &http.Client{Timeout: DefaultTimeout},
		maxRetries: DefaultMaxRetries,
		retryDelay: DefaultRetryDelay,
		maxDelay:   DefaultMaxDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile-time interface check.
var _ Client = (*HTTPClient)(nil)

type postRequest struct {
	Text    string `json:"text"`
	ReplyTo string `json:"reply_to,omitempty"`
}

type postResponse struct {
	ID string `json:"id"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type refreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

type mentionJSON struct {
	ID               string   `json:"id"`
	AuthorHandle     string   `json:"author_handle"`
	Text             string   `json:"text"`
	MentionedHandles []string `json:"mentioned_handles,omitempty"`
}

type searchResponse struct {
	Results       []mentionJSON `json:"results"`
	NextPageToken string        `json:"next_page_token,omitempty"`
}

// Publish posts standalone content on behalf of the token's agent.
func (c *HTTPClient) Publish(ctx context.Context, accessToken, text string) (*PostResult, error) {
	var resp postResponse
	err := c.call(ctx, http.MethodPost, "/v1/posts", accessToken, postRequest{Text: text}, &resp)
	if err != nil {
		return nil, err
	}
	return &PostResult{ExternalID: resp.ID}, nil
}

// Reply posts a reply to targetID.
func (c *HTTPClient) Reply(ctx context.Context, accessToken, text, targetID string) (*PostResult, error) {
	var resp postResponse
	err := c.call(ctx, http.MethodPost, "/v1/posts", accessToken, postRequest{Text: text, ReplyTo: targetID}, &resp)
	if err != nil {
		return nil, err
	}
	return &PostResult{ExternalID: resp.ID}, nil
}

// Refresh exchanges a refresh token for a new token pair.
func (c *HTTPClient) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	var resp refreshResponse
	err := c.call(ctx, http.MethodPost, "/v1/oauth/refresh", "", refreshRequest{RefreshToken: refreshToken}, &resp)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresIn:    resp.ExpiresIn,
	}, nil
}

// SearchMentions runs one page of a bulk search query.
func (c *HTTPClient) SearchMentions(ctx context.Context, query, sinceID, pageToken string) (*SearchResult, error) {
	params := url.Values{}
	params.Set("q", query)
	if sinceID != "" {
		params.Set("since_id", sinceID)
	}
	if pageToken != "" {
		params.Set("page_token", pageToken)
	}

	var resp searchResponse
	err := c.call(ctx, http.MethodGet, "/v1/search/recent?"+params.Encode(), c.appToken, nil, &resp)
	if err != nil {
		return nil, err
	}

	result := &SearchResult{NextPageToken: resp.NextPageToken}
	for _, m := range resp.Results {
		result.Mentions = append(result.Mentions, Mention(m))
	}
	return result, nil
}

// HandleMentions fetches mentions of a single handle, bounded by sinceID.
func (c *HTTPClient) HandleMentions(ctx context.Context, accessToken, handle, sinceID string) ([]Mention, error) {
	params := url.Values{}
	if sinceID != "" {
		params.Set("since_id", sinceID)
	}

	path := "/v1/users/" + url.PathEscape(handle) + "/mentions"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var resp searchResponse
	if err := c.call(ctx, http.MethodGet, path, accessToken, nil, &resp); err != nil {
		return nil, err
	}

	mentions := make([]Mention, 0, len(resp.Results))
	for _, m := range resp.Results {
		mentions = append(mentions, Mention(m))
	}
	return mentions, nil
}

// call performs one API call with retries and exponential backoff for
// transient failures only. Auth and rate-limit responses return typed
// errors immediately.
func (c *HTTPClient) call(ctx context.Context, method, path, token string, payload, result interface{}) error {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
	}

	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			// Exponential backoff
			delay *= 2
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		switch {
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return ErrAuthExpired

		case resp.StatusCode == http.StatusTooManyRequests:
			return &RateLimitError{RetryAfter: retryAfterOf(resp)}

		case resp.StatusCode >= 500:
			lastErr = fmt.Errorf("server error %d: %s", resp.StatusCode, truncate(string(respBody), 200))
			continue

		case resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated:
			return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(string(respBody), 200))
		}

		if result != nil {
			if err := json.Unmarshal(respBody, result); err != nil {
				return fmt.Errorf("unmarshal response: %w", err)
			}
		}
		return nil
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// retryAfterOf reads the Retry-After header, defaulting to the fixed
// backoff window when absent or malformed.
func retryAfterOf(resp *http.Response) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return DefaultRetryAfter
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
