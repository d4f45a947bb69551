// Package stub provides a scripted in-memory platform client for tests.
package stub

import (
	"context"
	"fmt"
	"sync"

	"agent-colony/internal/platform"
)

// Post records one outbound publish or reply.
type Post struct {
	ID      string
	Token   string
	Text    string
	ReplyTo string // empty for standalone posts
}

// Client is a scripted implementation of platform.Client. Zero value is
// usable: every call succeeds and returns generated ids. Error fields
// marked "once" are consumed by the first matching call.
type Client struct {
	mu  sync.Mutex
	seq int

	// Outbound records, in call order.
	Posts []Post

	// One-shot error injection.
	PublishErrOnce error
	ReplyErrOnce   error

	// Refresh behavior.
	RefreshResult *platform.TokenPair
	RefreshErr    error
	RefreshCalls  int

	// Bulk search script: calls consume BulkPages in order; when
	// exhausted, further calls return an empty final page. BulkErr, if
	// set, fails every bulk call.
	BulkPages []*platform.SearchResult
	BulkErr   error
	BulkCalls int

	// Per-handle mention script.
	HandleResults map[string][]platform.Mention
	HandleErrs    map[string]error
	HandleCalls   []string // handles queried, in order
}

// Compile-time interface check.
var _ platform.Client = (*Client)(nil)

// Publish records the post and returns a generated id.
func (c *Client) Publish(_ context.Context, accessToken, text string) (*platform.PostResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.PublishErrOnce; err != nil {
		c.PublishErrOnce = nil
		return nil, err
	}

	id := c.nextID()
	c.Posts = append(c.Posts, Post{ID: id, Token: accessToken, Text: text})
	return &platform.PostResult{ExternalID: id}, nil
}

// Reply records the reply and returns a generated id.
func (c *Client) Reply(_ context.Context, accessToken, text, targetID string) (*platform.PostResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ReplyErrOnce; err != nil {
		c.ReplyErrOnce = nil
		return nil, err
	}

	id := c.nextID()
	c.Posts = append(c.Posts, Post{ID: id, Token: accessToken, Text: text, ReplyTo: targetID})
	return &platform.PostResult{ExternalID: id}, nil
}

// Refresh returns the scripted token pair.
func (c *Client) Refresh(_ context.Context, refreshToken string) (*platform.TokenPair, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.RefreshCalls++
	if c.RefreshErr != nil {
		return nil, c.RefreshErr
	}
	if c.RefreshResult != nil {
		pair := *c.RefreshResult
		return &pair, nil
	}
	return &platform.TokenPair{
		AccessToken:  "refreshed-access",
		RefreshToken: "refreshed-refresh",
		ExpiresIn:    7200,
	}, nil
}

// SearchMentions serves the next scripted bulk page.
func (c *Client) SearchMentions(_ context.Context, query, sinceID, pageToken string) (*platform.SearchResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.BulkCalls++
	if c.BulkErr != nil {
		return nil, c.BulkErr
	}
	if len(c.BulkPages) == 0 {
		return &platform.SearchResult{}, nil
	}

	page := c.BulkPages[0]
	c.BulkPages = c.BulkPages[1:]
	return page, nil
}

// HandleMentions serves the scripted per-handle mentions.
func (c *Client) HandleMentions(_ context.Context, accessToken, handle, sinceID string) ([]platform.Mention, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.HandleCalls = append(c.HandleCalls, handle)
	if err := c.HandleErrs[handle]; err != nil {
		return nil, err
	}
	return append([]platform.Mention(nil), c.HandleResults[handle]...), nil
}

// LastPost returns the most recent outbound post, or nil.
func (c *Client) LastPost() *Post {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.Posts) == 0 {
		return nil
	}
	p := c.Posts[len(c.Posts)-1]
	return &p
}

// PostCount returns the number of outbound posts and replies.
func (c *Client) PostCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Posts)
}

func (c *Client) nextID() string {
	c.seq++
	return fmt.Sprintf("post-%d", c.seq)
}
