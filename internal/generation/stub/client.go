// Package stub provides a scripted in-memory generation client for tests.
package stub

import (
	"context"
	"sync"

	"agent-colony/internal/generation"
)

// Client is a scripted implementation of generation.Client. Zero value
// returns fixed non-empty output for every call.
type Client struct {
	mu sync.Mutex

	// Output overrides the generated text when non-empty pointers are set.
	GenerateText *string
	ReplyText    *string

	// Err fails every call when set.
	Err error

	GenerateCalls int
	ReplyCalls    int

	// LastIncoming records the incoming text of the last reply call.
	LastIncoming string

	// LastHistory records the negative-context of the last generate call.
	LastHistory []string

	// LastPrompt records the prompt of the last call of either kind.
	LastPrompt string
}

// Compile-time interface check.
var _ generation.Client = (*Client)(nil)

// Generate returns scripted standalone content.
func (c *Client) Generate(_ context.Context, prompt string, recentHistory []string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.GenerateCalls++
	c.LastHistory = append([]string(nil), recentHistory...)
	c.LastPrompt = prompt
	if c.Err != nil {
		return "", c.Err
	}
	if c.GenerateText != nil {
		return *c.GenerateText, nil
	}
	return "generated content", nil
}

// GenerateReply returns scripted reply content.
func (c *Client) GenerateReply(_ context.Context, prompt, incomingText, authorHandle string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ReplyCalls++
	c.LastIncoming = incomingText
	c.LastPrompt = prompt
	if c.Err != nil {
		return "", c.Err
	}
	if c.ReplyText != nil {
		return *c.ReplyText, nil
	}
	return "generated reply", nil
}

// Text is a helper for pointer fields.
func Text(s string) *string {
	return &s
}
