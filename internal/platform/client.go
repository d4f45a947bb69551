// Package platform is the social platform client: publishing, replies,
// token refresh, and mention search over HTTP.
package platform

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrAuthExpired signals that the access token was rejected. Callers
// attempt exactly one refresh-and-retry, never recursively.
var ErrAuthExpired = errors.New("platform: access token expired")

// RateLimitError signals a 429 response. Callers back off the affected
// agent/provider for a fixed window instead of the normal retry cadence.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("platform: rate limited, retry after %s", e.RetryAfter)
}

// IsRateLimited reports whether err is (or wraps) a RateLimitError.
func IsRateLimited(err error) bool {
	var rl *RateLimitError
	return errors.As(err, &rl)
}

// PostResult is the platform's acknowledgement of a publish or reply.
type PostResult struct {
	ExternalID string
}

// TokenPair is a refreshed credential set.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64 // seconds
}

// Mention is a raw search/timeline hit before regrouping per agent.
type Mention struct {
	ID               string   // platform snowflake id
	AuthorHandle     string   // author, without @
	Text             string   // message text
	MentionedHandles []string // structured mention entities, may be empty
}

// SearchResult is one page of bulk search results.
type SearchResult struct {
	Mentions      []Mention
	NextPageToken string // empty when this is the last page
}

// Client is the outbound platform surface used by the engine. All
// methods signal auth expiry via ErrAuthExpired and rate limiting via
// RateLimitError so callers can apply their distinct policies.
type Client interface {
	// Publish posts standalone content on behalf of the token's agent.
	Publish(ctx context.Context, accessToken, text string) (*PostResult, error)

	// Reply posts a reply to targetID.
	Reply(ctx context.Context, accessToken, text, targetID string) (*PostResult, error)

	// Refresh exchanges a refresh token for a new token pair.
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)

	// SearchMentions runs one page of a bulk search query using the
	// application credential. sinceID bounds results to ids strictly
	// greater; pageToken continues a prior page.
	SearchMentions(ctx context.Context, query, sinceID, pageToken string) (*SearchResult, error)

	// HandleMentions fetches mentions of a single handle using that
	// agent's token, bounded by sinceID.
	HandleMentions(ctx context.Context, accessToken, handle, sinceID string) ([]Mention, error)
}
