// Package generation is the content-generation service client. The
// service returns an empty string (not an error) to signal "no usable
// output"; loops treat that as a soft failure and retry on a later tick.
package generation

import "context"

// Client is the outbound content-generation surface.
type Client interface {
	// Generate produces standalone content from the agent's prompt.
	// recentHistory is negative-context: recent own posts the output
	// should not repeat.
	Generate(ctx context.Context, prompt string, recentHistory []string) (string, error)

	// GenerateReply produces a contextual reply to an inbound message.
	GenerateReply(ctx context.Context, prompt, incomingText, authorHandle string) (string, error)
}
