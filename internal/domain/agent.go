package domain

// AgentStatus represents the lifecycle status of an agent.
type AgentStatus string

const (
	AgentActive AgentStatus = "active"
	AgentPaused AgentStatus = "paused"
)

// String returns the string representation of AgentStatus.
func (s AgentStatus) String() string {
	return string(s)
}

// IsValid checks if the status is a valid value.
func (s AgentStatus) IsValid() bool {
	return s == AgentActive || s == AgentPaused
}

// Agent represents a configured autonomous agent.
// Corresponds to agents table in PostgreSQL.
type Agent struct {
	AgentID          string      // PRIMARY KEY
	Handle           string      // platform handle, without the @ prefix
	ControllerHandle string      // sole identity authorized to issue trade commands
	Prompt           string      // content generation prompt
	WalletHandle     string      // opaque encrypted key reference for swap execution
	Status           AgentStatus // active | paused
	LastPublishedAt  int64       // Unix timestamp in milliseconds, 0 if never published
	MentionCursor    string      // highest processed mention external id, "" if none
	CreatedAt        int64       // record creation timestamp (ms)
	UpdatedAt        int64       // last mutation timestamp (ms)
}

// IsController reports whether the given author handle is the agent's
// designated controller. Comparison is case-insensitive and ignores a
// leading @.
func (a *Agent) IsController(author string) bool {
	return equalHandles(a.ControllerHandle, author)
}

func equalHandles(a, b string) bool {
	return normalizeHandle(a) == normalizeHandle(b)
}

func normalizeHandle(h string) string {
	if len(h) > 0 && h[0] == '@' {
		h = h[1:]
	}
	// ASCII lowercase; platform handles are ASCII
	out := make([]byte, len(h))
	for i := 0; i < len(h); i++ {
		c := h[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		out[i] = c
	}
	return string(out)
}

// NormalizeHandle strips a leading @ and lowercases a platform handle.
func NormalizeHandle(h string) string {
	return normalizeHandle(h)
}
