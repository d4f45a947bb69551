package domain

// MentionSourceKind identifies which provider discovered a mention.
type MentionSourceKind string

const (
	MentionSourceBulk     MentionSourceKind = "BULK"
	MentionSourcePerAgent MentionSourceKind = "PER_AGENT"
)

// MentionOutcome records how a processed mention was handled.
type MentionOutcome string

const (
	MentionReplied MentionOutcome = "replied"
	MentionCommand MentionOutcome = "command"
	MentionSkipped MentionOutcome = "skipped"
	MentionSelf    MentionOutcome = "self"
	MentionFailed  MentionOutcome = "failed"
)

// ProcessedMention is the per-agent dedupe registry row. Once a mention's
// external id is recorded here, redelivery by any provider is a no-op.
// Corresponds to processed_mentions table in PostgreSQL.
type ProcessedMention struct {
	AgentID      string         // FK to agents
	ExternalID   string         // platform snowflake id
	AuthorHandle string         // author identity
	Outcome      MentionOutcome // how the mention was handled
	ProcessedAt  int64          // processing timestamp (ms)
}
