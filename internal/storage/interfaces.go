package storage

import (
	"context"

	"agent-colony/internal/domain"
)

// AgentStore provides access to agents storage. It is the engine's view
// of the Agent Directory: configuration reads plus the narrow mutations
// the loops perform (status, cursor, last publish time).
type AgentStore interface {
	// Insert adds a new agent. Returns ErrDuplicateKey if agent_id exists.
	Insert(ctx context.Context, a *domain.Agent) error

	// GetByID retrieves an agent by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, agentID string) (*domain.Agent, error)

	// ListActive retrieves all agents with status active.
	ListActive(ctx context.Context) ([]*domain.Agent, error)

	// Update rewrites an existing agent row. Returns ErrNotFound if not exists.
	Update(ctx context.Context, a *domain.Agent) error
}

// CredentialStore provides access to credentials storage. Blobs are
// encrypted; this layer never sees plaintext tokens.
type CredentialStore interface {
	// Upsert inserts or rewrites the credential record for an agent.
	Upsert(ctx context.Context, c *domain.CredentialRecord) error

	// GetByAgent retrieves credentials for an agent. Returns ErrNotFound if not exists.
	GetByAgent(ctx context.Context, agentID string) (*domain.CredentialRecord, error)

	// ListExpiring retrieves all records with expires_at <= before (ms).
	ListExpiring(ctx context.Context, before int64) ([]*domain.CredentialRecord, error)
}

// MentionStore is the processed-mention dedupe registry. Marking is the
// idempotence barrier: a mention external id is recorded exactly once
// per agent, so provider redelivery is a no-op.
type MentionStore interface {
	// MarkProcessed records a processed mention. Returns ErrDuplicateKey
	// if (agent_id, external_id) was already recorded.
	MarkProcessed(ctx context.Context, m *domain.ProcessedMention) error

	// IsProcessed reports whether (agent_id, external_id) was recorded.
	IsProcessed(ctx context.Context, agentID, externalID string) (bool, error)

	// ListByAgent retrieves processed mentions for an agent, ordered by
	// external id ascending.
	ListByAgent(ctx context.Context, agentID string) ([]*domain.ProcessedMention, error)
}

// TradeStore provides access to trade_records storage. Rows are
// append-created and updated at most twice; never deleted.
type TradeStore interface {
	// Insert adds a new trade record. Returns ErrDuplicateKey if trade_id exists.
	Insert(ctx context.Context, t *domain.TradeRecord) error

	// GetByID retrieves a trade by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, tradeID string) (*domain.TradeRecord, error)

	// SetAssetAddress resolves the placeholder asset reference.
	// Returns ErrNotFound if the trade does not exist.
	SetAssetAddress(ctx context.Context, tradeID, address string, now int64) error

	// Finalize moves a pending trade to a terminal status. Returns
	// ErrAlreadyFinal if the trade is already terminal, ErrNotFound if
	// it does not exist.
	Finalize(ctx context.Context, tradeID string, status domain.TradeStatus, txRef, failReason string, now int64) error

	// ListByAgent retrieves all trades for an agent, ordered by created_at ASC.
	ListByAgent(ctx context.Context, agentID string) ([]*domain.TradeRecord, error)
}

// PublishStore provides access to publish_records storage.
type PublishStore interface {
	// Insert adds a new publish record. Returns ErrDuplicateKey if publish_id exists.
	Insert(ctx context.Context, p *domain.PublishRecord) error

	// UpdateStatus moves a record to posted or failed. Returns ErrNotFound
	// if the record does not exist.
	UpdateStatus(ctx context.Context, publishID string, status domain.PublishStatus, externalID string, now int64) error

	// LastPosted retrieves the most recently posted record for an agent.
	// Returns ErrNotFound if the agent never posted successfully.
	LastPosted(ctx context.Context, agentID string) (*domain.PublishRecord, error)

	// RecentPosted retrieves up to limit posted records for an agent,
	// newest first. Used as negative-context for generation.
	RecentPosted(ctx context.Context, agentID string, limit int) ([]*domain.PublishRecord, error)
}

// InteractionStore provides access to interactions storage.
type InteractionStore interface {
	// Insert adds a new interaction. Returns ErrDuplicateKey if interaction_id exists.
	Insert(ctx context.Context, i *domain.Interaction) error

	// ListByResponder retrieves interactions where the agent replied,
	// ordered by created_at ASC.
	ListByResponder(ctx context.Context, agentID string) ([]*domain.Interaction, error)
}

// AuditLog is the append-only audit trail writer.
type AuditLog interface {
	// Append adds an audit entry.
	Append(ctx context.Context, e *domain.AuditEntry) error

	// ListByAgent retrieves entries for an agent, ordered by created_at ASC.
	ListByAgent(ctx context.Context, agentID string) ([]*domain.AuditEntry, error)
}
