package domain

// Audit event types emitted by the engine.
const (
	AuditCredentialRefreshed = "CREDENTIAL_REFRESHED"
	AuditAgentPaused         = "AGENT_PAUSED"
	AuditTradeRequested      = "TRADE_REQUESTED"
	AuditTradeExecuted       = "TRADE_EXECUTED"
	AuditTradeFailed         = "TRADE_FAILED"
)

// AuditEntry is an append-only operational audit row.
// Corresponds to audit_log table in PostgreSQL; optionally mirrored to
// the ClickHouse archive for reporting.
type AuditEntry struct {
	EntryID   string // PRIMARY KEY, uuid
	AgentID   string // subject agent
	Event     string // event type constant
	Detail    string // human-readable cause/outcome
	CreatedAt int64  // timestamp (ms)
}
