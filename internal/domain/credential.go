package domain

// CredentialRecord holds an agent's encrypted platform token pair.
// Corresponds to credentials table in PostgreSQL. Token blobs are
// AES-GCM sealed; plaintext exists only at the instant of use and is
// never logged or persisted.
type CredentialRecord struct {
	AgentID         string // PK + FK to agents
	AccessTokenEnc  []byte // encrypted access token
	RefreshTokenEnc []byte // encrypted refresh token
	ExpiresAt       int64  // absolute access token expiry (ms)
	UpdatedAt       int64  // last rewrite timestamp (ms)
}
