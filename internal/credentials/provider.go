package credentials

import (
	"context"
	"fmt"
	"time"

	"agent-colony/internal/domain"
	"agent-colony/internal/platform"
	"agent-colony/internal/storage"
)

// Provider hands loops a usable access token for an agent. Tokens are
// decrypted on use and never retained.
type Provider struct {
	creds    storage.CredentialStore
	platform platform.Client
	cipher   *Cipher
	now      func() time.Time
}

// NewProvider creates a credential provider.
func NewProvider(creds storage.CredentialStore, pc platform.Client, cipher *Cipher) *Provider {
	return &Provider{
		creds:    creds,
		platform: pc,
		cipher:   cipher,
		now:      time.Now,
	}
}

// AccessToken returns the agent's current access token.
func (p *Provider) AccessToken(ctx context.Context, agentID string) (string, error) {
	rec, err := p.creds.GetByAgent(ctx, agentID)
	if err != nil {
		return "", fmt.Errorf("load credentials for %s: %w", agentID, err)
	}
	token, err := p.cipher.Open(rec.AccessTokenEnc)
	if err != nil {
		return "", fmt.Errorf("open access token for %s: %w", agentID, err)
	}
	return token, nil
}

// RefreshAndStore performs one token refresh, rewrites the encrypted
// record, and returns the fresh access token. Used by the refresh loop
// and as the single refresh-and-retry step after an auth-expired signal.
func (p *Provider) RefreshAndStore(ctx context.Context, agentID string) (string, error) {
	rec, err := p.creds.GetByAgent(ctx, agentID)
	if err != nil {
		return "", fmt.Errorf("load credentials for %s: %w", agentID, err)
	}

	refreshToken, err := p.cipher.Open(rec.RefreshTokenEnc)
	if err != nil {
		return "", fmt.Errorf("open refresh token for %s: %w", agentID, err)
	}

	pair, err := p.platform.Refresh(ctx, refreshToken)
	if err != nil {
		return "", err
	}

	accessEnc, err := p.cipher.Seal(pair.AccessToken)
	if err != nil {
		return "", fmt.Errorf("seal access token: %w", err)
	}
	refreshEnc, err := p.cipher.Seal(pair.RefreshToken)
	if err != nil {
		return "", fmt.Errorf("seal refresh token: %w", err)
	}

	nowMs := p.now().UnixMilli()
	record := &domain.CredentialRecord{
		AgentID:         agentID,
		AccessTokenEnc:  accessEnc,
		RefreshTokenEnc: refreshEnc,
		ExpiresAt:       nowMs + pair.ExpiresIn*1000,
		UpdatedAt:       nowMs,
	}
	if err := p.creds.Upsert(ctx, record); err != nil {
		return "", fmt.Errorf("store refreshed credentials for %s: %w", agentID, err)
	}

	return pair.AccessToken, nil
}
