package postgres

import (
	"context"
	"fmt"
	"time"

	"agent-colony/internal/domain"
	"agent-colony/internal/observability"
	"agent-colony/internal/storage"
)

// TradeStore implements storage.TradeStore using PostgreSQL. Finalize
// guards the pending → terminal transition in SQL so a replay can never
// flip a terminal row.
type TradeStore struct {
	pool *Pool
}

// NewTradeStore creates a new TradeStore.
func NewTradeStore(pool *Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeStore = (*TradeStore)(nil)

const tradeColumns = `
	trade_id, agent_id, action, asset_address, symbol, amount_sol,
	status, tx_ref, fail_reason, mention_id, created_at, updated_at
`

// Insert adds a new trade record. Returns ErrDuplicateKey if trade_id exists.
func (s *TradeStore) Insert(ctx context.Context, t *domain.TradeRecord) error {
	query := `
		INSERT INTO trade_records (` + tradeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	start := time.Now()
	_, err := s.pool.Exec(ctx, query,
		t.TradeID, t.AgentID, t.Action, t.AssetAddress, t.Symbol, t.AmountSOL,
		t.Status, t.TxRef, t.FailReason, t.MentionID, t.CreatedAt, t.UpdatedAt,
	)
	observability.RecordDBQuery("postgres", "trades_insert", time.Since(start).Seconds(), err)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert trade record: %w", err)
	}
	return nil
}

// GetByID retrieves a trade by its ID. Returns ErrNotFound if not exists.
func (s *TradeStore) GetByID(ctx context.Context, tradeID string) (*domain.TradeRecord, error) {
	query := `SELECT ` + tradeColumns + ` FROM trade_records WHERE trade_id = $1`

	var t domain.TradeRecord
	start := time.Now()
	err := s.pool.QueryRow(ctx, query, tradeID).Scan(
		&t.TradeID, &t.AgentID, &t.Action, &t.AssetAddress, &t.Symbol, &t.AmountSOL,
		&t.Status, &t.TxRef, &t.FailReason, &t.MentionID, &t.CreatedAt, &t.UpdatedAt,
	)
	observability.RecordDBQuery("postgres", "trades_get", time.Since(start).Seconds(), err)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get trade record: %w", err)
	}
	return &t, nil
}

// SetAssetAddress resolves the placeholder asset reference.
func (s *TradeStore) SetAssetAddress(ctx context.Context, tradeID, address string, now int64) error {
	query := `UPDATE trade_records SET asset_address = $2, updated_at = $3 WHERE trade_id = $1`

	start := time.Now()
	tag, err := s.pool.Exec(ctx, query, tradeID, address, now)
	observability.RecordDBQuery("postgres", "trades_set_address", time.Since(start).Seconds(), err)
	if err != nil {
		return fmt.Errorf("set trade asset address: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Finalize moves a pending trade to a terminal status exactly once.
func (s *TradeStore) Finalize(ctx context.Context, tradeID string, status domain.TradeStatus, txRef, failReason string, now int64) error {
	query := `
		UPDATE trade_records SET status = $2, tx_ref = $3, fail_reason = $4, updated_at = $5
		WHERE trade_id = $1 AND status = $6
	`

	start := time.Now()
	tag, err := s.pool.Exec(ctx, query, tradeID, status, txRef, failReason, now, domain.TradePending)
	observability.RecordDBQuery("postgres", "trades_finalize", time.Since(start).Seconds(), err)
	if err != nil {
		return fmt.Errorf("finalize trade: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Distinguish missing row from already-final row.
		if _, gerr := s.GetByID(ctx, tradeID); gerr != nil {
			return gerr
		}
		return storage.ErrAlreadyFinal
	}
	return nil
}

// ListByAgent retrieves all trades for an agent, ordered by created_at ASC.
func (s *TradeStore) ListByAgent(ctx context.Context, agentID string) ([]*domain.TradeRecord, error) {
	query := `SELECT ` + tradeColumns + ` FROM trade_records WHERE agent_id = $1 ORDER BY created_at, trade_id`

	start := time.Now()
	rows, err := s.pool.Query(ctx, query, agentID)
	observability.RecordDBQuery("postgres", "trades_list", time.Since(start).Seconds(), err)
	if err != nil {
		return nil, fmt.Errorf("list trade records: %w", err)
	}
	defer rows.Close()

	var out []*domain.TradeRecord
	for rows.Next() {
		var t domain.TradeRecord
		if err := rows.Scan(
			&t.TradeID, &t.AgentID, &t.Action, &t.AssetAddress, &t.Symbol, &t.AmountSOL,
			&t.Status, &t.TxRef, &t.FailReason, &t.MentionID, &t.CreatedAt, &t.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan trade record: %w", err)
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}
