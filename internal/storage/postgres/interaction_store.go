package postgres

import (
	"context"
	"fmt"
	"time"

	"agent-colony/internal/domain"
	"agent-colony/internal/observability"
	"agent-colony/internal/storage"
)

// InteractionStore implements storage.InteractionStore using PostgreSQL.
type InteractionStore struct {
	pool *Pool
}

// NewInteractionStore creates a new InteractionStore.
func NewInteractionStore(pool *Pool) *InteractionStore {
	return &InteractionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.InteractionStore = (*InteractionStore)(nil)

// Insert adds a new interaction. Returns ErrDuplicateKey if interaction_id exists.
func (s *InteractionStore) Insert(ctx context.Context, i *domain.Interaction) error {
	query := `
		INSERT INTO interactions (interaction_id, responder_id, target_id, target_post_id, reply_id, flavor, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	start := time.Now()
	_, err := s.pool.Exec(ctx, query,
		i.InteractionID, i.ResponderID, i.TargetID, i.TargetPostID, i.ReplyID, i.Flavor, i.CreatedAt,
	)
	observability.RecordDBQuery("postgres", "interactions_insert", time.Since(start).Seconds(), err)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert interaction: %w", err)
	}
	return nil
}

// ListByResponder retrieves interactions where the agent replied,
// ordered by created_at ASC.
func (s *InteractionStore) ListByResponder(ctx context.Context, agentID string) ([]*domain.Interaction, error) {
	query := `
		SELECT interaction_id, responder_id, target_id, target_post_id, reply_id, flavor, created_at
		FROM interactions WHERE responder_id = $1
		ORDER BY created_at, interaction_id
	`

	start := time.Now()
	rows, err := s.pool.Query(ctx, query, agentID)
	observability.RecordDBQuery("postgres", "interactions_list", time.Since(start).Seconds(), err)
	if err != nil {
		return nil, fmt.Errorf("list interactions: %w", err)
	}
	defer rows.Close()

	var out []*domain.Interaction
	for rows.Next() {
		var i domain.Interaction
		if err := rows.Scan(&i.InteractionID, &i.ResponderID, &i.TargetID, &i.TargetPostID, &i.ReplyID, &i.Flavor, &i.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan interaction: %w", err)
		}
		out = append(out, &i)
	}
	return out, rows.Err()
}
