package domain

// PublishStatus is the lifecycle status of a publish record.
type PublishStatus string

const (
	PublishPending PublishStatus = "pending"
	PublishPosted  PublishStatus = "posted"
	PublishFailed  PublishStatus = "failed"
)

// PublishRecord represents one autonomous content publication attempt.
// Corresponds to publish_records table in PostgreSQL.
type PublishRecord struct {
	PublishID  string        // PRIMARY KEY, uuid
	AgentID    string        // FK to agents
	Text       string        // generated content
	Status     PublishStatus // pending | posted | failed
	ExternalID string        // platform post id on success
	CreatedAt  int64         // record creation timestamp (ms)
	UpdatedAt  int64         // last update timestamp (ms)
}
