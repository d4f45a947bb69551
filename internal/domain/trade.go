package domain

// TradeAction is the direction of a trade command.
type TradeAction string

const (
	TradeBuy  TradeAction = "buy"
	TradeSell TradeAction = "sell"
)

// String returns the string representation of TradeAction.
func (a TradeAction) String() string {
	return string(a)
}

// TradeStatus is the lifecycle status of a trade record.
// A record transitions pending → completed|failed exactly once.
type TradeStatus string

const (
	TradePending   TradeStatus = "pending"
	TradeCompleted TradeStatus = "completed"
	TradeFailed    TradeStatus = "failed"
)

// AssetPlaceholder is recorded as the asset reference until the
// controller confirms a concrete address.
const AssetPlaceholder = "UNRESOLVED"

// TradeRecord represents a controller-issued trade.
// Corresponds to trade_records table in PostgreSQL. Rows are created at
// command receipt and updated at most twice: once when the asset address
// is confirmed, once when a terminal status is reached. Never deleted.
type TradeRecord struct {
	TradeID      string      // PRIMARY KEY, uuid
	AgentID      string      // FK to agents
	Action       TradeAction // buy | sell
	AssetAddress string      // base-58 mint address, AssetPlaceholder until confirmed
	Symbol       string      // asset symbol as given in the command, may be empty
	AmountSOL    float64     // trade size in SOL, 0 when the command omitted an amount
	Status       TradeStatus // pending | completed | failed
	TxRef        string      // transaction reference on completion
	FailReason   string      // collaborator failure reason on failed
	MentionID    string      // originating mention external id
	CreatedAt    int64       // record creation timestamp (ms)
	UpdatedAt    int64       // last update timestamp (ms)
}

// PendingTradeRequest is the ephemeral in-memory step-1 state of the
// two-step trade protocol: a parsed command awaiting an asset address
// from the controller. At most one exists per agent; a new command
// overwrites it. Expires 30 minutes after creation, checked on lookup.
type PendingTradeRequest struct {
	TradeID   string      // trade record awaiting confirmation
	Action    TradeAction // buy | sell
	AmountSOL float64     // parsed amount
	Symbol    string      // parsed symbol
	MentionID string      // originating mention external id
	CreatedAt int64       // creation timestamp (ms)
}
