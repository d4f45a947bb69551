// Package trade implements the controller command protocol: parsing
// trade commands out of mentions, the two-step address confirmation,
// swap execution, and the conversational fallback for everything that
// is not a command.
package trade

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"agent-colony/internal/command"
	"agent-colony/internal/credentials"
	"agent-colony/internal/domain"
	"agent-colony/internal/generation"
	"agent-colony/internal/observability"
	"agent-colony/internal/platform"
	"agent-colony/internal/storage"
	"agent-colony/internal/wallet"
)

const (
	maxReasonLen = 140
	txRefShort   = 12
)

// Processor handles one discovered mention end to end. The decision
// chain is strict: address confirmation (pending request + controller +
// address token), then command parse (controller only), then the
// conversational fallback. Non-controller authors can never reach the
// trade paths.
type Processor struct {
	trades   storage.TradeStore
	mentions storage.MentionStore
	audit    storage.AuditLog
	pending  *PendingRequests
	platform platform.Client
	tokens   *credentials.Provider
	gen      generation.Client
	wallet   wallet.Client
	logger   *log.Logger
	now      func() time.Time
}

// ProcessorOptions contains configuration for creating a Processor.
type ProcessorOptions struct {
	Trades   storage.TradeStore
	Mentions storage.MentionStore
	Audit    storage.AuditLog
	Pending  *PendingRequests
	Platform platform.Client
	Tokens   *credentials.Provider
	Gen      generation.Client
	Wallet   wallet.Client
	Logger   *log.Logger
	Now      func() time.Time
}

// NewProcessor creates a mention processor.
func NewProcessor(opts ProcessorOptions) *Processor {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	pending := opts.Pending
	if pending == nil {
		pending = NewPendingRequests(0)
	}

	return &Processor{
		trades:   opts.Trades,
		mentions: opts.Mentions,
		audit:    opts.Audit,
		pending:  pending,
		platform: opts.Platform,
		tokens:   opts.Tokens,
		gen:      opts.Gen,
		wallet:   opts.Wallet,
		logger:   logger,
		now:      now,
	}
}

// Process handles one mention for one agent and records the outcome in
// the dedupe registry. allowReply gates the conversational fallback:
// when false (a conversational reply was already sent this cycle) the
// mention is recorded as skipped without replying. Command handling is
// never gated.
//
// An empty outcome with a nil error means the mention was left
// unrecorded for retry on a later cycle (soft generation failure or a
// transient post error); the caller must not advance its cursor past it.
func (p *Processor) Process(ctx context.Context, agent *domain.Agent, m platform.Mention, allowReply bool) (domain.MentionOutcome, error) {
	if agent.IsController(m.AuthorHandle) {
		if req := p.pending.Get(agent.AgentID); req != nil {
			if addr := command.ExtractAddress(m.Text); addr != "" {
				return p.confirmAndExecute(ctx, agent, req, addr, m)
			}
		}
		if cmd := command.Parse(m.Text); cmd != nil {
			return p.startTrade(ctx, agent, cmd, m)
		}
	}

	return p.converse(ctx, agent, m, allowReply)
}

// startTrade opens a trade record for a freshly parsed command and asks
// the controller for the asset address. A new command always displaces
// the prior pending request — only the most recent command can be
// confirmed. Only a command carrying an amount arms a fresh pending
// request; the bare form opens the record but cannot be confirmed.
func (p *Processor) startTrade(ctx context.Context, agent *domain.Agent, cmd *command.Command, m platform.Mention) (domain.MentionOutcome, error) {
	nowMs := p.now().UnixMilli()
	rec := &domain.TradeRecord{
		TradeID:      uuid.NewString(),
		AgentID:      agent.AgentID,
		Action:       cmd.Action,
		AssetAddress: domain.AssetPlaceholder,
		Symbol:       cmd.Symbol,
		AmountSOL:    cmd.AmountSOL,
		Status:       domain.TradePending,
		MentionID:    m.ID,
		CreatedAt:    nowMs,
		UpdatedAt:    nowMs,
	}
	if err := p.trades.Insert(ctx, rec); err != nil {
		return "", fmt.Errorf("insert trade record: %w", err)
	}

	p.pending.Clear(agent.AgentID)
	if cmd.HasAmount {
		p.pending.Put(agent.AgentID, &domain.PendingTradeRequest{
			TradeID:   rec.TradeID,
			Action:    cmd.Action,
			AmountSOL: cmd.AmountSOL,
			Symbol:    cmd.Symbol,
			MentionID: m.ID,
			CreatedAt: nowMs,
		})
	}

	observability.RecordTradeRequested()
	p.appendAudit(ctx, agent.AgentID, domain.AuditTradeRequested,
		fmt.Sprintf("%s %g SOL %s (trade %s)", cmd.Action, cmd.AmountSOL, cmd.Symbol, rec.TradeID))

	text := fmt.Sprintf("Which token is $%s? Reply with the contract address to confirm.", cmd.Symbol)
	if !cmd.HasAmount {
		text = fmt.Sprintf("Got it — how much SOL, and which contract address for $%s?", cmd.Symbol)
	}
	if err := p.reply(ctx, agent, text, m.ID); err != nil {
		// The trade record and pending state are already armed; a lost
		// ack does not invalidate them.
		p.logger.Printf("Error acking trade command for agent %s: %v", agent.AgentID, err)
	}

	if err := p.mark(ctx, agent.AgentID, m, domain.MentionCommand); err != nil {
		return "", err
	}
	return domain.MentionCommand, nil
}

// confirmAndExecute resolves the pending request with the confirmed
// address and executes the swap. The pending request is consumed before
// execution, so success and failure alike require a fresh command to
// retry. The trade record reaches a terminal status exactly once.
func (p *Processor) confirmAndExecute(ctx context.Context, agent *domain.Agent, req *domain.PendingTradeRequest, addr string, m platform.Mention) (domain.MentionOutcome, error) {
	p.pending.Clear(agent.AgentID)

	nowMs := p.now().UnixMilli()
	if err := p.trades.SetAssetAddress(ctx, req.TradeID, addr, nowMs); err != nil {
		return "", fmt.Errorf("set asset address on trade %s: %w", req.TradeID, err)
	}

	var (
		res *wallet.SwapResult
		err error
	)
	started := p.now()
	// The decimals lookup doubles as an asset existence check before
	// committing funds to the swap.
	if _, err = p.wallet.ResolveDecimals(ctx, addr); err == nil {
		switch req.Action {
		case domain.TradeBuy:
			res, err = p.wallet.Buy(ctx, agent.WalletHandle, addr, req.AmountSOL)
		default:
			res, err = p.wallet.Sell(ctx, agent.WalletHandle, addr, req.AmountSOL)
		}
	}
	swapSeconds := p.now().Sub(started).Seconds()

	if err != nil {
		reason := err.Error()
		if ee, ok := wallet.AsExecutionError(err); ok {
			reason = ee.Reason
		}
		if ferr := p.finalize(ctx, req.TradeID, domain.TradeFailed, "", reason); ferr != nil {
			return "", ferr
		}
		observability.RecordTradeExecuted(string(domain.TradeFailed), swapSeconds)
		p.appendAudit(ctx, agent.AgentID, domain.AuditTradeFailed,
			fmt.Sprintf("trade %s: %s", req.TradeID, truncate(reason, maxReasonLen)))

		text := fmt.Sprintf("❌ %s %g SOL $%s failed: %s", req.Action, req.AmountSOL, req.Symbol, truncate(reason, maxReasonLen))
		if rerr := p.reply(ctx, agent, text, m.ID); rerr != nil {
			p.logger.Printf("Error posting trade failure for agent %s: %v", agent.AgentID, rerr)
		}
	} else {
		if ferr := p.finalize(ctx, req.TradeID, domain.TradeCompleted, res.TxRef, ""); ferr != nil {
			return "", ferr
		}
		observability.RecordTradeExecuted(string(domain.TradeCompleted), swapSeconds)
		p.appendAudit(ctx, agent.AgentID, domain.AuditTradeExecuted,
			fmt.Sprintf("trade %s tx %s", req.TradeID, res.TxRef))

		text := fmt.Sprintf("✅ %s %g SOL $%s — tx %s", req.Action, req.AmountSOL, req.Symbol, truncate(res.TxRef, txRefShort))
		if rerr := p.reply(ctx, agent, text, m.ID); rerr != nil {
			p.logger.Printf("Error posting trade outcome for agent %s: %v", agent.AgentID, rerr)
		}
	}

	if err := p.mark(ctx, agent.AgentID, m, domain.MentionCommand); err != nil {
		return "", err
	}
	return domain.MentionCommand, nil
}

// finalize moves the trade to a terminal status, tolerating a replay
// against an already-final record.
func (p *Processor) finalize(ctx context.Context, tradeID string, status domain.TradeStatus, txRef, failReason string) error {
	err := p.trades.Finalize(ctx, tradeID, status, txRef, failReason, p.now().UnixMilli())
	if errors.Is(err, storage.ErrAlreadyFinal) {
		p.logger.Printf("Trade %s already finalized, skipping %s", tradeID, status)
		return nil
	}
	if err != nil {
		return fmt.Errorf("finalize trade %s: %w", tradeID, err)
	}
	return nil
}

// converse generates and posts a persona reply. The single-reply rule
// applies here only: when allowReply is false the mention is recorded
// as skipped.
func (p *Processor) converse(ctx context.Context, agent *domain.Agent, m platform.Mention, allowReply bool) (domain.MentionOutcome, error) {
	if !allowReply {
		if err := p.mark(ctx, agent.AgentID, m, domain.MentionSkipped); err != nil {
			return "", err
		}
		return domain.MentionSkipped, nil
	}

	text, err := p.gen.GenerateReply(ctx, agent.Prompt, m.Text, m.AuthorHandle)
	if err != nil {
		return "", fmt.Errorf("generate reply for agent %s: %w", agent.AgentID, err)
	}
	if text == "" {
		// No usable output; leave unrecorded so a later cycle retries.
		p.logger.Printf("Empty generation output for agent %s, mention %s deferred", agent.AgentID, m.ID)
		return "", nil
	}

	if err := p.reply(ctx, agent, text, m.ID); err != nil {
		return "", fmt.Errorf("post reply for agent %s: %w", agent.AgentID, err)
	}

	if err := p.mark(ctx, agent.AgentID, m, domain.MentionReplied); err != nil {
		return "", err
	}
	return domain.MentionReplied, nil
}

// reply posts a reply with the agent's token, attempting exactly one
// refresh-and-retry on an auth-expired signal.
func (p *Processor) reply(ctx context.Context, agent *domain.Agent, text, targetID string) error {
	token, err := p.tokens.AccessToken(ctx, agent.AgentID)
	if err != nil {
		return err
	}

	_, err = p.platform.Reply(ctx, token, text, targetID)
	if errors.Is(err, platform.ErrAuthExpired) {
		token, err = p.tokens.RefreshAndStore(ctx, agent.AgentID)
		if err != nil {
			return err
		}
		_, err = p.platform.Reply(ctx, token, text, targetID)
	}
	return err
}

// mark records the mention in the dedupe registry. A duplicate-key
// result means a concurrent or earlier recording already happened and
// is treated as success.
func (p *Processor) mark(ctx context.Context, agentID string, m platform.Mention, outcome domain.MentionOutcome) error {
	err := p.mentions.MarkProcessed(ctx, &domain.ProcessedMention{
		AgentID:      agentID,
		ExternalID:   m.ID,
		AuthorHandle: m.AuthorHandle,
		Outcome:      outcome,
		ProcessedAt:  p.now().UnixMilli(),
	})
	if errors.Is(err, storage.ErrDuplicateKey) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("mark mention %s processed: %w", m.ID, err)
	}
	return nil
}

func (p *Processor) appendAudit(ctx context.Context, agentID, event, detail string) {
	entry := &domain.AuditEntry{
		EntryID:   uuid.NewString(),
		AgentID:   agentID,
		Event:     event,
		Detail:    detail,
		CreatedAt: p.now().UnixMilli(),
	}
	if err := p.audit.Append(ctx, entry); err != nil {
		p.logger.Printf("Error appending audit entry for agent %s: %v", agentID, err)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
