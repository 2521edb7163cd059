// Package decision implements the pipeline that turns a Signal into a
// Decision: risk check, score floor, position-conflict resolution, daily
// cap, trade interval, and flip handling.
package decision

import (
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/atlas-desktop/scalper-engine/internal/journal"
	"github.com/atlas-desktop/scalper-engine/internal/orchestrator"
	"github.com/atlas-desktop/scalper-engine/internal/scalper"
	"github.com/atlas-desktop/scalper-engine/pkg/types"
	"github.com/atlas-desktop/scalper-engine/pkg/utils"
)

// PositionConflictMode selects how the pipeline resolves a new signal that
// opposes an existing open position.
type PositionConflictMode string

const (
	ConflictIgnore         PositionConflictMode = "ignore"          // same-direction dup: ignore the new signal
	ConflictFlip           PositionConflictMode = "flip"            // close then reopen opposite
	ConflictOppositeScalp  PositionConflictMode = "opposite_scalp"  // open a small opposing scalp alongside
	ConflictHedge          PositionConflictMode = "hedge"           // open opposing position, broker permitting
)

// Store is the persistence surface the pipeline needs.
type Store interface {
	orchestrator.Store
	GetBot(id string) (types.Bot, bool)
	SaveBot(types.Bot) error
	SaveDecision(types.Decision) error
	ListDecisionsByBot(botID string) []types.Decision
	FindSignalByDedupeKey(key string) (types.Signal, bool)
	GetPosition(brokerAccountID, symbol string) (types.Position, bool)
	CountOrdersToday(botID, symbol string, now time.Time) int
	ListOrdersByBot(botID string) []types.Order
}

// Pipeline evaluates signals into decisions.
type Pipeline struct {
	store   Store
	orch    *orchestrator.Orchestrator
	journal *journal.Journal
	log     *zap.Logger
	cfg     types.RuntimeConfig
}

// New builds a Pipeline. orch is used to fan out the paired idempotent
// close order a flip decision produces alongside its open decision.
func New(store Store, orch *orchestrator.Orchestrator, j *journal.Journal, log *zap.Logger, cfg types.RuntimeConfig) *Pipeline {
	return &Pipeline{store: store, orch: orch, journal: j, log: log, cfg: cfg}
}

// Evaluate runs the full decision pipeline for a Signal and returns the
// resulting Decision. It never returns an error for a business-rule block;
// those surface as Decision{Action: ActionIgnore, Reason: "..."}.
func (p *Pipeline) Evaluate(sig types.Signal, scalperCfg types.ScalperConfig, rc scalper.RiskContext, now time.Time) types.Decision {
	if existing, dup := p.store.FindSignalByDedupeKey(sig.DedupeKey); dup && existing.ID != sig.ID {
		return p.ignore(sig, "duplicate signal")
	}

	bot, ok := p.store.GetBot(sig.BotID)
	if !ok {
		return p.ignore(sig, "bot not found")
	}
	if bot.Status != types.BotStatusActive || !bot.AutoTrade {
		return p.ignore(sig, "bot not active for auto-trading")
	}
	if bot.IsPaused(now) {
		return p.ignore(sig, "bot is paused")
	}

	riskDecision := scalper.CheckRisk(scalperCfg, rc)
	if !riskDecision.Allowed {
		return p.ignore(sig, riskDecision.Reason)
	}

	score := p.scoreOf(sig)
	minScore := p.cfg.DecisionMinScore
	if bot.DecisionMinScore.GreaterThan(minScore) {
		minScore = bot.DecisionMinScore
	}
	if score.LessThan(minScore) {
		return p.ignore(sig, "score below minimum")
	}

	existingPos, hasPosition := p.store.GetPosition(bot.BrokerAccountID, sig.Symbol)
	if hasPosition && existingPos.Status == types.PositionStatusOpen && !existingPos.Qty.IsZero() {
		if existingPos.Side() == sig.Direction {
			return p.ignore(sig, "same-direction position already open")
		}
		return p.resolveConflict(sig, bot, existingPos, score, now)
	}

	tradesSymbol := p.store.CountOrdersToday(bot.ID, sig.Symbol, now)
	if bot.MaxTradesPerDay > 0 && tradesSymbol >= bot.MaxTradesPerDay {
		return p.ignore(sig, "daily trade cap reached")
	}

	if p.cfg.DecisionOrderCooldownSec > 0 {
		if cooldownActive(p.store.ListOrdersByBot(bot.ID), sig.Symbol, now, p.cfg.DecisionOrderCooldownSec) {
			return p.ignore(sig, "order cooldown active")
		}
	}

	if bot.TradeIntervalMinutes > 0 {
		if lastOpenDecisionAge, ok := p.lastOpenDecisionAge(bot.ID, now); ok && lastOpenDecisionAge < time.Duration(bot.TradeIntervalMinutes)*time.Minute {
			return p.ignore(sig, "trade interval not elapsed")
		}
	}

	return p.open(sig, bot, score, now, false)
}

func (p *Pipeline) scoreOf(sig types.Signal) decimal.Decimal {
	if raw, ok := sig.Payload["score"]; ok {
		switch v := raw.(type) {
		case string:
			if d, err := decimal.NewFromString(v); err == nil {
				return d
			}
		case float64:
			return decimal.NewFromFloat(v)
		}
	}
	return decimal.NewFromFloat(0.5)
}

func (p *Pipeline) resolveConflict(sig types.Signal, bot types.Bot, pos types.Position, score decimal.Decimal, now time.Time) types.Decision {
	if score.LessThan(p.cfg.DecisionFlipScore) {
		return p.ignore(sig, "opposing signal below flip score")
	}
	if !bot.AllowOppositeScalp && !p.cfg.DecisionAllowHedging {
		if scalper.FlipCooldownActive(bot.ScalperParams.LastFlipAt, now, p.cfg.DecisionFlipCooldownMin) {
			return p.ignore(sig, "flip cooldown active")
		}
		if p.cfg.DecisionMaxFlipsPerDay > 0 && p.flipsToday(bot.ID, now) >= p.cfg.DecisionMaxFlipsPerDay {
			return p.ignore(sig, "daily flip cap reached")
		}
		bot.ScalperParams.LastFlipAt = now
		_ = p.store.SaveBot(bot)
		d := p.open(sig, bot, score, now, false)
		p.closeForFlip(sig, bot, pos, now)
		return d
	}
	if p.cfg.DecisionAllowHedging {
		return p.open(sig, bot, score, now, false)
	}
	return p.open(sig, bot, score, now, true) // opposite_scalp: open a small opposing position
}

// closeForFlip persists the paired close decision a flip produces, tied to
// the same signal as the primary open decision, and fans it out to an
// idempotent close order so the original position is actually flattened
// rather than left open alongside the new one.
func (p *Pipeline) closeForFlip(sig types.Signal, bot types.Bot, pos types.Position, now time.Time) {
	d := types.Decision{
		ID:        utils.GenerateDecisionID(),
		SignalID:  sig.ID,
		BotID:     bot.ID,
		Action:    types.ActionClose,
		Reason:    "flip_close",
		Params:    types.DecisionParams{PositionID: pos.BrokerAccountID + "|" + pos.Symbol},
		CreatedAt: now,
	}
	_ = p.store.SaveDecision(d)
	if p.orch == nil {
		return
	}
	order, err := p.orch.CreateCloseOrder(pos, bot, now)
	if err != nil {
		if p.log != nil {
			p.log.Error("failed to create flip close order", zap.Error(err), zap.String("symbol", pos.Symbol))
		}
		return
	}
	if p.journal != nil {
		p.journal.Log(journal.Event{Type: "decision.flip_close", BotID: bot.ID, Symbol: sig.Symbol, SignalID: sig.ID, DecisionID: d.ID, OrderID: order.ID})
	}
}

// flipsToday counts today's flip_close decisions for bot, gating
// DecisionMaxFlipsPerDay.
func (p *Pipeline) flipsToday(botID string, now time.Time) int {
	y, m, d := now.Date()
	count := 0
	for _, dec := range p.store.ListDecisionsByBot(botID) {
		if dec.Action != types.ActionClose || dec.Reason != "flip_close" {
			continue
		}
		dy, dm, dd := dec.CreatedAt.Date()
		if dy == y && dm == m && dd == d {
			count++
		}
	}
	return count
}

// lastOpenDecisionAge returns how long ago bot's most recent open decision
// was created, or (0, false) if it has none yet.
func (p *Pipeline) lastOpenDecisionAge(botID string, now time.Time) (time.Duration, bool) {
	var mostRecent time.Time
	for _, dec := range p.store.ListDecisionsByBot(botID) {
		if dec.Action != types.ActionOpen {
			continue
		}
		if dec.CreatedAt.After(mostRecent) {
			mostRecent = dec.CreatedAt
		}
	}
	if mostRecent.IsZero() {
		return 0, false
	}
	return now.Sub(mostRecent), true
}

func (p *Pipeline) open(sig types.Signal, bot types.Bot, score decimal.Decimal, now time.Time, scalp bool) types.Decision {
	qty := bot.DefaultQty
	if scalp {
		qty = qty.Mul(p.cfg.DecisionScalpQtyMultiplier)
	}
	params := types.DecisionParams{Qty: &qty}
	if sl, ok := sig.Payload["sl"]; ok {
		if d := toDecimal(sl); d != nil {
			params.SL = d
		}
	}
	if tp, ok := sig.Payload["tp"]; ok {
		if d := toDecimal(tp); d != nil {
			params.TP = d
		}
	}
	d := types.Decision{
		ID:        utils.GenerateDecisionID(),
		SignalID:  sig.ID,
		BotID:     bot.ID,
		Action:    types.ActionOpen,
		Reason:    "signal cleared decision pipeline",
		Score:     score,
		Params:    params,
		CreatedAt: now,
	}
	_ = p.store.SaveDecision(d)
	if p.journal != nil {
		p.journal.Log(journal.Event{Type: "decision.open", BotID: bot.ID, Symbol: sig.Symbol, SignalID: sig.ID, DecisionID: d.ID,
			Context: map[string]any{"score": score.String()}})
	}
	return d
}

func (p *Pipeline) ignore(sig types.Signal, reason string) types.Decision {
	d := types.Decision{
		ID:        utils.GenerateDecisionID(),
		SignalID:  sig.ID,
		BotID:     sig.BotID,
		Action:    types.ActionIgnore,
		Reason:    reason,
		CreatedAt: time.Now(),
	}
	_ = p.store.SaveDecision(d)
	if p.journal != nil {
		p.journal.Log(journal.Event{Type: "decision.ignore", BotID: sig.BotID, Symbol: sig.Symbol, SignalID: sig.ID, DecisionID: d.ID,
			Severity: types.SeverityInfo, Message: reason})
	}
	return d
}

func cooldownActive(orders []types.Order, symbol string, now time.Time, cooldownSec int) bool {
	var mostRecent time.Time
	for _, o := range orders {
		if o.Symbol != symbol {
			continue
		}
		if o.CreatedAt.After(mostRecent) {
			mostRecent = o.CreatedAt
		}
	}
	if mostRecent.IsZero() {
		return false
	}
	return now.Sub(mostRecent) < time.Duration(cooldownSec)*time.Second
}

func toDecimal(v any) *decimal.Decimal {
	switch t := v.(type) {
	case string:
		if d, err := decimal.NewFromString(t); err == nil {
			return &d
		}
	case float64:
		d := decimal.NewFromFloat(t)
		return &d
	}
	return nil
}
