// Package monitor runs the per-position policy step each scheduler tick:
// early exit, trailing stop, and kill-switch checks funneled through one
// evaluation per position instead of three independently scheduled races.
package monitor

import (
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/atlas-desktop/scalper-engine/internal/indicators"
	"github.com/atlas-desktop/scalper-engine/internal/journal"
	"github.com/atlas-desktop/scalper-engine/internal/orchestrator"
	"github.com/atlas-desktop/scalper-engine/pkg/types"
)

// PolicyAction is what the policy step decided to do with a position this
// tick.
type PolicyAction string

const (
	ActionNone         PolicyAction = "none"
	ActionEarlyExit    PolicyAction = "early_exit"
	ActionKillSwitch   PolicyAction = "kill_switch"
	ActionTrailingMove PolicyAction = "trailing_move"
)

// PolicyResult is the outcome of evaluating one position.
type PolicyResult struct {
	Action  PolicyAction
	NewSL   decimal.Decimal
	Reason  string
}

// Store is the persistence surface the monitor needs.
type Store interface {
	orchestrator.Store
	GetBot(id string) (types.Bot, bool)
	SavePosition(types.Position) error
}

// Monitor runs the per-position policy step.
type Monitor struct {
	store   Store
	orch    *orchestrator.Orchestrator
	journal *journal.Journal
	log     *zap.Logger
	cfg     types.RuntimeConfig
}

// New builds a Monitor.
func New(store Store, orch *orchestrator.Orchestrator, j *journal.Journal, log *zap.Logger, cfg types.RuntimeConfig) *Monitor {
	return &Monitor{store: store, orch: orch, journal: j, log: log, cfg: cfg}
}

// unrealizedPnL computes a position's floating PnL at lastPrice.
func unrealizedPnL(pos types.Position, lastPrice decimal.Decimal) decimal.Decimal {
	if pos.Side() == types.SideBuy {
		return lastPrice.Sub(pos.AvgPrice).Mul(pos.Qty)
	}
	return pos.AvgPrice.Sub(lastPrice).Mul(pos.Qty.Abs())
}

func notional(pos types.Position, lastPrice decimal.Decimal) decimal.Decimal {
	return pos.Qty.Abs().Mul(lastPrice)
}

// shouldEarlyExit reports whether floating loss relative to notional has
// crossed maxUnrealizedPct (the runtime EarlyExitMaxUnrealizedPct setting).
func shouldEarlyExit(pos types.Position, lastPrice decimal.Decimal, maxUnrealizedPct decimal.Decimal) bool {
	if maxUnrealizedPct.LessThanOrEqual(decimal.Zero) {
		return false
	}
	pnl := unrealizedPnL(pos, lastPrice)
	if pnl.GreaterThanOrEqual(decimal.Zero) {
		return false
	}
	n := notional(pos, lastPrice)
	if n.IsZero() {
		return false
	}
	lossPct := pnl.Abs().Div(n)
	return lossPct.GreaterThanOrEqual(maxUnrealizedPct)
}

// shouldTriggerKillSwitch reports a more severe condition than early exit:
// a floating loss at or beyond twice the bot's kill-switch threshold, or a
// loss combined with the engine having flipped to the opposite bias.
func shouldTriggerKillSwitch(pos types.Position, lastPrice decimal.Decimal, killSwitchPct decimal.Decimal, engineOpposite bool) bool {
	if killSwitchPct.LessThanOrEqual(decimal.Zero) {
		return false
	}
	pnl := unrealizedPnL(pos, lastPrice)
	if pnl.GreaterThanOrEqual(decimal.Zero) {
		return false
	}
	n := notional(pos, lastPrice)
	if n.IsZero() {
		return false
	}
	lossPct := pnl.Abs().Div(n)
	if engineOpposite && lossPct.GreaterThan(decimal.Zero) {
		return true
	}
	return lossPct.GreaterThanOrEqual(killSwitchPct.Mul(decimal.NewFromInt(2)))
}

// trailingStop computes an ATR-scaled trailing stop distance behind price,
// only moving the stop in the position's favor (never loosening it).
func trailingStop(pos types.Position, lastPrice decimal.Decimal, atr decimal.Decimal, distanceMult decimal.Decimal) (decimal.Decimal, bool) {
	if atr.IsZero() {
		return decimal.Zero, false
	}
	distance := atr.Mul(distanceMult)
	if pos.Side() == types.SideBuy {
		candidate := lastPrice.Sub(distance)
		if candidate.GreaterThan(pos.SL) {
			return candidate, true
		}
		return decimal.Zero, false
	}
	candidate := lastPrice.Add(distance)
	if pos.SL.IsZero() || candidate.LessThan(pos.SL) {
		return candidate, true
	}
	return decimal.Zero, false
}

// EvaluatePosition runs the single per-position policy step: kill-switch
// first (most severe), then early exit, then trailing. Only one action is
// taken per tick; a kill-switch or early-exit close short-circuits the
// trailing check since the position is about to be closed anyway.
func (m *Monitor) EvaluatePosition(pos types.Position, bot types.Bot, lastPrice decimal.Decimal, atr decimal.Decimal, engineOpposite bool, now time.Time) PolicyResult {
	if shouldTriggerKillSwitch(pos, lastPrice, bot.KillSwitch.MaxUnrealizedPct, engineOpposite) {
		m.closePosition(pos, bot, "kill_switch", now)
		return PolicyResult{Action: ActionKillSwitch, Reason: "floating loss breached kill-switch threshold"}
	}
	if shouldEarlyExit(pos, lastPrice, m.cfg.EarlyExitMaxUnrealizedPct) {
		m.closePosition(pos, bot, "early_exit", now)
		return PolicyResult{Action: ActionEarlyExit, Reason: "floating loss breached early-exit threshold"}
	}

	triggerPct := m.cfg.TrailingTriggerPct
	pnlPct := decimal.Zero
	n := notional(pos, lastPrice)
	if !n.IsZero() {
		pnlPct = unrealizedPnL(pos, lastPrice).Div(n)
	}
	if pnlPct.GreaterThanOrEqual(triggerPct) {
		if newSL, moved := trailingStop(pos, lastPrice, atr, m.cfg.TrailingDistanceATRMult); moved {
			pos.SL = newSL
			pos.UpdatedAt = now
			_ = m.store.SavePosition(pos)
			if m.journal != nil {
				m.journal.Log(journal.Event{Type: "monitor.trailing_move", BotID: bot.ID, Symbol: pos.Symbol,
					Context: map[string]any{"newSl": newSL.String()}})
			}
			return PolicyResult{Action: ActionTrailingMove, NewSL: newSL, Reason: "trailing stop advanced"}
		}
	}
	return PolicyResult{Action: ActionNone}
}

func (m *Monitor) closePosition(pos types.Position, bot types.Bot, reason string, now time.Time) {
	order, err := m.orch.CreateCloseOrder(pos, bot, now)
	if err != nil {
		if m.log != nil {
			m.log.Error("failed to create close order", zap.Error(err), zap.String("symbol", pos.Symbol))
		}
		return
	}
	if m.journal != nil {
		m.journal.Log(journal.Event{Type: "monitor." + reason, BotID: bot.ID, Symbol: pos.Symbol, OrderID: order.ID,
			Severity: types.SeverityWarning, Message: reason})
	}
}

// ATRForTrailing is a small convenience wrapper so callers don't need to
// import internal/indicators directly just to feed EvaluatePosition.
func ATRForTrailing(candles []types.Candle, period int) decimal.Decimal {
	return indicators.ATR(candles, period)
}
