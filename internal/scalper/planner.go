package scalper

import (
	"time"

	"go.uber.org/zap"

	"github.com/atlas-desktop/scalper-engine/internal/strategy"
	"github.com/atlas-desktop/scalper-engine/pkg/types"
	"github.com/atlas-desktop/scalper-engine/pkg/utils"
)

// Planner runs one scalper cycle for a bot: narrows the bot's enabled
// strategies with the AI selector, arbitrates an outcome with the strategy
// engine, and emits a Signal when the outcome clears the bot's score floor.
// It never touches risk limits, positions, or orders directly — those are
// internal/decision's job; Planner's only output is a candidate Signal.
type Planner struct {
	engine *strategy.Engine
	log    *zap.Logger
}

// NewPlanner builds a Planner.
func NewPlanner(log *zap.Logger) *Planner {
	return &Planner{engine: strategy.NewEngine(log), log: log}
}

// Plan evaluates bot's configured scalper strategies against the given
// candle series and returns a candidate Signal, or nil when nothing clears
// the bot's score floor or the bot's own trading window is closed.
func (p *Planner) Plan(bot types.Bot, candles []types.Candle, ctx types.EngineContext, now time.Time) *types.Signal {
	if !IsWithinTradingWindow(bot, now) {
		return nil
	}
	if bot.IsPaused(now) {
		return nil
	}
	if len(bot.EnabledStrategies) == 0 {
		return nil
	}

	selected := strategy.Select(candles, ctx, bot.EnabledStrategies, 3)
	outcome := p.engine.Evaluate(candles, ctx, selected)
	if !outcome.Triggered {
		return nil
	}
	if outcome.Score.LessThan(bot.DecisionMinScore) {
		if p.log != nil {
			p.log.Debug("scalper outcome below score floor",
				zap.String("bot", bot.ID), zap.String("strategy", outcome.Strategy), zap.String("score", outcome.Score.String()))
		}
		return nil
	}

	payload := map[string]any{
		"strategy": outcome.Strategy,
		"reason":   outcome.Reason,
		"score":    outcome.Score.String(),
	}
	if !outcome.SL.IsZero() {
		payload["sl"] = outcome.SL.String()
	}
	if !outcome.TP.IsZero() {
		payload["tp"] = outcome.TP.String()
	}

	return &types.Signal{
		ID:        utils.GenerateSignalID(),
		Source:    "scalper",
		BotID:     bot.ID,
		Symbol:    bot.Asset.Symbol,
		Timeframe: bot.DefaultTimeframe,
		Direction: outcome.Direction,
		Payload:   payload,
		DedupeKey: utils.GenerateID("scalp"),
		CreatedAt: now,
	}
}
