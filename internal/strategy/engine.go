package strategy

import (
	"go.uber.org/zap"

	"github.com/atlas-desktop/scalper-engine/pkg/types"
)

// Named strategy identifiers, in the engine's fixed priority order (highest
// first). A bot enables a subset by name; the arbitrator evaluates only the
// enabled subset, in this order, and returns the first strategy that
// triggers once conflict detection has ruled out a contradictory signal.
const (
	StrategyCompositeSMC            = "composite_smc"
	StrategyMomentumIgnition        = "momentum_ignition"
	StrategyTrendPullback           = "trend_pullback"
	StrategyBreakoutRetest          = "breakout_retest"
	StrategyRangeReversion          = "range_reversion"
	StrategyPriceActionPinbar       = "price_action_pinbar"
	StrategyDojiBreakout            = "doji_breakout"
	StrategyThreeSoldiers           = "three_soldiers"
	StrategyShootingStar            = "shooting_star"
	StrategyHammer                  = "hammer"
	StrategyMarubozu                = "marubozu"
	StrategyEngulfing               = "engulfing"
	StrategyHarami                  = "harami"
	StrategySansenSutsumiLiquidity  = "sansen_sutsumi_liquidity"
	StrategySanpeTonkachiFVG        = "sanpe_tonkachi_fvg"
)

// PriorityOrder is the fixed evaluation order for the engine arbitrator.
// sansen_sutsumi_liquidity and sanpe_tonkachi_fvg are deliberately excluded
// here: they are inputs CompositeSMC consumes directly and are not
// independently selectable strategies in the arbitrator.
var PriorityOrder = []string{
	StrategyCompositeSMC,
	StrategyMomentumIgnition,
	StrategyTrendPullback,
	StrategyBreakoutRetest,
	StrategyRangeReversion,
	StrategyPriceActionPinbar,
	StrategyDojiBreakout,
	StrategyThreeSoldiers,
	StrategyShootingStar,
	StrategyHammer,
	StrategyMarubozu,
	StrategyEngulfing,
	StrategyHarami,
}

// Registry maps a strategy name to its pure evaluation function.
var Registry = map[string]types.StrategyFunc{
	StrategyCompositeSMC:           CompositeSMC,
	StrategyMomentumIgnition:       MomentumIgnition,
	StrategyTrendPullback:          TrendPullback,
	StrategyBreakoutRetest:         BreakoutRetest,
	StrategyRangeReversion:         RangeReversion,
	StrategyPriceActionPinbar:      PriceActionPinbar,
	StrategyDojiBreakout:           DojiBreakout,
	StrategyThreeSoldiers:          ThreeSoldiers,
	StrategyShootingStar:           ShootingStar,
	StrategyHammer:                 Hammer,
	StrategyMarubozu:               Marubozu,
	StrategyEngulfing:              Engulfing,
	StrategyHarami:                 Harami,
	StrategySansenSutsumiLiquidity: SansenSutsumiLiquidity,
	StrategySanpeTonkachiFVG:       SanpeTonkachiFVG,
}

// Engine evaluates a bot's enabled strategies and arbitrates a single result.
type Engine struct {
	log *zap.Logger
}

// NewEngine builds an Engine.
func NewEngine(log *zap.Logger) *Engine {
	return &Engine{log: log}
}

// Evaluate runs every enabled strategy (in priority order) against the
// candle series, detects opposite-direction conflicts among what triggered,
// and returns the highest-priority non-conflicting outcome. When two or more
// triggered strategies disagree on direction, Evaluate returns a single
// untriggered outcome with Reason "conflict" rather than guessing.
func (e *Engine) Evaluate(candles []types.Candle, ctx types.EngineContext, enabled []string) types.StrategyOutcome {
	allowed := make(map[string]bool, len(enabled))
	for _, name := range enabled {
		allowed[name] = true
	}

	var triggered []types.StrategyOutcome
	for _, name := range PriorityOrder {
		if !allowed[name] {
			continue
		}
		fn, ok := Registry[name]
		if !ok {
			continue
		}
		outcome := fn(candles, ctx)
		if outcome.Triggered {
			triggered = append(triggered, outcome)
		}
	}

	if len(triggered) == 0 {
		return types.StrategyOutcome{Strategy: "none", Triggered: false, Reason: "no strategy triggered"}
	}

	hasBuy, hasSell := false, false
	for _, o := range triggered {
		if o.Direction == types.SideBuy {
			hasBuy = true
		}
		if o.Direction == types.SideSell {
			hasSell = true
		}
	}
	if hasBuy && hasSell {
		if e.log != nil {
			e.log.Warn("strategy conflict: both buy and sell candidates triggered", zap.Int("count", len(triggered)))
		}
		return types.StrategyOutcome{Strategy: "none", Triggered: false, Reason: "conflict"}
	}

	// triggered is already in priority order because PriorityOrder drove the
	// evaluation loop; the first entry is the highest-priority trigger.
	return triggered[0]
}
