package strategy

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/atlas-desktop/scalper-engine/internal/indicators"
	"github.com/atlas-desktop/scalper-engine/pkg/types"
)

// volatility pools: which named strategies suit high/mid/low realized
// volatility, as a ratio of ATR to last close.
var highVolPool = []string{StrategyMomentumIgnition, StrategyBreakoutRetest, StrategyCompositeSMC, StrategyThreeSoldiers}
var midVolPool = []string{StrategyTrendPullback, StrategyPriceActionPinbar, StrategyDojiBreakout, StrategyEngulfing}
var lowVolPool = []string{StrategyRangeReversion, StrategyHammer, StrategyShootingStar, StrategyHarami, StrategyMarubozu}

// symbolBias reorders a pool to prefer strategies known to suit a symbol's
// typical microstructure (e.g. gold's wick-heavy pinbars, majors' cleaner
// structure breaks).
var symbolBias = map[string][]string{
	"BTCUSD":  {StrategyMomentumIgnition, StrategyCompositeSMC, StrategyBreakoutRetest},
	"XAUUSD":  {StrategyPriceActionPinbar, StrategyCompositeSMC, StrategyTrendPullback},
	"EURUSD":  {StrategyTrendPullback, StrategyBreakoutRetest, StrategyCompositeSMC},
	"GBPUSD":  {StrategyTrendPullback, StrategyBreakoutRetest, StrategyCompositeSMC},
}

// Select narrows a bot's available strategy set down to at most maxStrategies
// candidates, biased by realized volatility, spread, session, and symbol.
// It is a pre-filter ahead of the Engine, not a replacement for it: the
// Engine still arbitrates among whatever Select returns.
func Select(candles []types.Candle, ctx types.EngineContext, available []string, maxStrategies int) []string {
	if maxStrategies <= 0 {
		maxStrategies = 3
	}
	availableSet := make(map[string]bool, len(available))
	for _, s := range available {
		availableSet[s] = true
	}

	pool := poolForVolatility(candles)
	pool = reorderForSession(pool, ctx.Session)
	pool = reorderForSymbol(pool, ctx.Symbol)
	pool = filterWideSpread(pool, candles, ctx)

	var filtered []string
	seen := make(map[string]bool)
	for _, name := range pool {
		if availableSet[name] && !seen[name] {
			filtered = append(filtered, name)
			seen[name] = true
		}
	}
	if len(filtered) == 0 {
		filtered = available
	}
	if len(filtered) > maxStrategies {
		filtered = filtered[:maxStrategies]
	}
	return filtered
}

func poolForVolatility(candles []types.Candle) []string {
	if len(candles) < 15 {
		return midVolPool
	}
	atr := indicators.ATR(candles, 14)
	lastClose := candles[len(candles)-1].Close
	if lastClose.IsZero() {
		return midVolPool
	}
	ratio := atr.Div(lastClose)
	switch {
	case ratio.GreaterThan(decimal.NewFromFloat(0.006)):
		return highVolPool
	case ratio.LessThan(decimal.NewFromFloat(0.002)):
		return lowVolPool
	default:
		return midVolPool
	}
}

func reorderForSession(pool []string, session types.SessionWindow) []string {
	switch session {
	case types.SessionLondon, types.SessionNewYork:
		return prepend(pool, StrategyTrendPullback, StrategyBreakoutRetest)
	case types.SessionAsia, types.SessionOvernight:
		return prepend(pool, StrategyRangeReversion, StrategyHarami)
	default:
		return pool
	}
}

func reorderForSymbol(pool []string, symbol string) []string {
	bias, ok := symbolBias[strings.ToUpper(symbol)]
	if !ok {
		return pool
	}
	return prepend(pool, bias...)
}

// filterWideSpread keeps only precise reversal strategies when the spread is
// unusually wide relative to price, since momentum/breakout entries bleed
// too much edge to the spread in that regime.
func filterWideSpread(pool []string, candles []types.Candle, ctx types.EngineContext) []string {
	if len(candles) == 0 {
		return pool
	}
	lastClose := candles[len(candles)-1].Close
	if lastClose.IsZero() || ctx.SpreadPoints.IsZero() {
		return pool
	}
	spreadRatio := ctx.SpreadPoints.Div(lastClose)
	if spreadRatio.LessThanOrEqual(decimal.NewFromFloat(0.001)) {
		return pool
	}
	precise := map[string]bool{
		StrategyPriceActionPinbar: true,
		StrategyCompositeSMC:      true,
		StrategyHarami:            true,
		StrategyEngulfing:         true,
	}
	var out []string
	for _, name := range pool {
		if precise[name] {
			out = append(out, name)
		}
	}
	if len(out) == 0 {
		return pool
	}
	return out
}

func prepend(pool []string, names ...string) []string {
	out := make([]string, 0, len(pool)+len(names))
	seen := make(map[string]bool)
	for _, n := range names {
		out = append(out, n)
		seen[n] = true
	}
	for _, n := range pool {
		if !seen[n] {
			out = append(out, n)
			seen[n] = true
		}
	}
	return out
}
